package tests

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/vairaa/kazi/core/user"
	emailsvc "github.com/vairaa/kazi/services/email"
)

func Test_userLogin(t *testing.T) {
	_, passcode := provision(t, "Jane Login", "login@test.cd", user.RoleStudent)

	rec, body := doRequest(t, http.MethodPost, "/v1/users/login", "", map[string]string{
		"email": "login@test.cd", "password": passcode,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login code = %d, body = %s", rec.Code, body)
	}
	var res struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
	decode(t, body, &res)
	if res.Token == "" || res.User.Email != "login@test.cd" {
		t.Errorf("login response = %+v", res)
	}

	// bad credentials all map onto the same generic failure
	rec, body = doRequest(t, http.MethodPost, "/v1/users/login", "", map[string]string{
		"email": "login@test.cd", "password": "wrong",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad login code = %d", rec.Code)
	}
	var herr httpErr
	decode(t, body, &herr)
	if herr.Error != "authentication failed" {
		t.Errorf("bad login error = %q", herr.Error)
	}
}

func Test_userMe(t *testing.T) {
	usr, passcode := provision(t, "Jane Me", "me@test.cd", user.RoleStudent)
	token := getToken(t, usr.Email, passcode)

	rec, body := doRequest(t, http.MethodGet, "/v1/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me code = %d, body = %s", rec.Code, body)
	}
	var res user.User
	decode(t, body, &res)
	if res.ID != usr.ID || res.StudentID != usr.StudentID {
		t.Errorf("me = %+v, want %+v", res, usr)
	}

	rec, _ = doRequest(t, http.MethodGet, "/v1/users/me", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing token code = %d", rec.Code)
	}
}

func Test_userProvision(t *testing.T) {
	admin, adminPass := provision(t, "Boss", "boss-prov@test.cd", user.RoleAdmin)
	student, studentPass := provision(t, "Student", "student-prov@test.cd", user.RoleStudent)
	_ = admin

	payload := map[string]interface{}{
		"users": []map[string]string{
			{"full_name": "Amani Jores", "email": "amani@test.cd"},
			{"full_name": "Missing Mail"},
		},
	}

	// students may not provision
	rec, _ := doRequest(t, http.MethodPost, "/v1/users/provision", getToken(t, student.Email, studentPass), payload)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student provision code = %d", rec.Code)
	}

	rec, body := doRequest(t, http.MethodPost, "/v1/users/provision", getToken(t, admin.Email, adminPass), payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("provision code = %d, body = %s", rec.Code, body)
	}
	var res struct {
		Results []user.ProvisionResult `json:"results"`
	}
	decode(t, body, &res)
	if len(res.Results) != 2 {
		t.Fatalf("results = %+v", res.Results)
	}
	if !res.Results[0].OK || res.Results[0].StudentID == "" || res.Results[0].Passcode == "" {
		t.Errorf("first result = %+v", res.Results[0])
	}
	if res.Results[1].OK || res.Results[1].Error == "" {
		t.Errorf("invalid item result = %+v", res.Results[1])
	}
}

func Test_userSignup(t *testing.T) {
	rec, body := doRequest(t, http.MethodPost, "/v1/users/signup", "", map[string]string{
		"full_name": "Self Made", "email": "selfmade@test.cd",
		"password": "Tr1cky!pass", "password_confirm": "Tr1cky!pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup code = %d, body = %s", rec.Code, body)
	}
	var res user.User
	decode(t, body, &res)
	if res.Confirmed || res.Role != user.RoleStudent {
		t.Errorf("signup user = %+v", res)
	}

	// weak password rejected with a field error
	rec, _ = doRequest(t, http.MethodPost, "/v1/users/signup", "", map[string]string{
		"full_name": "Weak", "email": "weak@test.cd",
		"password": "short", "password_confirm": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("weak signup code = %d", rec.Code)
	}
}

func Test_userPasswordSetupRequest(t *testing.T) {
	rec, body := doRequest(t, http.MethodPost, "/v1/users/password-setup", "", map[string]string{
		"email": "ghost@test.cd",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown email code = %d, body = %s", rec.Code, body)
	}

	provision(t, "Resetta", "resetta@test.cd", user.RoleStudent)
	rec, _ = doRequest(t, http.MethodPost, "/v1/users/password-setup", "", map[string]string{
		"email": "resetta@test.cd",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("password-setup code = %d", rec.Code)
	}
}

var tokenRe = regexp.MustCompile(`token=([0-9a-f]{64})`)

func Test_userPasswordSetupConfirm(t *testing.T) {
	provision(t, "Confir Ma", "confirma@test.cd", user.RoleStudent)
	emailsvc.ClearSentMessages()

	rec, _ := doRequest(t, http.MethodPost, "/v1/users/password-setup", "", map[string]string{
		"email": "confirma@test.cd",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("password-setup code = %d", rec.Code)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent %d mails, want 1", len(emailsvc.SentMessages))
	}
	m := tokenRe.FindStringSubmatch(emailsvc.SentMessages[0].TextContent)
	if m == nil {
		t.Fatalf("no token link in mail:\n%s", emailsvc.SentMessages[0].TextContent)
	}
	token := m[1]

	newPwd := "Br4nd!new-pwd"
	rec, body := doRequest(t, http.MethodPost, "/v1/users/password-setup-confirm", "", map[string]string{
		"token": token, "password": newPwd, "password_confirm": newPwd,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm code = %d, body = %s", rec.Code, body)
	}
	if tok := getToken(t, "confirma@test.cd", newPwd); tok == "" {
		t.Error("login with new password returned empty token")
	}

	// a token is single use
	rec, _ = doRequest(t, http.MethodPost, "/v1/users/password-setup-confirm", "", map[string]string{
		"token": token, "password": newPwd, "password_confirm": newPwd,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("reused token code = %d, want 404", rec.Code)
	}
}

func Test_userQuery_adminOnly(t *testing.T) {
	admin, adminPass := provision(t, "Boss Q", "boss-query@test.cd", user.RoleAdmin)

	rec, body := doRequest(t, http.MethodGet, "/v1/users?role=admin", getToken(t, admin.Email, adminPass), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("query code = %d, body = %s", rec.Code, body)
	}
	var res []user.User
	decode(t, body, &res)
	for _, u := range res {
		if u.Role != user.RoleAdmin {
			t.Errorf("role filter leaked %+v", u)
		}
	}
}
