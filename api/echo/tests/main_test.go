package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	echoapi "github.com/vairaa/kazi/api/echo"
	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/task"
	"github.com/vairaa/kazi/core/user"
	emailsvc "github.com/vairaa/kazi/services/email"
	identitysvc "github.com/vairaa/kazi/services/identity"
	inmemdb "github.com/vairaa/kazi/storage/database/inmem"
	testutil "github.com/vairaa/kazi/tests"
)

var (
	handler  http.Handler
	usrSvc   *user.Service
	taskSvc  *task.Service
	identity core.IdentityProvider
)

func TestMain(m *testing.M) {
	testutil.Config()

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	profileRepo := inmemdb.NewProfileRepository(db)
	taskRepo := inmemdb.NewTaskRepository(db)
	identity = identitysvc.NewService(identitysvc.NewInMemoryStore())
	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := testutil.Logger{}

	usrSvc = user.NewService(db, usrRepo, profileRepo, profileRepo, identity, mailSvc, logger)
	taskSvc = task.NewService(db, taskRepo, usrRepo, logger)

	app := echoapi.NewServer(":0", echoapi.Options{
		Logger:   logger,
		UserSvc:  usrSvc,
		TaskSvc:  taskSvc,
		Identity: identity,
	})
	handler = app.Handler()

	os.Exit(m.Run())
}

type httpErr struct {
	Error string `json:"error"`
}

func doRequest(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, rec.Body.Bytes()
}

func decode(t *testing.T, data []byte, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("decoding response %s: %v", data, err)
	}
}

// provision creates one user through the service and returns it with its
// one-time passcode.
func provision(t *testing.T, name, email, role string) (user.User, string) {
	t.Helper()
	results := usrSvc.Provision(context.Background(), []user.NewUser{
		{FullName: name, Email: email, Role: role},
	}, false)
	if !results[0].OK {
		t.Fatalf("provisioning %s: %s", email, results[0].Error)
	}
	return *results[0].User, results[0].Passcode
}

func getToken(t *testing.T, email, pwd string) string {
	t.Helper()
	token, err := identity.SignIn(context.Background(), email, pwd)
	if err != nil {
		t.Fatalf("SignIn(%s): %v", email, err)
	}
	return token
}
