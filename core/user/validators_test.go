package user

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func pwdTag(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		return ""
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("unexpected error type %T: %v", err, err)
	}
	for _, vErr := range vErrs {
		if vErr.Field() == "password" {
			return vErr.Tag()
		}
	}
	return ""
}

func TestSignupPasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantTag  string
	}{
		{"too short", "aB1!", "pwdminlen"},
		{"whitespace", "aB1! aB1!", "pwdnospace"},
		{"all numeric", "123456789", "pwdnotallnum"},
		{"no upper", "abcdef1!", "pwdcplx"},
		{"no digit", "Abcdefg!", "pwdcplx"},
		{"no special", "Abcdefg1", "pwdcplx"},
		{"similar to email", "Jane@test.cd1", "pwdtoosim"},
		{"common", "Passw0rd!", ""}, // not in the common list once complex
		{"ok", "Tr1cky!pass", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			su := Signup{
				FullName: "Jane Mwangi",
				Email:    "jane@test.cd",
				Password: tt.password, PasswordConfirm: tt.password,
			}
			got := pwdTag(t, su.Validate())
			if got != tt.wantTag {
				t.Errorf("password %q: tag = %q, want %q", tt.password, got, tt.wantTag)
			}
		})
	}
}

func TestSetUserPasswordValidate(t *testing.T) {
	sp := SetUserPassword{Token: "tok", Password: "Tr1cky!pass", PasswordConfirm: "nope"}
	err := sp.Validate()
	if err == nil {
		t.Fatal("mismatched confirmation accepted")
	}
	if !strings.Contains(err.Error(), "PasswordConfirm") && !strings.Contains(err.Error(), "password_confirm") {
		t.Errorf("unexpected error: %v", err)
	}

	sp.PasswordConfirm = sp.Password
	if err := sp.Validate(); err != nil {
		t.Errorf("valid input rejected: %v", err)
	}
}

func TestNewUserValidate(t *testing.T) {
	nu := NewUser{FullName: "  Jane  ", Email: " JANE@TEST.CD "}
	if err := nu.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if nu.FullName != "Jane" || nu.Email != "jane@test.cd" {
		t.Errorf("Validate() did not clean input: %+v", nu)
	}
	if nu.Role != RoleStudent {
		t.Errorf("Validate() role = %q, want default %q", nu.Role, RoleStudent)
	}

	nu = NewUser{FullName: "Jane", Email: "jane@test.cd", Role: "wizard"}
	if err := nu.Validate(); err == nil {
		t.Error("Validate() accepted an unknown role")
	}
}
