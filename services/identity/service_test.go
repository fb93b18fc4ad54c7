package identitysvc

import (
	"context"
	"testing"
	"time"

	"github.com/vairaa/kazi/core"
	testutil "github.com/vairaa/kazi/tests"
)

func newTestService(t *testing.T) *service {
	t.Helper()
	testutil.Config()
	return NewService(NewInMemoryStore())
}

func TestService_CreateAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acct, err := svc.CreateAccount(ctx, "jane@test.cd", "Tr1cky!pass", map[string]string{"role": "student"})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if acct.ID == "" || acct.Email != "jane@test.cd" {
		t.Errorf("CreateAccount() = %+v", acct)
	}
	if acct.Metadata["role"] != "student" {
		t.Errorf("metadata lost: %+v", acct.Metadata)
	}

	if _, err := svc.CreateAccount(ctx, "jane@test.cd", "other", nil); err != core.ErrAccountExists {
		t.Errorf("duplicate CreateAccount() error = %v, want ErrAccountExists", err)
	}
}

func TestService_SignIn(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acct, err := svc.CreateAccount(ctx, "jane@test.cd", "Tr1cky!pass", map[string]string{"role": "admin"})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	token, err := svc.SignIn(ctx, "jane@test.cd", "Tr1cky!pass")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if token == "" {
		t.Fatal("SignIn() returned an empty token")
	}

	if _, err := svc.SignIn(ctx, "jane@test.cd", "wrong"); err != core.ErrBadCredentials {
		t.Errorf("wrong password error = %v, want ErrBadCredentials", err)
	}
	if _, err := svc.SignIn(ctx, "ghost@test.cd", "Tr1cky!pass"); err != core.ErrBadCredentials {
		t.Errorf("unknown email error = %v, want ErrBadCredentials", err)
	}

	// tokens verify back to the same account
	verified, err := svc.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if verified.ID != acct.ID {
		t.Errorf("VerifyToken() account = %s, want %s", verified.ID, acct.ID)
	}
	if verified.LastLogin.IsZero() {
		t.Error("SignIn() did not record last login")
	}
}

func TestService_VerifyToken_expired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "jane@test.cd", "Tr1cky!pass", nil); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	defer func() { NowFunc = time.Now }()
	NowFunc = func() time.Time { return time.Now().Add(-2 * core.Conf.Server.JWTExpirationDelta) }
	token, err := svc.SignIn(ctx, "jane@test.cd", "Tr1cky!pass")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	NowFunc = time.Now

	if _, err := svc.VerifyToken(ctx, token); err != core.ErrBadSession {
		t.Errorf("expired token error = %v, want ErrBadSession", err)
	}
	if _, err := svc.VerifyToken(ctx, "not.a.jwt"); err != core.ErrBadSession {
		t.Errorf("garbage token error = %v, want ErrBadSession", err)
	}
}

func TestService_UpdatePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acct, err := svc.CreateAccount(ctx, "jane@test.cd", "Tr1cky!pass", nil)
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	if err := svc.UpdatePassword(ctx, acct.ID, "N3w!Passw"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	if _, err := svc.SignIn(ctx, "jane@test.cd", "Tr1cky!pass"); err != core.ErrBadCredentials {
		t.Error("old password still accepted")
	}
	if _, err := svc.SignIn(ctx, "jane@test.cd", "N3w!Passw"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	if err := svc.UpdatePassword(ctx, "ghost", "N3w!Passw"); err != core.ErrAccountNotFound {
		t.Errorf("unknown account error = %v, want ErrAccountNotFound", err)
	}
}
