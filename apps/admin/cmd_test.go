package main

import (
	"context"
	"database/sql"
	"testing"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
	emailsvc "github.com/vairaa/kazi/services/email"
	identitysvc "github.com/vairaa/kazi/services/identity"
	inmemdb "github.com/vairaa/kazi/storage/database/inmem"
	testutil "github.com/vairaa/kazi/tests"
)

func setupCLI(t *testing.T) (*commandLine, *user.Service, core.IdentityProvider) {
	t.Helper()
	testutil.Config()
	emailsvc.ClearSentMessages()

	db := inmemdb.NewDB()
	repo := inmemdb.NewUserRepository(db)
	profileRepo := inmemdb.NewProfileRepository(db)
	identity := identitysvc.NewService(identitysvc.NewInMemoryStore())
	mailSvc := emailsvc.NewConsoleServiceMock()

	usrSvc := user.NewService(db, repo, profileRepo, profileRepo, identity, mailSvc, testutil.Logger{})
	return &commandLine{usrSvc: usrSvc}, usrSvc, identity
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func TestCLI_help(t *testing.T) {
	cli, _, _ := setupCLI(t)

	tests := [][]string{
		{"admin"},
		{"admin", "bogus"},
		{"admin", "adduser"},                     // missing flags
		{"admin", "resetpassword"},               // missing flags
		{"admin", "migrate"},                     // missing goose command
		{"admin", "adduser", "-name", "No Mail"}, // missing email
	}
	for _, args := range tests {
		if err := cli.run(args); err != errHelp {
			t.Errorf("run(%v) error = %v, want errHelp", args, err)
		}
	}
}

func TestCLI_emptyPasswordIsHelp(t *testing.T) {
	cli, _, _ := setupCLI(t)
	mockPassword(t, "")

	args := []string{"admin", "adduser", "-name", "Root", "-email", "root@test.cd"}
	if err := cli.run(args); err != errHelp {
		t.Errorf("run(%v) error = %v, want errHelp", args, err)
	}
}

func TestCLI_addUser(t *testing.T) {
	cli, usrSvc, identity := setupCLI(t)
	mockPassword(t, "Sup3r!secret")
	ctx := context.Background()

	args := []string{"admin", "adduser", "-name", "Root Admin", "-email", " ROOT@test.cd "}
	if err := cli.run(args); err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}

	usr, err := usrSvc.GetByEmail(ctx, "root@test.cd")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if usr.Role != user.RoleAdmin {
		t.Errorf("role = %q, want %q", usr.Role, user.RoleAdmin)
	}
	if _, err := identity.SignIn(ctx, "root@test.cd", "Sup3r!secret"); err != nil {
		t.Errorf("SignIn() with chosen password error = %v", err)
	}

	// running again for the same email resets the password instead of failing
	mockPassword(t, "An0ther!secret")
	if err := cli.run(args); err != nil {
		t.Fatalf("second run(%v) error = %v", args, err)
	}
	if _, err := identity.SignIn(ctx, "root@test.cd", "An0ther!secret"); err != nil {
		t.Errorf("SignIn() after re-add error = %v", err)
	}
}

func TestCLI_addUserPromotesExisting(t *testing.T) {
	cli, usrSvc, _ := setupCLI(t)
	ctx := context.Background()

	usrSvc.Provision(ctx, []user.NewUser{
		{FullName: "Plain Student", Email: "plain@test.cd"},
	}, false)

	mockPassword(t, "Prom0te!me")
	args := []string{"admin", "adduser", "-name", "Plain Student", "-email", "plain@test.cd"}
	if err := cli.run(args); err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}

	usr, err := usrSvc.GetByEmail(ctx, "plain@test.cd")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if usr.Role != user.RoleAdmin {
		t.Errorf("role = %q, want %q", usr.Role, user.RoleAdmin)
	}
}

func TestCLI_resetPassword(t *testing.T) {
	cli, usrSvc, identity := setupCLI(t)
	ctx := context.Background()

	results := usrSvc.Provision(ctx, []user.NewUser{
		{FullName: "Jane Mboka", Email: "jane@test.cd"},
	}, false)
	if !results[0].OK {
		t.Fatalf("Provision() failed: %s", results[0].Error)
	}

	mockPassword(t, "Fresh!pwd123")
	args := []string{"admin", "resetpassword", "-email", "jane@test.cd"}
	if err := cli.run(args); err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}

	if _, err := identity.SignIn(ctx, "jane@test.cd", "Fresh!pwd123"); err != nil {
		t.Errorf("SignIn() with reset password error = %v", err)
	}
	if _, err := identity.SignIn(ctx, "jane@test.cd", results[0].Passcode); err == nil {
		t.Error("SignIn() with old passcode succeeded, want failure")
	}
}

func TestCLI_sendCredentials(t *testing.T) {
	cli, usrSvc, _ := setupCLI(t)
	ctx := context.Background()

	usrSvc.Provision(ctx, []user.NewUser{
		{FullName: "Stu One", Email: "one@test.cd"},
		{FullName: "Stu Two", Email: "two@test.cd"},
		{FullName: "Boss", Email: "boss@test.cd", Role: user.RoleAdmin},
	}, false)
	emailsvc.ClearSentMessages()

	if err := cli.run([]string{"admin", "sendcredentials"}); err != nil {
		t.Fatalf("run(sendcredentials) error = %v", err)
	}
	if n := len(emailsvc.SentMessages); n != 2 {
		t.Errorf("sent messages = %d, want 2 (students only)", n)
	}
}

func TestCLI_migrate(t *testing.T) {
	cli, _, _ := setupCLI(t)

	var gotCommand, gotDir string
	var gotArgs []string
	orig := gooseRunFunc
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir, gotArgs = command, dir, args
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = orig })

	if err := cli.run([]string{"admin", "migrate", "up-to", "2"}); err != nil {
		t.Fatalf("run(migrate) error = %v", err)
	}
	if gotCommand != "up-to" || gotDir != "migrations" {
		t.Errorf("goose called with command %q dir %q", gotCommand, gotDir)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "2" {
		t.Errorf("goose args = %v, want [2]", gotArgs)
	}
}
