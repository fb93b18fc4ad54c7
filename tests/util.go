package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
)

// Config installs a deterministic test configuration and returns it.
func Config() *core.Config {
	if core.Conf == nil {
		core.Conf = &core.Config{
			Env:      "TEST",
			AppName:  "Kazi",
			TestMode: true,
			Build:    "test",
			WorkDir:  core.Getwd(),

			SecretKey:            "test-secret-key-not-for-prod",
			FrontendBaseURL:      "http://localhost:3000",
			PasswordResetTimeout: 24 * time.Hour,

			DefaultFromEmail: mail.Address{Name: "Kazi", Address: "noreply@test.local"},

			Server: core.ServerConfig{
				Host:               "localhost",
				Addr:               ":0",
				JWTExpirationDelta: time.Hour,
			},
		}
	}
	return core.Conf
}

// Logger discards everything; failures under test surface as errors, not logs.
type Logger struct{}

var _ core.Logger = (*Logger)(nil)

func (Logger) Debug(msg string, args ...interface{}) {}
func (Logger) Info(msg string, args ...interface{})  {}
func (Logger) Warn(msg string, args ...interface{})  {}
func (Logger) Error(msg string, args ...interface{}) {}
func (Logger) Fatal(msg string, args ...interface{}) {}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, role, pwd string,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FullName:  name,
		Email:     email,
		Role:      role,
		Remark:    "0",
		Confirmed: true,
		CreatedBy: "admin",
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
