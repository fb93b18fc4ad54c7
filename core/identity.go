package core

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("identity account not found")
	ErrAccountExists   = errors.New("an account with this email already exists")
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrBadSession      = errors.New("invalid session token")
)

type (
	// IdentityAccount is the identity provider's view of a user.
	IdentityAccount struct {
		ID        string
		Email     string
		Metadata  map[string]string
		CreatedAt time.Time
		LastLogin time.Time
	}

	// IdentityProvider is the external authentication collaborator. It owns the
	// credential store; the relational store only keeps a mirrored password hash.
	IdentityProvider interface {
		CreateAccount(ctx context.Context, email, password string, metadata map[string]string) (IdentityAccount, error)
		VerifyToken(ctx context.Context, token string) (IdentityAccount, error)
		UpdatePassword(ctx context.Context, accountID, password string) error
		SignIn(ctx context.Context, email, password string) (string, error)
	}
)
