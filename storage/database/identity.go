package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vairaa/kazi/core"
	identitysvc "github.com/vairaa/kazi/services/identity"
)

type accountRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	PasswordHash []byte      `db:"password_hash"`
	Metadata     null.JSON   `db:"metadata"`
	CreatedAt    time.Time   `db:"created_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r accountRow) toAccount() identitysvc.Account {
	meta := make(map[string]string)
	if r.Metadata.Valid {
		_ = json.Unmarshal(r.Metadata.JSON, &meta)
	}
	return identitysvc.Account{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Metadata:     meta,
		CreatedAt:    r.CreatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

type accountRepository struct {
	db *DB
}

var _ identitysvc.AccountStore = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db}
}

const accountCols = "id, email, password_hash, metadata, created_at, last_login"

func (repo *accountRepository) CreateAccount(ctx context.Context, acct identitysvc.Account) (identitysvc.Account, error) {
	meta, err := json.Marshal(acct.Metadata)
	if err != nil {
		return identitysvc.Account{}, errors.Wrap(err, "encoding account metadata")
	}
	_, err = repo.db.ExecContext(ctx,
		"INSERT INTO identity_accounts (id, email, password_hash, metadata, created_at) VALUES ($1, $2, $3, $4, $5)",
		acct.ID, acct.Email, acct.PasswordHash, meta, acct.CreatedAt.UTC())
	if err != nil {
		return identitysvc.Account{}, errors.Wrap(err, "inserting identity account")
	}
	return acct, nil
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (identitysvc.Account, error) {
	var r accountRow
	err := repo.db.GetContext(ctx, &r, "SELECT "+accountCols+" FROM identity_accounts WHERE email = $1", email)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return identitysvc.Account{}, core.ErrAccountNotFound
		}
		return identitysvc.Account{}, errors.Wrap(err, "getting account by email")
	}
	return r.toAccount(), nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (identitysvc.Account, error) {
	var r accountRow
	err := repo.db.GetContext(ctx, &r, "SELECT "+accountCols+" FROM identity_accounts WHERE id = $1", id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return identitysvc.Account{}, core.ErrAccountNotFound
		}
		return identitysvc.Account{}, errors.Wrap(err, "getting account by id")
	}
	return r.toAccount(), nil
}

func (repo *accountRepository) SetAccountPassword(ctx context.Context, id string, hash []byte) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE identity_accounts SET password_hash = $1 WHERE id = $2", hash, id)
	if err != nil {
		return errors.Wrap(err, "setting account password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

func (repo *accountRepository) SetAccountLastLogin(ctx context.Context, id string, t time.Time) error {
	_, err := repo.db.ExecContext(ctx,
		"UPDATE identity_accounts SET last_login = $1 WHERE id = $2", t.UTC(), id)
	return errors.Wrap(err, "setting account last login")
}
