package identitysvc

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/vairaa/kazi/core"
)

// NowFunc can be swapped in tests to freeze token timestamps.
var NowFunc = time.Now

type (
	// Account is a credential record owned by the local identity provider.
	Account struct {
		ID           string
		Email        string
		PasswordHash []byte
		Metadata     map[string]string
		CreatedAt    time.Time
		LastLogin    time.Time
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		SetAccountPassword(ctx context.Context, id string, hash []byte) error
		SetAccountLastLogin(ctx context.Context, id string, t time.Time) error
	}
)

func (a Account) identityAccount() core.IdentityAccount {
	return core.IdentityAccount{
		ID:        a.ID,
		Email:     a.Email,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
		LastLogin: a.LastLogin,
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsAdmin   bool   `json:"is_admin"`
	IsStudent bool   `json:"is_student"`
}

type service struct {
	store      AccountStore
	secretKey  []byte
	appName    string
	expiration time.Duration
}

var _ core.IdentityProvider = (*service)(nil)

// NewService returns the local core.IdentityProvider backed by store.
// Sessions are stateless HS256 JWTs signed with the app secret.
func NewService(store AccountStore) *service {
	return &service{
		store:      store,
		secretKey:  []byte(core.Conf.SecretKey),
		appName:    core.Conf.AppName,
		expiration: core.Conf.Server.JWTExpirationDelta,
	}
}

func (svc *service) CreateAccount(ctx context.Context, email, password string, metadata map[string]string) (core.IdentityAccount, error) {
	if _, err := svc.store.GetAccountByEmail(ctx, email); err == nil {
		return core.IdentityAccount{}, core.ErrAccountExists
	} else if errors.Cause(err) != core.ErrAccountNotFound {
		return core.IdentityAccount{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.IdentityAccount{}, errors.Wrap(err, "hashing password")
	}
	acct := Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Metadata:     metadata,
		CreatedAt:    NowFunc().UTC(),
	}
	acct, err = svc.store.CreateAccount(ctx, acct)
	if err != nil {
		return core.IdentityAccount{}, err
	}
	return acct.identityAccount(), nil
}

func (svc *service) SignIn(ctx context.Context, email, password string) (string, error) {
	acct, err := svc.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == core.ErrAccountNotFound {
			return "", core.ErrBadCredentials
		}
		return "", err
	}
	if err = bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		return "", core.ErrBadCredentials
	}

	now := NowFunc()
	if err = svc.store.SetAccountLastLogin(ctx, acct.ID, now); err != nil {
		return "", err
	}

	role := acct.Metadata["role"]
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    svc.appName,
			Subject:   acct.ID,
			ExpiresAt: now.Add(svc.expiration).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:     acct.Email,
		Role:      role,
		IsAdmin:   role == "admin",
		IsStudent: role == "student",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(svc.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing session token")
	}
	return ss, nil
}

func (svc *service) VerifyToken(ctx context.Context, token string) (core.IdentityAccount, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return svc.secretKey, nil
	})
	if err != nil || !parsed.Valid {
		return core.IdentityAccount{}, core.ErrBadSession
	}

	acct, err := svc.store.GetAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Cause(err) == core.ErrAccountNotFound {
			return core.IdentityAccount{}, core.ErrBadSession
		}
		return core.IdentityAccount{}, err
	}
	return acct.identityAccount(), nil
}

func (svc *service) UpdatePassword(ctx context.Context, accountID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.store.SetAccountPassword(ctx, accountID, hash)
}
