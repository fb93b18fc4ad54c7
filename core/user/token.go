package user

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

// NowFunc is mockable in tests.
var NowFunc = time.Now

const resetTokenBytes = 32

// PasswordReset is a single-use token row for credential setup. It is deleted
// on successful consumption; past ExpiresAt it is invalid and purged on lookup.
type PasswordReset struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (pr PasswordReset) Expired(now time.Time) bool {
	return pr.ExpiresAt.Before(now)
}

// MakeResetToken generates an opaque random hex token with 32 bytes of entropy.
// The token carries no decodable claims; it only exists server-side.
func MakeResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating reset token")
	}
	return hex.EncodeToString(buf), nil
}
