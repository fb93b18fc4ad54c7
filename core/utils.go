package core

import (
	"math/rand"
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

var (
	randSrc       = rand.New(rand.NewSource(time.Now().UnixNano()))
	passcodeChars = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// RandomCode returns a short random alphanumeric string. It is meant for
// one-time credentials communicated out-of-band, not for secrets that must
// resist brute force.
func RandomCode(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(passcodeChars[randSrc.Intn(len(passcodeChars))])
	}
	return b.String()
}
