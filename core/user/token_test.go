package user

import (
	"regexp"
	"testing"
	"time"
)

func TestMakeResetToken(t *testing.T) {
	hexRe := regexp.MustCompile("^[0-9a-f]{64}$")

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := MakeResetToken()
		if err != nil {
			t.Fatalf("MakeResetToken() error = %v", err)
		}
		if !hexRe.MatchString(token) {
			t.Fatalf("MakeResetToken() = %q; want 64 hex chars", token)
		}
		if seen[token] {
			t.Fatalf("MakeResetToken() repeated %q", token)
		}
		seen[token] = true
	}
}

func TestPasswordReset_Expired(t *testing.T) {
	now := time.Now().UTC()
	rst := PasswordReset{ExpiresAt: now.Add(24 * time.Hour)}

	if rst.Expired(now) {
		t.Error("Expired() = true before the deadline")
	}
	if rst.Expired(now.Add(23 * time.Hour)) {
		t.Error("Expired() = true with an hour left")
	}
	if !rst.Expired(now.Add(24*time.Hour + time.Second)) {
		t.Error("Expired() = false past the deadline")
	}
}

func TestFormatStudentID(t *testing.T) {
	tests := []struct {
		seq  int
		want string
	}{
		{1, "VCMERN102"},
		{2, "VCMERN103"},
		{9, "VCMERN110"},
		{899, "VCMERN1000"},
	}
	for _, tt := range tests {
		if got := FormatStudentID(tt.seq); got != tt.want {
			t.Errorf("FormatStudentID(%d) = %s, want %s", tt.seq, got, tt.want)
		}
	}
}
