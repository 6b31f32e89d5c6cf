// Package attendance issues short-lived attendance codes, records their
// redemption and aggregates redemptions into per-day statistics.
package attendance

import (
	"crypto/rand"
	"strings"
	"time"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// Code is an attendance code issued to a teacher for one class session.
type Code struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	TeacherID  string    `json:"teacherId"`
	ClassLabel string    `json:"class"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// IsValid reports whether c can still be redeemed at now.
func IsValid(c Code, now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// newCodeValue returns a random uppercase alphanumeric code.
func newCodeValue() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		// 256 % 36 leaves a slight bias, acceptable for a 2-minute code.
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
