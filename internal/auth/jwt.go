package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User roles carried in session tokens.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Payload is the identity a session token carries.
type Payload struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
}

// Claims represents the JWT payload.
type Claims struct {
	Payload
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer; ttl bounds every token it issues.
func NewSigner(key, issuer string, ttl time.Duration) *Signer {
	return &Signer{key: []byte(key), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a session token for p.
func (s *Signer) Issue(p Payload) (string, error) {
	now := s.now()
	claims := Claims{
		Payload: p,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse validates a token and returns claims.
func (s *Signer) Parse(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return Claims{}, ErrTokenInvalid
	}
	return *claims, nil
}

// NewInviteToken returns an opaque random invitation token.
func NewInviteToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
