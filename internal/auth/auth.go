// Package auth guards the organiser surface: a single bcrypt-hashed
// organiser password is exchanged for a short-lived HS256 token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const organiserSubject = "organiser"

var (
	// ErrInvalidCredentials is returned for a wrong or unconfigured password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for malformed, expired or foreign tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Token is a signed organiser token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Authenticator checks the organiser password and issues tokens.
type Authenticator struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// New returns an Authenticator. With an empty passwordHash every login fails.
func New(passwordHash, secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HashPassword returns a bcrypt hash, for provisioning ORGANISER_PASSWORD_HASH.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Login verifies password and issues a token.
func (a *Authenticator) Login(password string) (Token, error) {
	if len(a.passwordHash) == 0 || len(a.secret) == 0 {
		return Token{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) != nil {
		return Token{}, ErrInvalidCredentials
	}

	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   organiserSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Verify parses raw and checks signature, algorithm, expiry and subject.
func (a *Authenticator) Verify(raw string) error {
	if len(a.secret) == 0 {
		return ErrInvalidToken
	}
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}
	if claims.Subject != organiserSubject {
		return ErrInvalidToken
	}
	return nil
}
