// Package auth issues and verifies the signed tokens used for sessions and
// password resets, and hashes volunteer passwords.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
)

const (
	issuer = "taskflow-connect"

	purposeSession = "session"
	purposeReset   = "password_reset"
)

var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
)

// Session is the verified identity carried by a session token
type Session struct {
	VolunteerID string
	Role        model.Role
	ExpiresAt   time.Time
}

// Reset is the verified content of a password reset token.
// Fingerprint must match the volunteer's current password hash for the token to be usable.
type Reset struct {
	VolunteerID string
	Fingerprint string
}

type claims struct {
	jwt.RegisteredClaims
	Purpose     string     `json:"purpose"`
	Role        model.Role `json:"role,omitempty"`
	Fingerprint string     `json:"fp,omitempty"`
}

// TokenIssuer signs tokens with a shared HS256 secret
type TokenIssuer struct {
	secret  []byte
	session time.Duration
	reset   time.Duration
	Now     func() time.Time
}

// NewTokenIssuer creates an issuer. Both TTLs must be positive.
func NewTokenIssuer(secret string, sessionTTL, resetTTL time.Duration) (*TokenIssuer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if sessionTTL <= 0 || resetTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	return &TokenIssuer{
		secret:  []byte(secret),
		session: sessionTTL,
		reset:   resetTTL,
		Now:     time.Now,
	}, nil
}

// IssueSession returns a session token for the volunteer
func (t *TokenIssuer) IssueSession(volunteerID string, role model.Role) (string, time.Time, error) {
	now := t.Now().UTC()
	expires := now.Add(t.session)
	token, err := t.sign(claims{
		RegisteredClaims: t.registered(volunteerID, now, expires),
		Purpose:          purposeSession,
		Role:             role,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// ParseSession verifies a session token
func (t *TokenIssuer) ParseSession(token string) (*Session, error) {
	c, err := t.parse(token, purposeSession)
	if err != nil {
		return nil, err
	}
	return &Session{
		VolunteerID: c.Subject,
		Role:        c.Role,
		ExpiresAt:   c.ExpiresAt.Time,
	}, nil
}

// IssueReset returns a password reset token bound to the volunteer's current password hash
func (t *TokenIssuer) IssueReset(volunteerID, passwordHash string) (string, error) {
	now := t.Now().UTC()
	return t.sign(claims{
		RegisteredClaims: t.registered(volunteerID, now, now.Add(t.reset)),
		Purpose:          purposeReset,
		Fingerprint:      Fingerprint(passwordHash),
	})
}

// ParseReset verifies a password reset token
func (t *TokenIssuer) ParseReset(token string) (*Reset, error) {
	c, err := t.parse(token, purposeReset)
	if err != nil {
		return nil, err
	}
	return &Reset{VolunteerID: c.Subject, Fingerprint: c.Fingerprint}, nil
}

// Fingerprint derives a short digest of a password hash. Changing the
// password changes the fingerprint, which retires outstanding reset tokens.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

func (t *TokenIssuer) registered(subject string, now, expires time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
}

func (t *TokenIssuer) sign(c claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) parse(token, purpose string) (*claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if c.Purpose != purpose || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
