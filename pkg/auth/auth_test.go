package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() {
	HashCost = bcrypt.MinCost
}

func newIssuer(t *testing.T, now time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret, time.Hour, 15*time.Minute)
	require.NoError(t, err)
	issuer.Now = func() time.Time { return now }
	return issuer
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "secret1"))
	assert.ErrorIs(t, CheckPassword(hash, "secret2"), ErrWrongPassword)
	assert.ErrorIs(t, CheckPassword("", "secret1"), ErrWrongPassword)
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("12345")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestNewTokenIssuer_ShortSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Hour, time.Hour)
	assert.Error(t, err)
}

func TestSessionRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newIssuer(t, now)

	token, expires, err := issuer.IssueSession("vol-1", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	session, err := issuer.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "vol-1", session.VolunteerID)
	assert.Equal(t, model.RoleAdmin, session.Role)
}

func TestParseSession_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newIssuer(t, now)

	token, _, err := issuer.IssueSession("vol-1", model.RoleVolunteer)
	require.NoError(t, err)

	issuer.Now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = issuer.ParseSession(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseSession_RejectsResetToken(t *testing.T) {
	issuer := newIssuer(t, time.Now())

	token, err := issuer.IssueReset("vol-1", "hash")
	require.NoError(t, err)

	_, err = issuer.ParseSession(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseSession_WrongSecret(t *testing.T) {
	issuer := newIssuer(t, time.Now())
	token, _, err := issuer.IssueSession("vol-1", model.RoleVolunteer)
	require.NoError(t, err)

	other, err := NewTokenIssuer(strings.Repeat("x", 32), time.Hour, time.Hour)
	require.NoError(t, err)
	_, err = other.ParseSession(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetRoundTrip(t *testing.T) {
	issuer := newIssuer(t, time.Now())

	token, err := issuer.IssueReset("vol-1", "old-hash")
	require.NoError(t, err)

	reset, err := issuer.ParseReset(token)
	require.NoError(t, err)
	assert.Equal(t, "vol-1", reset.VolunteerID)
	assert.Equal(t, Fingerprint("old-hash"), reset.Fingerprint)
	assert.NotEqual(t, Fingerprint("new-hash"), reset.Fingerprint)
}

func TestParse_Empty(t *testing.T) {
	issuer := newIssuer(t, time.Now())
	_, err := issuer.ParseSession("  ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
