package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/taskflow-connect/pkg/auth"
	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

func newTokens(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	tokens, err := auth.NewTokenIssuer(strings.Repeat("s", 32), time.Hour, 10*time.Minute)
	require.NoError(t, err)
	return tokens
}

func resetTokenFrom(t *testing.T, body string) string {
	t.Helper()
	_, rest, ok := strings.Cut(body, "reset-password?token=")
	require.True(t, ok, "email has no reset link: %q", body)
	return strings.Fields(rest)[0]
}

func TestSignIn(t *testing.T) {
	f := newFixture(t)
	tokens := newTokens(t)

	v, err := CreateVolunteer(f.ctx, f.store, f.logger, f.admin, NewVolunteerInput{
		Name: "Dan", Email: "Dan@Example.org", Password: "hunter22", Team: "Stage",
	})
	require.NoError(t, err)

	res, err := SignIn(f.ctx, f.store, tokens, f.logger, "dan@example.org", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, v.ID, res.Volunteer.ID)
	assert.NotEmpty(t, res.Token)

	actor, err := Authenticate(f.ctx, f.store, tokens, res.Token)
	require.NoError(t, err)
	assert.Equal(t, v.ID, actor.ID)
	assert.Equal(t, model.RoleVolunteer, actor.Role)
}

func TestSignIn_Failures(t *testing.T) {
	f := newFixture(t)
	tokens := newTokens(t)

	_, err := CreateVolunteer(f.ctx, f.store, f.logger, f.admin, NewVolunteerInput{
		Name: "Dan", Email: "dan@example.org", Password: "hunter22",
	})
	require.NoError(t, err)

	_, err = SignIn(f.ctx, f.store, tokens, f.logger, "dan@example.org", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = SignIn(f.ctx, f.store, tokens, f.logger, "nobody@example.org", "hunter22")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = SignIn(f.ctx, f.store, tokens, f.logger, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthenticate_DeletedVolunteer(t *testing.T) {
	f := newFixture(t)
	tokens := newTokens(t)

	token, _, err := tokens.IssueSession(f.bob.ID, f.bob.Role)
	require.NoError(t, err)
	require.NoError(t, DeleteVolunteer(f.ctx, f.store, f.logger, f.admin, f.bob.ID))

	_, err = Authenticate(f.ctx, f.store, tokens, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = Authenticate(f.ctx, f.store, tokens, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	tokens := newTokens(t)

	_, err := CreateVolunteer(f.ctx, f.store, f.logger, f.admin, NewVolunteerInput{
		Name: "Dan", Email: "dan@example.org", Password: "hunter22",
	})
	require.NoError(t, err)

	require.NoError(t, RequestPasswordReset(f.ctx, f.store, tokens, f.notifier, f.logger, "dan@example.org"))
	require.Len(t, f.mail.sent, 1)
	assert.Contains(t, f.mail.sent[0].Body, "https://taskflow.example.org/reset-password?token=")
	token := resetTokenFrom(t, f.mail.sent[0].Body)

	require.NoError(t, ResetPassword(f.ctx, f.store, tokens, f.logger, token, "correct-horse"))

	_, err = SignIn(f.ctx, f.store, tokens, f.logger, "dan@example.org", "correct-horse")
	assert.NoError(t, err)
	_, err = SignIn(f.ctx, f.store, tokens, f.logger, "dan@example.org", "hunter22")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// The link stops working once used
	err = ResetPassword(f.ctx, f.store, tokens, f.logger, token, "another-one")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, RequestPasswordReset(f.ctx, f.store, newTokens(t), f.notifier, f.logger, "ghost@example.org"))
	assert.Empty(t, f.mail.sent)
}

func TestResetPassword_ShortPassword(t *testing.T) {
	f := newFixture(t)
	tokens := newTokens(t)

	token, err := tokens.IssueReset(f.alice.ID, f.alice.PasswordHash)
	require.NoError(t, err)

	err = ResetPassword(f.ctx, f.store, tokens, f.logger, token, "abc")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateProfileName(t *testing.T) {
	f := newFixture(t)

	updated, err := UpdateProfileName(f.ctx, f.store, f.logger, f.alice, "  Alice Smith ")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", updated.Name)

	stored, err := f.store.GetVolunteer(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", stored.Name)

	_, err = UpdateProfileName(f.ctx, f.store, f.logger, f.alice, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateVolunteer(t *testing.T) {
	f := newFixture(t)

	v, err := CreateVolunteer(f.ctx, f.store, f.logger, f.admin, NewVolunteerInput{
		Name: "Eve", Email: "eve@example.org", Password: "secret1", Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://i.pravatar.cc/150?u=eve%40example.org", v.Avatar)
	assert.Equal(t, model.RoleAdmin, v.Role)
	assert.NoError(t, auth.CheckPassword(v.PasswordHash, "secret1"))

	tests := []struct {
		name  string
		actor *db.Volunteer
		input NewVolunteerInput
		want  error
	}{
		{"volunteer actor", f.alice, NewVolunteerInput{Name: "X", Email: "x@example.org", Password: "secret1"}, ErrForbidden},
		{"duplicate email", f.admin, NewVolunteerInput{Name: "X", Email: "EVE@example.org", Password: "secret1"}, db.ErrDuplicate},
		{"short password", f.admin, NewVolunteerInput{Name: "X", Email: "x@example.org", Password: "12345"}, ErrInvalidInput},
		{"bad email", f.admin, NewVolunteerInput{Name: "X", Email: "not-an-email", Password: "secret1"}, ErrInvalidInput},
		{"bad role", f.admin, NewVolunteerInput{Name: "X", Email: "x@example.org", Password: "secret1", Role: "Owner"}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateVolunteer(f.ctx, f.store, f.logger, tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDeleteVolunteer(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, DeleteVolunteer(f.ctx, f.store, f.logger, f.alice, f.bob.ID), ErrForbidden)
	assert.ErrorIs(t, DeleteVolunteer(f.ctx, f.store, f.logger, f.admin, f.admin.ID), ErrInvalidInput)
	require.NoError(t, DeleteVolunteer(f.ctx, f.store, f.logger, f.admin, f.bob.ID))

	volunteers, err := ListVolunteers(f.ctx, f.store)
	require.NoError(t, err)
	assert.Len(t, volunteers, 3)
}
