package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/auth"
	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// Tokens issues and verifies session and reset tokens
type Tokens interface {
	IssueSession(volunteerID string, role model.Role) (string, time.Time, error)
	ParseSession(token string) (*auth.Session, error)
	IssueReset(volunteerID, passwordHash string) (string, error)
	ParseReset(token string) (*auth.Reset, error)
}

// SignInResult is returned on a successful sign in
type SignInResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Volunteer *db.Volunteer `json:"volunteer"`
}

// SignIn checks an email and password and issues a session token
func SignIn(ctx context.Context, store db.VolunteerStore, tokens Tokens, logger *zap.Logger, email, password string) (*SignInResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	v, err := store.GetVolunteerByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		logger.Info("Sign in failed", zap.String("reason", "unknown email"))
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteer: %w", err)
	}

	if err := auth.CheckPassword(v.PasswordHash, password); err != nil {
		logger.Info("Sign in failed", zap.String("volunteer_id", v.ID), zap.String("reason", "wrong password"))
		return nil, ErrUnauthenticated
	}

	token, expires, err := tokens.IssueSession(v.ID, v.Role)
	if err != nil {
		return nil, err
	}

	logger.Info("Volunteer signed in", zap.String("volunteer_id", v.ID))
	return &SignInResult{Token: token, ExpiresAt: expires, Volunteer: v}, nil
}

// Authenticate resolves a session token to the current volunteer record.
// The role comes from the database, not the token, so demotions apply immediately.
func Authenticate(ctx context.Context, store db.VolunteerStore, tokens Tokens, token string) (*db.Volunteer, error) {
	session, err := tokens.ParseSession(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	v, err := store.GetVolunteer(ctx, session.VolunteerID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: volunteer no longer exists", ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteer: %w", err)
	}
	return v, nil
}

// RequestPasswordReset emails a reset link. Unknown emails succeed silently.
func RequestPasswordReset(ctx context.Context, store db.VolunteerStore, tokens Tokens, notifier *Notifier, logger *zap.Logger, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email is required")
	}

	v, err := store.GetVolunteerByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		logger.Info("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch volunteer: %w", err)
	}

	return sendResetLink(ctx, v, tokens, notifier, logger, "Reset your password",
		"Hi %s,\n\nUse the link below to choose a new password. It expires soon and works once.\n\n%s\n\nIf you did not ask for this you can ignore this email.\n")
}

func sendResetLink(ctx context.Context, v *db.Volunteer, tokens Tokens, notifier *Notifier, logger *zap.Logger, subject, bodyFormat string) error {
	token, err := tokens.IssueReset(v.ID, v.PasswordHash)
	if err != nil {
		return err
	}

	link := notifier.link("/reset-password?token=" + token)
	notifier.email(ctx, logger, v, subject, fmt.Sprintf(bodyFormat, v.Name, link))

	logger.Info("Password reset link sent", zap.String("volunteer_id", v.ID))
	return nil
}

// ResetPassword sets a new password using a reset token. A token stops
// working once the password it was issued against has changed.
func ResetPassword(ctx context.Context, store db.VolunteerStore, tokens Tokens, logger *zap.Logger, token, newPassword string) error {
	reset, err := tokens.ParseReset(token)
	if err != nil {
		return invalid("reset link is invalid or has expired")
	}

	v, err := store.GetVolunteer(ctx, reset.VolunteerID)
	if errors.Is(err, db.ErrNotFound) {
		return invalid("reset link is invalid or has expired")
	}
	if err != nil {
		return fmt.Errorf("failed to fetch volunteer: %w", err)
	}
	if auth.Fingerprint(v.PasswordHash) != reset.Fingerprint {
		return invalid("reset link has already been used")
	}

	hash, err := auth.HashPassword(newPassword)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return invalid("%v", err)
	}
	if err != nil {
		return err
	}

	if err := store.UpdateVolunteerPassword(ctx, v.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	logger.Info("Password reset", zap.String("volunteer_id", v.ID))
	return nil
}

// UpdateProfileName changes the actor's display name
func UpdateProfileName(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, actor *db.Volunteer, name string) (*db.Volunteer, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}

	if err := store.UpdateVolunteerName(ctx, actor.ID, name); err != nil {
		return nil, fmt.Errorf("failed to update name: %w", err)
	}

	logger.Info("Profile name updated", zap.String("volunteer_id", actor.ID))
	updated := *actor
	updated.Name = name
	return &updated, nil
}
