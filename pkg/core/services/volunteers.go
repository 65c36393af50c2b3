package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/auth"
	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// NewVolunteerInput holds the fields for a new volunteer account
type NewVolunteerInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
	Team     string
}

// CreateVolunteer creates the identity and profile of a volunteer in one call
func CreateVolunteer(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, actor *db.Volunteer, input NewVolunteerInput) (*db.Volunteer, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return insertVolunteer(ctx, store, logger, input)
}

// BootstrapAdmin creates an admin account without an acting volunteer. It is used by the CLI.
func BootstrapAdmin(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, name, email, password string) (*db.Volunteer, error) {
	return insertVolunteer(ctx, store, logger, NewVolunteerInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     model.RoleAdmin,
	})
}

func insertVolunteer(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, input NewVolunteerInput) (*db.Volunteer, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" {
		return nil, invalid("name is required")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil || input.Email == "" {
		return nil, invalid("a valid email is required")
	}
	if input.Role == "" {
		input.Role = model.RoleVolunteer
	}
	if !input.Role.IsValid() {
		return nil, invalid("unknown role %q", input.Role)
	}

	hash, err := auth.HashPassword(input.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, invalid("%v", err)
	}
	if err != nil {
		return nil, err
	}

	v := &db.Volunteer{
		ID:           newID(),
		Name:         input.Name,
		Email:        input.Email,
		Avatar:       DefaultAvatar(input.Email),
		Role:         input.Role,
		Team:         strings.TrimSpace(input.Team),
		PasswordHash: hash,
		CreatedAt:    now().UTC(),
	}
	if err := store.InsertVolunteer(ctx, v); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, fmt.Errorf("email %s is already registered: %w", v.Email, err)
		}
		return nil, fmt.Errorf("failed to insert volunteer: %w", err)
	}

	logger.Info("Volunteer created", zap.String("volunteer_id", v.ID), zap.String("role", string(v.Role)))
	return v, nil
}

// DefaultAvatar returns the placeholder avatar URL for an email
func DefaultAvatar(email string) string {
	return "https://i.pravatar.cc/150?u=" + url.QueryEscape(email)
}

// ListVolunteers returns every volunteer ordered by name
func ListVolunteers(ctx context.Context, store db.VolunteerStore) ([]db.Volunteer, error) {
	volunteers, err := store.GetVolunteers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteers: %w", err)
	}
	if volunteers == nil {
		volunteers = []db.Volunteer{}
	}
	return volunteers, nil
}

// DeleteVolunteer hard deletes a volunteer. Admins cannot delete themselves.
func DeleteVolunteer(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, actor *db.Volunteer, volunteerID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if volunteerID == actor.ID {
		return invalid("you cannot delete your own account")
	}

	if err := store.DeleteVolunteer(ctx, volunteerID); err != nil {
		return fmt.Errorf("failed to delete volunteer: %w", err)
	}

	logger.Info("Volunteer deleted", zap.String("volunteer_id", volunteerID), zap.String("deleted_by", actor.ID))
	return nil
}

// temporaryPassword returns a random password that nobody is told; the
// volunteer sets their own through the reset link
func temporaryPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
