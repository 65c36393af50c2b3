package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// ImportResult summarises a roster import
type ImportResult struct {
	Created []string
	Skipped []string
	Failed  map[string]error
}

// ImportRoster creates a volunteer for every roster entry whose email is not yet
// registered. New volunteers get a random password and are emailed a reset link
// to choose their own. Existing volunteers are left untouched.
func ImportRoster(ctx context.Context, store db.VolunteerStore, tokens Tokens, notifier *Notifier, logger *zap.Logger, entries []model.RosterEntry, dryRun bool) (*ImportResult, error) {
	result := &ImportResult{Failed: map[string]error{}}

	for _, entry := range entries {
		email := strings.ToLower(strings.TrimSpace(entry.Email))

		_, err := store.GetVolunteerByEmail(ctx, email)
		if err == nil {
			result.Skipped = append(result.Skipped, email)
			continue
		}
		if !errors.Is(err, db.ErrNotFound) {
			return result, fmt.Errorf("failed to look up %s: %w", email, err)
		}

		if dryRun {
			result.Created = append(result.Created, email)
			continue
		}

		password, err := temporaryPassword()
		if err != nil {
			return result, err
		}
		v, err := insertVolunteer(ctx, store, logger, NewVolunteerInput{
			Name:     entry.Name,
			Email:    email,
			Password: password,
			Role:     entry.Role,
			Team:     entry.Team,
		})
		if err != nil {
			logger.Warn("Failed to import volunteer", zap.String("email", email), zap.Error(err))
			result.Failed[email] = err
			continue
		}
		result.Created = append(result.Created, email)

		if err := sendResetLink(ctx, v, tokens, notifier, logger, "Welcome to TaskFlow Connect",
			"Hi %s,\n\nAn account has been created for you. Use the link below to choose a password.\n\n%s\n"); err != nil {
			logger.Warn("Failed to send welcome email", zap.String("volunteer_id", v.ID), zap.Error(err))
		}
	}

	logger.Info("Roster import finished",
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
		zap.Bool("dry_run", dryRun))
	return result, nil
}
