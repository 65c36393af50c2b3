package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/taskflow-connect/pkg/db"
)

var (
	// ErrForbidden is returned when the acting volunteer may not perform the operation
	ErrForbidden = errors.New("not permitted")
	// ErrInvalidInput is wrapped with a description of the offending field
	ErrInvalidInput = errors.New("invalid input")
	// ErrRequestClosed is returned when deciding a remapping request that is no longer pending
	ErrRequestClosed = errors.New("remapping request already decided")
	// ErrUnauthenticated is returned when credentials or a session token are missing or wrong
	ErrUnauthenticated = errors.New("not authenticated")
)

// maxWriteAttempts bounds how often a versioned task write is retried after a conflict
const maxWriteAttempts = 3

// Overridable in tests
var (
	now        = time.Now
	newID      = uuid.NewString
	praiseIntn = rand.IntN
)

const dateLayout = "2006-01-02"

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func requireAdmin(actor *db.Volunteer) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func parseDate(field, value string) error {
	if value == "" {
		return invalid("%s is required", field)
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return invalid("%s must be formatted YYYY-MM-DD", field)
	}
	return nil
}

func today() string {
	return now().Format(dateLayout)
}
