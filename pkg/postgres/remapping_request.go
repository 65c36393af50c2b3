package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

const requestColumns = `id, task_id, from_volunteer_id, to_volunteer_id, reason, status, created_at, decided_at, decided_by`

func scanRequest(row pgx.Row) (*db.RemappingRequest, error) {
	var r db.RemappingRequest
	var decidedBy *string
	if err := row.Scan(&r.ID, &r.TaskID, &r.FromVolunteerID, &r.ToVolunteerID, &r.Reason, &r.Status,
		&r.CreatedAt, &r.DecidedAt, &decidedBy); err != nil {
		return nil, err
	}
	if decidedBy != nil {
		r.DecidedBy = *decidedBy
	}
	return &r, nil
}

func (d *DB) queryRequests(ctx context.Context, where string, args ...any) ([]db.RemappingRequest, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+requestColumns+` FROM remapping_request `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query remapping requests: %w", err)
	}
	defer rows.Close()

	var requests []db.RemappingRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan remapping request: %w", err)
		}
		requests = append(requests, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remapping requests: %w", err)
	}

	return requests, nil
}

// GetRemappingRequests retrieves every remapping request, newest first
func (d *DB) GetRemappingRequests(ctx context.Context) ([]db.RemappingRequest, error) {
	return d.queryRequests(ctx, "")
}

// GetRemappingRequestsForVolunteer retrieves the requests addressed to a volunteer
func (d *DB) GetRemappingRequestsForVolunteer(ctx context.Context, toVolunteerID string) ([]db.RemappingRequest, error) {
	return d.queryRequests(ctx, "WHERE to_volunteer_id = $1", toVolunteerID)
}

// GetRemappingRequest retrieves a request by id
func (d *DB) GetRemappingRequest(ctx context.Context, id string) (*db.RemappingRequest, error) {
	r, err := scanRequest(d.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM remapping_request WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get remapping request %s: %w", id, mapError(err))
	}
	return r, nil
}

// InsertRemappingRequest inserts a new request
func (d *DB) InsertRemappingRequest(ctx context.Context, r *db.RemappingRequest) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO remapping_request (id, task_id, from_volunteer_id, to_volunteer_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.TaskID, r.FromVolunteerID, r.ToVolunteerID, r.Reason, r.Status, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert remapping request: %w", mapError(err))
	}
	return nil
}

// DecideRemappingRequest stores the decision and the optional task change in one transaction.
// The request must still be pending in the database.
func (d *DB) DecideRemappingRequest(ctx context.Context, r *db.RemappingRequest, task *db.Task) error {
	return d.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE remapping_request
			SET status = $2, decided_at = $3, decided_by = $4
			WHERE id = $1 AND status = $5
		`, r.ID, r.Status, r.DecidedAt, r.DecidedBy, model.RequestPending)
		if err != nil {
			return fmt.Errorf("failed to update remapping request: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("remapping request %s is no longer pending: %w", r.ID, db.ErrVersionConflict)
		}

		if task != nil {
			if err := updateTask(ctx, tx, task); err != nil {
				return err
			}
		}
		return nil
	})
}
