package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// GetEvents retrieves all events ordered by date, without departments
func (d *DB) GetEvents(ctx context.Context) ([]db.Event, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, date, description, status, status_changed_at
		FROM event
		ORDER BY date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []db.Event
	for rows.Next() {
		var e db.Event
		var date time.Time
		if err := rows.Scan(&e.ID, &e.Name, &date, &e.Description, &e.Status, &e.StatusChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Date = date.Format(dateLayout)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// GetEvent retrieves an event together with its departments
func (d *DB) GetEvent(ctx context.Context, id string) (*db.Event, error) {
	var e db.Event
	var date time.Time
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, date, description, status, status_changed_at
		FROM event
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Name, &date, &e.Description, &e.Status, &e.StatusChangedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, mapError(err))
	}
	e.Date = date.Format(dateLayout)

	rows, err := d.pool.Query(ctx, `
		SELECT id, event_id, name, member_ids
		FROM department
		WHERE event_id = $1
		ORDER BY name
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dep db.Department
		if err := rows.Scan(&dep.ID, &dep.EventID, &dep.Name, &dep.MemberIDs); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		e.Departments = append(e.Departments, dep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating departments: %w", err)
	}

	return &e, nil
}

// InsertEvent inserts a new event record
func (d *DB) InsertEvent(ctx context.Context, e *db.Event) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO event (id, name, date, description, status, status_changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.Name, e.Date, e.Description, e.Status, e.StatusChangedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", mapError(err))
	}
	return nil
}

// UpdateEventStatus sets the status of an event. A non-empty date also moves the event.
func (d *DB) UpdateEventStatus(ctx context.Context, id string, status model.EventStatus, date string, changedAt time.Time) error {
	if date == "" {
		return d.execOne(ctx, d.pool, "update event status",
			`UPDATE event SET status = $2, status_changed_at = $3 WHERE id = $1`,
			id, status, changedAt.UTC())
	}
	return d.execOne(ctx, d.pool, "update event status",
		`UPDATE event SET status = $2, status_changed_at = $3, date = $4 WHERE id = $1`,
		id, status, changedAt.UTC(), date)
}

// InsertDepartment inserts a department under its event
func (d *DB) InsertDepartment(ctx context.Context, dep *db.Department) error {
	members := dep.MemberIDs
	if members == nil {
		members = []string{}
	}
	_, err := d.pool.Exec(ctx, `
		INSERT INTO department (id, event_id, name, member_ids)
		VALUES ($1, $2, $3, $4)
	`, dep.ID, dep.EventID, dep.Name, members)
	if err != nil {
		return fmt.Errorf("failed to insert department: %w", mapError(err))
	}
	return nil
}
