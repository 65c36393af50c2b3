package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/taskflow-connect/pkg/db"
)

const meetingColumns = `id, title, date, time, location, type, attendees, recurrence, created_at`

func scanMeeting(row pgx.Row) (*db.Meeting, error) {
	var m db.Meeting
	var date time.Time
	if err := row.Scan(&m.ID, &m.Title, &date, &m.Time, &m.Location, &m.Type, &m.Attendees, &m.Recurrence, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Date = date.Format(dateLayout)
	return &m, nil
}

// GetMeetings retrieves all meetings, latest date first
func (d *DB) GetMeetings(ctx context.Context) ([]db.Meeting, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+meetingColumns+` FROM meeting ORDER BY date DESC, time DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer rows.Close()

	var meetings []db.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meetings: %w", err)
	}

	return meetings, nil
}

// GetMeeting retrieves a meeting by id
func (d *DB) GetMeeting(ctx context.Context, id string) (*db.Meeting, error) {
	m, err := scanMeeting(d.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meeting WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting %s: %w", id, mapError(err))
	}
	return m, nil
}

// InsertMeeting inserts a new meeting
func (d *DB) InsertMeeting(ctx context.Context, m *db.Meeting) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO meeting (id, title, date, time, location, type, attendees, recurrence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ID, m.Title, m.Date, m.Time, m.Location, m.Type, m.Attendees, m.Recurrence, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert meeting: %w", mapError(err))
	}
	return nil
}
