package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// GetAnnouncements retrieves all announcements, newest first
func (d *DB) GetAnnouncements(ctx context.Context) ([]db.Announcement, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, title, content, author, date
		FROM announcement
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer rows.Close()

	var announcements []db.Announcement
	for rows.Next() {
		var a db.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.Author, &a.Date); err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		announcements = append(announcements, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating announcements: %w", err)
	}

	return announcements, nil
}

// InsertAnnouncement inserts a new announcement
func (d *DB) InsertAnnouncement(ctx context.Context, a *db.Announcement) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO announcement (id, title, content, author, date)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.Title, a.Content, a.Author, a.Date.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert announcement: %w", mapError(err))
	}
	return nil
}

// DeleteAnnouncement removes an announcement
func (d *DB) DeleteAnnouncement(ctx context.Context, id string) error {
	return d.execOne(ctx, d.pool, "delete announcement", `DELETE FROM announcement WHERE id = $1`, id)
}
