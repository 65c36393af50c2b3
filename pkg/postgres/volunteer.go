package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/taskflow-connect/pkg/db"
)

const volunteerColumns = `id, name, email, avatar, role, team, password_hash, created_at`

func scanVolunteer(row pgx.Row) (*db.Volunteer, error) {
	var v db.Volunteer
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Avatar, &v.Role, &v.Team, &v.PasswordHash, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVolunteers retrieves all volunteers ordered by name
func (d *DB) GetVolunteers(ctx context.Context) ([]db.Volunteer, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+volunteerColumns+` FROM volunteer ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteers: %w", err)
	}
	defer rows.Close()

	var volunteers []db.Volunteer
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan volunteer: %w", err)
		}
		volunteers = append(volunteers, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volunteers: %w", err)
	}

	return volunteers, nil
}

// GetVolunteer retrieves a volunteer by id
func (d *DB) GetVolunteer(ctx context.Context, id string) (*db.Volunteer, error) {
	v, err := scanVolunteer(d.pool.QueryRow(ctx, `SELECT `+volunteerColumns+` FROM volunteer WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get volunteer %s: %w", id, mapError(err))
	}
	return v, nil
}

// GetVolunteerByEmail retrieves a volunteer by email, ignoring case
func (d *DB) GetVolunteerByEmail(ctx context.Context, email string) (*db.Volunteer, error) {
	v, err := scanVolunteer(d.pool.QueryRow(ctx, `SELECT `+volunteerColumns+` FROM volunteer WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get volunteer by email: %w", mapError(err))
	}
	return v, nil
}

// InsertVolunteer inserts a new volunteer record
func (d *DB) InsertVolunteer(ctx context.Context, v *db.Volunteer) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO volunteer (id, name, email, avatar, role, team, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.ID, v.Name, v.Email, v.Avatar, v.Role, v.Team, v.PasswordHash, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert volunteer: %w", mapError(err))
	}
	return nil
}

// UpdateVolunteerName sets the display name of a volunteer
func (d *DB) UpdateVolunteerName(ctx context.Context, id, name string) error {
	return d.execOne(ctx, d.pool, "update volunteer name", `UPDATE volunteer SET name = $2 WHERE id = $1`, id, name)
}

// UpdateVolunteerPassword replaces the password hash of a volunteer
func (d *DB) UpdateVolunteerPassword(ctx context.Context, id, passwordHash string) error {
	return d.execOne(ctx, d.pool, "update volunteer password", `UPDATE volunteer SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

// DeleteVolunteer hard deletes a volunteer and their push subscriptions
func (d *DB) DeleteVolunteer(ctx context.Context, id string) error {
	return d.execOne(ctx, d.pool, "delete volunteer", `DELETE FROM volunteer WHERE id = $1`, id)
}

// execOne runs a statement that must affect exactly one row
func (d *DB) execOne(ctx context.Context, q querier, action, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to %s: %w", action, db.ErrNotFound)
	}
	return nil
}
