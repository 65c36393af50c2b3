package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/taskflow-connect/pkg/db"
)

const taskColumns = `id, event_id, name, description, status, type, deadline, assigned_volunteer_ids, completion, version, created_at`

func scanTask(row pgx.Row) (*db.Task, error) {
	var t db.Task
	var deadline time.Time
	if err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.Description, &t.Status, &t.Type, &deadline,
		&t.AssignedVolunteerIDs, &t.Completion, &t.Version, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Deadline = deadline.Format(dateLayout)
	return &t, nil
}

// queryTasks runs a task query and attaches contribution notes to every result
func (d *DB) queryTasks(ctx context.Context, where string, args ...any) ([]db.Task, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+taskColumns+` FROM task `+where+` ORDER BY deadline, created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	var tasks []db.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	if err := d.attachNotes(ctx, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// attachNotes loads the contribution notes for the given tasks in one query
func (d *DB) attachNotes(ctx context.Context, tasks []db.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, len(tasks))
	index := make(map[string]int, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
		index[tasks[i].ID] = i
		tasks[i].ContributionNotes = []db.ContributionNote{}
	}

	rows, err := d.pool.Query(ctx, `
		SELECT id, task_id, volunteer_id, note, created_at
		FROM contribution_note
		WHERE task_id = ANY($1)
		ORDER BY created_at
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query contribution notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n db.ContributionNote
		if err := rows.Scan(&n.ID, &n.TaskID, &n.VolunteerID, &n.Note, &n.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan contribution note: %w", err)
		}
		i := index[n.TaskID]
		tasks[i].ContributionNotes = append(tasks[i].ContributionNotes, n)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating contribution notes: %w", err)
	}

	return nil
}

// GetTasks retrieves all tasks
func (d *DB) GetTasks(ctx context.Context) ([]db.Task, error) {
	return d.queryTasks(ctx, "")
}

// GetTasksByEvent retrieves the tasks belonging to an event
func (d *DB) GetTasksByEvent(ctx context.Context, eventID string) ([]db.Task, error) {
	return d.queryTasks(ctx, "WHERE event_id = $1", eventID)
}

// GetTasksByVolunteer retrieves the tasks whose assignee set contains volunteerID
func (d *DB) GetTasksByVolunteer(ctx context.Context, volunteerID string) ([]db.Task, error) {
	return d.queryTasks(ctx, "WHERE assigned_volunteer_ids @> ARRAY[$1::TEXT]", volunteerID)
}

// GetTask retrieves a single task with its notes
func (d *DB) GetTask(ctx context.Context, id string) (*db.Task, error) {
	tasks, err := d.queryTasks(ctx, "WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("failed to get task %s: %w", id, db.ErrNotFound)
	}
	return &tasks[0], nil
}

// InsertTask inserts a new task record at version 1
func (d *DB) InsertTask(ctx context.Context, t *db.Task) error {
	assignees := t.AssignedVolunteerIDs
	if assignees == nil {
		assignees = []string{}
	}
	t.Version = 1
	_, err := d.pool.Exec(ctx, `
		INSERT INTO task (id, event_id, name, description, status, type, deadline, assigned_volunteer_ids, completion, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.EventID, t.Name, t.Description, t.Status, t.Type, t.Deadline, assignees, t.Completion, t.Version, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", mapError(err))
	}
	return nil
}

// UpdateTask writes the mutable task fields if the stored version matches
func (d *DB) UpdateTask(ctx context.Context, t *db.Task) error {
	return updateTask(ctx, d.pool, t)
}

func updateTask(ctx context.Context, q querier, t *db.Task) error {
	assignees := t.AssignedVolunteerIDs
	if assignees == nil {
		assignees = []string{}
	}
	tag, err := q.Exec(ctx, `
		UPDATE task
		SET name = $3, description = $4, status = $5, type = $6, deadline = $7,
			assigned_volunteer_ids = $8, completion = $9, version = version + 1
		WHERE id = $1 AND version = $2
	`, t.ID, t.Version, t.Name, t.Description, t.Status, t.Type, t.Deadline, assignees, t.Completion)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", mapError(err))
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM task WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check task existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("failed to update task %s: %w", t.ID, db.ErrNotFound)
		}
		return fmt.Errorf("failed to update task %s at version %d: %w", t.ID, t.Version, db.ErrVersionConflict)
	}

	t.Version++
	return nil
}

// InsertContributionNote adds a note to a task
func (d *DB) InsertContributionNote(ctx context.Context, n *db.ContributionNote) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO contribution_note (id, task_id, volunteer_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, n.ID, n.TaskID, n.VolunteerID, n.Note, n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert contribution note: %w", mapError(err))
	}
	return nil
}

// DeleteTask deletes a task's notes and then the task in a single transaction
func (d *DB) DeleteTask(ctx context.Context, id string) error {
	return d.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM contribution_note WHERE task_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete contribution notes: %w", err)
		}
		return d.execOne(ctx, tx, "delete task", `DELETE FROM task WHERE id = $1`, id)
	})
}
