package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/taskflow"
	"github.com/jakechorley/taskflow-connect/pkg/db"
	"github.com/jakechorley/taskflow-connect/pkg/notify"
)

// CreateTaskInput holds the fields an admin supplies for a new task
type CreateTaskInput struct {
	EventID      string
	Name         string
	Description  string
	Type         model.TaskType
	Deadline     string
	VolunteerIDs []string
}

// TaskCreateStore is what CreateTask needs from the database
type TaskCreateStore interface {
	GetEvent(ctx context.Context, id string) (*db.Event, error)
	InsertTask(ctx context.Context, task *db.Task) error
}

// CreateTask creates a Pending task under an event and pushes the news to its assignees
func CreateTask(ctx context.Context, store TaskCreateStore, notifier *Notifier, logger *zap.Logger, actor *db.Volunteer, input CreateTaskInput) (*db.Task, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, invalid("task name is required")
	}
	if err := parseDate("deadline", input.Deadline); err != nil {
		return nil, err
	}
	if input.Type == "" {
		input.Type = model.TaskIndividual
	}
	if !input.Type.IsValid() {
		return nil, invalid("unknown task type %q", input.Type)
	}

	event, err := store.GetEvent(ctx, input.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	task := &db.Task{
		ID:          newID(),
		EventID:     event.ID,
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		Status:      model.StatusPending,
		Type:        input.Type,
		Deadline:    input.Deadline,
		CreatedAt:   now().UTC(),
	}
	taskflow.Assign(task, input.VolunteerIDs)

	if err := store.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	task.ContributionNotes = []db.ContributionNote{}

	logger.Info("Task created",
		zap.String("task_id", task.ID),
		zap.String("event_id", event.ID),
		zap.String("type", string(task.Type)),
		zap.Int("assignees", len(task.AssignedVolunteerIDs)))

	notifier.pushTo(ctx, task.AssignedVolunteerIDs, notify.Payload{
		Title: "New task assigned",
		Body:  fmt.Sprintf("%s for %s, due %s", task.Name, event.Name, task.Deadline),
		URL:   notifier.link("/tasks"),
		Tag:   "task-" + task.ID,
	})

	return task, nil
}

// ListMyTasks returns the tasks the actor is assigned to
func ListMyTasks(ctx context.Context, store db.TaskStore, actor *db.Volunteer) ([]db.Task, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	tasks, err := store.GetTasksByVolunteer(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a task. Volunteers may only read tasks they are assigned to.
func GetTask(ctx context.Context, store db.TaskStore, actor *db.Volunteer, taskID string) (*db.Task, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	if !actor.IsAdmin() && !taskflow.IsAssigned(task, actor.ID) {
		return nil, ErrForbidden
	}
	return task, nil
}

// mutateTask re-reads the task and applies mutate until the versioned write
// lands or the attempts run out. mutate returning an error aborts the loop.
func mutateTask(ctx context.Context, store db.TaskStore, logger *zap.Logger, taskID string, mutate func(task *db.Task) error) (*db.Task, error) {
	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		task, err := store.GetTask(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch task: %w", err)
		}

		if err := mutate(task); err != nil {
			return nil, err
		}

		err = store.UpdateTask(ctx, task)
		if err == nil {
			return task, nil
		}
		if !errors.Is(err, db.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}

		lastErr = err
		logger.Debug("Task changed concurrently, retrying", zap.String("task_id", taskID), zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("failed to update task after %d attempts: %w", maxWriteAttempts, lastErr)
}

// AssignTask overwrites the assignee set of a task. A non-zero expectedVersion
// must match the stored version or the call fails with db.ErrVersionConflict.
func AssignTask(ctx context.Context, store db.TaskStore, notifier *Notifier, logger *zap.Logger, actor *db.Volunteer, taskID string, volunteerIDs []string, expectedVersion int) (*db.Task, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var added []string
	task, err := mutateTask(ctx, store, logger, taskID, func(task *db.Task) error {
		if expectedVersion != 0 && task.Version != expectedVersion {
			return fmt.Errorf("task %s is at version %d, not %d: %w", task.ID, task.Version, expectedVersion, db.ErrVersionConflict)
		}
		previous := task.AssignedVolunteerIDs
		taskflow.Assign(task, volunteerIDs)
		added = added[:0]
		for _, id := range task.AssignedVolunteerIDs {
			if !slices.Contains(previous, id) {
				added = append(added, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Task assignees updated", zap.String("task_id", task.ID), zap.Strings("assignees", task.AssignedVolunteerIDs))

	notifier.pushTo(ctx, added, notify.Payload{
		Title: "New task assigned",
		Body:  fmt.Sprintf("You have been assigned to %s", task.Name),
		URL:   notifier.link("/tasks"),
		Tag:   "task-" + task.ID,
	})

	return task, nil
}

// CompletionResult reports what a completion call did.
// Praise is only set on the call that completed an individual task.
type CompletionResult struct {
	Task         *db.Task `json:"task"`
	Transitioned bool     `json:"transitioned"`
	Praise       string   `json:"praise,omitempty"`
}

// MarkTaskComplete completes an individual task. The actor must be an assignee or an admin.
// Repeating the call is a no-op that reports Transitioned=false.
func MarkTaskComplete(ctx context.Context, store db.TaskStore, logger *zap.Logger, actor *db.Volunteer, taskID string) (*CompletionResult, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	var transitioned bool
	task, err := mutateTask(ctx, store, logger, taskID, func(task *db.Task) error {
		if !actor.IsAdmin() && !taskflow.IsAssigned(task, actor.ID) {
			return ErrForbidden
		}
		var err error
		transitioned, err = taskflow.MarkComplete(task)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if !transitioned {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		task, err = store.GetTask(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch task: %w", err)
		}
		return &CompletionResult{Task: task}, nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Task completed", zap.String("task_id", task.ID), zap.String("volunteer_id", actor.ID))

	return &CompletionResult{
		Task:         task,
		Transitioned: true,
		Praise:       taskflow.Praise(actor.Name, praiseIntn),
	}, nil
}

// MarkTaskPresent records the actor's presence on a team task. The task completes
// on the call that makes every assignee present.
func MarkTaskPresent(ctx context.Context, store db.TaskStore, notifier *Notifier, logger *zap.Logger, actor *db.Volunteer, taskID string) (*CompletionResult, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	var transitioned bool
	task, err := mutateTask(ctx, store, logger, taskID, func(task *db.Task) error {
		before := maps.Clone(task.Completion)
		var err error
		transitioned, err = taskflow.MarkPresent(task, actor.ID)
		switch {
		case errors.Is(err, taskflow.ErrNotAssigned):
			return ErrForbidden
		case err != nil:
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		case !transitioned && maps.Equal(before, task.Completion):
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		task, err = store.GetTask(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch task: %w", err)
		}
		return &CompletionResult{Task: task}, nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Presence recorded",
		zap.String("task_id", task.ID),
		zap.String("volunteer_id", actor.ID),
		zap.Bool("completed", transitioned))

	if transitioned {
		notifyTeamCompleted(ctx, notifier, task)
	}

	return &CompletionResult{Task: task, Transitioned: transitioned}, nil
}

func notifyTeamCompleted(ctx context.Context, notifier *Notifier, task *db.Task) {
	notifier.pushTo(ctx, task.AssignedVolunteerIDs, notify.Payload{
		Title: "Team task completed",
		Body:  fmt.Sprintf("Everyone is present for %s", task.Name),
		URL:   notifier.link("/tasks"),
		Tag:   "task-" + task.ID,
	})
}

// AddContributionNote records what a volunteer contributed to a task
func AddContributionNote(ctx context.Context, store db.TaskStore, logger *zap.Logger, actor *db.Volunteer, taskID, volunteerID, note string) (*db.ContributionNote, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	note = strings.TrimSpace(note)
	if volunteerID == "" {
		return nil, invalid("volunteer is required")
	}
	if note == "" {
		return nil, invalid("note is required")
	}

	if _, err := store.GetTask(ctx, taskID); err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}

	n := &db.ContributionNote{
		ID:          newID(),
		TaskID:      taskID,
		VolunteerID: volunteerID,
		Note:        note,
		CreatedAt:   now().UTC(),
	}
	if err := store.InsertContributionNote(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to insert contribution note: %w", err)
	}

	logger.Info("Contribution note added", zap.String("task_id", taskID), zap.String("volunteer_id", volunteerID))
	return n, nil
}

// DeleteTask removes a task and every contribution note in one transaction
func DeleteTask(ctx context.Context, store db.TaskStore, logger *zap.Logger, actor *db.Volunteer, taskID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if err := store.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	logger.Info("Task deleted", zap.String("task_id", taskID))
	return nil
}

// errNoChange stops mutateTask when the task is already in the requested state
var errNoChange = errors.New("no change")
