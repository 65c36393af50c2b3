package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/taskflow"
	"github.com/jakechorley/taskflow-connect/pkg/db"
	"github.com/jakechorley/taskflow-connect/pkg/notify"
)

// RemapStore is what the remapping workflow needs from the database
type RemapStore interface {
	GetTask(ctx context.Context, id string) (*db.Task, error)
	GetVolunteer(ctx context.Context, id string) (*db.Volunteer, error)
	db.RemappingRequestStore
}

// SubmitRemapRequest asks for the actor's assignment on a task to move to another volunteer
func SubmitRemapRequest(ctx context.Context, store RemapStore, notifier *Notifier, logger *zap.Logger, actor *db.Volunteer, taskID, toVolunteerID, reason string) (*db.RemappingRequest, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	reason = strings.TrimSpace(reason)
	toVolunteerID = strings.TrimSpace(toVolunteerID)
	if toVolunteerID == "" {
		return nil, invalid("destination volunteer is required")
	}
	if reason == "" {
		return nil, invalid("reason is required")
	}
	if toVolunteerID == actor.ID {
		return nil, invalid("cannot reassign a task to yourself")
	}

	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	if !taskflow.IsAssigned(task, actor.ID) {
		return nil, invalid("you are not assigned to this task")
	}

	to, err := store.GetVolunteer(ctx, toVolunteerID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, invalid("destination volunteer does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch destination volunteer: %w", err)
	}

	req := &db.RemappingRequest{
		ID:              newID(),
		TaskID:          task.ID,
		FromVolunteerID: actor.ID,
		ToVolunteerID:   to.ID,
		Reason:          reason,
		Status:          model.RequestPending,
		CreatedAt:       now().UTC(),
	}
	if err := store.InsertRemappingRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to insert remapping request: %w", err)
	}

	logger.Info("Remapping request submitted",
		zap.String("request_id", req.ID),
		zap.String("task_id", task.ID),
		zap.String("from", actor.ID),
		zap.String("to", to.ID))

	notifier.pushTo(ctx, []string{to.ID}, notify.Payload{
		Title: "Task reassignment request",
		Body:  fmt.Sprintf("%s asked you to take over %s", actor.Name, task.Name),
		URL:   notifier.link("/requests"),
		Tag:   "remap-" + req.ID,
	})
	notifier.email(ctx, logger, to, "Task reassignment request: "+task.Name,
		fmt.Sprintf("Hi %s,\n\n%s has asked you to take over the task %q (due %s).\n\nReason: %s\n\nReview the request at %s\n",
			to.Name, actor.Name, task.Name, task.Deadline, reason, notifier.link("/requests")))

	return req, nil
}

// ListRemapRequests returns every request for admins and the requests addressed to the actor otherwise
func ListRemapRequests(ctx context.Context, store db.RemappingRequestStore, actor *db.Volunteer) ([]db.RemappingRequest, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	var (
		requests []db.RemappingRequest
		err      error
	)
	if actor.IsAdmin() {
		requests, err = store.GetRemappingRequests(ctx)
	} else {
		requests, err = store.GetRemappingRequestsForVolunteer(ctx, actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remapping requests: %w", err)
	}
	return requests, nil
}

// DecisionResult is the decided request and, for accepted requests, the updated task
type DecisionResult struct {
	Request *db.RemappingRequest `json:"request"`
	Task    *db.Task             `json:"task,omitempty"`
	// TaskCompleted is set when the handover left only present team members
	TaskCompleted bool `json:"taskCompleted,omitempty"`
}

// DecideRemapRequest accepts or rejects a pending request. Only the destination
// volunteer or an admin may decide. The request status and the task change are
// written together; a concurrent task edit causes a re-read and retry.
func DecideRemapRequest(ctx context.Context, store RemapStore, notifier *Notifier, logger *zap.Logger, actor *db.Volunteer, requestID string, decision model.RequestStatus) (*DecisionResult, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !decision.IsTerminal() {
		return nil, invalid("decision must be %s or %s", model.RequestAccepted, model.RequestRejected)
	}

	var result *DecisionResult
	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		result, lastErr = decideOnce(ctx, store, actor, requestID, decision)
		if !errors.Is(lastErr, db.ErrVersionConflict) {
			break
		}
		logger.Debug("Remapping decision raced another write, retrying", zap.String("request_id", requestID), zap.Int("attempt", attempt))
	}
	if lastErr != nil {
		return nil, lastErr
	}

	req := result.Request
	logger.Info("Remapping request decided",
		zap.String("request_id", req.ID),
		zap.String("status", string(req.Status)),
		zap.String("decided_by", actor.ID),
		zap.Bool("task_completed", result.TaskCompleted))

	if result.TaskCompleted {
		notifyTeamCompleted(ctx, notifier, result.Task)
	}

	from, err := store.GetVolunteer(ctx, req.FromVolunteerID)
	if err != nil {
		logger.Warn("Failed to load requesting volunteer for notification", zap.String("volunteer_id", req.FromVolunteerID), zap.Error(err))
		return result, nil
	}

	verb := strings.ToLower(string(req.Status))
	notifier.pushTo(ctx, []string{from.ID}, notify.Payload{
		Title: "Reassignment request " + verb,
		Body:  fmt.Sprintf("Your request to hand over a task was %s", verb),
		URL:   notifier.link("/tasks"),
		Tag:   "remap-" + req.ID,
	})
	notifier.email(ctx, logger, from, "Reassignment request "+verb,
		fmt.Sprintf("Hi %s,\n\nYour request to hand over a task was %s by %s.\n\nSee your tasks at %s\n",
			from.Name, verb, actor.Name, notifier.link("/tasks")))

	return result, nil
}

func decideOnce(ctx context.Context, store RemapStore, actor *db.Volunteer, requestID string, decision model.RequestStatus) (*DecisionResult, error) {
	req, err := store.GetRemappingRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remapping request: %w", err)
	}

	if !actor.IsAdmin() && actor.ID != req.ToVolunteerID {
		return nil, ErrForbidden
	}
	if req.Status != model.RequestPending {
		return nil, fmt.Errorf("request is %s: %w", req.Status, ErrRequestClosed)
	}

	decidedAt := now().UTC()
	req.Status = decision
	req.DecidedAt = &decidedAt
	req.DecidedBy = actor.ID

	var task *db.Task
	var completed bool
	if decision == model.RequestAccepted {
		task, err = store.GetTask(ctx, req.TaskID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch task: %w", err)
		}
		completed = taskflow.ApplyRemapping(task, req.FromVolunteerID, req.ToVolunteerID)
	}

	if err := store.DecideRemappingRequest(ctx, req, task); err != nil {
		return nil, fmt.Errorf("failed to store decision: %w", err)
	}

	return &DecisionResult{Request: req, Task: task, TaskCompleted: completed}, nil
}
