package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/taskflow"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// EventScope selects upcoming or past events
type EventScope string

const (
	ScopeUpcoming EventScope = "upcoming"
	ScopePast     EventScope = "past"
)

// Progress counts completed tasks out of all tasks
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// EventSummary is an event with its task progress
type EventSummary struct {
	db.Event
	Progress Progress `json:"progress"`
}

// EventDetail is an event with its departments and tasks
type EventDetail struct {
	db.Event
	Tasks    []db.Task `json:"tasks"`
	Progress Progress  `json:"progress"`
}

// EventReadStore is what the event listings need from the database
type EventReadStore interface {
	GetEvents(ctx context.Context) ([]db.Event, error)
	GetEvent(ctx context.Context, id string) (*db.Event, error)
	GetTasks(ctx context.Context) ([]db.Task, error)
	GetTasksByEvent(ctx context.Context, eventID string) ([]db.Task, error)
}

// CreateEvent creates an Upcoming event
func CreateEvent(ctx context.Context, store db.EventStore, logger *zap.Logger, actor *db.Volunteer, name, date, description string) (*db.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("event name is required")
	}
	if err := parseDate("date", date); err != nil {
		return nil, err
	}

	event := &db.Event{
		ID:              newID(),
		Name:            name,
		Date:            date,
		Description:     strings.TrimSpace(description),
		Status:          model.EventUpcoming,
		StatusChangedAt: now().UTC(),
	}
	if err := store.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	logger.Info("Event created", zap.String("event_id", event.ID), zap.String("date", event.Date))
	return event, nil
}

// ListEvents returns upcoming events (today or later, soonest first) or past
// events (before today, most recent first) with their task progress
func ListEvents(ctx context.Context, store EventReadStore, scope EventScope) ([]EventSummary, error) {
	if scope != ScopeUpcoming && scope != ScopePast {
		return nil, invalid("unknown event scope %q", scope)
	}

	events, err := store.GetEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	tasks, err := store.GetTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	progress := progressByEvent(tasks)
	cutoff := today()

	summaries := []EventSummary{}
	for _, e := range events {
		upcoming := e.Date >= cutoff
		if upcoming == (scope == ScopeUpcoming) {
			summaries = append(summaries, EventSummary{Event: e, Progress: progress[e.ID]})
		}
	}

	if scope == ScopePast {
		slices.Reverse(summaries)
	}
	return summaries, nil
}

// GetEventDetail returns an event with departments, tasks and progress
func GetEventDetail(ctx context.Context, store EventReadStore, eventID string) (*EventDetail, error) {
	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}
	tasks, err := store.GetTasksByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	if tasks == nil {
		tasks = []db.Task{}
	}
	if event.Departments == nil {
		event.Departments = []db.Department{}
	}

	return &EventDetail{
		Event:    *event,
		Tasks:    tasks,
		Progress: progressByEvent(tasks)[eventID],
	}, nil
}

// ChangeEventStatus sets an event's status. Postponing requires a new date, which replaces the old one.
func ChangeEventStatus(ctx context.Context, store db.EventStore, logger *zap.Logger, actor *db.Volunteer, eventID string, status model.EventStatus, newDate string) (*db.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, invalid("unknown event status %q", status)
	}

	switch {
	case status == model.EventPostponed:
		if err := parseDate("new date", newDate); err != nil {
			return nil, err
		}
	case newDate != "":
		return nil, invalid("a new date is only accepted when postponing")
	}

	if err := store.UpdateEventStatus(ctx, eventID, status, newDate, now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to update event status: %w", err)
	}

	logger.Info("Event status changed", zap.String("event_id", eventID), zap.String("status", string(status)), zap.String("new_date", newDate))

	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}
	return event, nil
}

// CreateDepartment adds a named group of volunteers to an event
func CreateDepartment(ctx context.Context, store db.EventStore, logger *zap.Logger, actor *db.Volunteer, eventID, name string, memberIDs []string) (*db.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("department name is required")
	}

	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}

	dep := &db.Department{
		ID:        newID(),
		EventID:   eventID,
		Name:      name,
		MemberIDs: taskflow.Dedupe(memberIDs),
	}
	if err := store.InsertDepartment(ctx, dep); err != nil {
		return nil, fmt.Errorf("failed to insert department: %w", err)
	}

	logger.Info("Department created", zap.String("event_id", eventID), zap.String("department_id", dep.ID), zap.Int("members", len(dep.MemberIDs)))
	return dep, nil
}

func progressByEvent(tasks []db.Task) map[string]Progress {
	progress := make(map[string]Progress)
	for _, t := range tasks {
		p := progress[t.EventID]
		p.Total++
		if t.Status == model.StatusCompleted {
			p.Completed++
		}
		progress[t.EventID] = p
	}
	return progress
}
