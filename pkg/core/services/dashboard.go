package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// Dashboard is the overview shown on the home page
type Dashboard struct {
	PendingTasks    int            `json:"pendingTasks"`
	CompletedTasks  int            `json:"completedTasks"`
	Volunteers      int            `json:"volunteers"`
	PendingRequests int            `json:"pendingRequests"`
	UpcomingEvents  []EventSummary `json:"upcomingEvents"`
}

// DashboardStore is what the dashboard and profile need from the database
type DashboardStore interface {
	EventReadStore
	GetVolunteers(ctx context.Context) ([]db.Volunteer, error)
	GetRemappingRequests(ctx context.Context) ([]db.RemappingRequest, error)
	GetTasksByVolunteer(ctx context.Context, volunteerID string) ([]db.Task, error)
}

// GetDashboard counts tasks, volunteers and pending requests and lists upcoming events.
// Task and request counts cover everything for admins and only the actor's own otherwise.
func GetDashboard(ctx context.Context, store DashboardStore, actor *db.Volunteer) (*Dashboard, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	tasks, err := store.GetTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	volunteers, err := store.GetVolunteers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteers: %w", err)
	}
	requests, err := store.GetRemappingRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remapping requests: %w", err)
	}

	d := &Dashboard{Volunteers: len(volunteers)}
	for _, t := range tasks {
		if !actor.IsAdmin() && !slices.Contains(t.AssignedVolunteerIDs, actor.ID) {
			continue
		}
		if t.Status == model.StatusCompleted {
			d.CompletedTasks++
		} else {
			d.PendingTasks++
		}
	}
	for _, r := range requests {
		if r.Status != model.RequestPending {
			continue
		}
		if actor.IsAdmin() || r.ToVolunteerID == actor.ID {
			d.PendingRequests++
		}
	}

	d.UpcomingEvents, err = ListEvents(ctx, store, ScopeUpcoming)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Profile is a volunteer with their tasks and the events those tasks belong to
type Profile struct {
	Volunteer *db.Volunteer `json:"volunteer"`
	Tasks     []db.Task     `json:"tasks"`
	Events    []db.Event    `json:"events"`
}

// GetProfile returns the actor's own profile
func GetProfile(ctx context.Context, store DashboardStore, actor *db.Volunteer) (*Profile, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	tasks, err := store.GetTasksByVolunteer(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	events, err := store.GetEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	eventIDs := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		eventIDs[t.EventID] = true
	}

	p := &Profile{Volunteer: actor, Tasks: tasks, Events: []db.Event{}}
	if p.Tasks == nil {
		p.Tasks = []db.Task{}
	}
	for _, e := range events {
		if eventIDs[e.ID] {
			p.Events = append(p.Events, e)
		}
	}
	return p, nil
}
