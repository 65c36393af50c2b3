package db

import (
	"context"
	"time"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
)

// VolunteerStore defines the interface for volunteer database operations
type VolunteerStore interface {
	GetVolunteers(ctx context.Context) ([]Volunteer, error)
	GetVolunteer(ctx context.Context, id string) (*Volunteer, error)
	GetVolunteerByEmail(ctx context.Context, email string) (*Volunteer, error)
	InsertVolunteer(ctx context.Context, volunteer *Volunteer) error
	UpdateVolunteerName(ctx context.Context, id, name string) error
	UpdateVolunteerPassword(ctx context.Context, id, passwordHash string) error
	DeleteVolunteer(ctx context.Context, id string) error
}

// EventStore defines the interface for event and department database operations
type EventStore interface {
	GetEvents(ctx context.Context) ([]Event, error)
	// GetEvent returns the event with its departments populated
	GetEvent(ctx context.Context, id string) (*Event, error)
	InsertEvent(ctx context.Context, event *Event) error
	UpdateEventStatus(ctx context.Context, id string, status model.EventStatus, date string, changedAt time.Time) error
	InsertDepartment(ctx context.Context, department *Department) error
}

// TaskStore defines the interface for task database operations.
// Every task returned carries its contribution notes.
type TaskStore interface {
	GetTasks(ctx context.Context) ([]Task, error)
	GetTasksByEvent(ctx context.Context, eventID string) ([]Task, error)
	GetTasksByVolunteer(ctx context.Context, volunteerID string) ([]Task, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	InsertTask(ctx context.Context, task *Task) error
	// UpdateTask writes the task only if the stored version still equals task.Version.
	// On success task.Version is incremented; otherwise ErrVersionConflict is returned.
	UpdateTask(ctx context.Context, task *Task) error
	InsertContributionNote(ctx context.Context, note *ContributionNote) error
	// DeleteTask removes the task and all of its notes in one transaction
	DeleteTask(ctx context.Context, id string) error
}

// RemappingRequestStore defines the interface for remapping request database operations
type RemappingRequestStore interface {
	GetRemappingRequests(ctx context.Context) ([]RemappingRequest, error)
	GetRemappingRequestsForVolunteer(ctx context.Context, toVolunteerID string) ([]RemappingRequest, error)
	GetRemappingRequest(ctx context.Context, id string) (*RemappingRequest, error)
	InsertRemappingRequest(ctx context.Context, request *RemappingRequest) error
	// DecideRemappingRequest stores a decision on a pending request and, when task is
	// non-nil, the matching task update. Both writes commit or neither does.
	DecideRemappingRequest(ctx context.Context, request *RemappingRequest, task *Task) error
}

// MeetingStore defines the interface for meeting database operations
type MeetingStore interface {
	GetMeetings(ctx context.Context) ([]Meeting, error)
	GetMeeting(ctx context.Context, id string) (*Meeting, error)
	InsertMeeting(ctx context.Context, meeting *Meeting) error
}

// AnnouncementStore defines the interface for announcement database operations
type AnnouncementStore interface {
	GetAnnouncements(ctx context.Context) ([]Announcement, error)
	InsertAnnouncement(ctx context.Context, announcement *Announcement) error
	DeleteAnnouncement(ctx context.Context, id string) error
}

// PushSubscriptionStore defines the interface for push subscription database operations
type PushSubscriptionStore interface {
	GetPushSubscriptions(ctx context.Context) ([]PushSubscription, error)
	GetPushSubscriptionsForVolunteers(ctx context.Context, volunteerIDs []string) ([]PushSubscription, error)
	InsertPushSubscription(ctx context.Context, subscription *PushSubscription) error
	DeletePushSubscription(ctx context.Context, id string) error
	DeletePushSubscriptionByEndpoint(ctx context.Context, volunteerID, endpoint string) error
}

// Database defines the interface for all database operations.
// Both the in-memory memdb.DB and postgres.DB implement this interface.
type Database interface {
	VolunteerStore
	EventStore
	TaskStore
	RemappingRequestStore
	MeetingStore
	AnnouncementStore
	PushSubscriptionStore
}
