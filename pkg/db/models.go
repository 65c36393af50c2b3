package db

import (
	"time"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
)

// Volunteer represents a volunteer record. ID doubles as the identity user id.
type Volunteer struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Avatar       string     `json:"avatar"`
	Role         model.Role `json:"role"`
	Team         string     `json:"team,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// IsAdmin reports whether the volunteer holds the admin role
func (v *Volunteer) IsAdmin() bool {
	return v != nil && v.Role == model.RoleAdmin
}

// Event represents an event record. Date is formatted as 2006-01-02.
type Event struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Date            string            `json:"date"`
	Description     string            `json:"description"`
	Status          model.EventStatus `json:"status"`
	StatusChangedAt time.Time         `json:"statusChangedAt"`
	Departments     []Department      `json:"departments,omitempty"`
}

// Department is a named group of volunteers scoped to one event
type Department struct {
	ID        string   `json:"id"`
	EventID   string   `json:"eventId"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

// Task represents a task record.
// Completion is only populated for team tasks. Version is compared on every update.
type Task struct {
	ID                   string             `json:"id"`
	EventID              string             `json:"eventId"`
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	Status               model.TaskStatus   `json:"status"`
	Type                 model.TaskType     `json:"type"`
	Deadline             string             `json:"deadline"`
	AssignedVolunteerIDs []string           `json:"assignedVolunteerIds"`
	Completion           map[string]bool    `json:"completion,omitempty"`
	ContributionNotes    []ContributionNote `json:"contributionNotes"`
	Version              int                `json:"version"`
	CreatedAt            time.Time          `json:"createdAt"`
}

// ContributionNote records what a volunteer contributed to a task
type ContributionNote struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	VolunteerID string    `json:"volunteerId"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RemappingRequest represents a proposal to move a task assignment between volunteers
type RemappingRequest struct {
	ID              string              `json:"id"`
	TaskID          string              `json:"taskId"`
	FromVolunteerID string              `json:"fromVolunteerId"`
	ToVolunteerID   string              `json:"toVolunteerId"`
	Reason          string              `json:"reason"`
	Status          model.RequestStatus `json:"status"`
	CreatedAt       time.Time           `json:"createdAt"`
	DecidedAt       *time.Time          `json:"decidedAt,omitempty"`
	DecidedBy       string              `json:"decidedBy,omitempty"`
}

// Meeting represents a meeting record. Date is formatted as 2006-01-02, Time as 15:04.
type Meeting struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Location   string            `json:"location"`
	Type       model.MeetingType `json:"type"`
	Attendees  []string          `json:"attendees"`
	Recurrence string            `json:"recurrence,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Announcement represents an announcement record
type Announcement struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// PushSubscription is a browser push endpoint registered by a volunteer
type PushSubscription struct {
	ID          string    `json:"id"`
	VolunteerID string    `json:"volunteerId"`
	Endpoint    string    `json:"endpoint"`
	P256dhKey   string    `json:"p256dh"`
	AuthKey     string    `json:"auth"`
	CreatedAt   time.Time `json:"createdAt"`
}
