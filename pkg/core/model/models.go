package model

import "strings"

// Role determines what a volunteer may change
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleVolunteer Role = "Volunteer"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleVolunteer
}

// TaskStatus is the lifecycle state of a task.
// StatusInProgress exists for display only; no workflow sets it.
type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

func (s TaskStatus) IsValid() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// TaskType distinguishes single-owner tasks from tasks completed by a whole team
type TaskType string

const (
	TaskIndividual TaskType = "Individual"
	TaskTeam       TaskType = "Team"
)

func (t TaskType) IsValid() bool {
	return t == TaskIndividual || t == TaskTeam
}

type EventStatus string

const (
	EventUpcoming  EventStatus = "Upcoming"
	EventCompleted EventStatus = "Completed"
	EventPostponed EventStatus = "Postponed"
)

func (s EventStatus) IsValid() bool {
	return s == EventUpcoming || s == EventCompleted || s == EventPostponed
}

// RequestStatus is the state of a remapping request. Accepted and Rejected are terminal.
type RequestStatus string

const (
	RequestPending  RequestStatus = "Pending"
	RequestAccepted RequestStatus = "Accepted"
	RequestRejected RequestStatus = "Rejected"
)

func (s RequestStatus) IsTerminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

type MeetingType string

const (
	MeetingOnline  MeetingType = "Online"
	MeetingOffline MeetingType = "Offline"
)

func (t MeetingType) IsValid() bool {
	return t == MeetingOnline || t == MeetingOffline
}

// AudienceMode selects how a meeting's attendee list is built
type AudienceMode string

const (
	AudienceAll      AudienceMode = "all"
	AudienceTeams    AudienceMode = "teams"
	AudienceSpecific AudienceMode = "specific"
)

// Attendee tokens stored on a meeting
const (
	AttendeeEveryone = "all"
	TeamTokenPrefix  = "team:"
)

// TeamToken returns the attendee token for a team
func TeamToken(team string) string {
	return TeamTokenPrefix + strings.TrimSpace(team)
}

// RosterEntry is a volunteer row read from the roster spreadsheet
type RosterEntry struct {
	Name  string
	Email string
	Role  Role
	Team  string
}
