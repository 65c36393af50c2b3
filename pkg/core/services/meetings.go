package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/taskflow"
	"github.com/jakechorley/taskflow-connect/pkg/db"
	"github.com/jakechorley/taskflow-connect/pkg/notify"
)

const (
	timeLayout = "15:04"

	// MaxOccurrences caps how many dates MeetingOccurrences expands
	MaxOccurrences = 52
)

// CreateMeetingInput holds the fields for a new meeting.
// Teams is used with AudienceTeams and VolunteerIDs with AudienceSpecific.
type CreateMeetingInput struct {
	Title        string
	Date         string
	Time         string
	Location     string
	Type         model.MeetingType
	Audience     model.AudienceMode
	Teams        []string
	VolunteerIDs []string
	Recurrence   string
}

// MeetingCreateStore is what CreateMeeting needs from the database
type MeetingCreateStore interface {
	InsertMeeting(ctx context.Context, meeting *db.Meeting) error
	GetVolunteers(ctx context.Context) ([]db.Volunteer, error)
}

// CreateMeeting schedules a meeting for everyone, some teams or specific volunteers
// and pushes a notification to that audience
func CreateMeeting(ctx context.Context, store MeetingCreateStore, notifier *Notifier, logger *zap.Logger, actor *db.Volunteer, input CreateMeetingInput) (*db.Meeting, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Location = strings.TrimSpace(input.Location)
	if input.Title == "" {
		return nil, invalid("title is required")
	}
	if input.Location == "" {
		return nil, invalid("location is required")
	}
	if err := parseDate("date", input.Date); err != nil {
		return nil, err
	}
	if _, err := time.Parse(timeLayout, input.Time); err != nil {
		return nil, invalid("time must be formatted HH:MM")
	}
	if input.Type == "" {
		input.Type = model.MeetingOffline
	}
	if !input.Type.IsValid() {
		return nil, invalid("unknown meeting type %q", input.Type)
	}

	attendees, err := meetingAttendees(input)
	if err != nil {
		return nil, err
	}

	recurrence := normaliseRecurrence(input.Recurrence)
	if recurrence != "" {
		if _, err := rrule.StrToRRule(recurrence); err != nil {
			return nil, invalid("recurrence is not a valid RRULE: %v", err)
		}
	}

	meeting := &db.Meeting{
		ID:         newID(),
		Title:      input.Title,
		Date:       input.Date,
		Time:       input.Time,
		Location:   input.Location,
		Type:       input.Type,
		Attendees:  attendees,
		Recurrence: recurrence,
		CreatedAt:  now().UTC(),
	}
	if err := store.InsertMeeting(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to insert meeting: %w", err)
	}

	logger.Info("Meeting created",
		zap.String("meeting_id", meeting.ID),
		zap.String("audience", string(input.Audience)),
		zap.Strings("attendees", meeting.Attendees),
		zap.String("recurrence", meeting.Recurrence))

	payload := notify.Payload{
		Title: "New meeting: " + meeting.Title,
		Body:  fmt.Sprintf("%s at %s, %s", meeting.Date, meeting.Time, meeting.Location),
		URL:   notifier.link("/meetings"),
		Tag:   "meeting-" + meeting.ID,
	}
	if slices.Contains(attendees, model.AttendeeEveryone) {
		notifier.pushAll(ctx, payload)
		return meeting, nil
	}

	volunteers, err := store.GetVolunteers(ctx)
	if err != nil {
		logger.Warn("Failed to resolve meeting audience for notification", zap.Error(err))
		return meeting, nil
	}
	var audience []string
	for i := range volunteers {
		if CanSeeMeeting(&volunteers[i], meeting) {
			audience = append(audience, volunteers[i].ID)
		}
	}
	notifier.pushTo(ctx, audience, payload)

	return meeting, nil
}

func meetingAttendees(input CreateMeetingInput) ([]string, error) {
	switch input.Audience {
	case model.AudienceAll, "":
		return []string{model.AttendeeEveryone}, nil
	case model.AudienceTeams:
		var tokens []string
		for _, team := range input.Teams {
			if strings.TrimSpace(team) != "" {
				tokens = append(tokens, model.TeamToken(team))
			}
		}
		if len(tokens) == 0 {
			return nil, invalid("select at least one team")
		}
		return taskflow.Dedupe(tokens), nil
	case model.AudienceSpecific:
		ids := taskflow.Dedupe(input.VolunteerIDs)
		if len(ids) == 0 {
			return nil, invalid("select at least one volunteer")
		}
		return ids, nil
	default:
		return nil, invalid("unknown audience %q", input.Audience)
	}
}

func normaliseRecurrence(recurrence string) string {
	recurrence = strings.TrimSpace(recurrence)
	return strings.TrimSpace(strings.TrimPrefix(recurrence, "RRULE:"))
}

// CanSeeMeeting reports whether a volunteer is in a meeting's audience.
// Admins see every meeting; team tokens match case-insensitively.
func CanSeeMeeting(v *db.Volunteer, m *db.Meeting) bool {
	if v.IsAdmin() {
		return true
	}
	for _, a := range m.Attendees {
		switch {
		case a == model.AttendeeEveryone, a == v.ID:
			return true
		case v.Team != "" && strings.EqualFold(a, model.TeamToken(v.Team)):
			return true
		}
	}
	return false
}

// ListMeetings returns the meetings visible to the actor, latest first
func ListMeetings(ctx context.Context, store db.MeetingStore, actor *db.Volunteer) ([]db.Meeting, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	meetings, err := store.GetMeetings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meetings: %w", err)
	}

	visible := []db.Meeting{}
	for i := range meetings {
		if CanSeeMeeting(actor, &meetings[i]) {
			visible = append(visible, meetings[i])
		}
	}
	return visible, nil
}

// MeetingOccurrences returns up to count start times of a meeting, starting
// from its first date. A meeting without recurrence has exactly one.
func MeetingOccurrences(ctx context.Context, store db.MeetingStore, actor *db.Volunteer, meetingID string, count int) ([]time.Time, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if count <= 0 || count > MaxOccurrences {
		return nil, invalid("count must be between 1 and %d", MaxOccurrences)
	}

	meeting, err := store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meeting: %w", err)
	}
	if !CanSeeMeeting(actor, meeting) {
		return nil, ErrForbidden
	}

	return ExpandOccurrences(meeting, count)
}

// ExpandOccurrences expands a meeting's recurrence rule from its start date and time
func ExpandOccurrences(meeting *db.Meeting, count int) ([]time.Time, error) {
	start, err := time.Parse(dateLayout+" "+timeLayout, meeting.Date+" "+meeting.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to parse meeting start: %w", err)
	}
	if meeting.Recurrence == "" {
		return []time.Time{start}, nil
	}

	opts, err := rrule.StrToROption(meeting.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rrule for meeting %s: %w", meeting.ID, err)
	}
	opts.Dtstart = start
	rule, err := rrule.NewRRule(*opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build rrule for meeting %s: %w", meeting.ID, err)
	}

	occurrences := make([]time.Time, 0, count)
	next := rule.Iterator()
	for len(occurrences) < count {
		t, ok := next()
		if !ok {
			break
		}
		occurrences = append(occurrences, t)
	}
	return occurrences, nil
}
