// Package memdb is an in-memory implementation of db.Database used for local
// runs (storage: memory) and handler tests. Records are copied on the way in
// and out so callers never share state with the store.
package memdb

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// DB holds every collection behind a single mutex
type DB struct {
	mu            sync.RWMutex
	volunteers    map[string]db.Volunteer
	events        map[string]db.Event
	departments   map[string]db.Department
	tasks         map[string]db.Task
	notes         map[string]db.ContributionNote
	requests      map[string]db.RemappingRequest
	meetings      map[string]db.Meeting
	announcements map[string]db.Announcement
	subscriptions map[string]db.PushSubscription
}

var _ db.Database = (*DB)(nil)

// New returns an empty store
func New() *DB {
	return &DB{
		volunteers:    make(map[string]db.Volunteer),
		events:        make(map[string]db.Event),
		departments:   make(map[string]db.Department),
		tasks:         make(map[string]db.Task),
		notes:         make(map[string]db.ContributionNote),
		requests:      make(map[string]db.RemappingRequest),
		meetings:      make(map[string]db.Meeting),
		announcements: make(map[string]db.Announcement),
		subscriptions: make(map[string]db.PushSubscription),
	}
}

// Close is a no-op kept for parity with postgres.DB
func (d *DB) Close() {}

func sortedValues[T any](m map[string]T, less func(a, b T) int) []T {
	out := slices.Collect(maps.Values(m))
	slices.SortStableFunc(out, less)
	return out
}

// Volunteers

func (d *DB) GetVolunteers(ctx context.Context) ([]db.Volunteer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedValues(d.volunteers, func(a, b db.Volunteer) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	}), nil
}

func (d *DB) GetVolunteer(ctx context.Context, id string) (*db.Volunteer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.volunteers[id]
	if !ok {
		return nil, fmt.Errorf("failed to get volunteer %s: %w", id, db.ErrNotFound)
	}
	return &v, nil
}

func (d *DB) GetVolunteerByEmail(ctx context.Context, email string) (*db.Volunteer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, v := range d.volunteers {
		if strings.EqualFold(v.Email, email) {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("failed to get volunteer by email: %w", db.ErrNotFound)
}

func (d *DB) InsertVolunteer(ctx context.Context, v *db.Volunteer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.volunteers[v.ID]; ok {
		return fmt.Errorf("failed to insert volunteer: %w", db.ErrDuplicate)
	}
	for _, existing := range d.volunteers {
		if strings.EqualFold(existing.Email, v.Email) {
			return fmt.Errorf("failed to insert volunteer: %w", db.ErrDuplicate)
		}
	}
	d.volunteers[v.ID] = *v
	return nil
}

func (d *DB) UpdateVolunteerName(ctx context.Context, id, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.volunteers[id]
	if !ok {
		return fmt.Errorf("failed to update volunteer name: %w", db.ErrNotFound)
	}
	v.Name = name
	d.volunteers[id] = v
	return nil
}

func (d *DB) UpdateVolunteerPassword(ctx context.Context, id, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.volunteers[id]
	if !ok {
		return fmt.Errorf("failed to update volunteer password: %w", db.ErrNotFound)
	}
	v.PasswordHash = passwordHash
	d.volunteers[id] = v
	return nil
}

// DeleteVolunteer removes the volunteer and their push subscriptions
func (d *DB) DeleteVolunteer(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.volunteers[id]; !ok {
		return fmt.Errorf("failed to delete volunteer: %w", db.ErrNotFound)
	}
	delete(d.volunteers, id)
	maps.DeleteFunc(d.subscriptions, func(_ string, s db.PushSubscription) bool {
		return s.VolunteerID == id
	})
	return nil
}

// Events

func (d *DB) GetEvents(ctx context.Context) ([]db.Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedValues(d.events, func(a, b db.Event) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.ID, b.ID))
	}), nil
}

func (d *DB) GetEvent(ctx context.Context, id string) (*db.Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.events[id]
	if !ok {
		return nil, fmt.Errorf("failed to get event %s: %w", id, db.ErrNotFound)
	}
	for _, dep := range d.departments {
		if dep.EventID == id {
			dep.MemberIDs = slices.Clone(dep.MemberIDs)
			e.Departments = append(e.Departments, dep)
		}
	}
	slices.SortFunc(e.Departments, func(a, b db.Department) int { return cmp.Compare(a.Name, b.Name) })
	return &e, nil
}

func (d *DB) InsertEvent(ctx context.Context, e *db.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[e.ID]; ok {
		return fmt.Errorf("failed to insert event: %w", db.ErrDuplicate)
	}
	stored := *e
	stored.Departments = nil
	d.events[e.ID] = stored
	return nil
}

func (d *DB) UpdateEventStatus(ctx context.Context, id string, status model.EventStatus, date string, changedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[id]
	if !ok {
		return fmt.Errorf("failed to update event status: %w", db.ErrNotFound)
	}
	e.Status = status
	e.StatusChangedAt = changedAt
	if date != "" {
		e.Date = date
	}
	d.events[id] = e
	return nil
}

func (d *DB) InsertDepartment(ctx context.Context, dep *db.Department) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[dep.EventID]; !ok {
		return fmt.Errorf("failed to insert department: event %s: %w", dep.EventID, db.ErrNotFound)
	}
	if _, ok := d.departments[dep.ID]; ok {
		return fmt.Errorf("failed to insert department: %w", db.ErrDuplicate)
	}
	stored := *dep
	stored.MemberIDs = slices.Clone(dep.MemberIDs)
	d.departments[dep.ID] = stored
	return nil
}

// Tasks

func cloneTask(t db.Task) db.Task {
	t.AssignedVolunteerIDs = slices.Clone(t.AssignedVolunteerIDs)
	if t.Completion != nil {
		t.Completion = maps.Clone(t.Completion)
	}
	t.ContributionNotes = nil
	return t
}

// withNotes returns a copy of the task carrying its notes. Callers hold the lock.
func (d *DB) withNotes(t db.Task) db.Task {
	out := cloneTask(t)
	out.ContributionNotes = []db.ContributionNote{}
	for _, n := range d.notes {
		if n.TaskID == t.ID {
			out.ContributionNotes = append(out.ContributionNotes, n)
		}
	}
	slices.SortFunc(out.ContributionNotes, func(a, b db.ContributionNote) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (d *DB) filterTasks(keep func(db.Task) bool) []db.Task {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var tasks []db.Task
	for _, t := range d.tasks {
		if keep(t) {
			tasks = append(tasks, d.withNotes(t))
		}
	}
	slices.SortFunc(tasks, func(a, b db.Task) int {
		return cmp.Or(cmp.Compare(a.Deadline, b.Deadline), a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return tasks
}

func (d *DB) GetTasks(ctx context.Context) ([]db.Task, error) {
	return d.filterTasks(func(db.Task) bool { return true }), nil
}

func (d *DB) GetTasksByEvent(ctx context.Context, eventID string) ([]db.Task, error) {
	return d.filterTasks(func(t db.Task) bool { return t.EventID == eventID }), nil
}

func (d *DB) GetTasksByVolunteer(ctx context.Context, volunteerID string) ([]db.Task, error) {
	return d.filterTasks(func(t db.Task) bool { return slices.Contains(t.AssignedVolunteerIDs, volunteerID) }), nil
}

func (d *DB) GetTask(ctx context.Context, id string) (*db.Task, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tasks[id]
	if !ok {
		return nil, fmt.Errorf("failed to get task %s: %w", id, db.ErrNotFound)
	}
	out := d.withNotes(t)
	return &out, nil
}

func (d *DB) InsertTask(ctx context.Context, t *db.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tasks[t.ID]; ok {
		return fmt.Errorf("failed to insert task: %w", db.ErrDuplicate)
	}
	if _, ok := d.events[t.EventID]; !ok {
		return fmt.Errorf("failed to insert task: event %s: %w", t.EventID, db.ErrNotFound)
	}
	t.Version = 1
	d.tasks[t.ID] = cloneTask(*t)
	return nil
}

func (d *DB) UpdateTask(ctx context.Context, t *db.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateTask(t)
}

// updateTask applies a version-checked write. Callers hold the write lock.
func (d *DB) updateTask(t *db.Task) error {
	stored, ok := d.tasks[t.ID]
	if !ok {
		return fmt.Errorf("failed to update task %s: %w", t.ID, db.ErrNotFound)
	}
	if stored.Version != t.Version {
		return fmt.Errorf("failed to update task %s at version %d: %w", t.ID, t.Version, db.ErrVersionConflict)
	}
	next := cloneTask(*t)
	next.EventID = stored.EventID
	next.CreatedAt = stored.CreatedAt
	next.Version = stored.Version + 1
	d.tasks[t.ID] = next
	t.Version = next.Version
	return nil
}

func (d *DB) InsertContributionNote(ctx context.Context, n *db.ContributionNote) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tasks[n.TaskID]; !ok {
		return fmt.Errorf("failed to insert contribution note: task %s: %w", n.TaskID, db.ErrNotFound)
	}
	if _, ok := d.notes[n.ID]; ok {
		return fmt.Errorf("failed to insert contribution note: %w", db.ErrDuplicate)
	}
	d.notes[n.ID] = *n
	return nil
}

// DeleteTask removes the task, its notes and its remapping requests under one lock
func (d *DB) DeleteTask(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tasks[id]; !ok {
		return fmt.Errorf("failed to delete task: %w", db.ErrNotFound)
	}
	maps.DeleteFunc(d.notes, func(_ string, n db.ContributionNote) bool { return n.TaskID == id })
	maps.DeleteFunc(d.requests, func(_ string, r db.RemappingRequest) bool { return r.TaskID == id })
	delete(d.tasks, id)
	return nil
}

// Remapping requests

func (d *DB) filterRequests(keep func(db.RemappingRequest) bool) []db.RemappingRequest {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []db.RemappingRequest
	for _, r := range d.requests {
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b db.RemappingRequest) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (d *DB) GetRemappingRequests(ctx context.Context) ([]db.RemappingRequest, error) {
	return d.filterRequests(func(db.RemappingRequest) bool { return true }), nil
}

func (d *DB) GetRemappingRequestsForVolunteer(ctx context.Context, toVolunteerID string) ([]db.RemappingRequest, error) {
	return d.filterRequests(func(r db.RemappingRequest) bool { return r.ToVolunteerID == toVolunteerID }), nil
}

func (d *DB) GetRemappingRequest(ctx context.Context, id string) (*db.RemappingRequest, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.requests[id]
	if !ok {
		return nil, fmt.Errorf("failed to get remapping request %s: %w", id, db.ErrNotFound)
	}
	return &r, nil
}

func (d *DB) InsertRemappingRequest(ctx context.Context, r *db.RemappingRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tasks[r.TaskID]; !ok {
		return fmt.Errorf("failed to insert remapping request: task %s: %w", r.TaskID, db.ErrNotFound)
	}
	if _, ok := d.requests[r.ID]; ok {
		return fmt.Errorf("failed to insert remapping request: %w", db.ErrDuplicate)
	}
	d.requests[r.ID] = *r
	return nil
}

// DecideRemappingRequest checks both writes before applying either
func (d *DB) DecideRemappingRequest(ctx context.Context, r *db.RemappingRequest, task *db.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	stored, ok := d.requests[r.ID]
	if !ok {
		return fmt.Errorf("failed to decide remapping request %s: %w", r.ID, db.ErrNotFound)
	}
	if stored.Status != model.RequestPending {
		return fmt.Errorf("remapping request %s is no longer pending: %w", r.ID, db.ErrVersionConflict)
	}
	if task != nil {
		if err := d.updateTask(task); err != nil {
			return err
		}
	}
	stored.Status = r.Status
	stored.DecidedAt = r.DecidedAt
	stored.DecidedBy = r.DecidedBy
	d.requests[r.ID] = stored
	return nil
}

// Meetings

func (d *DB) GetMeetings(ctx context.Context) ([]db.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	meetings := sortedValues(d.meetings, func(a, b db.Meeting) int {
		return cmp.Or(cmp.Compare(b.Date, a.Date), cmp.Compare(b.Time, a.Time), cmp.Compare(a.ID, b.ID))
	})
	for i := range meetings {
		meetings[i].Attendees = slices.Clone(meetings[i].Attendees)
	}
	return meetings, nil
}

func (d *DB) GetMeeting(ctx context.Context, id string) (*db.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.meetings[id]
	if !ok {
		return nil, fmt.Errorf("failed to get meeting %s: %w", id, db.ErrNotFound)
	}
	m.Attendees = slices.Clone(m.Attendees)
	return &m, nil
}

func (d *DB) InsertMeeting(ctx context.Context, m *db.Meeting) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.meetings[m.ID]; ok {
		return fmt.Errorf("failed to insert meeting: %w", db.ErrDuplicate)
	}
	stored := *m
	stored.Attendees = slices.Clone(m.Attendees)
	d.meetings[m.ID] = stored
	return nil
}

// Announcements

func (d *DB) GetAnnouncements(ctx context.Context) ([]db.Announcement, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedValues(d.announcements, func(a, b db.Announcement) int {
		return cmp.Or(b.Date.Compare(a.Date), cmp.Compare(a.ID, b.ID))
	}), nil
}

func (d *DB) InsertAnnouncement(ctx context.Context, a *db.Announcement) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.announcements[a.ID]; ok {
		return fmt.Errorf("failed to insert announcement: %w", db.ErrDuplicate)
	}
	d.announcements[a.ID] = *a
	return nil
}

func (d *DB) DeleteAnnouncement(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.announcements[id]; !ok {
		return fmt.Errorf("failed to delete announcement: %w", db.ErrNotFound)
	}
	delete(d.announcements, id)
	return nil
}

// Push subscriptions

func (d *DB) GetPushSubscriptions(ctx context.Context) ([]db.PushSubscription, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedValues(d.subscriptions, func(a, b db.PushSubscription) int { return cmp.Compare(a.ID, b.ID) }), nil
}

func (d *DB) GetPushSubscriptionsForVolunteers(ctx context.Context, volunteerIDs []string) ([]db.PushSubscription, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []db.PushSubscription
	for _, s := range d.subscriptions {
		if slices.Contains(volunteerIDs, s.VolunteerID) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b db.PushSubscription) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// InsertPushSubscription refreshes the keys when the volunteer already registered the endpoint
func (d *DB) InsertPushSubscription(ctx context.Context, s *db.PushSubscription) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.volunteers[s.VolunteerID]; !ok {
		return fmt.Errorf("failed to insert push subscription: volunteer %s: %w", s.VolunteerID, db.ErrNotFound)
	}
	for id, existing := range d.subscriptions {
		if existing.VolunteerID == s.VolunteerID && existing.Endpoint == s.Endpoint {
			existing.P256dhKey = s.P256dhKey
			existing.AuthKey = s.AuthKey
			d.subscriptions[id] = existing
			s.ID = id
			return nil
		}
	}
	d.subscriptions[s.ID] = *s
	return nil
}

func (d *DB) DeletePushSubscription(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscriptions[id]; !ok {
		return fmt.Errorf("failed to delete push subscription: %w", db.ErrNotFound)
	}
	delete(d.subscriptions, id)
	return nil
}

func (d *DB) DeletePushSubscriptionByEndpoint(ctx context.Context, volunteerID, endpoint string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, s := range d.subscriptions {
		if s.VolunteerID == volunteerID && s.Endpoint == endpoint {
			delete(d.subscriptions, id)
			return nil
		}
	}
	return fmt.Errorf("failed to delete push subscription: %w", db.ErrNotFound)
}
