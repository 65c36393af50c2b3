package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jakechorley/taskflow-connect/pkg/auth"
	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
	"github.com/jakechorley/taskflow-connect/pkg/memdb"
	"github.com/jakechorley/taskflow-connect/pkg/notify"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	auth.HashCost = bcrypt.MinCost
	now = func() time.Time { return fixedNow }
	praiseIntn = func(int) int { return 0 }
	goleak.VerifyTestMain(m)
}

type recordingPusher struct {
	mu       sync.Mutex
	all      []notify.Payload
	targeted map[string][]notify.Payload
}

func (p *recordingPusher) NotifyAll(ctx context.Context, payload notify.Payload) notify.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.all = append(p.all, payload)
	return notify.Result{}
}

func (p *recordingPusher) NotifyVolunteers(ctx context.Context, ids []string, payload notify.Payload) notify.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.targeted == nil {
		p.targeted = map[string][]notify.Payload{}
	}
	for _, id := range ids {
		p.targeted[id] = append(p.targeted[id], payload)
	}
	return notify.Result{}
}

type sentEmail struct {
	To, Subject, Body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (m *recordingMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

type fixture struct {
	ctx      context.Context
	store    *memdb.DB
	logger   *zap.Logger
	push     *recordingPusher
	mail     *recordingMailer
	notifier *Notifier
	admin    *db.Volunteer
	alice    *db.Volunteer
	bob      *db.Volunteer
	carol    *db.Volunteer
	event    *db.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		store:  memdb.New(),
		logger: zap.NewNop(),
		push:   &recordingPusher{},
		mail:   &recordingMailer{},
	}
	f.notifier = &Notifier{Push: f.push, Mailer: f.mail, PublicURL: "https://taskflow.example.org"}

	f.admin = f.seedVolunteer(t, "admin", "Ada Admin", model.RoleAdmin, "")
	f.alice = f.seedVolunteer(t, "alice", "Alice", model.RoleVolunteer, "Kitchen")
	f.bob = f.seedVolunteer(t, "bob", "Bob", model.RoleVolunteer, "Stage")
	f.carol = f.seedVolunteer(t, "carol", "Carol", model.RoleVolunteer, "")

	f.event = &db.Event{ID: "event-1", Name: "Summer Fair", Date: "2025-06-14", Status: model.EventUpcoming, StatusChangedAt: fixedNow}
	require.NoError(t, f.store.InsertEvent(f.ctx, f.event))
	return f
}

func (f *fixture) seedVolunteer(t *testing.T, id, name string, role model.Role, team string) *db.Volunteer {
	t.Helper()
	v := &db.Volunteer{
		ID:        id,
		Name:      name,
		Email:     id + "@example.org",
		Role:      role,
		Team:      team,
		CreatedAt: fixedNow,
	}
	require.NoError(t, f.store.InsertVolunteer(f.ctx, v))
	return v
}

func (f *fixture) createTask(t *testing.T, taskType model.TaskType, assignees ...string) *db.Task {
	t.Helper()
	task, err := CreateTask(f.ctx, f.store, nil, f.logger, f.admin, CreateTaskInput{
		EventID:      f.event.ID,
		Name:         "Set up stalls",
		Type:         taskType,
		Deadline:     "2025-06-13",
		VolunteerIDs: assignees,
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) pushesTo(id string) []notify.Payload {
	f.push.mu.Lock()
	defer f.push.mu.Unlock()
	return f.push.targeted[id]
}
