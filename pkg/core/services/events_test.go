package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
)

func TestListEvents(t *testing.T) {
	f := newFixture(t)

	past, err := CreateEvent(f.ctx, f.store, f.logger, f.admin, "Spring Clean", "2025-05-01", "")
	require.NoError(t, err)
	today, err := CreateEvent(f.ctx, f.store, f.logger, f.admin, "Open Day", "2025-06-01", "")
	require.NoError(t, err)
	older, err := CreateEvent(f.ctx, f.store, f.logger, f.admin, "Quiz", "2025-03-01", "")
	require.NoError(t, err)

	task := f.createTask(t, model.TaskIndividual, "alice")
	f.createTask(t, model.TaskIndividual, "bob")
	_, err = MarkTaskComplete(f.ctx, f.store, f.logger, f.alice, task.ID)
	require.NoError(t, err)

	upcoming, err := ListEvents(f.ctx, f.store, ScopeUpcoming)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, today.ID, upcoming[0].ID)
	assert.Equal(t, f.event.ID, upcoming[1].ID)
	assert.Equal(t, Progress{Completed: 1, Total: 2}, upcoming[1].Progress)

	gone, err := ListEvents(f.ctx, f.store, ScopePast)
	require.NoError(t, err)
	require.Len(t, gone, 2)
	assert.Equal(t, past.ID, gone[0].ID)
	assert.Equal(t, older.ID, gone[1].ID)

	_, err = ListEvents(f.ctx, f.store, "soon")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := CreateEvent(f.ctx, f.store, f.logger, f.alice, "Fair", "2025-07-01", "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = CreateEvent(f.ctx, f.store, f.logger, f.admin, " ", "2025-07-01", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = CreateEvent(f.ctx, f.store, f.logger, f.admin, "Fair", "July", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChangeEventStatus(t *testing.T) {
	f := newFixture(t)

	_, err := ChangeEventStatus(f.ctx, f.store, f.logger, f.admin, f.event.ID, model.EventPostponed, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ChangeEventStatus(f.ctx, f.store, f.logger, f.admin, f.event.ID, model.EventCompleted, "2025-07-01")
	assert.ErrorIs(t, err, ErrInvalidInput)

	event, err := ChangeEventStatus(f.ctx, f.store, f.logger, f.admin, f.event.ID, model.EventPostponed, "2025-07-05")
	require.NoError(t, err)
	assert.Equal(t, model.EventPostponed, event.Status)
	assert.Equal(t, "2025-07-05", event.Date)
	assert.Equal(t, fixedNow, event.StatusChangedAt)

	event, err = ChangeEventStatus(f.ctx, f.store, f.logger, f.admin, f.event.ID, model.EventCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, model.EventCompleted, event.Status)
	assert.Equal(t, "2025-07-05", event.Date)
}

func TestCreateDepartment(t *testing.T) {
	f := newFixture(t)

	dep, err := CreateDepartment(f.ctx, f.store, f.logger, f.admin, f.event.ID, "Catering", []string{"alice", "bob", "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, dep.MemberIDs)

	detail, err := GetEventDetail(f.ctx, f.store, f.event.ID)
	require.NoError(t, err)
	require.Len(t, detail.Departments, 1)
	assert.Equal(t, "Catering", detail.Departments[0].Name)
	assert.Empty(t, detail.Tasks)

	_, err = CreateDepartment(f.ctx, f.store, f.logger, f.admin, f.event.ID, "", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = CreateDepartment(f.ctx, f.store, f.logger, f.bob, f.event.ID, "Stage", nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDashboardAndProfile(t *testing.T) {
	f := newFixture(t)

	done := f.createTask(t, model.TaskIndividual, "alice")
	f.createTask(t, model.TaskIndividual, "alice")
	open := f.createTask(t, model.TaskIndividual, "bob")
	_, err := MarkTaskComplete(f.ctx, f.store, f.logger, f.alice, done.ID)
	require.NoError(t, err)
	_, err = SubmitRemapRequest(f.ctx, f.store, nil, f.logger, f.bob, open.ID, "carol", "ill")
	require.NoError(t, err)

	d, err := GetDashboard(f.ctx, f.store, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, d.PendingTasks)
	assert.Equal(t, 1, d.CompletedTasks)
	assert.Equal(t, 4, d.Volunteers)
	assert.Equal(t, 1, d.PendingRequests)
	require.Len(t, d.UpcomingEvents, 1)

	d, err = GetDashboard(f.ctx, f.store, f.alice)
	require.NoError(t, err)
	assert.Equal(t, 1, d.PendingTasks)
	assert.Equal(t, 1, d.CompletedTasks)
	assert.Equal(t, 0, d.PendingRequests)

	p, err := GetProfile(f.ctx, f.store, f.alice)
	require.NoError(t, err)
	assert.Len(t, p.Tasks, 2)
	require.Len(t, p.Events, 1)
	assert.Equal(t, f.event.ID, p.Events[0].ID)

	p, err = GetProfile(f.ctx, f.store, f.carol)
	require.NoError(t, err)
	assert.Empty(t, p.Tasks)
	assert.Empty(t, p.Events)
}
