package memdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

func seedTask(t *testing.T, store *DB) *db.Task {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.InsertEvent(ctx, &db.Event{ID: "e1", Name: "Gala", Date: "2026-05-01", Status: model.EventUpcoming}))
	task := &db.Task{
		ID:                   "t1",
		EventID:              "e1",
		Name:                 "Set up chairs",
		Status:               model.StatusPending,
		Type:                 model.TaskTeam,
		Deadline:             "2026-04-30",
		AssignedVolunteerIDs: []string{"A", "B"},
		Completion:           map[string]bool{"A": false, "B": false},
	}
	require.NoError(t, store.InsertTask(ctx, task))
	return task
}

func TestUpdateTask_VersionCheck(t *testing.T) {
	store := New()
	ctx := context.Background()
	seedTask(t, store)

	first, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	second, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)

	first.Completion["A"] = true
	require.NoError(t, store.UpdateTask(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Completion["B"] = true
	err = store.UpdateTask(ctx, second)
	assert.ErrorIs(t, err, db.ErrVersionConflict)

	stored, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"A": true, "B": false}, stored.Completion)
}

func TestUpdateTask_NotFound(t *testing.T) {
	store := New()
	err := store.UpdateTask(context.Background(), &db.Task{ID: "missing", Version: 1})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestGetTask_ReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()
	seedTask(t, store)

	got, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	got.AssignedVolunteerIDs[0] = "Z"
	got.Completion["A"] = true

	again, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, again.AssignedVolunteerIDs)
	assert.False(t, again.Completion["A"])
}

func TestDeleteTask_RemovesNotes(t *testing.T) {
	store := New()
	ctx := context.Background()
	seedTask(t, store)

	require.NoError(t, store.InsertContributionNote(ctx, &db.ContributionNote{ID: "n1", TaskID: "t1", VolunteerID: "A", Note: "brought tables"}))
	require.NoError(t, store.InsertContributionNote(ctx, &db.ContributionNote{ID: "n2", TaskID: "t1", VolunteerID: "B", Note: "lights"}))

	task, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, task.ContributionNotes, 2)

	require.NoError(t, store.DeleteTask(ctx, "t1"))

	_, err = store.GetTask(ctx, "t1")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Empty(t, store.notes)
}

func TestDecideRemappingRequest_OnlyOnce(t *testing.T) {
	store := New()
	ctx := context.Background()
	seedTask(t, store)

	req := &db.RemappingRequest{ID: "r1", TaskID: "t1", FromVolunteerID: "A", ToVolunteerID: "C", Reason: "away", Status: model.RequestPending, CreatedAt: time.Now()}
	require.NoError(t, store.InsertRemappingRequest(ctx, req))

	decided := *req
	decided.Status = model.RequestRejected
	require.NoError(t, store.DecideRemappingRequest(ctx, &decided, nil))

	decided.Status = model.RequestAccepted
	err := store.DecideRemappingRequest(ctx, &decided, nil)
	assert.ErrorIs(t, err, db.ErrVersionConflict)

	stored, err := store.GetRemappingRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, stored.Status)
}

func TestDecideRemappingRequest_TaskConflictLeavesRequestPending(t *testing.T) {
	store := New()
	ctx := context.Background()
	seedTask(t, store)

	req := &db.RemappingRequest{ID: "r1", TaskID: "t1", FromVolunteerID: "A", ToVolunteerID: "C", Reason: "away", Status: model.RequestPending}
	require.NoError(t, store.InsertRemappingRequest(ctx, req))

	stale, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	stale.Version = 99

	decided := *req
	decided.Status = model.RequestAccepted
	err = store.DecideRemappingRequest(ctx, &decided, stale)
	assert.ErrorIs(t, err, db.ErrVersionConflict)

	stored, err := store.GetRemappingRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, stored.Status)
}

func TestInsertVolunteer_DuplicateEmail(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.InsertVolunteer(ctx, &db.Volunteer{ID: "v1", Email: "sam@example.com"}))

	err := store.InsertVolunteer(ctx, &db.Volunteer{ID: "v2", Email: "SAM@example.com"})
	assert.ErrorIs(t, err, db.ErrDuplicate)

	got, err := store.GetVolunteerByEmail(ctx, "Sam@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.ID)
}

func TestInsertPushSubscription_RefreshesExistingEndpoint(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.InsertVolunteer(ctx, &db.Volunteer{ID: "v1", Email: "a@example.com"}))

	require.NoError(t, store.InsertPushSubscription(ctx, &db.PushSubscription{ID: "s1", VolunteerID: "v1", Endpoint: "https://push/1", P256dhKey: "old"}))
	again := &db.PushSubscription{ID: "s2", VolunteerID: "v1", Endpoint: "https://push/1", P256dhKey: "new"}
	require.NoError(t, store.InsertPushSubscription(ctx, again))
	assert.Equal(t, "s1", again.ID)

	subs, err := store.GetPushSubscriptionsForVolunteers(ctx, []string{"v1"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "new", subs[0].P256dhKey)

	require.NoError(t, store.DeleteVolunteer(ctx, "v1"))
	subs, err = store.GetPushSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
