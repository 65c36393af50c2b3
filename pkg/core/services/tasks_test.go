package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
	"github.com/jakechorley/taskflow-connect/pkg/memdb"
)

func TestCreateTask(t *testing.T) {
	f := newFixture(t)

	task, err := CreateTask(f.ctx, f.store, f.notifier, f.logger, f.admin, CreateTaskInput{
		EventID:      f.event.ID,
		Name:         "  Hang bunting ",
		Type:         model.TaskTeam,
		Deadline:     "2025-06-13",
		VolunteerIDs: []string{"alice", "bob", "alice"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hang bunting", task.Name)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Equal(t, []string{"alice", "bob"}, task.AssignedVolunteerIDs)
	assert.Equal(t, map[string]bool{"alice": false, "bob": false}, task.Completion)
	assert.Equal(t, 1, task.Version)
	assert.Len(t, f.pushesTo("alice"), 1)
	assert.Len(t, f.pushesTo("bob"), 1)
}

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		actor *db.Volunteer
		input CreateTaskInput
		want  error
	}{
		{"volunteer", f.alice, CreateTaskInput{EventID: f.event.ID, Name: "x", Deadline: "2025-06-13"}, ErrForbidden},
		{"missing name", f.admin, CreateTaskInput{EventID: f.event.ID, Deadline: "2025-06-13"}, ErrInvalidInput},
		{"missing deadline", f.admin, CreateTaskInput{EventID: f.event.ID, Name: "x"}, ErrInvalidInput},
		{"bad deadline", f.admin, CreateTaskInput{EventID: f.event.ID, Name: "x", Deadline: "13/06/2025"}, ErrInvalidInput},
		{"bad type", f.admin, CreateTaskInput{EventID: f.event.ID, Name: "x", Deadline: "2025-06-13", Type: "Solo"}, ErrInvalidInput},
		{"unknown event", f.admin, CreateTaskInput{EventID: "nope", Name: "x", Deadline: "2025-06-13"}, db.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateTask(f.ctx, f.store, nil, f.logger, tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMarkTaskPresent_TeamScenario(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskTeam, "alice", "bob")

	res, err := MarkTaskPresent(f.ctx, f.store, f.notifier, f.logger, f.alice, task.ID)
	require.NoError(t, err)
	assert.False(t, res.Transitioned)
	assert.Equal(t, model.StatusPending, res.Task.Status)
	assert.Equal(t, map[string]bool{"alice": true, "bob": false}, res.Task.Completion)

	res, err = MarkTaskPresent(f.ctx, f.store, f.notifier, f.logger, f.bob, task.ID)
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.Equal(t, model.StatusCompleted, res.Task.Status)
	assert.Empty(t, res.Praise)

	// Repeat is a no-op
	res, err = MarkTaskPresent(f.ctx, f.store, f.notifier, f.logger, f.alice, task.ID)
	require.NoError(t, err)
	assert.False(t, res.Transitioned)
	assert.Equal(t, model.StatusCompleted, res.Task.Status)
	assert.Equal(t, 3, res.Task.Version)

	require.Len(t, f.pushesTo("alice"), 1)
	assert.Equal(t, "Team task completed", f.pushesTo("alice")[0].Title)
}

func TestMarkTaskPresent_NotAssigned(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskTeam, "alice")

	_, err := MarkTaskPresent(f.ctx, f.store, nil, f.logger, f.bob, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMarkTaskPresent_IndividualTask(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskIndividual, "alice")

	_, err := MarkTaskPresent(f.ctx, f.store, nil, f.logger, f.alice, task.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarkTaskComplete_PraiseOnlyOnTransition(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskIndividual, "alice")

	res, err := MarkTaskComplete(f.ctx, f.store, f.logger, f.alice, task.ID)
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.Equal(t, model.StatusCompleted, res.Task.Status)
	assert.Contains(t, res.Praise, "Alice")

	res, err = MarkTaskComplete(f.ctx, f.store, f.logger, f.alice, task.ID)
	require.NoError(t, err)
	assert.False(t, res.Transitioned)
	assert.Empty(t, res.Praise)
	assert.Equal(t, 2, res.Task.Version)
}

func TestMarkTaskComplete_Permissions(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskIndividual, "alice")

	_, err := MarkTaskComplete(f.ctx, f.store, f.logger, f.bob, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := MarkTaskComplete(f.ctx, f.store, f.logger, f.admin, task.ID)
	require.NoError(t, err)
	assert.True(t, res.Transitioned)

	team := f.createTask(t, model.TaskTeam, "alice")
	_, err = MarkTaskComplete(f.ctx, f.store, f.logger, f.alice, team.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// racingStore runs race before the first task write, simulating another request
// updating the same task between our read and write
type racingStore struct {
	*memdb.DB
	race  func()
	raced bool
}

func (s *racingStore) UpdateTask(ctx context.Context, task *db.Task) error {
	if !s.raced {
		s.raced = true
		s.race()
	}
	return s.DB.UpdateTask(ctx, task)
}

func TestMarkTaskPresent_RetriesAfterConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskTeam, "alice", "bob")

	store := &racingStore{DB: f.store, race: func() {
		_, err := MarkTaskPresent(f.ctx, f.store, nil, f.logger, f.bob, task.ID)
		require.NoError(t, err)
	}}

	res, err := MarkTaskPresent(f.ctx, store, nil, f.logger, f.alice, task.ID)
	require.NoError(t, err)

	// Bob's write survived and Alice's retry completed the task
	assert.True(t, res.Transitioned)
	assert.Equal(t, model.StatusCompleted, res.Task.Status)
	assert.Equal(t, map[string]bool{"alice": true, "bob": true}, res.Task.Completion)
	assert.Equal(t, 3, res.Task.Version)
}

func TestAssignTask(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskTeam, "alice")

	_, err := MarkTaskPresent(f.ctx, f.store, nil, f.logger, f.alice, task.ID)
	require.NoError(t, err)

	updated, err := AssignTask(f.ctx, f.store, f.notifier, f.logger, f.admin, task.ID, []string{"alice", "bob"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, updated.AssignedVolunteerIDs)
	assert.Equal(t, map[string]bool{"alice": false, "bob": false}, updated.Completion)

	assert.Empty(t, f.pushesTo("alice"), "alice was already assigned")
	assert.Len(t, f.pushesTo("bob"), 1)
}

func TestAssignTask_StaleVersion(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskIndividual, "alice")

	_, err := AssignTask(f.ctx, f.store, nil, f.logger, f.admin, task.ID, []string{"bob"}, task.Version)
	require.NoError(t, err)

	_, err = AssignTask(f.ctx, f.store, nil, f.logger, f.admin, task.ID, []string{"carol"}, task.Version)
	assert.ErrorIs(t, err, db.ErrVersionConflict)

	stored, err := f.store.GetTask(f.ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, stored.AssignedVolunteerIDs)
}

func TestGetTask_Visibility(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskIndividual, "alice")

	_, err := GetTask(f.ctx, f.store, f.alice, task.ID)
	assert.NoError(t, err)
	_, err = GetTask(f.ctx, f.store, f.admin, task.ID)
	assert.NoError(t, err)
	_, err = GetTask(f.ctx, f.store, f.bob, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListMyTasks(t *testing.T) {
	f := newFixture(t)
	mine := f.createTask(t, model.TaskIndividual, "alice")
	f.createTask(t, model.TaskIndividual, "bob")

	tasks, err := ListMyTasks(f.ctx, f.store, f.alice)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, mine.ID, tasks[0].ID)
}

func TestDeleteTask_RemovesNotes(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskIndividual, "alice")

	_, err := AddContributionNote(f.ctx, f.store, f.logger, f.admin, task.ID, "alice", "Brought the gazebo")
	require.NoError(t, err)
	_, err = AddContributionNote(f.ctx, f.store, f.logger, f.admin, task.ID, "bob", "Carried tables")
	require.NoError(t, err)

	withNotes, err := f.store.GetTask(f.ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, withNotes.ContributionNotes, 2)

	require.NoError(t, DeleteTask(f.ctx, f.store, f.logger, f.admin, task.ID))

	_, err = f.store.GetTask(f.ctx, task.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = AddContributionNote(f.ctx, f.store, f.logger, f.admin, task.ID, "alice", "late note")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestAddContributionNote_Validation(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, model.TaskIndividual, "alice")

	_, err := AddContributionNote(f.ctx, f.store, f.logger, f.alice, task.ID, "alice", "note")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = AddContributionNote(f.ctx, f.store, f.logger, f.admin, task.ID, "", "note")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = AddContributionNote(f.ctx, f.store, f.logger, f.admin, task.ID, "alice", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
