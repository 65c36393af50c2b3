// Package taskflow holds the task state transitions: completion of individual
// tasks, presence tracking for team tasks, assignment edits and remapping.
// Functions mutate the task in place and never touch storage.
package taskflow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

var (
	ErrNotAssigned   = errors.New("volunteer is not assigned to this task")
	ErrWrongTaskType = errors.New("operation does not apply to this task type")
)

// IsAssigned reports whether volunteerID is in the task's assignee set
func IsAssigned(task *db.Task, volunteerID string) bool {
	return slices.Contains(task.AssignedVolunteerIDs, volunteerID)
}

// MarkComplete completes an individual task.
// It returns true only when this call moved the task to Completed.
func MarkComplete(task *db.Task) (bool, error) {
	if task.Type != model.TaskIndividual {
		return false, fmt.Errorf("mark complete on %s task: %w", task.Type, ErrWrongTaskType)
	}
	if task.Status == model.StatusCompleted {
		return false, nil
	}
	task.Status = model.StatusCompleted
	return true, nil
}

// MarkPresent records a team member's presence. Once every key in the
// completion map is true the task moves to Completed; it returns true only
// on the call that performed that move.
func MarkPresent(task *db.Task, volunteerID string) (bool, error) {
	if task.Type != model.TaskTeam {
		return false, fmt.Errorf("mark present on %s task: %w", task.Type, ErrWrongTaskType)
	}
	if !IsAssigned(task, volunteerID) {
		return false, ErrNotAssigned
	}

	Reconcile(task)
	task.Completion[volunteerID] = true

	if task.Status == model.StatusCompleted || !AllPresent(task.Completion) {
		return false, nil
	}
	task.Status = model.StatusCompleted
	return true, nil
}

// AllPresent reports whether the map is non-empty and every flag is set
func AllPresent(completion map[string]bool) bool {
	if len(completion) == 0 {
		return false
	}
	for _, present := range completion {
		if !present {
			return false
		}
	}
	return true
}

// Assign overwrites the assignee set. Team tasks get a fresh all-false completion map.
func Assign(task *db.Task, volunteerIDs []string) {
	task.AssignedVolunteerIDs = Dedupe(volunteerIDs)
	if task.Type != model.TaskTeam {
		task.Completion = nil
		return
	}
	task.Completion = make(map[string]bool, len(task.AssignedVolunteerIDs))
	for _, id := range task.AssignedVolunteerIDs {
		task.Completion[id] = false
	}
}

// ApplyRemapping replaces from with to in the assignee set. to is never added twice.
// For team tasks the completion key moves with the assignment and starts unset.
// If the remaining assignees are all present the task completes; the return
// value reports that move.
func ApplyRemapping(task *db.Task, from, to string) bool {
	assignees := make([]string, 0, len(task.AssignedVolunteerIDs)+1)
	for _, id := range task.AssignedVolunteerIDs {
		if id != from {
			assignees = append(assignees, id)
		}
	}
	assignees = append(assignees, to)
	task.AssignedVolunteerIDs = Dedupe(assignees)

	if task.Type != model.TaskTeam {
		return false
	}
	Reconcile(task)
	if task.Status == model.StatusCompleted || !AllPresent(task.Completion) {
		return false
	}
	task.Status = model.StatusCompleted
	return true
}

// Reconcile makes the completion map keys equal the assignee set, keeping
// existing flags for volunteers who remain assigned
func Reconcile(task *db.Task) {
	next := make(map[string]bool, len(task.AssignedVolunteerIDs))
	for _, id := range task.AssignedVolunteerIDs {
		next[id] = task.Completion[id]
	}
	task.Completion = next
}

// Dedupe removes repeated and empty ids while keeping first-seen order
func Dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
