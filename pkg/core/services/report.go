package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/clients/sheetsclient"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

// ReportStore is what the event report needs from the database
type ReportStore interface {
	GetEvent(ctx context.Context, id string) (*db.Event, error)
	GetTasksByEvent(ctx context.Context, eventID string) ([]db.Task, error)
	GetVolunteers(ctx context.Context) ([]db.Volunteer, error)
}

// ReportPublisher writes report rows to a spreadsheet tab
type ReportPublisher interface {
	PublishReport(ctx context.Context, spreadsheetID, tab string, rows []sheetsclient.ReportRow) error
}

// BuildEventReport returns one row per task of an event with assignee names resolved.
// Assignees that no longer exist are reported by id.
func BuildEventReport(ctx context.Context, store ReportStore, eventID string) ([]sheetsclient.ReportRow, error) {
	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}
	tasks, err := store.GetTasksByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	volunteers, err := store.GetVolunteers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteers: %w", err)
	}

	names := make(map[string]string, len(volunteers))
	for _, v := range volunteers {
		names[v.ID] = v.Name
	}

	rows := make([]sheetsclient.ReportRow, 0, len(tasks))
	for _, t := range tasks {
		assignees := make([]string, 0, len(t.AssignedVolunteerIDs))
		for _, id := range t.AssignedVolunteerIDs {
			if name, ok := names[id]; ok {
				assignees = append(assignees, name)
			} else {
				assignees = append(assignees, id)
			}
		}
		rows = append(rows, sheetsclient.ReportRow{
			Event:      event.Name,
			EventDate:  event.Date,
			Task:       t.Name,
			Type:       string(t.Type),
			Status:     string(t.Status),
			Deadline:   t.Deadline,
			Assignees:  assignees,
			NotesCount: len(t.ContributionNotes),
		})
	}
	return rows, nil
}

// ExportEventReport builds the report for an event and appends it to the given sheet tab
func ExportEventReport(ctx context.Context, store ReportStore, publisher ReportPublisher, logger *zap.Logger, eventID, spreadsheetID, tab string) (int, error) {
	rows, err := BuildEventReport(ctx, store, eventID)
	if err != nil {
		return 0, err
	}

	logger.Debug("Built event report", zap.String("event_id", eventID), zap.Int("rows", len(rows)))

	if err := publisher.PublishReport(ctx, spreadsheetID, tab, rows); err != nil {
		return 0, fmt.Errorf("failed to publish report: %w", err)
	}

	logger.Info("Event report exported", zap.String("event_id", eventID), zap.String("tab", tab), zap.Int("rows", len(rows)))
	return len(rows), nil
}
