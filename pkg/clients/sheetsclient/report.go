package sheetsclient

import (
	"context"
	"fmt"

	"github.com/jakechorley/taskflow-connect/pkg/sheetssql"
)

// ReportRow is one task line in an event report
type ReportRow struct {
	Event      string   `ssql_header:"Event"`
	EventDate  string   `ssql_header:"Event date"`
	Task       string   `ssql_header:"Task"`
	Type       string   `ssql_header:"Type"`
	Status     string   `ssql_header:"Status"`
	Deadline   string   `ssql_header:"Deadline"`
	Assignees  []string `ssql_header:"Assignees"`
	NotesCount int      `ssql_header:"Notes"`
}

// PublishReport appends rows to the report tab, creating the tab with a header row if it does not exist
func (c *Client) PublishReport(ctx context.Context, spreadsheetID, tab string, rows []ReportRow) error {
	exists, err := c.HasSheet(ctx, spreadsheetID, tab)
	if err != nil {
		return err
	}

	values := sheetssql.Encode(rows)
	if !exists {
		if _, err := c.CreateSheet(ctx, spreadsheetID, tab); err != nil {
			return err
		}
		values = append([][]any{sheetssql.Headers[ReportRow]()}, values...)
	}

	if len(values) == 0 {
		return nil
	}

	if err := c.AppendRows(ctx, spreadsheetID, tab, values); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	return nil
}
