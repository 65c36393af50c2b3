package sheetsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/sheetssql"
)

// rosterRow is one line of the roster tab
type rosterRow struct {
	Name  string `ssql_header:"Name"`
	Email string `ssql_header:"Email"`
	Role  string `ssql_header:"Role"`
	Team  string `ssql_header:"Team"`
}

// ListRoster reads and parses the roster tab
func (c *Client) ListRoster(ctx context.Context, spreadsheetID, tab string) ([]model.RosterEntry, error) {
	values, err := c.GetValues(ctx, spreadsheetID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster data: %w", err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("spreadsheet is empty")
	}

	entries, err := ParseRoster(values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	return entries, nil
}

// ParseRoster converts raw spreadsheet data into roster entries.
// Rows without an email are skipped. An empty role means Volunteer.
func ParseRoster(raw [][]any) ([]model.RosterEntry, error) {
	rows, err := sheetssql.Decode[rosterRow](raw)
	if err != nil {
		return nil, err
	}

	entries := make([]model.RosterEntry, 0, len(rows))
	for i, row := range rows {
		if row.Email == "" {
			continue
		}

		role := model.RoleVolunteer
		if row.Role != "" {
			role = normaliseRole(row.Role)
			if !role.IsValid() {
				return nil, fmt.Errorf("invalid role %q for %s (entry %d)", row.Role, row.Email, i+1)
			}
		}

		name := row.Name
		if name == "" {
			name = strings.Split(row.Email, "@")[0]
		}

		entries = append(entries, model.RosterEntry{
			Name:  name,
			Email: strings.ToLower(row.Email),
			Role:  role,
			Team:  row.Team,
		})
	}

	return entries, nil
}

func normaliseRole(s string) model.Role {
	switch strings.ToLower(s) {
	case "admin":
		return model.RoleAdmin
	case "volunteer":
		return model.RoleVolunteer
	}
	return model.Role(s)
}
