package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/taskflow-connect/internal/config"
	"github.com/jakechorley/taskflow-connect/pkg/core/services"
	"github.com/jakechorley/taskflow-connect/pkg/utils"
)

// ExportEventReportCmd creates the exportEventReport command
func ExportEventReportCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exportEventReport <event_id>",
		Short: "Append one row per task of an event to the report sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster := app.Cfg.Roster
			if roster.ReportSheetID == "" {
				return fmt.Errorf("roster.reportSheetID must be set in the config")
			}

			sheets, err := app.SheetsClient()
			if err != nil {
				return err
			}

			n, err := services.ExportEventReport(app.Ctx, app.Database, sheets, app.Logger, args[0], roster.ReportSheetID, roster.ReportTab)
			if err != nil {
				return err
			}

			success.Printf("\n✓ Exported %d tasks to tab %q\n\n", n, roster.ReportTab)
			return nil
		},
	}
}

// AuthorizeCmd creates the authorize command
func AuthorizeCmd(app *AppContext) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Sign in to Google and store a token for Sheets and Gmail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reset {
				utils.ClearToken(app.Env)
				if err := utils.DeleteTokenFile(app.Env); err != nil {
					return err
				}
			}

			clientCfg, err := config.LoadOAuthClientWithEnv(app.Env)
			if err != nil {
				return err
			}
			oauthConfig, err := utils.GetOAuthConfig(clientCfg)
			if err != nil {
				return err
			}
			if _, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, app.Env, app.Logger); err != nil {
				return err
			}

			success.Printf("\n✓ Google account authorized for %s\n\n", app.Env)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Discard any stored token first")
	return cmd
}
