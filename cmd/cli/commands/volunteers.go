package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/services"
)

// CreateAdminCmd creates the createAdmin command
func CreateAdminCmd(app *AppContext) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "createAdmin <name> <email>",
		Short: "Create an admin account",
		Long: `Create an admin account directly in the database.
The password is read from --password or, when omitted, from the first line of stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Print("Password: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			v, err := services.BootstrapAdmin(app.Ctx, app.Database, app.Logger, args[0], args[1], password)
			if err != nil {
				return err
			}

			success.Printf("\n✓ Admin created\n\n")
			fmt.Printf("ID:    %s\n", v.ID)
			fmt.Printf("Name:  %s\n", v.Name)
			fmt.Printf("Email: %s\n\n", v.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password for the new admin (min 6 characters)")
	return cmd
}

// ListVolunteersCmd creates the listVolunteers command
func ListVolunteersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listVolunteers",
		Short: "List all volunteers in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			volunteers, err := services.ListVolunteers(app.Ctx, app.Database)
			if err != nil {
				return err
			}

			app.Logger.Debug("Volunteers fetched", zap.Int("count", len(volunteers)))

			fmt.Printf("\nFound %d volunteers:\n\n", len(volunteers))
			for _, v := range volunteers {
				role := dim.Sprint(v.Role)
				if v.Role == model.RoleAdmin {
					role = bold.Sprint(v.Role)
				}
				team := ""
				if v.Team != "" {
					team = fmt.Sprintf(" [Team: %s]", v.Team)
				}
				fmt.Printf("- %s (%s) - %s - %s%s\n", v.Name, v.ID, v.Email, role, team)
			}
			fmt.Println()
			return nil
		},
	}
}

// ImportVolunteersCmd creates the importVolunteers command
func ImportVolunteersCmd(app *AppContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "importVolunteers",
		Short: "Create accounts for roster sheet rows whose email is not registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roster := app.Cfg.Roster
			if roster.SheetID == "" || roster.Tab == "" {
				return fmt.Errorf("roster.sheetID and roster.tab must be set in the config")
			}

			sheets, err := app.SheetsClient()
			if err != nil {
				return err
			}
			entries, err := sheets.ListRoster(app.Ctx, roster.SheetID, roster.Tab)
			if err != nil {
				return err
			}
			app.Logger.Info("Roster fetched", zap.Int("rows", len(entries)))

			tokens, err := app.Tokens()
			if err != nil {
				return err
			}
			mailer, err := app.Mailer()
			if err != nil {
				return err
			}
			notifier := &services.Notifier{Mailer: mailer, PublicURL: app.Cfg.PublicURL}

			result, err := services.ImportRoster(app.Ctx, app.Database, tokens, notifier, app.Logger, entries, dryRun)
			if err != nil {
				return err
			}

			if dryRun {
				warning.Println("\nDry run, nothing was written")
			}
			fmt.Printf("\nCreated %d, skipped %d, failed %d\n\n", len(result.Created), len(result.Skipped), len(result.Failed))
			for _, email := range result.Created {
				success.Printf("  + %s\n", email)
			}
			for _, email := range result.Skipped {
				dim.Printf("  = %s (already registered)\n", email)
			}
			for email, err := range result.Failed {
				failure.Printf("  ✗ %s: %v\n", email, err)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be created without writing")
	return cmd
}
