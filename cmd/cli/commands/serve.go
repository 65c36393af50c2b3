package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/api"
	"github.com/jakechorley/taskflow-connect/pkg/core/services"
	"github.com/jakechorley/taskflow-connect/pkg/notify"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrate {
				if err := runMigrations(app); err != nil {
					return err
				}
			}

			tokens, err := app.Tokens()
			if err != nil {
				return err
			}

			mailer, err := app.Mailer()
			if err != nil {
				return err
			}
			asyncMailer := notify.NewAsyncMailer(mailer, app.Logger)
			defer asyncMailer.Close()

			if !app.Cfg.Push.Enabled() {
				app.Logger.Warn("VAPID keys not configured, push notifications are disabled")
			}
			pusher := notify.NewAsyncPusher(notify.NewPushSender(app.Cfg.Push, app.Database, app.Logger, nil), app.Logger)
			defer pusher.Close()

			notifier := &services.Notifier{
				Push:      pusher,
				Mailer:    asyncMailer,
				PublicURL: app.Cfg.PublicURL,
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(app.Cfg, app.Database, tokens, notifier, app.Logger)
			if err := server.ListenAndServe(ctx); err != nil {
				return err
			}

			app.Logger.Info("Server stopped, waiting for queued notifications")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations before serving")
	return cmd
}

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(app)
		},
	}
}

func runMigrations(app *AppContext) error {
	if app.Postgres == nil {
		app.Logger.Info("Storage is not postgres, nothing to migrate")
		return nil
	}

	applied, err := app.Postgres.RunMigrations(app.Ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app.Logger.Info("Migrations complete", zap.Strings("applied", applied))
	if len(applied) == 0 {
		fmt.Println("Database is up to date")
		return nil
	}
	for _, name := range applied {
		success.Printf("✓ Applied %s\n", name)
	}
	return nil
}
