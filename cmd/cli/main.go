package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/cmd/cli/commands"
	"github.com/jakechorley/taskflow-connect/internal/config"
	"github.com/jakechorley/taskflow-connect/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "TaskFlow Connect - volunteer task coordination",
		Long:  `Run the TaskFlow Connect API and manage accounts, roster imports and event reports.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: dev, prod, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.CreateAdminCmd(app))
	rootCmd.AddCommand(commands.ListVolunteersCmd(app))
	rootCmd.AddCommand(commands.ImportVolunteersCmd(app))
	rootCmd.AddCommand(commands.ExportEventReportCmd(app))
	rootCmd.AddCommand(commands.AuthorizeCmd(app))
	rootCmd.AddCommand(interactiveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config and storage
func initApp() error {
	var err error
	app.Env = env
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger(env, logging.Options{Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded", zap.String("storage", app.Cfg.Storage))

	return app.OpenDatabase()
}

func interactiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (connect once, run multiple commands)",
		Long: `Start an interactive session where you can run multiple commands against one
database connection. Type 'exit' or 'quit' to leave and 'help' to list commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\nStarting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			available := make(map[string]*cobra.Command)
			for _, sub := range cmd.Parent().Commands() {
				switch sub.Name() {
				case "interactive", "completion", "help", "serve":
					continue
				}
				available[sub.Name()] = sub
			}

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}

				parts := strings.Fields(scanner.Text())
				if len(parts) == 0 {
					continue
				}
				name, cmdArgs := parts[0], parts[1:]

				switch name {
				case "exit", "quit":
					return nil
				case "help":
					printInteractiveHelp(available)
					continue
				}

				target, ok := available[name]
				if !ok {
					fmt.Printf("Unknown command: %s (type 'help' for available commands)\n\n", name)
					continue
				}

				// RunE is called directly so PersistentPreRunE does not reconnect
				target.Flags().VisitAll(func(flag *pflag.Flag) {
					flag.Changed = false
					flag.Value.Set(flag.DefValue)
				})
				if err := target.ParseFlags(cmdArgs); err != nil {
					fmt.Printf("Error parsing flags: %v\n\n", err)
					continue
				}
				cmdArgs = target.Flags().Args()
				if target.Args != nil {
					if err := target.Args(target, cmdArgs); err != nil {
						fmt.Printf("Error: %v\n\n", err)
						continue
					}
				}
				if err := target.RunE(target, cmdArgs); err != nil {
					fmt.Printf("Error: %v\n\n", err)
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}
			return nil
		},
	}
}

func printInteractiveHelp(available map[string]*cobra.Command) {
	names := make([]string, 0, len(available))
	for name := range available {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nAvailable commands:")
	for _, name := range names {
		fmt.Printf("  %-40s %s\n", available[name].Use, available[name].Short)
	}
	fmt.Println("\n  help                                     Show this help message")
	fmt.Println("  exit, quit                               Exit the interactive session")
}
