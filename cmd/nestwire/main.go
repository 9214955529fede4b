// nestwire is the home-automation core daemon.
//
// It keeps device state in SQLite in step with the MQTT control-echo and
// status topics, publishes composite commands, and runs auto-off rules and
// schedules.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nestwire/nestwire-core/internal/infrastructure/config"
	"github.com/nestwire/nestwire-core/internal/infrastructure/database"
	_ "github.com/nestwire/nestwire-core/migrations"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2026-03-01"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the nestwire daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	root := &cobra.Command{
		Use:           "nestwire",
		Short:         "Device state, command dispatch and automation for MQTT switches",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", getConfigPath(), "path to the YAML configuration")

	root.AddCommand(serve, newMigrateCmd(&configPath), newVersionCmd())
	return root
}

// getConfigPath returns $NESTWIRE_CONFIG or the default path.
func getConfigPath() string {
	if path := os.Getenv("NESTWIRE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "nestwire %s (commit %s, built %s)\n", version, commit, date)
}

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withDB := func(fn func(ctx context.Context, db *database.DB, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := openDatabase(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // CLI exit
			return fn(c.Context(), db, c.OutOrStdout())
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: withDB(func(ctx context.Context, db *database.DB, out io.Writer) error {
				if err := db.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "migrations applied")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: withDB(func(ctx context.Context, db *database.DB, out io.Writer) error {
				if err := db.MigrateDown(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "latest migration rolled back")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			RunE: withDB(func(ctx context.Context, db *database.DB, out io.Writer) error {
				applied, pending, err := db.GetMigrationStatus(ctx)
				if err != nil {
					return err
				}
				for _, r := range applied {
					fmt.Fprintf(out, "applied  %s  %s\n", r.Version, r.AppliedAt.Format(database.TimeLayout))
				}
				for _, m := range pending {
					fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
				}
				return nil
			}),
		},
	)
	return cmd
}

func openDatabase(cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
