package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"rental-marketplace/internal/cleanup"
	"rental-marketplace/internal/config"
	"rental-marketplace/internal/database"
	"rental-marketplace/internal/lifecycle"
	"rental-marketplace/internal/notify"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath    string
	retentionDays int
	maxDeletion   int
	dryRun        bool
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Operational CLI for the rental marketplace lifecycle engine",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one lifecycle scan and print the run summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			inbox := notify.NewInboxService(db.DB())
			engine := lifecycle.NewEngine(db, &cfg.Lifecycle, inbox, nil)

			summary, runErr := engine.Run(context.Background())
			printJSON(summary)
			return runErr
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge old notifications, outbox entries and transition logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			cc := cleanup.DefaultCleanupConfig()
			if retentionDays > 0 {
				cc.RetentionDays = retentionDays
			} else if cfg.Cleanup.RetentionDays > 0 {
				cc.RetentionDays = cfg.Cleanup.RetentionDays
			}
			if maxDeletion > 0 {
				cc.MaxDeletionCount = maxDeletion
			} else if cfg.Cleanup.MaxDeletionCount > 0 {
				cc.MaxDeletionCount = cfg.Cleanup.MaxDeletionCount
			}
			cc.DryRun = dryRun

			result, err := cleanup.NewService(db.DB()).Purge(cc)
			if err != nil {
				return err
			}
			printJSON(result)
			return nil
		},
	}
	cleanupCmd.Flags().IntVar(&retentionDays, "retention-days", 0, "days to keep records (default from config)")
	cleanupCmd.Flags().IntVar(&maxDeletion, "max-deletion-count", 0, "safety cap on deleted rows")
	cleanupCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log what would be deleted without deleting")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print retention statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := cleanup.NewService(db.DB()).GetRetentionStats(cfg.Cleanup.RetentionDays)
			if err != nil {
				return err
			}
			printJSON(stats)
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, cleanupCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// setup loads and validates configuration and opens the configured database.
func setup() (*config.Config, *database.GormDB, error) {
	path := configPath
	if path == "" {
		path = "marketplace.yaml"
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var db *database.GormDB
	switch cfg.Database.Type {
	case "mysql":
		m := cfg.Database.MySQL
		db, err = database.NewMySQLDB(m.Host, fmt.Sprintf("%d", m.Port), m.User, m.Password, m.Database)
	case "postgres":
		p := cfg.Database.Postgres
		db, err = database.NewPostgresDB(p.Host, fmt.Sprintf("%d", p.Port), p.User, p.Password, p.Database, p.SSLMode)
	default:
		db, err = database.NewSQLiteDB(cfg.Database.SQLite.Path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return cfg, db, nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Failed to encode output: %v", err)
		return
	}
	fmt.Println(string(data))
}
