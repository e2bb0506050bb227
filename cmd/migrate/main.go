package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/database"
	"github.com/newsblog-api/internal/repository"
	"github.com/newsblog-api/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var flagPath string

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Manage the newsblog database schema",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPath, "path", "./migrations", "directory holding the migration files")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(toCmd)
}

// connect loads configuration and opens the database
func connect() (*database.DB, *config.Config, zerolog.Logger, error) {
	log := logger.Component(logger.New(), "migrate")

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, log, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, nil, log, fmt.Errorf("connecting to database: %w", err)
	}
	return db, cfg, log, nil
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long:  "Apply all pending migrations, then create the default section and default medium if they are missing.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, log, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.RunMigrations(flagPath); err != nil {
			return err
		}
		repos := repository.New(db)
		section, err := repos.Section.EnsureDefault(context.Background())
		if err != nil {
			return fmt.Errorf("ensuring default section: %w", err)
		}
		log.Info().Int64("section_id", section.ID).Str("namespace", section.Namespace).Msg("Default section ready")

		if cfg.Features.DefaultMediumTitle == "" {
			return nil
		}
		medium, err := repos.Reference.EnsureMedium(context.Background(), cfg.Features.DefaultMediumTitle)
		if err != nil {
			return fmt.Errorf("ensuring default medium: %w", err)
		}
		log.Info().Int64("medium_id", medium.ID).Str("title", medium.Title).Msg("Default medium ready")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, _, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()
		return db.MigrateDown(flagPath)
	},
}

var toCmd = &cobra.Command{
	Use:   "to VERSION",
	Short: "Migrate up or down to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		db, _, _, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()
		return db.MigrateToVersion(flagPath, uint(version))
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
