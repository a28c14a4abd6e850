// Command seed creates the schema and the baseline rows. It is safe to run any
// number of times, including concurrently.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/audiencehub/config"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/seed"
	"github.com/cppla/audiencehub/utils"
)

var (
	driver     string
	dsn        string
	showCounts bool
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and insert baseline data",
	Long: `Create every table, constraint and index if missing, then insert the
baseline: one admin account, the platform and interest reference sets and one
sample persona with its links. Rows that already exist are left alone.

Examples:
  seed                                   # schema + baseline from config/env
  seed --driver mysql --dsn "user:pw@tcp(db:3306)/audiencehub?parseTime=true"
  seed schema                            # DDL only`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, db *gorm.DB, cfg config.AppConfig) error {
			rep, err := seed.RunOnConnection(ctx, db, cfg.SeedLockKey, seed.DefaultBaseline(cfg))
			if err != nil {
				return err
			}
			utils.Sugar.Infow("seed completed",
				"users", rep.Users,
				"platforms", rep.Platforms,
				"interests", rep.Interests,
				"personas", rep.Personas,
				"persona_platforms", rep.PersonaPlatforms,
				"persona_interests", rep.PersonaInterests,
			)
			if showCounts {
				return printCounts(ctx, db, cfg.SeedLockKey)
			}
			return nil
		})
	},
}

var schemaCmd = &cobra.Command{
	Use:          "schema",
	Short:        "Create tables, constraints and indexes only",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, db *gorm.DB, _ config.AppConfig) error {
			if err := models.CreateSchema(ctx, db); err != nil {
				return err
			}
			utils.Sugar.Info("schema ready")
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: postgres or mysql (default from DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Connection string (default from DATABASE_URI or DB_* settings)")
	rootCmd.Flags().BoolVar(&showCounts, "counts", false, "Print row counts of the seeded tables as JSON")
	rootCmd.AddCommand(schemaCmd)
}

// withDatabase loads configuration, opens the database, runs fn and always
// closes the pool before returning.
func withDatabase(ctx context.Context, fn func(context.Context, *gorm.DB, config.AppConfig) error) error {
	cfg, err := config.Read(filepath.Join("config", "config.json"))
	if err != nil {
		return err
	}
	if driver != "" {
		cfg.DBDriver = driver
	}
	if dsn != "" {
		cfg.DatabaseURI = dsn
	}
	if err := utils.InitLogger(cfg); err != nil {
		return err
	}
	defer func() { _ = utils.Logger.Sync() }()

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func(sqlDB *sql.DB) {
		if err := sqlDB.Close(); err != nil {
			utils.Sugar.Warnw("failed to close database", "err", err)
		}
	}(sqlDB)

	return fn(ctx, db, cfg)
}

func printCounts(ctx context.Context, db *gorm.DB, lockKey int64) error {
	var counts seed.Counts
	err := db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var err error
		counts, err = seed.NewGormStore(conn, lockKey).Counts(ctx)
		return err
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(counts)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		utils.Sugar.Errorw("seed failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
