// ABOUTME: Moves a single-user SQLite contract book into PostgreSQL.
// ABOUTME: Provides dry-run and backup capabilities for a safe cut-over.

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harperreed/grainbroker/config"
	"github.com/harperreed/grainbroker/db"
	"github.com/harperreed/grainbroker/logger"
	"github.com/harperreed/grainbroker/postgres"
)

func main() {
	dbPath := flag.String("db", "", "Path to the SQLite contract book (default: configured db path)")
	postgresURL := flag.String("postgres-url", "", "Target PostgreSQL URL (default: GRAINBROKER_POSTGRES_URL)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Copy the SQLite file aside before migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath == "" {
		*dbPath = cfg.DBPath
	}
	if *postgresURL == "" {
		*postgresURL = cfg.PostgresURL
	}
	if *postgresURL == "" && !*dryRun {
		log.Fatal("Error: -postgres-url is required")
	}

	zl, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	if err := migrate(context.Background(), zl, *dbPath, *postgresURL, *dryRun, *backup); err != nil {
		zl.Sync()
		log.Fatalf("Migration failed: %v", err)
	}

	zl.Info("migration completed successfully")
}

func migrate(ctx context.Context, zl *logger.Logger, dbPath, postgresURL string, dryRun, createBackup bool) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database file does not exist: %s", dbPath)
	}

	if createBackup && !dryRun {
		backupPath := fmt.Sprintf("%s.backup.%s", dbPath, time.Now().Format("20060102-150405"))
		zl.Info("creating backup", "path", backupPath)

		input, err := os.ReadFile(dbPath)
		if err != nil {
			return fmt.Errorf("failed to read database: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()
	database.SetMaxOpenConns(1)

	book, err := db.ExportBook(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to read contract book: %w", err)
	}

	deleted := 0
	for _, c := range book.Contracts {
		if c.IsDeleted {
			deleted++
		}
	}
	zl.Info("source book",
		"parties", len(book.Parties),
		"contracts", len(book.Contracts),
		"deleted_contracts", deleted,
		"counters", book.Counters)

	if dryRun {
		zl.Info("[DRY RUN] would migrate schema and copy every row, deleted rows included")
		return nil
	}

	target, err := postgres.Connect(ctx, postgresURL)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer target.Close()

	if err := target.Migrate(ctx); err != nil {
		return err
	}

	empty, err := target.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("target book already holds data; migrate into an empty database")
	}

	if err := target.Import(ctx, book.Parties, book.Contracts, book.Counters); err != nil {
		return fmt.Errorf("failed to copy contract book: %w", err)
	}
	return nil
}
