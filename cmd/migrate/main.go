package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"marketplace-be/internal/config"
	"marketplace-be/internal/db"
	"marketplace-be/internal/logger"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up or down")
	dir := flag.String("dir", "./migrations", "directory holding *.sql migrations")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init(cfg.AppEnv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	conn, err := open(cfg)
	if err != nil {
		logger.L().Fatal("failed to connect db", zap.Error(err))
	}
	defer conn.Close()

	if err := run(context.Background(), conn, *mode, *dir); err != nil {
		logger.L().Fatal("migration failed", zap.Error(err))
	}
}

// open prefers DB_URL and otherwise builds the connection from the DB_*
// settings the server uses.
func open(cfg *config.Config) (*sql.DB, error) {
	if dbURL := os.Getenv("DB_URL"); dbURL != "" {
		return sql.Open("postgres", dbURL)
	}
	if cfg.DBHost == "" {
		return nil, errors.New("DB_URL or DB_HOST must be set")
	}
	return db.NewDatabase(cfg)
}

func run(ctx context.Context, conn *sql.DB, mode, migrationsDir string) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	sort.Strings(files)

	switch mode {
	case "up":
		return runMigrationsUp(ctx, conn, files)
	case "down":
		return runMigrationsDown(ctx, conn, files)
	default:
		return fmt.Errorf("unknown mode: %s (use 'up' or 'down')", mode)
	}
}

// runMigrationsUp applies every pending file, each in its own transaction
// together with its schema_migrations row.
func runMigrationsUp(ctx context.Context, conn *sql.DB, files []string) error {
	log := logger.L().With(zap.String("mode", "up"))

	for _, file := range files {
		version := filepath.Base(file)

		var exists bool
		err := conn.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			log.Info("skipping applied migration", zap.String("version", version))
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		upSQL := extractMigrationPart(string(content), "Up")

		log.Info("applying migration", zap.String("version", version))
		err = db.WithTx(ctx, conn, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, upSQL); err != nil {
				return fmt.Errorf("migration failed (%s): %w", version, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
				return fmt.Errorf("failed to record migration version: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	log.Info("all new migrations applied")
	return nil
}

// runMigrationsDown rolls back the most recently applied migration.
func runMigrationsDown(ctx context.Context, conn *sql.DB, files []string) error {
	log := logger.L().With(zap.String("mode", "down"))

	var lastVersion string
	err := conn.QueryRowContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`,
	).Scan(&lastVersion)
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("no migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get last applied migration: %w", err)
	}

	filePath := ""
	for _, f := range files {
		if filepath.Base(f) == lastVersion {
			filePath = f
			break
		}
	}
	if filePath == "" {
		return fmt.Errorf("migration file not found for version: %s", lastVersion)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	downSQL := extractMigrationPart(string(content), "Down")

	log.Info("rolling back migration", zap.String("version", lastVersion))
	return db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, downSQL); err != nil {
			return fmt.Errorf("rollback failed (%s): %w", filePath, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, lastVersion); err != nil {
			return fmt.Errorf("failed to remove migration record: %w", err)
		}
		return nil
	})
}

// extractMigrationPart returns the lines between "-- +migrate <section>" and
// the next marker.
func extractMigrationPart(content string, section string) string {
	lines := strings.Split(content, "\n")
	var part strings.Builder
	var inPart bool

	for _, line := range lines {
		if strings.Contains(line, "-- +migrate "+section) {
			inPart = true
			continue
		}
		if inPart && strings.HasPrefix(line, "-- +migrate") {
			break
		}
		if inPart {
			part.WriteString(line + "\n")
		}
	}
	return part.String()
}
