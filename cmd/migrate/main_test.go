package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"marketplace-be/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMigrationPart(t *testing.T) {
	content := `
-- +migrate Up
CREATE TABLE carts (id uuid);
ALTER TABLE carts ADD COLUMN user_id uuid;

-- +migrate Down
DROP TABLE carts;
`
	t.Run("Extract Up", func(t *testing.T) {
		up := extractMigrationPart(content, "Up")
		assert.Contains(t, up, "CREATE TABLE carts")
		assert.Contains(t, up, "ALTER TABLE carts")
		assert.NotContains(t, up, "DROP TABLE carts")
		assert.NotContains(t, up, "-- +migrate Up")
	})

	t.Run("Extract Down", func(t *testing.T) {
		down := extractMigrationPart(content, "Down")
		assert.Contains(t, down, "DROP TABLE carts")
		assert.NotContains(t, down, "CREATE TABLE carts")
	})
}

func TestSchemaMigration(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)

	up := extractMigrationPart(string(content), "Up")
	assert.Contains(t, up, "user_id     UUID NOT NULL UNIQUE")
	assert.Contains(t, up, "UNIQUE (cart_id, variant_id)")
	assert.Contains(t, up, "CHECK (quantity > 0)")
	assert.Contains(t, up, "REFERENCES carts(id) ON DELETE CASCADE")

	down := extractMigrationPart(string(content), "Down")
	assert.Contains(t, down, "DROP TABLE IF EXISTS cart_items")
}

func writeMigration(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunMigrationsUp(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies pending and skips applied", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		dir := t.TempDir()
		applied := writeMigration(t, dir, "0001_init.sql", "-- +migrate Up\nCREATE TABLE a (id int);")
		pending := writeMigration(t, dir, "0002_more.sql", "-- +migrate Up\nCREATE TABLE b (id int);\n-- +migrate Down\nDROP TABLE b;")

		mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
			WithArgs("0001_init.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
			WithArgs("0002_more.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs("0002_more.sql").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, runMigrationsUp(ctx, conn, []string{applied, pending}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed migration is rolled back", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		file := writeMigration(t, t.TempDir(), "0001_bad.sql", "-- +migrate Up\nCREATE TABLE broken (;")

		mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE broken").WillReturnError(errors.New("syntax error"))
		mock.ExpectRollback()

		err = runMigrationsUp(ctx, conn, []string{file})

		assert.ErrorContains(t, err, "0001_bad.sql")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRunMigrationsDown(t *testing.T) {
	ctx := context.Background()

	t.Run("Rolls back latest", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		file := writeMigration(t, t.TempDir(), "0002_more.sql", "-- +migrate Up\nCREATE TABLE b (id int);\n-- +migrate Down\nDROP TABLE b;")

		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("0002_more.sql"))
		mock.ExpectBegin()
		mock.ExpectExec("DROP TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM schema_migrations").
			WithArgs("0002_more.sql").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, runMigrationsDown(ctx, conn, []string{file}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing applied", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnError(sql.ErrNoRows)

		assert.NoError(t, runMigrationsDown(ctx, conn, nil))
	})

	t.Run("Missing file", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("0009_gone.sql"))

		assert.Error(t, runMigrationsDown(ctx, conn, nil))
	})
}

func TestRun(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	t.Run("Unknown mode", func(t *testing.T) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := run(context.Background(), conn, "sideways", t.TempDir())

		assert.ErrorContains(t, err, "unknown mode")
	})

	t.Run("Sorts files before applying", func(t *testing.T) {
		dir := t.TempDir()
		writeMigration(t, dir, "0002_b.sql", "-- +migrate Up\nSELECT 2;")
		writeMigration(t, dir, "0001_a.sql", "-- +migrate Up\nSELECT 1;")

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").WithArgs("0001_a.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS").WithArgs("0002_b.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		require.NoError(t, run(context.Background(), conn, "up", dir))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOpen_RequiresTarget(t *testing.T) {
	t.Setenv("DB_URL", "")

	_, err := open(&config.Config{})

	assert.Error(t, err)
}
