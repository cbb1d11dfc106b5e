package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/garyjia/expensewise/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), Config{
		Path:         filepath.Join(t.TempDir(), "data", "expenses.db"),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew(t *testing.T) {
	t.Run("creates parent directory", func(t *testing.T) {
		db := openTestDB(t)
		assert.FileExists(t, db.Path())
	})

	t.Run("requires a path", func(t *testing.T) {
		_, err := New(context.Background(), Config{}, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestMigrator_EmbeddedSchema(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	applied, err := migrator.RunMigrationsFS(ctx, migrations.FS)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, applied, 1)

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'receipts'").Scan(&count))
	assert.Equal(t, 1, count)

	t.Run("second run is a no-op", func(t *testing.T) {
		applied, err := migrator.RunMigrationsFS(ctx, migrations.FS)
		require.NoError(t, err)
		assert.Equal(t, 0, applied)
	})
}

func TestLoadMigrations(t *testing.T) {
	t.Run("sorted by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"010_add_index.sql":     {Data: []byte("CREATE INDEX i ON t(a);")},
			"002_create_table.sql":  {Data: []byte("CREATE TABLE t (a TEXT);")},
			"README.md":             {Data: []byte("ignored")},
			"001_create_schema.sql": {Data: []byte("SELECT 1;")},
		}

		got, err := LoadMigrations(fsys)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, 1, got[0].Version)
		assert.Equal(t, "create_schema", got[0].Name)
		assert.Equal(t, 2, got[1].Version)
		assert.Equal(t, 10, got[2].Version)
		assert.Equal(t, "add_index", got[2].Name)
	})

	t.Run("rejects unnumbered files", func(t *testing.T) {
		_, err := LoadMigrations(fstest.MapFS{"schema.sql": {Data: []byte("SELECT 1;")}})
		assert.Error(t, err)
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		_, err := LoadMigrations(fstest.MapFS{
			"001_a.sql": {Data: []byte("SELECT 1;")},
			"001_b.sql": {Data: []byte("SELECT 2;")},
		})
		assert.ErrorContains(t, err, "duplicate migration version 1")
	})
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	_, err := migrator.RunMigrationsFS(ctx, fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE ok (a TEXT);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE broken (;")},
	})
	require.Error(t, err)

	var versions int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)
}
