package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("fails with nil database", func(t *testing.T) {
		migrator, err := NewMigrator(nil, "/some/path", logger)
		assert.Nil(t, migrator)
		assert.ErrorContains(t, err, "database is required")
	})

	t.Run("fails with nil pool", func(t *testing.T) {
		migrator, err := NewMigrator(&DB{}, "/some/path", logger)
		assert.Nil(t, migrator)
		assert.ErrorContains(t, err, "database pool not initialized")
	})
}

func TestMigrator_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	logger := zerolog.Nop()

	t.Run("rejects empty and missing paths", func(t *testing.T) {
		_, err := NewMigrator(db, "", logger)
		assert.ErrorContains(t, err, "migrations path is required")

		_, err = NewMigrator(db, "/nonexistent/path", logger)
		assert.ErrorContains(t, err, "migrations path validation failed")
	})

	migrator, err := NewMigrator(db, getMigrationsPath(t), logger)
	require.NoError(t, err)
	defer migrator.Close()

	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Up(), "second Up is a no-op")

	status, err := migrator.Status()
	require.NoError(t, err)
	assert.False(t, status.Fresh)
	assert.False(t, status.Dirty)
	assert.GreaterOrEqual(t, status.Version, uint(1))

	assert.NoError(t, migrator.Steps(1), "stepping past the latest version is a no-op")
}

// getMigrationsPath returns the repository's migrations directory.
func getMigrationsPath(t *testing.T) string {
	t.Helper()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	migrationsPath := filepath.Join(cwd, "..", "..", "migrations")
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		t.Skipf("Skipping test: migrations directory not found at %s", migrationsPath)
	}
	return migrationsPath
}
