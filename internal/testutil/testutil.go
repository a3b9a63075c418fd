// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	_ "github.com/anfisaforfriends/anfisa/database/migrations"
	"github.com/anfisaforfriends/anfisa/pkg/database"
	"github.com/anfisaforfriends/anfisa/pkg/migration"
)

// NewDB opens a migrated SQLite database in t.TempDir(). It is closed when
// the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open("sqlite", filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	runner := migration.New(db,
		migration.WithOutput(io.Discard),
		migration.WithLockFile(filepath.Join(dir, "migrate.lock")),
	)
	_, err = runner.Run(context.Background())
	require.NoError(t, err)
	return db
}
