// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"nakl/internal/infra"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated sqlite database in the test's temp dir. It goes
// through the same open and migrate path as DB_DRIVER=sqlite, so
// transactions, unique indexes and counter seeds are real.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "nakl.db") + "?_busy_timeout=5000"
	db, err := infra.NewDatabase("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
