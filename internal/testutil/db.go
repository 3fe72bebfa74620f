// Package testutil builds throwaway dependencies for tests.
package testutil

import (
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"vaanifill/internal/db"
)

// NewDB opens a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	// a single connection keeps every query on the same in-memory database
	gormDB, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), db.Options())
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gormDB); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return gormDB
}

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
