// Package testutil provides shared helpers for ledger tests: an isolated
// in-memory SQLite database per test and a notifier that records events.
package testutil

import (
	"context"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ride_ledger/internal/models"
)

// OpenDB returns a migrated in-memory database private to t. The pool is
// capped at one connection so the memory database is not split across
// connections; concurrent callers queue on it.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Recorder collects published events in order.
type Recorder struct {
	mu     sync.Mutex
	events []models.RideEvent
}

func (r *Recorder) Publish(_ context.Context, ev models.RideEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []models.RideEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RideEvent(nil), r.events...)
}

// Kinds returns the kind of every recorded event, in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}
