package migration

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db")))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"001_events.sql":        {Data: []byte("CREATE TABLE events (id TEXT PRIMARY KEY);")},
		"002_notifications.sql": {Data: []byte("CREATE TABLE notifications (id TEXT PRIMARY KEY);\nCREATE INDEX idx_n ON notifications(id);")},
	}
	manager := NewManager(NewScanner(), NewSQLiteExecutor(db), files, quietLogger())

	applied, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", applied)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO notifications (id) VALUES ('n1')"); err != nil {
		t.Fatalf("expected notifications table to exist: %v", err)
	}

	applied, err = manager.Run(ctx)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no pending migrations, got %d", applied)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Applied) != 2 || len(status.Pending) != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestManager_RunRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE partial (id TEXT);\nINSERT INTO missing_table VALUES (1);")},
	}
	manager := NewManager(nil, NewSQLiteExecutor(db), files, quietLogger())

	applied, err := manager.Run(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected first migration to be applied, got %d", applied)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'partial'").Scan(&count); err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected failed migration to roll back")
	}
}

func TestManager_StatusDetectsDrift(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	original := fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
	if _, err := NewManager(nil, NewSQLiteExecutor(db), original, quietLogger()).Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	t.Run("edited file", func(t *testing.T) {
		edited := fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT, name TEXT);")}}
		_, err := NewManager(nil, NewSQLiteExecutor(db), edited, quietLogger()).Status(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})

	t.Run("gap in sequence", func(t *testing.T) {
		gapped := fstest.MapFS{
			"001_a.sql": original["001_a.sql"],
			"003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
		}
		_, err := NewManager(nil, NewSQLiteExecutor(db), gapped, quietLogger()).Status(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})
}
