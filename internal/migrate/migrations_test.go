package migrate

import (
	"context"
	"testing"

	"focusflow/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	ctx := context.Background()

	applied, err := Migrate(ctx, conn)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) == 0 {
		t.Fatalf("expected migrations to apply")
	}
	again, err := Migrate(ctx, conn)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no pending migrations, got %v", again)
	}
	latest, err := Latest()
	if err != nil {
		t.Fatal(err)
	}
	var version int
	if err := conn.Get(&version, `SELECT version FROM schema_version`); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != latest {
		t.Fatalf("version=%d want %d", version, latest)
	}
	for _, table := range []string{"tasks", "users", "timer_sessions", "mood_checkins", "settings"} {
		var n int
		if err := conn.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table); err != nil || n != 1 {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}
