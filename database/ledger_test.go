package database

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/database/migration"
	apperrors "github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/record"
)

func startLedger(t *testing.T) *Component {
	t.Helper()
	c := NewComponent(Config{
		Enabled:  true,
		DSN:      "file:" + filepath.Join(t.TempDir(), "ledger.db"),
		Migrate:  true,
		LogLevel: "silent",
	}, logger.NewNop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return c
}

func letter(audioID string, kind apperrors.ErrorCode, at time.Time) coordinator.Letter {
	return coordinator.Letter{
		Tag:      "audio.transcribed",
		AudioID:  audioID,
		Kind:     kind,
		Reason:   "engine exited with status 1",
		Record:   record.FromPairs("path", audioID, "content", []byte("RIFF")),
		FailedAt: at,
	}
}

func TestComponent_StartMigrates(t *testing.T) {
	c := startLedger(t)

	version, dirty, err := migration.MigrateVersion(c.DB().GormDB, migrationsFS, MigrationsPath, migration.SQLite)
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v", version, dirty)
	}
	if !c.DB().GormDB.Migrator().HasTable("dead_letters") {
		t.Error("dead_letters table missing")
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("health = %+v", h)
	}
}

func TestComponent_MigrateUpIsIdempotent(t *testing.T) {
	c := startLedger(t)
	if err := migration.MigrateUp(c.DB().GormDB, migrationsFS, MigrationsPath, migration.SQLite); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}
}

func TestMigrateDown_DropsTable(t *testing.T) {
	c := startLedger(t)
	gdb := c.DB().GormDB
	if err := migration.MigrateDown(gdb, migrationsFS, MigrationsPath, migration.SQLite); err != nil {
		t.Fatal(err)
	}
	if gdb.Migrator().HasTable("dead_letters") {
		t.Error("dead_letters still present after down")
	}
}

func TestComponent_StopClearsLedger(t *testing.T) {
	c := startLedger(t)
	if err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Ledger() != nil {
		t.Error("ledger still set after stop")
	}
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("health after stop = %+v", h)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestLedger_DeadLetterAndList(t *testing.T) {
	ctx := context.Background()
	l := startLedger(t).Ledger()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := l.DeadLetter(ctx, letter("b.wav", apperrors.ErrCodeTranscode, base.Add(time.Second))); err != nil {
		t.Fatal(err)
	}
	if err := l.DeadLetter(ctx, letter("a.wav", apperrors.ErrCodeTranscription, base)); err != nil {
		t.Fatal(err)
	}

	n, err := l.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	all, err := l.List(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].AudioID != "a.wav" || all[1].AudioID != "b.wav" {
		t.Fatalf("List order = %+v", all)
	}
	if all[0].ID == uuid.Nil {
		t.Error("entry id not generated")
	}

	only, err := l.List(ctx, ListOptions{Kind: apperrors.ErrCodeTranscode})
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 1 || only[0].AudioID != "b.wav" {
		t.Errorf("List by kind = %+v", only)
	}

	limited, err := l.List(ctx, ListOptions{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("List limit = %d entries", len(limited))
	}
}

func TestLedger_EntryRestoresLetter(t *testing.T) {
	ctx := context.Background()
	l := startLedger(t).Ledger()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := l.DeadLetter(ctx, letter("a.wav", apperrors.ErrCodeTranscription, at)); err != nil {
		t.Fatal(err)
	}

	entries, err := l.List(ctx, ListOptions{})
	if err != nil || len(entries) != 1 {
		t.Fatalf("List = %v, %v", entries, err)
	}
	got, err := entries[0].Letter("content")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != apperrors.ErrCodeTranscription || got.AudioID != "a.wav" || got.Tag != "audio.transcribed" {
		t.Errorf("letter = %+v", got)
	}
	if !got.FailedAt.Equal(at) {
		t.Errorf("FailedAt = %v", got.FailedAt)
	}
	content, ok := got.Record.GetBytes("content")
	if !ok || !bytes.Equal(content, []byte("RIFF")) {
		t.Errorf("content = %q, %v", content, ok)
	}
	if keys := got.Record.Keys(); len(keys) != 2 || keys[0] != "path" || keys[1] != "content" {
		t.Errorf("keys = %v", keys)
	}
}

func TestLedger_Remove(t *testing.T) {
	ctx := context.Background()
	l := startLedger(t).Ledger()
	if err := l.DeadLetter(ctx, letter("a.wav", apperrors.ErrCodeStaging, time.Now())); err != nil {
		t.Fatal(err)
	}
	entries, _ := l.List(ctx, ListOptions{})
	if err := l.Remove(ctx, entries[0].ID); err != nil {
		t.Fatal(err)
	}
	if n, _ := l.Count(ctx); n != 0 {
		t.Errorf("Count after remove = %d", n)
	}

	err := l.Remove(ctx, uuid.New())
	var ae *apperrors.AppError
	if !errors.As(err, &ae) {
		t.Fatalf("Remove missing = %v", err)
	}
	if ae.Code != apperrors.ErrCodeDatabaseError || ae.HTTPStatus != 404 || ae.Retryable {
		t.Errorf("not found error = %+v", ae)
	}
}

func TestFromDatabase(t *testing.T) {
	if FromDatabase(nil, "x") != nil {
		t.Error("nil error should map to nil")
	}
	locked := FromDatabase(errors.New("database is locked"), "insert dead letter")
	if !locked.Retryable || locked.Details["operation"] != "insert dead letter" {
		t.Errorf("locked = %+v", locked)
	}
	if FromDatabase(errors.New("syntax error"), "x").Retryable {
		t.Error("syntax error should not be retryable")
	}
	passthrough := apperrors.Internal(nil)
	if FromDatabase(passthrough, "x") != passthrough {
		t.Error("AppError should pass through")
	}
}
