package app

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"climate-tracker/internal/config"
)

func TestRun_archivesFirstReadingAndStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	cfg := config.Config{
		AppEnv:       "dev",
		HTTPAddr:     "127.0.0.1:0",
		StationID:    "antarctica",
		SQLitePath:   path,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if n := countArchived(t, path); n > 0 {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("no reading archived; Run returned %v", <-done)
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v; want context.Canceled", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_listenFailure(t *testing.T) {
	cfg := config.Config{AppEnv: "dev", HTTPAddr: "256.0.0.1:bad", StationID: "antarctica"}

	errCh := make(chan error, 1)
	go func() { errCh <- Run(context.Background(), cfg) }()

	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v; want listen error", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return on listen failure")
	}
}

// countArchived returns 0 until the schema exists.
func countArchived(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=1000")
	if err != nil {
		return 0
	}
	defer func() { _ = db.Close() }()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&n); err != nil {
		return 0
	}
	return n
}
