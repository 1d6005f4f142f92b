package river_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	riveradapter "github.com/lessonforge/lessonforge/internal/adapter/river"
	"github.com/lessonforge/lessonforge/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := t.TempDir() + "/river_test.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("setting WAL: %v", err)
	}

	return db
}

func setupClient(t *testing.T, db *sql.DB) *riveradapter.Client {
	t.Helper()

	client, err := riveradapter.Setup(context.Background(), db, zap.NewNop())
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}

	return client
}

func startClient(t *testing.T, client *riveradapter.Client) {
	t.Helper()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})
}

func TestPublisher_Publish_EnqueuesJob(t *testing.T) {
	db := setupTestDB(t)
	client := setupClient(t, db)
	ctx := context.Background()

	// Subscribe to job completions before starting so we don't miss events.
	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	pub := riveradapter.NewPublisher(client)
	rec := domain.StatusRecord{
		ID:         "rec-1",
		EntityType: domain.EntityQuote,
		EntityID:   "q-1",
		Status:     domain.QuoteAccepted,
		Event:      domain.EventAccept,
		CreatedAt:  time.Now().UTC(),
	}

	if err := pub.Publish(ctx, domain.EventAccept, rec); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Wait for the worker to process the job.
	select {
	case event := <-subscribeChan:
		if event.Job.Kind != "lifecycle.event" {
			t.Errorf("job kind = %q, want %q", event.Job.Kind, "lifecycle.event")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestPublisher_Publish_PreservesEventData(t *testing.T) {
	db := setupTestDB(t)
	client := setupClient(t, db)
	ctx := context.Background()

	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	pub := riveradapter.NewPublisher(client)
	rec := domain.StatusRecord{
		ID:         "rec-42",
		EntityType: domain.EntityLesson,
		EntityID:   "l-42",
		Status:     domain.LessonCompleted,
		Event:      domain.EventComplete,
		CreatedAt:  time.Now().UTC(),
	}

	if err := pub.Publish(ctx, domain.EventComplete, rec); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case event := <-subscribeChan:
		// Verify the job carried the right args by checking the encoded JSON.
		args := event.Job.EncodedArgs
		if args == nil {
			t.Fatal("expected encoded args, got nil")
		}
		argsStr := string(args)
		for _, want := range []string{`"event":"complete"`, `"entity_type":"lesson"`, `"entity_id":"l-42"`, `"status":"completed"`, `"record_id":"rec-42"`} {
			if !strings.Contains(argsStr, want) {
				t.Errorf("encoded args missing %s, got: %s", want, argsStr)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}
