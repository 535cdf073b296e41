package trigger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

func openTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "triggers.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_CreateThenGetRoundTrips(t *testing.T) {
	store := openTestSQLiteStore(t)
	ctx := context.Background()

	record := &models.TriggerRecord{
		AgentName:      "reminders",
		Payload:        "check the oven",
		Status:         string(StatusActive),
		NextTrigger:    time.Now().Add(time.Hour).UTC(),
		RecurrenceRule: "FREQ=DAILY",
	}
	if err := store.Create(ctx, record); err != nil {
		t.Fatal(err)
	}
	if record.TriggerID == "" {
		t.Fatal("expected a generated trigger id")
	}

	got, err := store.Get(ctx, record.TriggerID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Payload != "check the oven" || got.AgentName != "reminders" {
		t.Fatalf("got = %+v", got)
	}
	if !got.NextTrigger.Equal(record.NextTrigger) {
		t.Fatalf("next_trigger = %v, want %v", got.NextTrigger, record.NextTrigger)
	}
}

func TestSQLiteStore_GetMissingReturnsNilNoError(t *testing.T) {
	store := openTestSQLiteStore(t)
	got, err := store.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("got = %+v, want nil", got)
	}
}

func TestSQLiteStore_UpdateUnknownTriggerFails(t *testing.T) {
	store := openTestSQLiteStore(t)
	err := store.Update(context.Background(), &models.TriggerRecord{TriggerID: "missing", AgentName: "a", Payload: "p", Status: string(StatusActive)})
	if err == nil {
		t.Fatal("expected an error updating an unknown trigger")
	}
}

func TestSQLiteStore_DueFiltersByStatusAndTime(t *testing.T) {
	store := openTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	due := &models.TriggerRecord{AgentName: "a", Payload: "due now", Status: string(StatusActive), NextTrigger: now.Add(-time.Minute)}
	future := &models.TriggerRecord{AgentName: "a", Payload: "not yet", Status: string(StatusActive), NextTrigger: now.Add(time.Hour)}
	paused := &models.TriggerRecord{AgentName: "a", Payload: "paused", Status: string(StatusPaused), NextTrigger: now.Add(-time.Minute)}
	for _, r := range []*models.TriggerRecord{due, future, paused} {
		if err := store.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	results, err := store.Due(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Payload != "due now" {
		t.Fatalf("due = %+v", results)
	}
}

func TestSQLiteStore_ListByAgentScopesResults(t *testing.T) {
	store := openTestSQLiteStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &models.TriggerRecord{AgentName: "alice-agent", Payload: "x", Status: string(StatusActive)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, &models.TriggerRecord{AgentName: "bob-agent", Payload: "y", Status: string(StatusActive)}); err != nil {
		t.Fatal(err)
	}

	results, err := store.ListByAgent(ctx, "alice-agent")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].AgentName != "alice-agent" {
		t.Fatalf("results = %+v", results)
	}
}
