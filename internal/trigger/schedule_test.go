package trigger

import (
	"testing"
	"time"
)

func TestNextFireTime_OneShotBeforeStart(t *testing.T) {
	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	next, ok, err := NextFireTime(start, "", "", now)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !next.Equal(start) {
		t.Fatalf("next = %v, ok = %v", next, ok)
	}
}

func TestNextFireTime_OneShotAfterStartIsDone(t *testing.T) {
	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	_, ok, err := NextFireTime(start, "", "", now)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected one-shot trigger in the past to have no next firing")
	}
}

func TestNextFireTime_CronExpression(t *testing.T) {
	now := time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC)
	next, ok, err := NextFireTime(time.Time{}, "0 9 * * *", "", now)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a next firing")
	}
	if next.Hour() != 9 {
		t.Fatalf("expected 9am firing, got %v", next)
	}
}

func TestNextFireTime_RRuleDaily(t *testing.T) {
	start := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)
	next, ok, err := NextFireTime(start, "FREQ=DAILY;INTERVAL=1", "UTC", now)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a next firing")
	}
	if next.Day() != start.Day()+1 {
		t.Fatalf("expected next day firing, got %v", next)
	}
}

func TestNextFireTime_InvalidCron(t *testing.T) {
	_, _, err := NextFireTime(time.Time{}, "not a schedule", "", time.Now())
	if err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}
}
