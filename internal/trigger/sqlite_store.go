package trigger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/haasonsaas/nexus/pkg/models"
)

// SQLiteStore is a durable Store backed by a single SQLite file, for
// deployments that need trigger state to survive a process restart
// without standing up a separate database service.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed trigger
// store at path and runs its schema migration.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite trigger store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite trigger store: %w", err)
	}
	store := &SQLiteStore{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS triggers (
	trigger_id TEXT PRIMARY KEY,
	agent_name TEXT NOT NULL,
	payload TEXT NOT NULL,
	status TEXT NOT NULL,
	next_trigger TEXT NOT NULL DEFAULT '',
	start_time TEXT NOT NULL DEFAULT '',
	recurrence_rule TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT '',
	last_error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_triggers_agent ON triggers(agent_name);
CREATE INDEX IF NOT EXISTS idx_triggers_due ON triggers(status, next_trigger);
`)
	if err != nil {
		return fmt.Errorf("migrate trigger store: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectTriggerColumns = `SELECT trigger_id, agent_name, payload, status, next_trigger, start_time, recurrence_rule, timezone, last_error, created_at, updated_at FROM triggers`

func (s *SQLiteStore) Create(ctx context.Context, record *models.TriggerRecord) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if record.TriggerID == "" {
		record.TriggerID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
INSERT INTO triggers (trigger_id, agent_name, payload, status, next_trigger, start_time, recurrence_rule, timezone, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.TriggerID, record.AgentName, record.Payload, record.Status,
		formatTime(record.NextTrigger), formatTime(record.StartTime), record.RecurrenceRule, record.Timezone, record.LastError,
		formatTime(record.CreatedAt), formatTime(record.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert trigger: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, record *models.TriggerRecord) error {
	if record == nil || record.TriggerID == "" {
		return fmt.Errorf("record with a trigger id is required")
	}
	record.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
UPDATE triggers SET agent_name=?, payload=?, status=?, next_trigger=?, start_time=?, recurrence_rule=?, timezone=?, last_error=?, updated_at=?
WHERE trigger_id=?`,
		record.AgentName, record.Payload, record.Status, formatTime(record.NextTrigger), formatTime(record.StartTime),
		record.RecurrenceRule, record.Timezone, record.LastError, formatTime(record.UpdatedAt), record.TriggerID)
	if err != nil {
		return fmt.Errorf("update trigger: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update trigger: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trigger %s not found", record.TriggerID)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.TriggerRecord, error) {
	row := s.db.QueryRowContext(ctx, selectTriggerColumns+` WHERE trigger_id = ?`, id)
	record, err := scanTrigger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trigger: %w", err)
	}
	return record, nil
}

func (s *SQLiteStore) ListByAgent(ctx context.Context, agentName string) ([]*models.TriggerRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectTriggerColumns+` WHERE agent_name = ?`, agentName)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	defer rows.Close()
	return scanTriggers(rows)
}

func (s *SQLiteStore) Due(ctx context.Context, now time.Time) ([]*models.TriggerRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectTriggerColumns+` WHERE status = ? AND next_trigger <> '' AND next_trigger <= ?`,
		string(StatusActive), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("list due triggers: %w", err)
	}
	defer rows.Close()
	return scanTriggers(rows)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrigger(row rowScanner) (*models.TriggerRecord, error) {
	var record models.TriggerRecord
	var nextTrigger, startTime, createdAt, updatedAt string
	if err := row.Scan(
		&record.TriggerID, &record.AgentName, &record.Payload, &record.Status,
		&nextTrigger, &startTime, &record.RecurrenceRule, &record.Timezone, &record.LastError,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	record.NextTrigger = parseTime(nextTrigger)
	record.StartTime = parseTime(startTime)
	record.CreatedAt = parseTime(createdAt)
	record.UpdatedAt = parseTime(updatedAt)
	return &record, nil
}

func scanTriggers(rows *sql.Rows) ([]*models.TriggerRecord, error) {
	var out []*models.TriggerRecord
	for rows.Next() {
		record, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triggers: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
