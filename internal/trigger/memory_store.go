package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus/pkg/models"
)

// MemoryStore keeps trigger records in memory. It satisfies Store and is
// the default when no persistence flag is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	triggers map[string]*models.TriggerRecord
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory trigger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		triggers: make(map[string]*models.TriggerRecord),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, record *models.TriggerRecord) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.TriggerID == "" {
		record.TriggerID = uuid.NewString()
	}
	now := s.now()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.triggers[record.TriggerID] = cloneTrigger(record)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, record *models.TriggerRecord) error {
	if record == nil || record.TriggerID == "" {
		return fmt.Errorf("record with a trigger id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.triggers[record.TriggerID]; !ok {
		return fmt.Errorf("trigger %s not found", record.TriggerID)
	}
	record.UpdatedAt = s.now()
	s.triggers[record.TriggerID] = cloneTrigger(record)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.TriggerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.triggers[id]
	if !ok {
		return nil, nil
	}
	return cloneTrigger(record), nil
}

func (s *MemoryStore) ListByAgent(ctx context.Context, agentName string) ([]*models.TriggerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TriggerRecord
	for _, record := range s.triggers {
		if record.AgentName == agentName {
			out = append(out, cloneTrigger(record))
		}
	}
	return out, nil
}

func (s *MemoryStore) Due(ctx context.Context, now time.Time) ([]*models.TriggerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TriggerRecord
	for _, record := range s.triggers {
		if record.Status != string(StatusActive) {
			continue
		}
		if record.NextTrigger.IsZero() || record.NextTrigger.After(now) {
			continue
		}
		out = append(out, cloneTrigger(record))
	}
	return out, nil
}

func cloneTrigger(record *models.TriggerRecord) *models.TriggerRecord {
	if record == nil {
		return nil
	}
	clone := *record
	return &clone
}
