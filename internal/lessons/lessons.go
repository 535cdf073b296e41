// Package lessons is a minimal persisted store backing the interaction
// runtime's add_lesson/get_lessons/delete_lesson tools. It satisfies the
// "lessons-learned store" external collaborator spec.md places out of
// scope, grounded on the same file-locking discipline as internal/roster.
package lessons

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	maxLockRetries = 5
	lockRetryBase  = 100 * time.Millisecond
)

// Lesson is a single remembered fact or preference.
type Lesson struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists lessons as a flat JSON array.
type Store struct {
	mu      sync.Mutex
	path    string
	logger  *slog.Logger
	lessons []Lesson
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open loads (or creates) the lessons store backed by the file at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, logger: slog.Default().With("component", "lessons"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.logger.Warn("failed to read lessons file", "path", s.path, "error", err)
		return nil
	}
	var lessons []Lesson
	if err := json.Unmarshal(data, &lessons); err != nil {
		s.logger.Warn("failed to parse lessons file", "path", s.path, "error", err)
		return nil
	}
	s.lessons = lessons
	return nil
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create lessons directory: %w", err)
	}
	delay := lockRetryBase
	var lastErr error
	for attempt := 0; attempt < maxLockRetries; attempt++ {
		if err := s.saveOnce(); err == nil {
			return nil
		} else {
			lastErr = err
			if err != syscall.EWOULDBLOCK && err != syscall.EAGAIN {
				return err
			}
		}
		if attempt < maxLockRetries-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("acquire lessons file lock after %d attempts: %w", maxLockRetries, lastErr)
}

func (s *Store) saveOnce() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return err
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s.lessons)
}

// Add appends a new lesson and persists the store.
func (s *Store) Add(content string) (Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lesson := Lesson{ID: uuid.NewString(), Content: content, CreatedAt: s.now()}
	s.lessons = append(s.lessons, lesson)
	if err := s.save(); err != nil {
		return Lesson{}, err
	}
	return lesson, nil
}

// All returns every stored lesson.
func (s *Store) All() []Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Lesson, len(s.lessons))
	copy(out, s.lessons)
	return out
}

// Delete removes a lesson by ID, reporting whether it was found.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, lesson := range s.lessons {
		if lesson.ID == id {
			s.lessons = append(s.lessons[:i], s.lessons[i+1:]...)
			if err := s.save(); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
