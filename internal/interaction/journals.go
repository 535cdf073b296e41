package interaction

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/haasonsaas/nexus/internal/convlog"
)

// FileAgentJournals is the default AgentJournals implementation: one
// convlog-backed file per agent name under a shared directory, grounded
// on the same append-only transcript format used for the conversation log.
type FileAgentJournals struct {
	dir string

	mu       sync.Mutex
	journals map[string]*convlog.AgentJournal
}

// NewFileAgentJournals creates a journal store rooted at dir.
func NewFileAgentJournals(dir string) *FileAgentJournals {
	return &FileAgentJournals{dir: dir, journals: make(map[string]*convlog.AgentJournal)}
}

var journalFilenameSanitizer = regexp.MustCompile(`[^a-z0-9_-]+`)

func journalFilename(agentName string) string {
	cleaned := journalFilenameSanitizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(agentName)), "-")
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "agent"
	}
	return cleaned + ".log"
}

func (f *FileAgentJournals) journalFor(agentName string) (*convlog.AgentJournal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(agentName))
	if j, ok := f.journals[key]; ok {
		return j, nil
	}

	log, err := convlog.New(filepath.Join(f.dir, journalFilename(agentName)))
	if err != nil {
		return nil, fmt.Errorf("open journal for %s: %w", agentName, err)
	}
	journal := convlog.NewAgentJournal(log)
	f.journals[key] = journal
	return journal, nil
}

// RecordRequest appends a new instruction to the named agent's journal.
func (f *FileAgentJournals) RecordRequest(agentName, instructions string) error {
	journal, err := f.journalFor(agentName)
	if err != nil {
		return err
	}
	return journal.RecordRequest(instructions)
}

// Clear deletes the named agent's journal file and forgets its handle.
func (f *FileAgentJournals) Clear(agentName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(agentName))
	delete(f.journals, key)

	path := filepath.Join(f.dir, journalFilename(agentName))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove journal for %s: %w", agentName, err)
	}
	return nil
}

// Journal returns the per-agent journal handle, creating it if needed, so
// an AgentDispatcher can seed an execution runtime's transcript and record
// its tool calls and final response to the same file RecordRequest wrote to.
func (f *FileAgentJournals) Journal(agentName string) (*convlog.AgentJournal, error) {
	return f.journalFor(agentName)
}
