package interaction

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileAgentJournals_RecordRequestPersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	journals := NewFileAgentJournals(dir)

	if err := journals.RecordRequest("Email to John", "tell John the meeting moved"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "email-to-john.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "tell John the meeting moved") {
		t.Fatalf("journal contents = %q", data)
	}
}

func TestFileAgentJournals_ClearRemovesFileAndHandle(t *testing.T) {
	dir := t.TempDir()
	journals := NewFileAgentJournals(dir)

	if err := journals.RecordRequest("calendar-agent", "book a room"); err != nil {
		t.Fatal(err)
	}
	if err := journals.Clear("calendar-agent"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "calendar-agent.log")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected journal file to be removed")
	}
}

func TestFileAgentJournals_ClearOnMissingFileIsNotAnError(t *testing.T) {
	journals := NewFileAgentJournals(t.TempDir())
	if err := journals.Clear("never-existed"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
