package convlog

import (
	"path/filepath"
	"strings"
	"testing"
)

func newTestAgentJournal(t *testing.T) *AgentJournal {
	t.Helper()
	log, err := New(filepath.Join(t.TempDir(), "agent.log"))
	if err != nil {
		t.Fatal(err)
	}
	return NewAgentJournal(log)
}

func TestAgentJournal_RecordsFullRunLifecycle(t *testing.T) {
	j := newTestAgentJournal(t)

	if err := j.RecordRequest("send the weekly report"); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordToolExecution("send_email", "success", "sent to team@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordResponse("Report sent."); err != nil {
		t.Fatal(err)
	}

	transcript, err := j.Transcript()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"send the weekly report", "send_email", "Report sent."} {
		if !strings.Contains(transcript, want) {
			t.Fatalf("transcript missing %q:\n%s", want, transcript)
		}
	}
}

func TestAgentJournal_RecordError(t *testing.T) {
	j := newTestAgentJournal(t)
	if err := j.RecordError("tool timed out"); err != nil {
		t.Fatal(err)
	}

	transcript, err := j.Transcript()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(transcript, "Error: tool timed out") {
		t.Fatalf("transcript = %q", transcript)
	}
}
