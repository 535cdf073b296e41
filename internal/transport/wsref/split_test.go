package wsref

import (
	"strings"
	"testing"
)

func TestSplitMessage_ShortTextIsSingleChunk(t *testing.T) {
	chunks := splitMessage("hello there")
	if len(chunks) != 1 || chunks[0] != "hello there" {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestSplitMessage_EmptyTextIsNoChunks(t *testing.T) {
	if chunks := splitMessage(""); chunks != nil {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestSplitMessage_LongTextBreaksAtParagraph(t *testing.T) {
	para := strings.Repeat("word ", 150) // ~750 chars
	text := para + "\n\n" + para
	chunks := splitMessage(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > maxChunkSize {
			t.Fatalf("chunk exceeds cap: %d bytes", len(c))
		}
	}
}

func TestSplitMessage_NeverExceedsCapOnPathologicalInput(t *testing.T) {
	text := strings.Repeat("a", maxChunkSize*3)
	chunks := splitMessage(text)
	for _, c := range chunks {
		if len(c) > maxChunkSize {
			t.Fatalf("chunk exceeds cap: %d bytes", len(c))
		}
	}
	if strings.Join(chunks, "") != text {
		t.Fatal("chunks do not reconstruct the original text")
	}
}
