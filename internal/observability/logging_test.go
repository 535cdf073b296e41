package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newRedactingLogger(t *testing.T, buf *bytes.Buffer, extra ...string) *slog.Logger {
	t.Helper()
	base := slog.NewJSONHandler(buf, nil)
	return slog.New(NewRedactingHandler(base, extra...))
}

func TestRedactingHandlerRedactsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := newRedactingLogger(t, &buf)

	logger.Info("anthropic request failed: key sk-ant-REDACTED rejected")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	msg, _ := entry["msg"].(string)
	if msg == "" {
		t.Fatal("expected a message field")
	}
	if strings.Contains(msg, "sk-ant-") {
		t.Errorf("expected API key to be redacted, got %q", msg)
	}
	if !strings.Contains(msg, "[REDACTED]") {
		t.Errorf("expected redaction marker in message, got %q", msg)
	}
}

func TestRedactingHandlerRedactsStringAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newRedactingLogger(t, &buf)

	logger.Info("tool call failed", "error", "Bearer abc123def456ghi789 is invalid")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	errVal, _ := entry["error"].(string)
	if strings.Contains(errVal, "Bearer abc123def456ghi789") {
		t.Errorf("expected bearer token to be redacted, got %q", errVal)
	}
}

func TestRedactingHandlerLeavesNonSecretAttrsAlone(t *testing.T) {
	var buf bytes.Buffer
	logger := newRedactingLogger(t, &buf)

	logger.Info("trigger fired", "agent", "researcher", "tool_name", "web_search")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["agent"] != "researcher" {
		t.Errorf("expected agent attr untouched, got %v", entry["agent"])
	}
	if entry["tool_name"] != "web_search" {
		t.Errorf("expected tool_name attr untouched, got %v", entry["tool_name"])
	}
}

func TestRedactingHandlerWithAttrsRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger := newRedactingLogger(t, &buf).With("api_key", "sk-0123456789abcdefghij")

	logger.Info("provider configured")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if strings.Contains(entry["api_key"].(string), "sk-0123456789abcdefghij") {
		t.Errorf("expected api_key attached via With to be redacted, got %v", entry["api_key"])
	}
}

func TestRedactingHandlerWithGroupRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger := newRedactingLogger(t, &buf).WithGroup("request")

	logger.Info("call made", "token", "Bearer zyxwvutsrqponmlkjihg")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	group, ok := entry["request"].(map[string]any)
	if !ok {
		t.Fatalf("expected a nested request group, got %v", entry)
	}
	if strings.Contains(group["token"].(string), "Bearer zyxwvutsrqponmlkjihg") {
		t.Errorf("expected grouped token to be redacted, got %v", group["token"])
	}
}

func TestRedactingHandlerExtraPatterns(t *testing.T) {
	var buf bytes.Buffer
	logger := newRedactingLogger(t, &buf, `custom-[0-9]{6}`)

	logger.Info("secret leaked", "value", "custom-123456")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if strings.Contains(entry["value"].(string), "custom-123456") {
		t.Errorf("expected custom pattern to be redacted, got %v", entry["value"])
	}
}

func TestRedactingHandlerEnabledDelegates(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := NewRedactingHandler(base)

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be disabled when wrapped handler only allows warn+")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error level to be enabled")
	}
}
