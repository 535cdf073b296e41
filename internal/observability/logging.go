package observability

import (
	"context"
	"log/slog"
	"regexp"
)

// DefaultRedactPatterns matches the shapes of credentials poke's components
// are most likely to accidentally log: provider API keys passed through
// tool-call arguments or error strings, and bearer tokens echoed back from
// HTTP clients.
var DefaultRedactPatterns = []string{
	`sk-ant-[a-zA-Z0-9\-_]{20,}`,
	`sk-[a-zA-Z0-9]{20,}`,
	`Bearer\s+[a-zA-Z0-9\-_\.]{10,}`,
	`[a-fA-F0-9]{32,}`,
}

// RedactingHandler wraps an slog.Handler and scrubs provider API keys and
// bearer tokens out of log messages and string attributes before they reach
// the wrapped handler. poke logs tool arguments and LLM provider errors
// verbatim (interaction.Runtime, execution.Runtime), both of which can carry
// a leaked credential if a provider echoes one back in an error string.
type RedactingHandler struct {
	next    slog.Handler
	redacts []*regexp.Regexp
}

// NewRedactingHandler wraps next with DefaultRedactPatterns plus any extra
// regular expressions supplied by the caller.
func NewRedactingHandler(next slog.Handler, extra ...string) *RedactingHandler {
	patterns := make([]string, 0, len(DefaultRedactPatterns)+len(extra))
	patterns = append(patterns, DefaultRedactPatterns...)
	patterns = append(patterns, extra...)

	redacts := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			redacts = append(redacts, re)
		}
	}
	return &RedactingHandler{next: next, redacts: redacts}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	redacted := slog.NewRecord(record.Time, record.Level, h.redactString(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, redacted)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(redacted), redacts: h.redacts}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name), redacts: h.redacts}
}

func (h *RedactingHandler) redactString(s string) string {
	for _, re := range h.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, h.redactString(a.Value.String()))
	}
	return a
}
