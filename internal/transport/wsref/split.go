package wsref

import "strings"

// maxChunkSize mirrors spec.md's ~800-character soft cap for chat transports.
const maxChunkSize = 800

// splitMessage breaks text into chunks no longer than maxChunkSize,
// preferring to break at a paragraph boundary, then a sentence boundary,
// then a space, so a chunk never lands mid-word if avoidable.
func splitMessage(text string) []string {
	if len(text) <= maxChunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > maxChunkSize {
		cut := breakPoint(remaining, maxChunkSize)
		chunks = append(chunks, strings.TrimSpace(remaining[:cut]))
		remaining = remaining[cut:]
	}
	if strings.TrimSpace(remaining) != "" {
		chunks = append(chunks, strings.TrimSpace(remaining))
	}
	return chunks
}

func breakPoint(text string, limit int) int {
	window := text[:limit]
	if i := strings.LastIndex(window, "\n\n"); i > limit/2 {
		return i + 2
	}
	if i := lastSentenceBoundary(window); i > limit/2 {
		return i
	}
	if i := strings.LastIndex(window, " "); i > limit/2 {
		return i + 1
	}
	return limit
}

func lastSentenceBoundary(window string) int {
	best := -1
	for _, terminator := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(window, terminator); i > best {
			best = i + len(terminator)
		}
	}
	return best
}
