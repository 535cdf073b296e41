// Package toolcall parses and validates raw tool-call payloads returned by
// an LLM provider before they reach either agent runtime loop.
package toolcall

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/haasonsaas/nexus/pkg/models"
)

// RawCall is the provider-agnostic shape of one tool call as reported by
// an LLM response, prior to name validation or argument parsing.
type RawCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON text, or "" / "{}" for no arguments
}

// Parsed is a validated, normalized tool call ready for dispatch.
type Parsed struct {
	ID        string
	Name      string
	Arguments json.RawMessage
	// InvalidReason is set when the call could not be validated; the
	// caller should feed this back to the model as a tool result rather
	// than dispatching the call.
	InvalidReason string
}

const invalidArgumentsKey = "__invalid_arguments__"

// Invalid reports whether this call failed validation and should be
// reported back to the model instead of executed.
func (p Parsed) Invalid() bool {
	return p.InvalidReason != ""
}

// Parse validates and normalizes a batch of raw tool calls against the set
// of tool names known to the calling runtime. A call naming an unknown
// tool, or a name that decomposes into a concatenation of several known
// tool names (a common hallucination), is returned as an invalid Parsed
// entry carrying an explanatory message rather than being dropped, so the
// model can see and correct its mistake on the next turn.
func Parse(raw []RawCall, knownTools map[string]struct{}) []Parsed {
	out := make([]Parsed, 0, len(raw))
	for _, call := range raw {
		name := strings.TrimSpace(call.Name)
		if name == "" {
			continue
		}

		if components := splitKnownTools(name, knownTools); len(components) > 1 {
			out = append(out, Parsed{
				ID:   call.ID,
				Name: components[0],
				InvalidReason: fmt.Sprintf(
					"CRITICAL ERROR: You attempted to call multiple tools in a single invocation. "+
						"The tool name %q is invalid because it combines these tools: %s. "+
						"You MUST call each tool separately in its own tool invocation. "+
						"Make separate calls for: %s.",
					name, strings.Join(components, ", "), strings.Join(components, " and "),
				),
			})
			continue
		}

		if _, ok := knownTools[name]; !ok {
			out = append(out, Parsed{
				ID:   call.ID,
				Name: name,
				InvalidReason: fmt.Sprintf(
					"ERROR: Unknown tool %q. Please use only the tools provided in your schema.", name),
			})
			continue
		}

		args, err := parseArguments(call.Arguments)
		if err != nil {
			out = append(out, Parsed{
				ID:            call.ID,
				Name:          name,
				InvalidReason: fmt.Sprintf("Invalid JSON arguments: %s", call.Arguments),
			})
			continue
		}

		out = append(out, Parsed{ID: call.ID, Name: name, Arguments: args})
	}
	return out
}

func parseArguments(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return json.RawMessage("{}"), nil
	}
	var js json.RawMessage
	if err := json.Unmarshal([]byte(raw), &js); err != nil {
		return nil, err
	}
	return js, nil
}

// toolCallSeparators are tolerated between concatenated tool names beyond
// a bare back-to-back join, since models sometimes hallucinate a joiner.
var toolCallSeparators = []string{"_", " ", "-", "+"}

// splitKnownTools attempts to decompose name into a sequence of known tool
// names by greedily matching the longest known name (optionally preceded
// by one of toolCallSeparators) at each position. It returns the
// decomposition only if the entire name is consumed and more than one
// component was found; otherwise it returns nil, meaning name should be
// treated as a single (possibly unknown) tool name.
func splitKnownTools(name string, knownTools map[string]struct{}) []string {
	sorted := sortedToolNames(knownTools)

	var components []string
	remaining := name
	for remaining != "" {
		match := ""
		for _, tool := range sorted {
			if strings.HasPrefix(remaining, tool) {
				match = tool
				break
			}
		}
		if match == "" {
			return nil
		}
		components = append(components, match)
		remaining = remaining[len(match):]
		for _, sep := range toolCallSeparators {
			if strings.HasPrefix(remaining, sep) {
				remaining = remaining[len(sep):]
				break
			}
		}
	}
	if len(components) <= 1 {
		return nil
	}
	return components
}

func sortedToolNames(knownTools map[string]struct{}) []string {
	names := make([]string, 0, len(knownTools))
	for name := range knownTools {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return names
}

// ToolNameSet builds a lookup set from a slice of tool names.
func ToolNameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// ToToolCalls converts parsed, valid calls into the shared models.ToolCall
// shape for recording in a conversation log or transcript.
func ToToolCalls(parsed []Parsed) []models.ToolCall {
	calls := make([]models.ToolCall, 0, len(parsed))
	for _, p := range parsed {
		calls = append(calls, models.ToolCall{ID: p.ID, Name: p.Name, Input: p.Arguments})
	}
	return calls
}
