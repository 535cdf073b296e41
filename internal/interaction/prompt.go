package interaction

import (
	"fmt"
	"html"
	"strings"
)

const basePersona = `You are the interaction agent: the single point of contact between the user and their roster of execution agents. You never perform tasks yourself — you delegate to execution agents by name, relay their status updates back to the user, and keep the conversation log as the one source of truth for what has already been said.`

// buildSystemPrompt assembles the persona, the lessons-learned store (if
// wired in), so the model sees past corrections without another tool call.
func (r *Runtime) buildSystemPrompt() string {
	sections := []string{basePersona}

	if r.Lessons != nil {
		if lessonsSection := r.renderLessons(); lessonsSection != "" {
			sections = append(sections, lessonsSection)
		}
	}

	return strings.Join(sections, "\n\n")
}

const maxLessonsInPrompt = 5

func (r *Runtime) renderLessons() string {
	all := r.Lessons.All()
	if len(all) == 0 {
		return ""
	}
	if len(all) > maxLessonsInPrompt {
		all = all[len(all)-maxLessonsInPrompt:]
	}
	var b strings.Builder
	b.WriteString("# LESSONS LEARNED\n\n")
	for _, lesson := range all {
		b.WriteString("- ")
		b.WriteString(lesson.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// prepareMessage composes the one user-role message that bundles
// conversation history, the active agent roster, and the current turn.
func (r *Runtime) prepareMessage(latest, transcript, kind string) string {
	sections := []string{
		renderConversationHistory(transcript),
		renderActiveAgents(r.Roster),
		renderCurrentTurn(latest, kind),
	}
	return strings.Join(sections, "\n\n")
}

func renderConversationHistory(transcript string) string {
	history := strings.TrimSpace(transcript)
	if history == "" {
		history = "None"
	}
	return fmt.Sprintf("<conversation_history>\n%s\n</conversation_history>", history)
}

func renderActiveAgents(roster Roster) string {
	if roster == nil {
		return "<active_agents>\nNone\n</active_agents>"
	}
	names := roster.Names()
	if len(names) == 0 {
		return "<active_agents>\nNone\n</active_agents>"
	}
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("<agent name=%q />", html.EscapeString(name)))
	}
	return fmt.Sprintf("<active_agents>\n%s\n</active_agents>", b.String())
}

func renderCurrentTurn(latest, kind string) string {
	tag := "new_user_message"
	if kind == "agent" {
		tag = "new_agent_message"
	}
	return fmt.Sprintf("<%s>\n%s\n</%s>", tag, strings.TrimSpace(latest), tag)
}
