package convlog

const (
	tagUserMessage    = "user_message"
	tagAgentMessage   = "agent_message"
	tagAssistantReply = "alyn_reply"
	tagWait           = "wait"
)

// ConversationLog is the interaction agent's transcript: every user
// message, every message relayed in from an execution agent, every reply
// sent back to the user, and wait markers that never reach the user.
type ConversationLog struct {
	log *Log
}

// NewConversationLog wraps a Log as a ConversationLog.
func NewConversationLog(log *Log) *ConversationLog {
	return &ConversationLog{log: log}
}

// RecordUserMessage appends an inbound user message.
func (c *ConversationLog) RecordUserMessage(content string) error {
	_, err := c.log.Append(tagUserMessage, content)
	return err
}

// RecordAgentMessage appends a message relayed from an execution agent.
func (c *ConversationLog) RecordAgentMessage(content string) error {
	_, err := c.log.Append(tagAgentMessage, content)
	return err
}

// RecordReply appends an assistant reply sent to the user.
func (c *ConversationLog) RecordReply(content string) error {
	_, err := c.log.Append(tagAssistantReply, content)
	return err
}

// RecordWait appends an orchestration-only wait marker. Wait markers are
// never surfaced in ChatHistory's chat view; Transcript still includes them.
func (c *ConversationLog) RecordWait(reason string) error {
	_, err := c.log.Append(tagWait, reason)
	return err
}

// Transcript returns the full tagged transcript for splicing into a
// system prompt.
func (c *ConversationLog) Transcript() (string, error) {
	return c.log.Transcript()
}

// ChatEntry is a role/content pair suitable for an LLM message list.
type ChatEntry struct {
	Role      string
	Content   string
	Timestamp string
}

// ChatHistory renders the log as a list of user/assistant turns, dropping
// agent_message relay entries and wait markers which are orchestration
// metadata rather than user-visible chat history.
func (c *ConversationLog) ChatHistory() ([]ChatEntry, error) {
	entries, err := c.log.Entries()
	if err != nil {
		return nil, err
	}
	history := make([]ChatEntry, 0, len(entries))
	for _, e := range entries {
		switch e.Tag {
		case tagUserMessage:
			history = append(history, ChatEntry{Role: "user", Content: e.Payload, Timestamp: e.Timestamp})
		case tagAssistantReply:
			history = append(history, ChatEntry{Role: "assistant", Content: e.Payload, Timestamp: e.Timestamp})
		case tagWait:
			continue
		}
	}
	return history, nil
}

// Clear deletes the underlying log file.
func (c *ConversationLog) Clear() error {
	return c.log.Clear()
}
