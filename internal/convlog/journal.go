package convlog

import "fmt"

const (
	tagRequest       = "request"
	tagToolExecution = "tool_execution"
	tagResponse      = "response"
	tagError         = "error"
)

// AgentJournal is a single execution agent's private log: every
// instruction it was asked to run, every tool call it made, its final
// response, and any error that ended its run.
type AgentJournal struct {
	log *Log
}

// NewAgentJournal wraps a Log as an AgentJournal.
func NewAgentJournal(log *Log) *AgentJournal {
	return &AgentJournal{log: log}
}

// RecordRequest appends a new instruction dispatched to this agent.
func (j *AgentJournal) RecordRequest(instructions string) error {
	_, err := j.log.Append(tagRequest, instructions)
	return err
}

// RecordToolExecution appends a record of one tool call and its outcome.
func (j *AgentJournal) RecordToolExecution(toolName, status, detail string) error {
	_, err := j.log.Append(tagToolExecution, fmt.Sprintf("%s (%s): %s", toolName, status, detail))
	return err
}

// RecordResponse appends the agent's final response for a run.
func (j *AgentJournal) RecordResponse(content string) error {
	_, err := j.log.Append(tagResponse, content)
	return err
}

// RecordError appends a terminal error for a run.
func (j *AgentJournal) RecordError(message string) error {
	_, err := j.log.Append(tagError, fmt.Sprintf("Error: %s", message))
	return err
}

// Transcript returns the full tagged transcript, used to seed an execution
// agent's own history across repeated invocations.
func (j *AgentJournal) Transcript() (string, error) {
	return j.log.Transcript()
}
