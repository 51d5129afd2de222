package entity

import "time"

// AgentEventType enumerates the events a Runtime turn emits to its
// observer (spec §6 streaming events: started|chunk|finished|error).
type AgentEventType string

const (
	EventStarted    AgentEventType = "started"
	EventChunk      AgentEventType = "chunk"
	EventToolCall   AgentEventType = "tool_call"
	EventToolResult AgentEventType = "tool_result"
	EventStepDone   AgentEventType = "step_done"
	EventFinished   AgentEventType = "finished"
	EventError      AgentEventType = "error"
)

// AgentEvent is one item on the Runtime's observer channel.
type AgentEvent struct {
	Type      AgentEventType `json:"type"`
	Data      EventData      `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventData is a loosely-typed payload; only the fields relevant to Type
// are populated, mirroring the host wire contract in spec §6.
type EventData struct {
	Content      string         `json:"content,omitempty"`
	IsFinal      bool           `json:"isFinal,omitempty"`
	FinishReason string         `json:"finishReason,omitempty"`
	ToolCall     *ToolCallEvent `json:"tool_call,omitempty"`
	StepInfo     *StepInfo      `json:"step_info,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// ToolCallEvent describes one tool invocation's lifecycle within a turn.
type ToolCallEvent struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Output    string                 `json:"output,omitempty"`
	Success   bool                   `json:"success"`
	Duration  time.Duration          `json:"duration,omitempty"`
}

// StepInfo reports per-step metadata for observability.
type StepInfo struct {
	Step       int    `json:"step"`
	TokensUsed int    `json:"tokens_used"`
	ModelUsed  string `json:"model_used"`
	State      string `json:"state,omitempty"`
}
