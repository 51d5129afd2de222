package service

import (
	"context"

	"github.com/duskcore/agentd/internal/domain/entity"
)

// ToolDefinition is the JSON-schema shape handed to a model alongside a
// request, mirroring the teacher's domaintool.Definition.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// LLMMessage is the wire-shaped message sent to a provider. It is distinct
// from entity.Message because providers only need role/content/tool
// linkage, not the Runtime's bookkeeping metadata.
type LLMMessage struct {
	Role       entity.Role          `json:"role"`
	Content    string               `json:"content"`
	Parts      []entity.ContentPart `json:"parts,omitempty"`
	ToolCalls  []entity.ToolCallInfo `json:"tool_calls,omitempty"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
	Name       string               `json:"name,omitempty"`
}

// LLMRequest is the normalized request shape every Provider Adapter
// consumes (spec §4.7).
type LLMRequest struct {
	Messages    []LLMMessage     `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature"`
	Stream      bool             `json:"stream,omitempty"`
}

// LLMResponse is the normalized response shape every Provider Adapter
// returns.
type LLMResponse struct {
	Content    string               `json:"content"`
	ToolCalls  []entity.ToolCallInfo `json:"tool_calls,omitempty"`
	ModelUsed  string               `json:"model_used"`
	TokensUsed int                  `json:"tokens_used"`
	InputTokens  int                `json:"input_tokens,omitempty"`
	OutputTokens int                `json:"output_tokens,omitempty"`
}

// StreamChunk is one delta of a streaming completion (spec §4.2).
type StreamChunk struct {
	Content      string `json:"content"`
	IsFinal      bool   `json:"is_final"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// LLMClient is the contract the Agent Runtime depends on. The Router
// satisfies this by composing many Provider Adapters; a single adapter
// also satisfies it directly, which is what lets the Router present
// itself as "just another provider" per spec §4.2.
type LLMClient interface {
	Complete(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
	CompleteStream(ctx context.Context, req *LLMRequest, onChunk func(StreamChunk)) (*LLMResponse, error)
	Embed(ctx context.Context, text string) ([]float32, string, error) // returns vector, model id
}

// ToolExecutor is the Runtime's view of the Skill Executor + Airlock
// pipeline: resolve the tool's policy, gate it, execute it.
type ToolExecutor interface {
	// Dispatch executes a single tool call end-to-end, including the
	// airlock gate. The returned CommandResult is always non-nil; errors
	// are encoded into it rather than returned, since a denied or failed
	// tool call is a normal Runtime outcome, not a fatal one.
	Dispatch(ctx context.Context, workspaceID string, call entity.ToolCallInfo, allowedPaths, blockedPaths []string) *entity.CommandResult
	// Definitions returns the tool schemas to present to the model.
	Definitions() []ToolDefinition
}

// MemoryRetriever is the Runtime's view of the Memory Vault for per-turn
// retrieval (spec §4.8 "Retrieval for the Runtime").
type MemoryRetriever interface {
	Retrieve(ctx context.Context, workspaceID, query string, topK int) ([]string, error)
}
