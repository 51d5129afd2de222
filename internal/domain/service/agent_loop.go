package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/duskcore/agentd/internal/domain/entity"
	"go.uber.org/zap"
)

// AgentLoopConfig configures one AgentLoop instance.
type AgentLoopConfig struct {
	MaxSteps         int     // default 10, per spec §4.1
	Temperature      float64
	Model            string
	MaxOutputChars   int // per-tool-output truncation cap, default 16384 (spec §4.3)
	LoopWindowSize   int
	LoopMatchThresh  int
	LoopNameThresh   int
	MemoryTopK       int // default 20, spec §4.8
}

// DefaultAgentLoopConfig returns the spec's production defaults.
func DefaultAgentLoopConfig() AgentLoopConfig {
	return AgentLoopConfig{
		MaxSteps:        10,
		Temperature:     0.7,
		MaxOutputChars:  16 * 1024,
		LoopWindowSize:  10,
		LoopMatchThresh: 5,
		LoopNameThresh:  8,
		MemoryTopK:      20,
	}
}

// RunResult is the terminal outcome of one Runtime turn.
type RunResult struct {
	FinalContent string
	TotalSteps   int
	TotalTokens  int
	ModelUsed    string
	ToolsUsed    []string
	Err          error
}

// AgentLoop is the Agent Runtime (spec §4.1): it interleaves model calls
// with sequential tool execution, bounded by MaxSteps, with memory
// retrieval injected per request and history trimmed by a trim function
// (contextwindow.Trim) supplied at construction.
type AgentLoop struct {
	llm      LLMClient
	tools    ToolExecutor
	memory   MemoryRetriever // nil = no memory configured, falls back to none
	trim     func(history []entity.Message, maxTokens int) []entity.Message
	maxCtxTokens int
	config   AgentLoopConfig
	hooks    AgentHook
	logger   *zap.Logger
}

// NewAgentLoop constructs a Runtime. trim must implement the Context
// Window Manager's contract (spec §4.6); pass contextwindow.Trim.
func NewAgentLoop(
	llm LLMClient,
	tools ToolExecutor,
	memory MemoryRetriever,
	trim func(history []entity.Message, maxTokens int) []entity.Message,
	maxCtxTokens int,
	config AgentLoopConfig,
	logger *zap.Logger,
) *AgentLoop {
	if config.MaxSteps <= 0 {
		config.MaxSteps = 10
	}
	if config.MaxOutputChars <= 0 {
		config.MaxOutputChars = 16 * 1024
	}
	if config.MemoryTopK <= 0 {
		config.MemoryTopK = 20
	}
	if maxCtxTokens <= 0 {
		maxCtxTokens = 120000
	}
	return &AgentLoop{
		llm:          llm,
		tools:        tools,
		memory:       memory,
		trim:         trim,
		maxCtxTokens: maxCtxTokens,
		config:       config,
		hooks:        NoOpHook{},
		logger:       logger,
	}
}

// SetHooks replaces the hook chain.
func (a *AgentLoop) SetHooks(h AgentHook) {
	if h != nil {
		a.hooks = h
	}
}

// Run executes one Runtime turn per spec §4.1's algorithm, appending the
// user prompt to history and returning the final assistant content (or an
// error category via RunResult.Err). events receives lifecycle updates;
// it may be nil.
func (a *AgentLoop) Run(ctx context.Context, spec entity.AgentSpec, history []entity.Message, userPrompt string, allowedPaths, blockedPaths []string, events chan<- entity.AgentEvent) *RunResult {
	result := &RunResult{}
	emit := func(e entity.AgentEvent) {
		if events == nil {
			return
		}
		e.Timestamp = time.Now()
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}
	defer func() {
		if events != nil {
			close(events)
		}
	}()

	emit(entity.AgentEvent{Type: entity.EventStarted})

	sm := NewStateMachine(a.config.MaxSteps)
	sm.OnTransition(func(from, to AgentState, snap StateSnapshot) {
		a.hooks.OnStateChange(from, to, snap)
	})

	// Step 1: append user message to history (caller's copy is untouched).
	working := make([]entity.Message, len(history), len(history)+2)
	copy(working, history)
	working = append(working, entity.Message{Role: entity.RoleUser, Content: userPrompt})

	model := a.config.Model
	if spec.DefaultModel != "" {
		model = spec.DefaultModel
	}

	loopDetector := NewLoopDetector(a.config.LoopWindowSize, a.config.LoopMatchThresh, a.config.LoopNameThresh)
	toolsUsedSet := map[string]bool{}

	maxSteps := a.config.MaxSteps
	if spec.MaxSteps > 0 {
		maxSteps = spec.MaxSteps
	}

	for step := 1; step <= maxSteps; step++ {
		sm.SetStep(step)
		if err := ctx.Err(); err != nil {
			_ = sm.Transition(StateAborted)
			result.Err = entity.WrapError(entity.ErrTimeout, "context cancelled", err)
			emit(entity.AgentEvent{Type: entity.EventError, Data: entity.EventData{Error: result.Err.Error()}})
			return result
		}

		_ = sm.Transition(StateCalling)

		// Step 2a/2b: assemble request = system + trimmed history + memory.
		reqMessages := a.assembleRequest(ctx, spec, working)

		req := &LLMRequest{
			Messages:    reqMessages,
			Tools:       a.tools.Definitions(),
			Model:       model,
			Temperature: a.config.Temperature,
		}
		a.hooks.BeforeModelCall(ctx, req, step)

		resp, err := a.llm.Complete(ctx, req)
		if err != nil {
			_ = sm.Transition(StateError)
			a.hooks.OnError(ctx, err, step)
			result.Err = err
			emit(entity.AgentEvent{Type: entity.EventError, Data: entity.EventData{Error: err.Error()}})
			result.FinalContent = ""
			return result
		}
		a.hooks.AfterModelCall(ctx, resp, step)
		if resp.Content != "" {
			emit(entity.AgentEvent{Type: entity.EventChunk, Data: entity.EventData{Content: resp.Content}})
		}

		result.TotalTokens += resp.TokensUsed
		result.ModelUsed = resp.ModelUsed
		result.TotalSteps = step
		sm.AddTokens(resp.TokensUsed)
		sm.SetModel(resp.ModelUsed)

		emit(entity.AgentEvent{Type: entity.EventStepDone, Data: entity.EventData{StepInfo: &entity.StepInfo{
			Step: step, TokensUsed: resp.TokensUsed, ModelUsed: resp.ModelUsed, State: string(sm.State()),
		}}})

		assistantMsg := entity.Message{Role: entity.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls}
		working = append(working, assistantMsg)

		// Step 2d: zero tool calls -> final output.
		if len(resp.ToolCalls) == 0 {
			_ = sm.Transition(StateComplete)
			result.FinalContent = resp.Content
			for name := range toolsUsedSet {
				result.ToolsUsed = append(result.ToolsUsed, name)
			}
			a.hooks.OnComplete(ctx, result)
			emit(entity.AgentEvent{Type: entity.EventFinished, Data: entity.EventData{Content: resp.Content, IsFinal: true}})
			return result
		}

		// Step 2e: execute tool calls sequentially, in model order (spec
		// §4.1 ordering guarantee — later tool outputs may depend on
		// earlier ones and the Airlock may block on the user).
		_ = sm.Transition(StateToolExec)
		for _, call := range resp.ToolCalls {
			emit(entity.AgentEvent{Type: entity.EventToolCall, Data: entity.EventData{ToolCall: &entity.ToolCallEvent{
				ID: call.ID, Name: call.Name, Arguments: call.Arguments,
			}}})

			var toolMsg entity.Message
			if !a.hooks.BeforeToolCall(ctx, call.Name, call.Arguments) {
				toolMsg = entity.Message{Role: entity.RoleTool, Content: "tool execution blocked by policy hook", ToolCallID: call.ID, Name: call.Name}
			} else {
				cr := a.tools.Dispatch(ctx, spec.MemoryConfig.WorkspaceID, call, allowedPaths, blockedPaths)
				output := cr.Output
				if !cr.Success && cr.Error != "" {
					output = cr.Error
				}
				output = truncateOutput(output, a.config.MaxOutputChars)
				toolMsg = entity.Message{Role: entity.RoleTool, Content: output, ToolCallID: call.ID, Name: call.Name}
				a.hooks.AfterToolCall(ctx, call.Name, output, cr.Success)
				toolsUsedSet[call.Name] = true
				sm.RecordToolUse()

				emit(entity.AgentEvent{Type: entity.EventToolResult, Data: entity.EventData{ToolCall: &entity.ToolCallEvent{
					ID: call.ID, Name: call.Name, Output: output, Success: cr.Success,
				}}})
			}
			working = append(working, toolMsg)

			// Advisory loop detection (never overrides max_steps).
			argsJSON := ""
			if call.Arguments != nil {
				if raw, err := json.Marshal(call.Arguments); err == nil {
					argsJSON = string(raw)
				}
			}
			if prompt := loopDetector.Record(call.Name, argsJSON); prompt != "" {
				working = append(working, entity.Message{Role: entity.RoleUser, Content: prompt})
			} else if prompt := loopDetector.RecordName(call.Name); prompt != "" {
				working = append(working, entity.Message{Role: entity.RoleUser, Content: prompt})
			}
		}
		// loop continues: model sees tool outputs on the next iteration.
	}

	// Step 3: max_steps exhausted with unresolved tool calls.
	_ = sm.Transition(StateError)
	result.Err = entity.NewError(entity.ErrConversationLimit, "max_steps exceeded with unresolved tool calls")
	if len(working) > 0 {
		result.FinalContent = working[len(working)-1].Content
	}
	emit(entity.AgentEvent{Type: entity.EventError, Data: entity.EventData{Error: result.Err.Error()}})
	return result
}

// assembleRequest builds the per-call message window: system prompt,
// memory-retrieval synthetic message (not persisted), then trimmed
// history (spec §4.1 step 2a/2b).
func (a *AgentLoop) assembleRequest(ctx context.Context, spec entity.AgentSpec, history []entity.Message) []LLMMessage {
	trimmed := a.trim(history, a.maxCtxTokens)

	out := make([]LLMMessage, 0, len(trimmed)+2)
	if spec.Instructions != "" {
		out = append(out, LLMMessage{Role: entity.RoleSystem, Content: spec.Instructions})
	}

	if a.memory != nil && spec.MemoryConfig.Enabled {
		lastUser := lastUserText(history)
		if lastUser != "" {
			topK := spec.MemoryConfig.TopK
			if topK <= 0 {
				topK = a.config.MemoryTopK
			}
			hits, err := a.memory.Retrieve(ctx, spec.MemoryConfig.WorkspaceID, lastUser, topK)
			if err == nil && len(hits) > 0 {
				content := "Retrieved Memory Context:\n"
				for _, h := range hits {
					content += "- " + h + "\n"
				}
				out = append(out, LLMMessage{Role: entity.RoleSystem, Content: content})
			}
		}
	}

	for _, m := range trimmed {
		out = append(out, LLMMessage{
			Role: m.Role, Content: m.Content, Parts: m.Parts,
			ToolCalls: m.ToolCalls, ToolCallID: m.ToolCallID, Name: m.Name,
		})
	}
	return out
}

func lastUserText(history []entity.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == entity.RoleUser {
			return history[i].TextContent()
		}
	}
	return ""
}

func truncateOutput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[TRUNCATED]"
}
