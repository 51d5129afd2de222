package service

import "context"

// AgentHook is an extension point over the Runtime's lifecycle, grounded
// on the teacher's AgentHook/NoOpHook pattern. Hooks run synchronously in
// the loop goroutine; they must be fast.
type AgentHook interface {
	BeforeModelCall(ctx context.Context, req *LLMRequest, step int)
	AfterModelCall(ctx context.Context, resp *LLMResponse, step int)
	BeforeToolCall(ctx context.Context, name string, args map[string]interface{}) bool
	AfterToolCall(ctx context.Context, name, output string, success bool)
	OnError(ctx context.Context, err error, step int)
	OnComplete(ctx context.Context, result *RunResult)
	OnStateChange(from, to AgentState, snap StateSnapshot)
}

// NoOpHook implements AgentHook with no-ops; embed it to override only
// what you need.
type NoOpHook struct{}

func (NoOpHook) BeforeModelCall(context.Context, *LLMRequest, int)                 {}
func (NoOpHook) AfterModelCall(context.Context, *LLMResponse, int)                 {}
func (NoOpHook) BeforeToolCall(context.Context, string, map[string]interface{}) bool { return true }
func (NoOpHook) AfterToolCall(context.Context, string, string, bool)               {}
func (NoOpHook) OnError(context.Context, error, int)                              {}
func (NoOpHook) OnComplete(context.Context, *RunResult)                           {}
func (NoOpHook) OnStateChange(AgentState, AgentState, StateSnapshot)               {}

// HookChain fans a call out to every registered hook in order.
type HookChain struct {
	hooks []AgentHook
}

func NewHookChain(hooks ...AgentHook) *HookChain { return &HookChain{hooks: hooks} }

func (c *HookChain) Add(h AgentHook) { c.hooks = append(c.hooks, h) }

func (c *HookChain) BeforeModelCall(ctx context.Context, req *LLMRequest, step int) {
	for _, h := range c.hooks {
		h.BeforeModelCall(ctx, req, step)
	}
}

func (c *HookChain) AfterModelCall(ctx context.Context, resp *LLMResponse, step int) {
	for _, h := range c.hooks {
		h.AfterModelCall(ctx, resp, step)
	}
}

func (c *HookChain) BeforeToolCall(ctx context.Context, name string, args map[string]interface{}) bool {
	for _, h := range c.hooks {
		if !h.BeforeToolCall(ctx, name, args) {
			return false
		}
	}
	return true
}

func (c *HookChain) AfterToolCall(ctx context.Context, name, output string, success bool) {
	for _, h := range c.hooks {
		h.AfterToolCall(ctx, name, output, success)
	}
}

func (c *HookChain) OnError(ctx context.Context, err error, step int) {
	for _, h := range c.hooks {
		h.OnError(ctx, err, step)
	}
}

func (c *HookChain) OnComplete(ctx context.Context, result *RunResult) {
	for _, h := range c.hooks {
		h.OnComplete(ctx, result)
	}
}

func (c *HookChain) OnStateChange(from, to AgentState, snap StateSnapshot) {
	for _, h := range c.hooks {
		h.OnStateChange(from, to, snap)
	}
}
