// Package router implements the Intelligent Router (spec §4.2): it
// presents a single service.LLMClient surface backed by a fleet of
// Provider Adapters, composing a capability filter, a cost optimizer, a
// capability matcher, a load balancer, and a fallback chain, each gated
// by a per-provider circuit breaker. Grounded on the teacher's
// infrastructure/llm package.
package router

import (
	"context"

	"github.com/duskcore/agentd/internal/domain/service"
)

// Capabilities describes what a provider can do, used by the capability
// filter and matcher stages.
type Capabilities struct {
	ChatCompletions  bool
	Embeddings       bool
	Streaming        bool
	FunctionCalling  bool
	Vision           bool
	WebSearch        bool
	MaxContextTokens int
	MaxOutputTokens  int
	Models           []string
}

// Health is the provider's current reachability state.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthDegraded  Health = "degraded"
	HealthUnhealthy Health = "unhealthy"
)

// Provider is the infrastructure-level adapter surface every concrete
// provider package (openai, anthropic, moonshot, xai, vendorsdk)
// implements, and what the Router composes over.
type Provider interface {
	service.LLMClient

	ID() string
	Type() string
	Capabilities(ctx context.Context) (Capabilities, error)
	HealthCheck(ctx context.Context) (Health, error)
	DefaultModel() string
	AvailableModels() []string
}

// ProviderConfig is the declarative configuration for one provider,
// loaded from the gateway's workspace config.
type ProviderConfig struct {
	ID       string            `json:"id" yaml:"id"`
	Type     string            `json:"type" yaml:"type"` // "openai" | "anthropic" | "moonshot" | "xai" | "vendorsdk"
	BaseURL  string            `json:"base_url" yaml:"base_url"`
	APIKey   string            `json:"api_key" yaml:"api_key"`
	Models   []string          `json:"models" yaml:"models"`
	Priority int               `json:"priority" yaml:"priority"` // stored and persisted; not read by the Router's selection
	Weight   int               `json:"weight" yaml:"weight"`     // for weighted load balancing
	Extra    map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// ProviderStats tracks the rolling performance counters the load
// balancer and status endpoints read.
type ProviderStats struct {
	TotalCalls   int64
	FailureCount int64
	LastLatencyMs float64
}
