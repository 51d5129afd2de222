package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/duskcore/agentd/internal/domain/entity"
	"github.com/duskcore/agentd/internal/domain/service"
	"go.uber.org/zap"
)

// Config tunes the Router's selection pipeline.
type Config struct {
	Strategy         LoadBalancingStrategy
	Weights          map[string]int
	CapabilityWeights CapabilityWeights
	BudgetLimit      float64 // 0 = unlimited
	MaxRetries       int     // across distinct providers, default 3
	BreakerThreshold int     // consecutive failures, default 5
	BreakerCooldown  time.Duration // default 30s
}

// DefaultConfig returns the spec's production selection-pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:          RoundRobin,
		Weights:           map[string]int{},
		CapabilityWeights: DefaultCapabilityWeights(),
		MaxRetries:        3,
		BreakerThreshold:  5,
		BreakerCooldown:   30 * time.Second,
	}
}

// Router is the Intelligent Router (spec §4.2): it satisfies
// service.LLMClient itself, letting the Agent Runtime treat "many
// providers behind a router" exactly like "one provider" (spec §4.2's
// unification requirement). Grounded on infrastructure/llm.Router.
type Router struct {
	mu        sync.RWMutex
	providers []Provider
	stats     map[string]*ProviderStats
	breakers  map[string]*CircuitBreaker

	matcher   *CapabilityMatcher
	optimizer *CostOptimizer
	balancer  *LoadBalancer

	cfg    Config
	logger *zap.Logger

	defaultProviderID string
}

var _ service.LLMClient = (*Router)(nil)

func NewRouter(cfg Config, logger *zap.Logger) *Router {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	return &Router{
		stats:     make(map[string]*ProviderStats),
		breakers:  make(map[string]*CircuitBreaker),
		matcher:   NewCapabilityMatcher(cfg.CapabilityWeights),
		optimizer: NewCostOptimizer(cfg.BudgetLimit),
		balancer:  NewLoadBalancer(cfg.Strategy, cfg.Weights),
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "router")),
	}
}

// AddProvider registers a provider with the router, in priority order.
func (r *Router) AddProvider(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
	r.stats[p.ID()] = &ProviderStats{}
	r.breakers[p.ID()] = NewCircuitBreaker(r.cfg.BreakerThreshold, r.cfg.BreakerCooldown)
	r.logger.Info("provider registered", zap.String("id", p.ID()), zap.String("type", p.Type()))
}

// RemoveProvider unregisters a provider by id, for the `router unregister`
// host call (spec §6).
func (r *Router) RemoveProvider(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.providers {
		if p.ID() == id {
			r.providers = append(r.providers[:i], r.providers[i+1:]...)
			delete(r.stats, id)
			delete(r.breakers, id)
			if r.defaultProviderID == id {
				r.defaultProviderID = ""
			}
			r.logger.Info("provider unregistered", zap.String("id", id))
			return true
		}
	}
	return false
}

// SetDefaultProvider records id as the default provider reported by
// DefaultProviderID, for the `router set_default` host call (spec §6).
// The selection pipeline does not consult it.
func (r *Router) SetDefaultProvider(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultProviderID = id
}

// DefaultProviderID returns the currently preferred provider id, or ""
// if none has been set.
func (r *Router) DefaultProviderID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultProviderID
}

// SetProviderCost registers pricing used by the cost-optimizer stage.
func (r *Router) SetProviderCost(providerID string, cost ProviderCost) {
	r.optimizer.SetCost(providerID, cost)
}

// ListProviders reports every registered provider's current status.
func (r *Router) ListProviders(ctx context.Context) []ProviderStatusReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderStatusReport, 0, len(r.providers))
	for _, p := range r.providers {
		health, _ := p.HealthCheck(ctx)
		rep := ProviderStatusReport{ID: p.ID(), Type: p.Type(), Health: health, Models: p.AvailableModels()}
		if s, ok := r.stats[p.ID()]; ok {
			rep.TotalCalls, rep.FailureCount, rep.LastLatencyMs = s.TotalCalls, s.FailureCount, s.LastLatencyMs
		}
		if cb, ok := r.breakers[p.ID()]; ok {
			rep.CircuitState = cb.State().String()
		}
		out = append(out, rep)
	}
	return out
}

// ProviderStatusReport is the wire shape for the router's status endpoint.
type ProviderStatusReport struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Health        Health   `json:"health"`
	Models        []string `json:"models"`
	TotalCalls    int64    `json:"total_calls"`
	FailureCount  int64    `json:"failure_count"`
	LastLatencyMs float64  `json:"last_latency_ms"`
	CircuitState  string   `json:"circuit_state"`
}

// deriveRequired inspects the request to build the capability
// requirements the model would need: tool definitions imply function
// calling, image parts imply vision, Stream implies streaming.
func deriveRequired(req *service.LLMRequest) RequiredCapabilities {
	r := RequiredCapabilities{ChatCompletions: true}
	if len(req.Tools) > 0 {
		r.FunctionCalling = true
	}
	if req.Stream {
		r.Streaming = true
	}
	for _, m := range req.Messages {
		for _, part := range m.Parts {
			if part.Type == "image" {
				r.Vision = true
			}
		}
	}
	return r
}

// candidates runs the circuit-breaker filter and the capability filter
// over the router's registered providers, narrows to providers listing a
// pinned model, then returns the cost optimizer's single cheapest pick,
// or every matching provider (unranked) when none fits the budget.
// excluded providers (already failed this call) are removed.
func (r *Router) candidates(ctx context.Context, req *service.LLMRequest, excluded map[string]bool) []Provider {
	r.mu.RLock()
	all := make([]Provider, len(r.providers))
	copy(all, r.providers)
	r.mu.RUnlock()

	required := deriveRequired(req)

	var alive []Provider
	for _, p := range all {
		if excluded[p.ID()] {
			continue
		}
		if cb, ok := r.breakers[p.ID()]; ok && !cb.Allow() {
			continue
		}
		alive = append(alive, p)
	}

	matching := r.matcher.FindMatching(ctx, alive, required)
	if len(matching) == 0 {
		return nil
	}

	// Model-specific requirement, if the caller pinned one, trumps cost.
	if req.Model != "" {
		var pinned []Provider
		for _, p := range matching {
			for _, m := range p.AvailableModels() {
				if m == req.Model {
					pinned = append(pinned, p)
					break
				}
			}
		}
		if len(pinned) > 0 {
			matching = pinned
		}
	}

	estInput := 0
	for _, m := range req.Messages {
		estInput += len(m.Content) / 4
	}
	if cheapest := r.optimizer.SelectCheapest(matching, estInput, req.MaxTokens); cheapest != nil {
		return []Provider{cheapest}
	}
	return matching
}

// selectOne runs the full pipeline and picks one provider among whatever
// the capability+cost stages left standing: the capability matcher's best
// when several remain, otherwise the load balancer's pick.
func (r *Router) selectOne(ctx context.Context, req *service.LLMRequest, excluded map[string]bool) Provider {
	cands := r.candidates(ctx, req, excluded)
	if len(cands) == 0 {
		return nil
	}
	if best := r.matcher.SelectBest(ctx, cands); best != nil && len(cands) > 1 {
		return best
	}
	r.mu.RLock()
	stats := r.stats
	r.mu.RUnlock()
	return r.balancer.Select(cands, stats)
}

// Complete implements service.LLMClient, retrying across distinct
// providers up to cfg.MaxRetries times on a retryable error.
func (r *Router) Complete(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	excluded := map[string]bool{}
	var lastErr error

	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		p := r.selectOne(ctx, req, excluded)
		if p == nil {
			break
		}
		start := time.Now()
		resp, err := p.Complete(ctx, req)
		r.record(p, time.Since(start), err)

		if err == nil {
			return resp, nil
		}
		lastErr = err
		excluded[p.ID()] = true
		if catErr, ok := err.(*entity.CategorizedError); ok && !catErr.Category.Retryable() {
			break
		}
	}

	if lastErr != nil {
		return nil, entity.WrapError(entity.ErrNoProviderAvailable, "all providers failed", lastErr)
	}
	return nil, entity.NewError(entity.ErrNoProviderAvailable, fmt.Sprintf("no provider available for model %q", req.Model))
}

// CompleteStream implements service.LLMClient with the same retry policy
// as Complete; a provider that fails before emitting any chunk is
// retried on the next provider, but once chunks have started the router
// does not switch providers mid-stream.
func (r *Router) CompleteStream(ctx context.Context, req *service.LLMRequest, onChunk func(service.StreamChunk)) (*service.LLMResponse, error) {
	excluded := map[string]bool{}
	var lastErr error
	emitted := false
	forward := func(c service.StreamChunk) {
		emitted = true
		onChunk(c)
	}

	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		p := r.selectOne(ctx, req, excluded)
		if p == nil {
			break
		}
		start := time.Now()
		resp, err := p.CompleteStream(ctx, req, forward)
		r.record(p, time.Since(start), err)

		if err == nil {
			return resp, nil
		}
		lastErr = err
		excluded[p.ID()] = true
		if emitted {
			break
		}
		if catErr, ok := err.(*entity.CategorizedError); ok && !catErr.Category.Retryable() {
			break
		}
	}

	if lastErr != nil {
		return nil, entity.WrapError(entity.ErrNoProviderAvailable, "all streaming providers failed", lastErr)
	}
	return nil, entity.NewError(entity.ErrNoProviderAvailable, fmt.Sprintf("no streaming provider available for model %q", req.Model))
}

// Embed routes to the first provider advertising embeddings support.
func (r *Router) Embed(ctx context.Context, text string) ([]float32, string, error) {
	r.mu.RLock()
	all := make([]Provider, len(r.providers))
	copy(all, r.providers)
	r.mu.RUnlock()

	for _, p := range all {
		caps, err := p.Capabilities(ctx)
		if err != nil || !caps.Embeddings {
			continue
		}
		if cb, ok := r.breakers[p.ID()]; ok && !cb.Allow() {
			continue
		}
		vec, model, err := p.Embed(ctx, text)
		r.record(p, 0, err)
		if err == nil {
			return vec, model, nil
		}
	}
	return nil, "", entity.NewError(entity.ErrNoProviderAvailable, "no provider available for embeddings")
}

func (r *Router) record(p Provider, latency time.Duration, err error) {
	r.mu.Lock()
	if s, ok := r.stats[p.ID()]; ok {
		s.TotalCalls++
		if latency > 0 {
			s.LastLatencyMs = float64(latency) / float64(time.Millisecond)
		}
		if err != nil {
			s.FailureCount++
		}
	}
	r.mu.Unlock()

	if cb, ok := r.breakers[p.ID()]; ok {
		if err != nil {
			cb.RecordFailure()
		} else {
			cb.RecordSuccess()
		}
	}
}
