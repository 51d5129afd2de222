package router

import "context"

// RequiredCapabilities describes what a request needs from a provider;
// the Router derives one per call from the LLMRequest (tools present ->
// function_calling, image parts present -> vision, Stream set ->
// streaming). Grounded on original_source's capability_matcher.rs.
type RequiredCapabilities struct {
	ChatCompletions  bool
	Embeddings       bool
	Streaming        bool
	FunctionCalling  bool
	Vision           bool
	WebSearch        bool
	MinContextTokens int
	MinOutputTokens  int
	RequiredModels   map[string]bool
}

// Matches reports whether caps satisfies every requirement in r.
func (r RequiredCapabilities) Matches(caps Capabilities) bool {
	if r.ChatCompletions && !caps.ChatCompletions {
		return false
	}
	if r.Embeddings && !caps.Embeddings {
		return false
	}
	if r.Streaming && !caps.Streaming {
		return false
	}
	if r.FunctionCalling && !caps.FunctionCalling {
		return false
	}
	if r.Vision && !caps.Vision {
		return false
	}
	if r.WebSearch && !caps.WebSearch {
		return false
	}
	if r.MinContextTokens > 0 && caps.MaxContextTokens < r.MinContextTokens {
		return false
	}
	if r.MinOutputTokens > 0 && caps.MaxOutputTokens < r.MinOutputTokens {
		return false
	}
	if len(r.RequiredModels) > 0 {
		ok := false
		for _, m := range caps.Models {
			if r.RequiredModels[m] {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// CapabilityWeights scores a matching provider so the matcher can break
// ties between multiple candidates that all satisfy RequiredCapabilities.
type CapabilityWeights struct {
	ChatCompletions float64
	Embeddings      float64
	Streaming       float64
	FunctionCalling float64
	Vision          float64
	WebSearch       float64
	ContextWindow   float64
	OutputTokens    float64
}

// DefaultCapabilityWeights mirrors the original Rust defaults, giving
// context/output-token counts a much smaller weight than boolean
// capability flags so a model with a colossal context window doesn't
// automatically dominate scoring.
func DefaultCapabilityWeights() CapabilityWeights {
	return CapabilityWeights{
		ChatCompletions: 1.0, Embeddings: 1.0, Streaming: 1.0,
		FunctionCalling: 1.0, Vision: 1.0, WebSearch: 1.0,
		ContextWindow: 0.001, OutputTokens: 0.001,
	}
}

// CapabilityMatcher scores and ranks providers already known to satisfy
// a RequiredCapabilities set.
type CapabilityMatcher struct {
	weights CapabilityWeights
}

func NewCapabilityMatcher(weights CapabilityWeights) *CapabilityMatcher {
	return &CapabilityMatcher{weights: weights}
}

// FindMatching filters providers to those whose capabilities satisfy required.
func (m *CapabilityMatcher) FindMatching(ctx context.Context, providers []Provider, required RequiredCapabilities) []Provider {
	var out []Provider
	for _, p := range providers {
		caps, err := p.Capabilities(ctx)
		if err != nil {
			continue
		}
		if required.Matches(caps) {
			out = append(out, p)
		}
	}
	return out
}

// SelectBest scores every candidate and returns the highest-scoring one.
// Ties are broken by the caller's provider ordering (first wins); the
// Router passes providers in registration order and does not consult
// ProviderConfig.Priority.
func (m *CapabilityMatcher) SelectBest(ctx context.Context, candidates []Provider) Provider {
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	var best Provider
	bestScore := -1.0
	for _, p := range candidates {
		score := m.score(ctx, p)
		if score > bestScore {
			bestScore = score
			best = p
		}
	}
	return best
}

func (m *CapabilityMatcher) score(ctx context.Context, p Provider) float64 {
	caps, err := p.Capabilities(ctx)
	if err != nil {
		return 0
	}
	w := m.weights
	score := 0.0
	if caps.ChatCompletions {
		score += w.ChatCompletions
	}
	if caps.Embeddings {
		score += w.Embeddings
	}
	if caps.Streaming {
		score += w.Streaming
	}
	if caps.FunctionCalling {
		score += w.FunctionCalling
	}
	if caps.Vision {
		score += w.Vision
	}
	if caps.WebSearch {
		score += w.WebSearch
	}
	score += float64(caps.MaxContextTokens) * w.ContextWindow
	score += float64(caps.MaxOutputTokens) * w.OutputTokens
	return score
}
