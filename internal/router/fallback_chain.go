package router

import "context"

// FallbackChain orders providers for retry after a failure, skipping
// ones known to be unhealthy via their circuit breaker. Grounded on
// original_source's fallback_chain.rs SkipUnhealthy strategy, which is
// the only strategy the spec's retry loop needs (Sequential/Parallel in
// the original are folded into the Router's own retry-with-exclusion
// loop instead of being separate chain strategies).
type FallbackChain struct {
	chain    []Provider
	breakers map[string]*CircuitBreaker
}

func NewFallbackChain(chain []Provider, breakers map[string]*CircuitBreaker) *FallbackChain {
	return &FallbackChain{chain: chain, breakers: breakers}
}

// Next returns the next provider to try after lastTried (by ID), or the
// first viable provider if lastTried is empty. excluded providers
// (already attempted this call) are always skipped. A provider whose
// circuit breaker denies Allow() is treated as unhealthy and skipped.
func (f *FallbackChain) Next(ctx context.Context, lastTried string, excluded map[string]bool) Provider {
	start := 0
	if lastTried != "" {
		for i, p := range f.chain {
			if p.ID() == lastTried {
				start = i + 1
				break
			}
		}
	}

	for i := start; i < len(f.chain); i++ {
		if p := f.tryCandidate(i, excluded); p != nil {
			return p
		}
	}
	for i := 0; i < start; i++ {
		if p := f.tryCandidate(i, excluded); p != nil {
			return p
		}
	}
	return nil
}

func (f *FallbackChain) tryCandidate(i int, excluded map[string]bool) Provider {
	p := f.chain[i]
	if excluded[p.ID()] {
		return nil
	}
	if cb, ok := f.breakers[p.ID()]; ok && !cb.Allow() {
		return nil
	}
	return p
}
