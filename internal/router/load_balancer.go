package router

import (
	"math/rand"
	"sync/atomic"
)

// LoadBalancingStrategy picks among multiple capability-matched,
// cost-acceptable candidates that all remain viable after the earlier
// pipeline stages. Grounded on original_source's load_balancer.rs.
type LoadBalancingStrategy int

const (
	RoundRobin LoadBalancingStrategy = iota
	LeastConnections
	WeightedRoundRobin
	Random
)

// LoadBalancer distributes calls across its current candidate set
// according to the configured strategy. It is stateless across calls
// except for the round-robin cursor, matching the teacher's design.
type LoadBalancer struct {
	strategy        LoadBalancingStrategy
	weights         map[string]int // provider ID -> weight, for WeightedRoundRobin
	roundRobinIndex uint64
}

func NewLoadBalancer(strategy LoadBalancingStrategy, weights map[string]int) *LoadBalancer {
	if weights == nil {
		weights = map[string]int{}
	}
	return &LoadBalancer{strategy: strategy, weights: weights}
}

// Select picks one provider from candidates. stats, keyed by provider
// ID, supplies the connection counts LeastConnections needs.
func (lb *LoadBalancer) Select(candidates []Provider, stats map[string]*ProviderStats) Provider {
	if len(candidates) == 0 {
		return nil
	}
	switch lb.strategy {
	case LeastConnections:
		return lb.selectLeastConnections(candidates, stats)
	case WeightedRoundRobin:
		return lb.selectWeighted(candidates)
	case Random:
		return candidates[rand.Intn(len(candidates))]
	default:
		return lb.selectRoundRobin(candidates)
	}
}

func (lb *LoadBalancer) selectRoundRobin(candidates []Provider) Provider {
	idx := atomic.AddUint64(&lb.roundRobinIndex, 1) - 1
	return candidates[int(idx)%len(candidates)]
}

func (lb *LoadBalancer) selectLeastConnections(candidates []Provider, stats map[string]*ProviderStats) Provider {
	var best Provider
	var bestCalls int64 = -1
	for _, p := range candidates {
		calls := int64(0)
		if s, ok := stats[p.ID()]; ok {
			calls = s.TotalCalls
		}
		if bestCalls == -1 || calls < bestCalls {
			bestCalls = calls
			best = p
		}
	}
	return best
}

func (lb *LoadBalancer) selectWeighted(candidates []Provider) Provider {
	total := 0
	for _, p := range candidates {
		total += lb.weights[p.ID()]
	}
	if total == 0 {
		return lb.selectRoundRobin(candidates)
	}
	r := rand.Intn(total)
	cum := 0
	for _, p := range candidates {
		w := lb.weights[p.ID()]
		cum += w
		if r < cum {
			return p
		}
	}
	return lb.selectRoundRobin(candidates)
}
