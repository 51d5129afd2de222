package router

import "math"

// ProviderCost is a provider's per-1K-token pricing, used to estimate the
// dollar cost of a call before it's made. Grounded on
// original_source's cost_optimizer.rs.
type ProviderCost struct {
	InputCostPer1K  float64
	OutputCostPer1K float64
}

// Estimate returns the projected cost of a call with the given token counts.
func (c ProviderCost) Estimate(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)/1000.0)*c.InputCostPer1K + (float64(outputTokens)/1000.0)*c.OutputCostPer1K
}

// CostOptimizer selects the cheapest candidate that fits within an
// optional running budget.
type CostOptimizer struct {
	costs       map[string]ProviderCost // provider ID -> cost
	budgetLimit float64                 // 0 = unlimited
	spent       float64
}

func NewCostOptimizer(budgetLimit float64) *CostOptimizer {
	return &CostOptimizer{costs: make(map[string]ProviderCost), budgetLimit: budgetLimit}
}

func (o *CostOptimizer) SetCost(providerID string, cost ProviderCost) {
	o.costs[providerID] = cost
}

func (o *CostOptimizer) Spend(amount float64) { o.spent += amount }

func (o *CostOptimizer) RemainingBudget() float64 {
	if o.budgetLimit <= 0 {
		return math.Inf(1)
	}
	if o.spent >= o.budgetLimit {
		return 0
	}
	return o.budgetLimit - o.spent
}

// SelectCheapest returns the candidate with the lowest projected cost for
// the given token estimate that does not exceed the remaining budget.
// Providers with no registered cost are treated as free (cost 0), since a
// self-hosted or flat-rate provider legitimately has no per-token price.
func (o *CostOptimizer) SelectCheapest(candidates []Provider, estInputTokens, estOutputTokens int) Provider {
	if len(candidates) == 0 {
		return nil
	}
	var best Provider
	bestCost := math.Inf(1)
	remaining := o.RemainingBudget()
	for _, p := range candidates {
		cost, ok := o.costs[p.ID()]
		projected := 0.0
		if ok {
			projected = cost.Estimate(estInputTokens, estOutputTokens)
		}
		if o.budgetLimit > 0 && projected > remaining {
			continue
		}
		if projected < bestCost {
			bestCost = projected
			best = p
		}
	}
	return best
}
