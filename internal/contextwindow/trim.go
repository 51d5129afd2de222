// Package contextwindow implements the Context Window Manager (spec §4.6):
// a deterministic trimmer that keeps every system message plus the
// maximal newest-first suffix of the remaining history that fits a token
// budget, restoring chronological order before handing messages back to
// the Runtime. Grounded on the teacher's domain/context.Pruner, simplified
// from its multi-strategy (adaptive/hard-clear/summarize) design down to
// the spec's single deterministic rule.
package contextwindow

import (
	"github.com/duskcore/agentd/internal/domain/entity"
)

// DefaultMaxTokens is the production context budget (spec §4.6).
const DefaultMaxTokens = 120000

// Trim returns the subset of history that fits within maxTokens, per
// spec §4.6:
//   - every system message is always kept, regardless of budget
//   - remaining messages are walked newest-first, each kept while the
//     running total (system + kept) stays within budget
//   - kept messages are returned in original chronological order
//
// If maxTokens <= 0, only system messages are kept. If the whole history
// already fits, it is returned unchanged (aside from the system-message
// partitioning, which is a no-op when nothing is dropped).
func Trim(history []entity.Message, maxTokens int) []entity.Message {
	if maxTokens <= 0 {
		maxTokens = 0
	}

	systemIdx := make(map[int]bool)
	used := 0
	var systems []entity.Message
	for i, m := range history {
		if m.Role == entity.RoleSystem {
			systemIdx[i] = true
			systems = append(systems, m)
			used += m.EstimatedTokens()
		}
	}

	budget := maxTokens - used
	if budget < 0 {
		budget = 0
	}

	// Walk non-system messages newest-first, stopping at the first one
	// that would overflow the budget: the result is a contiguous suffix
	// of the non-system history, not an arbitrary subset.
	keepIdx := make(map[int]bool)
	running := 0
	for i := len(history) - 1; i >= 0; i-- {
		if systemIdx[i] {
			continue
		}
		cost := history[i].EstimatedTokens()
		if running+cost > budget {
			break
		}
		keepIdx[i] = true
		running += cost
	}

	out := make([]entity.Message, 0, len(systems)+len(keepIdx))
	for i, m := range history {
		if systemIdx[i] || keepIdx[i] {
			out = append(out, m)
		}
	}
	return out
}
