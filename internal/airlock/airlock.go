package airlock

import (
	"sync"
	"time"

	"github.com/duskcore/agentd/internal/domain/entity"
	"go.uber.org/zap"
)

const (
	sensitiveTimeout = 10 * time.Second
	dangerousTimeout = 30 * time.Second
)

// Decision is the outcome of a Check call.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// Response is what an external approve/reject call (spec §6 CLI/IPC)
// delivers for a pending command id.
type Response struct {
	Approved bool
}

// Airlock gates every side-effecting tool execution behind a risk-based
// approval (spec §4.5). Grounded on the teacher's approval-gate shape
// implied by domain/tool.Policy.NeedsConfirmation plus the Runtime
// hooks' BeforeToolCall veto pattern, expanded into a full one-shot
// response-channel map with headless mode and the 10s/30s timeout policy.
type Airlock struct {
	mu       sync.Mutex
	pending  map[string]chan Response
	headless bool
	events   chan<- entity.AirlockEvent
	logger   *zap.Logger
}

// New builds an Airlock. events may be nil if the caller doesn't need
// approval_required notifications (e.g. headless-only deployments).
func New(headless bool, events chan<- entity.AirlockEvent, logger *zap.Logger) *Airlock {
	return &Airlock{
		pending:  make(map[string]chan Response),
		headless: headless,
		events:   events,
		logger:   logger,
	}
}

// Check gates a command by its airlock level, returning the decision and
// how long the gate took to resolve.
func (a *Airlock) Check(cmd *entity.QueuedCommand) (Decision, time.Duration) {
	start := time.Now()
	level := cmd.AirlockLevel

	headless := a.isHeadless()

	var decision Decision
	switch level {
	case entity.AirlockSafe:
		decision = Allow

	case entity.AirlockSensitive:
		if headless {
			decision = Allow
		} else {
			decision = a.awaitApproval(cmd, sensitiveTimeout, Allow)
		}

	case entity.AirlockDangerous:
		if headless {
			decision = Allow
		} else {
			decision = a.awaitApproval(cmd, dangerousTimeout, Deny)
		}

	default: // AirlockNone — unknown tool, always denied
		decision = Deny
	}

	elapsed := time.Since(start)
	a.logger.Info("airlock decision",
		zap.String("id", cmd.ID),
		zap.String("level", level.String()),
		zap.String("decision", string(decision)),
		zap.Duration("elapsed", elapsed),
	)
	return decision, elapsed
}

// awaitApproval registers a one-shot response channel for cmd, emits an
// approval_required event, and blocks until either a Respond call
// arrives or the timeout elapses, in which case onTimeout is returned.
func (a *Airlock) awaitApproval(cmd *entity.QueuedCommand, timeout time.Duration, onTimeout Decision) Decision {
	ch := make(chan Response, 1)
	a.mu.Lock()
	a.pending[cmd.ID] = ch
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.pending, cmd.ID)
		a.mu.Unlock()
	}()

	if a.events != nil {
		a.events <- entity.AirlockEvent{
			CommandID:      cmd.ID,
			Intent:         cmd.Intent,
			PayloadSummary: summarizeParams(cmd.Params),
			AirlockLevel:   int(cmd.AirlockLevel) - int(entity.AirlockSafe),
			Timestamp:      time.Now().Unix(),
		}
	}

	select {
	case resp := <-ch:
		if resp.Approved {
			return Allow
		}
		return Deny
	case <-time.After(timeout):
		return onTimeout
	}
}

// Respond delivers an external approve/reject decision for a pending
// command id. Duplicate responses to the same id are ignored after the
// first (the channel is unbuffered beyond capacity 1 and removed from
// the pending map once consumed or timed out).
func (a *Airlock) Respond(commandID string, approved bool) bool {
	a.mu.Lock()
	ch, ok := a.pending[commandID]
	if ok {
		delete(a.pending, commandID)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- Response{Approved: approved}:
		return true
	default:
		return false
	}
}

// SetHeadless toggles headless mode at runtime.
func (a *Airlock) SetHeadless(headless bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.headless = headless
}

func (a *Airlock) isHeadless() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.headless
}

// Pending returns the ids of commands currently awaiting a human
// decision, for the `get_pending_airlock_approvals` host call (spec §6).
func (a *Airlock) Pending() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.pending))
	for id := range a.pending {
		ids = append(ids, id)
	}
	return ids
}

func summarizeParams(params map[string]interface{}) string {
	if len(params) == 0 {
		return ""
	}
	const maxLen = 200
	s := ""
	for k, v := range params {
		piece := k + "="
		switch vv := v.(type) {
		case string:
			piece += vv
		default:
			piece += "…"
		}
		if s != "" {
			s += ", "
		}
		s += piece
		if len(s) > maxLen {
			return s[:maxLen] + "..."
		}
	}
	return s
}
