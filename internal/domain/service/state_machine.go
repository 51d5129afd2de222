package service

import (
	"sync"
	"time"
)

// AgentState is one of the discrete states of a single Runtime turn.
type AgentState string

const (
	StateIdle       AgentState = "idle"
	StateCalling    AgentState = "calling_model"
	StateToolExec   AgentState = "tool_exec"
	StateComplete   AgentState = "complete"
	StateError      AgentState = "error"
	StateAborted    AgentState = "aborted"
)

var validTransitions = map[AgentState]map[AgentState]bool{
	StateIdle:     {StateCalling: true},
	StateCalling:  {StateToolExec: true, StateComplete: true, StateError: true, StateAborted: true},
	StateToolExec: {StateCalling: true, StateError: true, StateAborted: true},
	StateComplete: {},
	StateError:    {},
	StateAborted:  {},
}

// StateSnapshot is a point-in-time copy of the state machine, handed to
// hooks and surfaced in step_info events.
type StateSnapshot struct {
	State      AgentState    `json:"state"`
	Step       int           `json:"step"`
	MaxSteps   int           `json:"max_steps"`
	TokensUsed int           `json:"tokens_used"`
	ToolsUsed  int           `json:"tools_used"`
	Elapsed    time.Duration `json:"elapsed"`
	ModelUsed  string        `json:"model_used,omitempty"`
}

// StateMachine tracks one Runtime turn's progress. It does not enforce
// max_steps itself — that is the loop's job — it only records where the
// turn is and rejects illegal transitions.
type StateMachine struct {
	mu        sync.RWMutex
	state     AgentState
	step      int
	maxSteps  int
	tokens    int
	toolsUsed int
	start     time.Time
	model     string
	listeners []func(from, to AgentState, snap StateSnapshot)
}

// NewStateMachine creates a state machine bounded by maxSteps (0 = no cap
// enforced here; the caller still enforces its own limit).
func NewStateMachine(maxSteps int) *StateMachine {
	return &StateMachine{state: StateIdle, maxSteps: maxSteps, start: time.Now()}
}

// OnTransition registers a listener invoked after every successful
// transition.
func (sm *StateMachine) OnTransition(fn func(from, to AgentState, snap StateSnapshot)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, fn)
}

// Transition moves the machine to `to`, returning an error if the edge is
// not in validTransitions.
func (sm *StateMachine) Transition(to AgentState) error {
	sm.mu.Lock()
	from := sm.state
	allowed := validTransitions[from]
	if !allowed[to] {
		sm.mu.Unlock()
		return &invalidTransitionError{From: from, To: to}
	}
	sm.state = to
	snap := sm.snapshotLocked()
	listeners := append([]func(from, to AgentState, snap StateSnapshot){}, sm.listeners...)
	sm.mu.Unlock()

	for _, l := range listeners {
		l(from, to, snap)
	}
	return nil
}

func (sm *StateMachine) SetStep(n int)       { sm.mu.Lock(); sm.step = n; sm.mu.Unlock() }
func (sm *StateMachine) AddTokens(n int)     { sm.mu.Lock(); sm.tokens += n; sm.mu.Unlock() }
func (sm *StateMachine) SetModel(m string)   { sm.mu.Lock(); sm.model = m; sm.mu.Unlock() }
func (sm *StateMachine) RecordToolUse()      { sm.mu.Lock(); sm.toolsUsed++; sm.mu.Unlock() }

// State returns the current state.
func (sm *StateMachine) State() AgentState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// Snapshot returns a copy of the machine's current bookkeeping.
func (sm *StateMachine) Snapshot() StateSnapshot {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.snapshotLocked()
}

func (sm *StateMachine) snapshotLocked() StateSnapshot {
	return StateSnapshot{
		State:      sm.state,
		Step:       sm.step,
		MaxSteps:   sm.maxSteps,
		TokensUsed: sm.tokens,
		ToolsUsed:  sm.toolsUsed,
		Elapsed:    time.Since(sm.start),
		ModelUsed:  sm.model,
	}
}

type invalidTransitionError struct {
	From, To AgentState
}

func (e *invalidTransitionError) Error() string {
	return "invalid state transition: " + string(e.From) + " -> " + string(e.To)
}
