package jobs

import "fmt"

// State 轮询状态机状态.
type State int

const (
	StateSubmitted State = iota
	StatePolling
	StateCompleted
	StateTimedOut
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s >= StateCompleted
}

var transitions = map[State][]State{
	StateSubmitted: {StatePolling, StateTimedOut, StateCancelled},
	StatePolling:   {StateCompleted, StateTimedOut, StateCancelled, StateFailed},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// machine tracks the state of one await call.
type machine struct {
	state State
	onMove func(from, to State)
}

func (m *machine) to(next State) {
	if !CanTransition(m.state, next) {
		panic(fmt.Sprintf("jobs: illegal transition %s -> %s", m.state, next))
	}
	prev := m.state
	m.state = next
	if m.onMove != nil {
		m.onMove(prev, next)
	}
}
