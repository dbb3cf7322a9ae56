package engine

import "time"

// State is the scheduler position of one instrument.
type State int

const (
	StateIdle State = iota
	StateSignalWait
	StateLocked
	StateSubmitting
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSignalWait:
		return "SIGNAL_WAIT"
	case StateLocked:
		return "LOCKED"
	case StateSubmitting:
		return "SUBMITTING"
	case StateCooldown:
		return "COOLDOWN"
	default:
		return "UNKNOWN"
	}
}

// InstrumentState is the engine-owned view of one instrument. Active marks a
// bot-placed position the engine believes is still open.
type InstrumentState struct {
	Symbol        string    `json:"symbol"`
	State         State     `json:"state"`
	Active        bool      `json:"active"`
	Ticket        int64     `json:"ticket"`
	CooldownUntil time.Time `json:"cooldown_until"`
	LastVerdict   string    `json:"last_verdict"`
	LastError     string    `json:"last_error,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
