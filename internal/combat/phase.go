package combat

import "fmt"

// Phase is the stage an in-progress action is in. Exactly one phase is
// current at any frame; Idle is both the initial state and the state every
// action returns to when it ends.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseStartup
	PhaseActive
	PhaseRecovery
	PhaseCanceling
)

// String returns the human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStartup:
		return "startup"
	case PhaseActive:
		return "active"
	case PhaseRecovery:
		return "recovery"
	case PhaseCanceling:
		return "canceling"
	default:
		return "unknown"
	}
}

// MarshalText makes phases serialize as their names so event consumers
// (replay logs, WebSocket clients) never see raw enum values.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name, for API payloads.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase maps a name back to its phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "idle":
		return PhaseIdle, nil
	case "startup":
		return PhaseStartup, nil
	case "active":
		return PhaseActive, nil
	case "recovery":
		return PhaseRecovery, nil
	case "canceling":
		return PhaseCanceling, nil
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}
