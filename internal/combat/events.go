package combat

// EventKind classifies emitted events.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventPhaseChanged
	EventActionStarted
	EventActionEnded
	EventPerfectCancel
	EventComboUpdated
	EventHiddenCombo
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventPhaseChanged:
		return "phase_changed"
	case EventActionStarted:
		return "action_started"
	case EventActionEnded:
		return "action_ended"
	case EventPerfectCancel:
		return "perfect_cancel"
	case EventComboUpdated:
		return "combo_updated"
	case EventHiddenCombo:
		return "hidden_combo"
	default:
		return "unknown"
	}
}

// MarshalText serializes kinds by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is the common face of every record the machine emits. Events are
// plain serializable values - no handles into the machine - so any consumer
// (animation, damage application, a replay log, a test harness) can
// subscribe without depending on internals.
type Event interface {
	Kind() EventKind
}

// PhaseChanged fires on every phase transition, forced or natural.
type PhaseChanged struct {
	Old    Phase    `json:"old"`
	New    Phase    `json:"new"`
	Action ActionID `json:"action"`
}

func (PhaseChanged) Kind() EventKind { return EventPhaseChanged }

// ActionStarted fires when an action enters Startup, carrying the full
// definition so collaborators need no catalog lookup of their own.
type ActionStarted struct {
	Action ActionID  `json:"action"`
	Def    ActionDef `json:"def"`
}

func (ActionStarted) Kind() EventKind { return EventActionStarted }

// ActionEnded fires when an action ends, naturally or superseded by a
// cancel. Forced ends emit the same event so observers cannot tell forced
// and natural transitions apart.
type ActionEnded struct {
	Action      ActionID `json:"action"`
	WasCanceled bool     `json:"wasCanceled"`
}

func (ActionEnded) Kind() EventKind { return EventActionEnded }

// PerfectCancel fires when a cancel lands in the first frames of the cancel
// window. It is a bonus signal only; legality is decided elsewhere.
type PerfectCancel struct {
	CanceledInto ActionID `json:"canceledInto"`
}

func (PerfectCancel) Kind() EventKind { return EventPerfectCancel }

// ComboUpdated fires whenever the combo chain changes, including the single
// zero-count emission when the reset timer expires.
type ComboUpdated struct {
	Count int        `json:"count"`
	Chain []ActionID `json:"chain"`
}

func (ComboUpdated) Kind() EventKind { return EventComboUpdated }

// HiddenComboExecuted fires once per matched hidden sequence, carrying the
// reward payload for the collaborator that applies bonuses.
type HiddenComboExecuted struct {
	Name string         `json:"name"`
	Def  HiddenComboDef `json:"def"`
}

func (HiddenComboExecuted) Kind() EventKind { return EventHiddenCombo }
