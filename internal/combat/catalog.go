package combat

import "fmt"

// ActionID identifies a combat action. Ids come from the loaded catalog and
// are resolved/validated once at load time; the per-frame path only ever
// compares ids that already passed validation.
type ActionID string

// Priority orders actions for the interrupt protocol. A strictly higher
// priority is required to cancel into an action; equal priority never
// interrupts in either direction.
type Priority uint8

const (
	PriorityLight Priority = iota
	PriorityHeavy
	PriorityDash
	PrioritySpecial
	PriorityUltimate
)

// String returns the human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLight:
		return "light"
	case PriorityHeavy:
		return "heavy"
	case PriorityDash:
		return "dash"
	case PrioritySpecial:
		return "special"
	case PriorityUltimate:
		return "ultimate"
	default:
		return "unknown"
	}
}

// MarshalText serializes priorities by name for event consumers.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a priority name, for catalog files and API payloads.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority maps a name back to its priority level.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "light":
		return PriorityLight, nil
	case "heavy":
		return PriorityHeavy, nil
	case "dash":
		return PriorityDash, nil
	case "special":
		return PrioritySpecial, nil
	case "ultimate":
		return PriorityUltimate, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// IntegrationPayload carries opaque hooks for external collaborators
// (attack-shape evaluation, AoE triggering, animation). The state machine
// stores and forwards these, it never interprets them.
type IntegrationPayload struct {
	PrototypeName string `json:"prototypeName" yaml:"prototype_name"`
	TriggerAoE    bool   `json:"triggerAoe" yaml:"trigger_aoe"`
	AoEName       string `json:"aoeName" yaml:"aoe_name"`
	AnimationName string `json:"animationName" yaml:"animation_name"`
}

// ActionDef is the immutable frame-data record for one combat action.
// All frame counts assume the machine's configured target frame rate.
type ActionDef struct {
	ID          ActionID `json:"id" yaml:"id"`
	DisplayName string   `json:"displayName" yaml:"display_name"`

	// Frame data
	StartupFrames  int `json:"startupFrames" yaml:"startup_frames"`
	ActiveFrames   int `json:"activeFrames" yaml:"active_frames"`
	RecoveryFrames int `json:"recoveryFrames" yaml:"recovery_frames"`

	// Cancel rules. The window is inclusive on both ends and is measured
	// against the action-wide frame counter, not the per-phase one.
	CancelWindowStart int        `json:"cancelWindowStart" yaml:"cancel_window_start"`
	CancelWindowEnd   int        `json:"cancelWindowEnd" yaml:"cancel_window_end"`
	CancelInto        []ActionID `json:"cancelInto" yaml:"cancel_into"`

	Priority Priority `json:"priority" yaml:"priority"`

	// Flags
	RequiresTarget bool `json:"requiresTarget" yaml:"requires_target"`
	HasHyperArmor  bool `json:"hasHyperArmor" yaml:"has_hyper_armor"`

	// Tuning data carried for collaborators (damage application, movement,
	// hit-stop). Not interpreted by the state machine.
	AttackWeight     float64 `json:"attackWeight" yaml:"attack_weight"`
	HitStopSeconds   float64 `json:"hitStopSeconds" yaml:"hit_stop_seconds"`
	MoveSpeedScale   float64 `json:"moveSpeedScale" yaml:"move_speed_scale"`
	Range            float64 `json:"range" yaml:"range"`
	StylePoints      float64 `json:"stylePoints" yaml:"style_points"`
	ComboDamageScale float64 `json:"comboDamageScale" yaml:"combo_damage_scale"`

	Integration IntegrationPayload `json:"integration" yaml:"integration"`
}

// TotalFrames returns the full action duration in frames.
func (d *ActionDef) TotalFrames() int {
	return d.StartupFrames + d.ActiveFrames + d.RecoveryFrames
}

// InCancelWindow reports whether frame lies inside the cancel window,
// inclusive on both ends.
func (d *ActionDef) InCancelWindow(frame int) bool {
	return frame >= d.CancelWindowStart && frame <= d.CancelWindowEnd
}

// CanCancelInto reports whether id is a legal cancel target of this action.
func (d *ActionDef) CanCancelInto(id ActionID) bool {
	for _, target := range d.CancelInto {
		if target == id {
			return true
		}
	}
	return false
}

// Validate checks the frame-data invariants: startup/active/recovery are
// positive and the cancel window fits inside the action. Violations return
// ErrInvalidTiming so the hot per-frame path never has to re-check.
func (d *ActionDef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: action with empty id", ErrInvalidTiming)
	}
	if d.StartupFrames < 1 || d.ActiveFrames < 1 || d.RecoveryFrames < 1 {
		return fmt.Errorf("%w: action %q: frame counts must be positive (startup=%d active=%d recovery=%d)",
			ErrInvalidTiming, d.ID, d.StartupFrames, d.ActiveFrames, d.RecoveryFrames)
	}
	if d.CancelWindowStart < 0 || d.CancelWindowEnd < d.CancelWindowStart {
		return fmt.Errorf("%w: action %q: cancel window [%d,%d] is malformed",
			ErrInvalidTiming, d.ID, d.CancelWindowStart, d.CancelWindowEnd)
	}
	if d.CancelWindowEnd > d.TotalFrames() {
		return fmt.Errorf("%w: action %q: cancel window end %d exceeds total frames %d",
			ErrInvalidTiming, d.ID, d.CancelWindowEnd, d.TotalFrames())
	}
	return nil
}

// HiddenComboDef is a named bonus sequence. It matches against the tail of
// the combo chain: exact ids, exact order, no gaps.
type HiddenComboDef struct {
	Name             string     `json:"name" yaml:"name"`
	Sequence         []ActionID `json:"sequence" yaml:"sequence"`
	BonusDamageScale float64    `json:"bonusDamageScale" yaml:"bonus_damage_scale"`
	BonusStylePoints float64    `json:"bonusStylePoints" yaml:"bonus_style_points"`
	SpecialEffect    string     `json:"specialEffect" yaml:"special_effect"`
}

// Catalog is the immutable action lookup. It is built once by the loader,
// then shared read-only with every state machine for the lifetime of the
// simulation.
type Catalog struct {
	actions map[ActionID]ActionDef
	order   []ActionID
}

// NewCatalog validates every definition and builds the lookup. Registration
// order is preserved for deterministic listings.
func NewCatalog(defs []ActionDef) (*Catalog, error) {
	c := &Catalog{
		actions: make(map[ActionID]ActionDef, len(defs)),
		order:   make([]ActionID, 0, len(defs)),
	}
	for i := range defs {
		d := defs[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.actions[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate action %q", ErrInvalidTiming, d.ID)
		}
		c.actions[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	// Cancel targets must resolve so the arbiter can assume known ids.
	for _, id := range c.order {
		for _, target := range c.actions[id].CancelInto {
			if _, ok := c.actions[target]; !ok {
				return nil, fmt.Errorf("%w: action %q cancels into unknown action %q",
					ErrUnknownAction, id, target)
			}
		}
	}
	return c, nil
}

// Get returns the definition for id.
func (c *Catalog) Get(id ActionID) (ActionDef, bool) {
	d, ok := c.actions[id]
	return d, ok
}

// Has reports whether id is a known action.
func (c *Catalog) Has(id ActionID) bool {
	_, ok := c.actions[id]
	return ok
}

// IDs returns all action ids in registration order.
func (c *Catalog) IDs() []ActionID {
	out := make([]ActionID, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of registered actions.
func (c *Catalog) Len() int {
	return len(c.order)
}

// ValidateHiddenCombos checks that every sequence is non-empty and refers
// only to known actions. Called once at load time.
func ValidateHiddenCombos(c *Catalog, combos []HiddenComboDef) error {
	for _, combo := range combos {
		if combo.Name == "" {
			return fmt.Errorf("%w: hidden combo with empty name", ErrInvalidTiming)
		}
		if len(combo.Sequence) == 0 {
			return fmt.Errorf("%w: hidden combo %q has an empty sequence", ErrInvalidTiming, combo.Name)
		}
		for _, id := range combo.Sequence {
			if !c.Has(id) {
				return fmt.Errorf("%w: hidden combo %q references unknown action %q",
					ErrUnknownAction, combo.Name, id)
			}
		}
	}
	return nil
}
