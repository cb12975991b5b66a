package combat

import "log"

// Default timing parameters. Everything frame-shaped is counted in frames so
// the behavior scales with the configured frame rate instead of hiding
// wall-clock constants in the hot path.
const (
	DefaultFrameRate        float64 = 60.0
	DefaultBufferWindow     float64 = 0.2
	DefaultComboReset       float64 = 2.0
	DefaultMaxComboChain    int     = 20
	DefaultPerfectExtension float64 = 1.0
)

// Config tunes one state machine instance.
type Config struct {
	// TargetFrameRate is the fixed simulation rate in frames per second.
	TargetFrameRate float64
	// BufferWindowSeconds is how long a deferred input stays consultable.
	BufferWindowSeconds float64
	// ComboResetSeconds is the idle time after which the chain clears.
	ComboResetSeconds float64
	// MaxComboChain bounds the chain length; oldest entries are evicted.
	MaxComboChain int
	// PerfectCancelExtension is the combo time granted by a perfect cancel.
	PerfectCancelExtension float64
}

// DefaultConfig returns the 60 Hz tuning the frame data was authored for.
func DefaultConfig() Config {
	return Config{
		TargetFrameRate:        DefaultFrameRate,
		BufferWindowSeconds:    DefaultBufferWindow,
		ComboResetSeconds:      DefaultComboReset,
		MaxComboChain:          DefaultMaxComboChain,
		PerfectCancelExtension: DefaultPerfectExtension,
	}
}

// runningAction exists only while the phase is not Idle and an action owns
// the frame counter.
type runningAction struct {
	id  ActionID
	def ActionDef
}

// Listener receives events synchronously during Tick (or during a direct
// TryStartAction call). Listeners must not re-enter the machine: no
// reentrancy guarantee is provided, the driving loop is the single writer.
type Listener func(Event)

// Subscription is the registration token for one listener. Releasing it is
// deterministic and per-instance; there is no shared registration state
// between machines.
type Subscription struct {
	m  *Machine
	id int
}

// Cancel removes the listener. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.m != nil {
		delete(s.m.listeners, s.id)
		s.m = nil
	}
}

// Machine is the frame-accurate combat action state machine. It owns the
// current phase, the running action, the input buffer and the combo
// tracker; the catalog and hidden-combo list are borrowed read-only.
//
// The machine is single-writer: one simulation goroutine calls Tick once
// per host frame. Tick always runs to completion - there is no suspension
// or blocking inside it.
type Machine struct {
	catalog *Catalog
	hidden  []HiddenComboDef
	cfg     Config

	frameDuration float64

	phase        Phase
	current      *runningAction
	frame        int     // action-wide frame counter, reset on Startup entry
	phaseFrames  int     // frames spent in the current phase
	phaseElapsed float64 // wall time within the current phase

	accumulator float64
	clock       float64 // accumulated simulation time

	buffer *InputBuffer
	combo  *ComboTracker

	listeners  map[int]Listener
	nextListen int
}

// NewMachine builds a machine over a validated catalog. Zero config fields
// fall back to defaults.
func NewMachine(catalog *Catalog, hidden []HiddenComboDef, cfg Config) *Machine {
	def := DefaultConfig()
	if cfg.TargetFrameRate <= 0 {
		cfg.TargetFrameRate = def.TargetFrameRate
	}
	if cfg.BufferWindowSeconds <= 0 {
		cfg.BufferWindowSeconds = def.BufferWindowSeconds
	}
	if cfg.ComboResetSeconds <= 0 {
		cfg.ComboResetSeconds = def.ComboResetSeconds
	}
	if cfg.MaxComboChain <= 0 {
		cfg.MaxComboChain = def.MaxComboChain
	}
	if cfg.PerfectCancelExtension <= 0 {
		cfg.PerfectCancelExtension = def.PerfectCancelExtension
	}

	return &Machine{
		catalog:       catalog,
		hidden:        hidden,
		cfg:           cfg,
		frameDuration: 1.0 / cfg.TargetFrameRate,
		phase:         PhaseIdle,
		buffer:        NewInputBuffer(cfg.BufferWindowSeconds),
		combo:         NewComboTracker(cfg.MaxComboChain, cfg.ComboResetSeconds),
		listeners:     make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns its token. Only the owner of
// the machine should subscribe and unsubscribe.
func (m *Machine) Subscribe(fn Listener) *Subscription {
	m.nextListen++
	m.listeners[m.nextListen] = fn
	return &Subscription{m: m, id: m.nextListen}
}

func (m *Machine) emit(ev Event) {
	for _, fn := range m.listeners {
		fn(ev)
	}
}

// Tick advances the simulation by dt seconds of host time. The accumulator
// converts the variable host delta into whole fixed frames: after a stall
// several frames are stepped in order, one at a time, never skipped. The
// clock advances with the frames, not with dt, so each frame step (and the
// buffer drain inside it) sees its own logical time. Results therefore
// depend only on total elapsed time, not on how the host loop slices it.
func (m *Machine) Tick(dt float64) error {
	if dt < 0 {
		return ErrNegativeDelta
	}
	m.accumulator += dt
	for m.accumulator >= m.frameDuration {
		m.accumulator -= m.frameDuration
		m.clock += m.frameDuration
		m.advanceOneFrame()
	}
	return nil
}

// advanceOneFrame performs one discrete frame step.
func (m *Machine) advanceOneFrame() {
	if m.phase != PhaseIdle {
		m.frame++
		m.phaseFrames++
		m.phaseElapsed += m.frameDuration
	}

	m.checkPhaseTransition()

	if m.phase == PhaseIdle || m.IsInCancelWindow() {
		m.drainBuffer()
	}

	if m.combo.Advance(m.frameDuration) {
		m.emit(ComboUpdated{Count: 0, Chain: []ActionID{}})
	}
}

// checkPhaseTransition applies at most one transition per frame step.
func (m *Machine) checkPhaseTransition() {
	if m.current == nil && m.phase != PhaseCanceling {
		return
	}
	switch m.phase {
	case PhaseStartup:
		if m.frame >= m.current.def.StartupFrames {
			m.setPhase(PhaseActive)
		}
	case PhaseActive:
		if m.frame >= m.current.def.StartupFrames+m.current.def.ActiveFrames {
			m.setPhase(PhaseRecovery)
		}
	case PhaseRecovery:
		if m.frame >= m.current.def.TotalFrames() {
			m.endAction(false, PhaseIdle)
		}
	case PhaseCanceling:
		// Nothing superseded the cancel; drain back to Idle.
		if m.phaseFrames >= CancelingFrames {
			m.setPhase(PhaseIdle)
		}
	}
}

func (m *Machine) setPhase(p Phase) {
	old := m.phase
	m.phase = p
	m.phaseFrames = 0
	m.phaseElapsed = 0
	if p == PhaseStartup {
		m.frame = 0
	}
	var id ActionID
	if m.current != nil {
		id = m.current.id
	}
	m.emit(PhaseChanged{Old: old, New: p, Action: id})
}

// TryStartAction requests an action using the machine's own clock for
// buffering. In Idle it succeeds for any known id; otherwise it succeeds
// only as a legal cancel. A known-but-illegal request is buffered and false
// is returned: the request is deferred, not lost. Unknown ids are reported
// and dropped - they could never drain.
func (m *Machine) TryStartAction(id ActionID) bool {
	return m.requestAt(id, m.clock)
}

// RequestAction is the input-collaborator entry point: now is the caller's
// timestamp for the buffered entry and must share the time base of the dt
// values fed to Tick.
func (m *Machine) RequestAction(id ActionID, now float64) bool {
	return m.requestAt(id, now)
}

func (m *Machine) requestAt(id ActionID, now float64) bool {
	def, ok := m.catalog.Get(id)
	if !ok {
		log.Printf("combat: dropping request for unknown action %q", id)
		return false
	}

	if m.phase == PhaseIdle {
		m.startAction(def)
		return true
	}

	if m.CanCancelCurrentAction(id) {
		m.processCancel(def)
		return true
	}

	m.buffer.Push(id, now)
	return false
}

// CanStartAction reports whether id would execute right now: any known id
// in Idle, or a legal cancel of the running action.
func (m *Machine) CanStartAction(id ActionID) bool {
	if m.phase == PhaseIdle {
		return m.catalog.Has(id)
	}
	return m.CanCancelCurrentAction(id)
}

// CanCancelCurrentAction applies the full arbitration rules against the
// running action at the current frame.
func (m *Machine) CanCancelCurrentAction(id ActionID) bool {
	if m.current == nil || m.phase == PhaseCanceling {
		return false
	}
	return CanCancel(&m.current.def, m.frame, id, m.catalog)
}

// IsInCancelWindow reports whether the running action is currently
// interruptible, ignoring target and priority rules.
func (m *Machine) IsInCancelWindow() bool {
	if m.current == nil || m.phase == PhaseIdle || m.phase == PhaseCanceling {
		return false
	}
	return m.current.def.InCancelWindow(m.frame)
}

// CancelOptions returns the legal cancel targets at the current frame.
func (m *Machine) CancelOptions() []ActionID {
	if m.current == nil || !m.IsInCancelWindow() {
		return nil
	}
	var out []ActionID
	for _, id := range m.current.def.CancelInto {
		if m.CanCancelCurrentAction(id) {
			out = append(out, id)
		}
	}
	return out
}

// processCancel supersedes the running action with next. The phase routes
// through Canceling and immediately into the new action's Startup, so
// ActionEnded and ActionStarted are observed back to back within the same
// frame step.
func (m *Machine) processCancel(next ActionDef) {
	if IsPerfectCancel(&m.current.def, m.frame) {
		m.combo.Extend(m.cfg.PerfectCancelExtension)
		m.emit(PerfectCancel{CanceledInto: next.ID})
	}
	m.endAction(true, PhaseCanceling)
	m.startAction(next)
}

// startAction begins def at frame 0 in Startup.
func (m *Machine) startAction(def ActionDef) {
	m.current = &runningAction{id: def.ID, def: def}

	m.combo.Append(def.ID)
	m.emit(ComboUpdated{Count: m.combo.Count(), Chain: m.combo.Chain()})
	if combo, ok := m.combo.MatchHidden(m.hidden); ok {
		m.emit(HiddenComboExecuted{Name: combo.Name, Def: combo})
	}

	m.setPhase(PhaseStartup)
	m.emit(ActionStarted{Action: def.ID, Def: def})
}

// endAction finishes the running action and moves to next (Idle for a
// natural end, Canceling when superseded). No-op when already Idle.
func (m *Machine) endAction(wasCanceled bool, next Phase) {
	if m.phase == PhaseIdle || m.current == nil {
		return
	}
	id := m.current.id
	m.current = nil
	m.frame = 0
	m.setPhase(next)
	m.emit(ActionEnded{Action: id, WasCanceled: wasCanceled})
}

// ForceEndAction is the escape hatch for external systems (stun, death): it
// ends the running action through the normal event path so observers cannot
// distinguish a forced end from a natural one. No-op when Idle.
func (m *Machine) ForceEndAction(wasCanceled bool) {
	m.endAction(wasCanceled, PhaseIdle)
}

// ForceSetState overrides the transition table. Forcing Idle or Canceling
// while an action runs ends it as canceled first, so the event stream stays
// indistinguishable from normal operation.
func (m *Machine) ForceSetState(p Phase) {
	if m.current != nil && (p == PhaseIdle || p == PhaseCanceling) {
		m.endAction(true, p)
		return
	}
	m.setPhase(p)
}

// drainBuffer executes the most recent buffered input that is legal right
// now, if any. Consuming an input clears the whole buffer.
func (m *Machine) drainBuffer() {
	id, ok := m.buffer.Drain(m.clock, m.CanStartAction)
	if !ok {
		return
	}
	def, known := m.catalog.Get(id)
	if !known {
		return // unreachable: unknown ids are never buffered
	}
	if m.phase == PhaseIdle {
		m.startAction(def)
		return
	}
	m.processCancel(def)
}

// State queries.

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// CurrentAction returns the running action id, if any.
func (m *Machine) CurrentAction() (ActionID, bool) {
	if m.current == nil {
		return "", false
	}
	return m.current.id, true
}

// CurrentDef returns the running action's definition, if any.
func (m *Machine) CurrentDef() (ActionDef, bool) {
	if m.current == nil {
		return ActionDef{}, false
	}
	return m.current.def, true
}

// CurrentFrame returns the action-wide frame counter.
func (m *Machine) CurrentFrame() int { return m.frame }

// Clock returns the simulation time of the last completed frame in seconds.
// The sub-frame remainder stays in the accumulator, never in the clock.
func (m *Machine) Clock() float64 { return m.clock }

// PhaseProgress returns 0..1 completion of the current phase.
func (m *Machine) PhaseProgress() float64 {
	if m.current == nil {
		return 0
	}
	d := &m.current.def
	var done, span int
	switch m.phase {
	case PhaseStartup:
		done, span = m.frame, d.StartupFrames
	case PhaseActive:
		done, span = m.frame-d.StartupFrames, d.ActiveFrames
	case PhaseRecovery:
		done, span = m.frame-d.StartupFrames-d.ActiveFrames, d.RecoveryFrames
	default:
		return 0
	}
	if span <= 0 {
		return 1
	}
	p := float64(done) / float64(span)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ComboCount returns the current chain length.
func (m *Machine) ComboCount() int { return m.combo.Count() }

// ComboChain returns a copy of the chain, oldest-first.
func (m *Machine) ComboChain() []ActionID { return m.combo.Chain() }

// ComboTimeRemaining returns the seconds left before the chain resets.
func (m *Machine) ComboTimeRemaining() float64 { return m.combo.TimeRemaining() }

// ExtendComboTime grants the chain extra lifetime.
func (m *Machine) ExtendComboTime(seconds float64) { m.combo.Extend(seconds) }

// ResetCombo clears the chain immediately and emits the zero-count update.
func (m *Machine) ResetCombo() {
	m.combo.Reset()
	m.emit(ComboUpdated{Count: 0, Chain: []ActionID{}})
}

// BufferedInputs returns the queued ids oldest-first.
func (m *Machine) BufferedInputs() []ActionID { return m.buffer.Snapshot() }

// ClearInputBuffer discards every queued input.
func (m *Machine) ClearInputBuffer() { m.buffer.Clear() }

// Catalog returns the borrowed read-only catalog.
func (m *Machine) Catalog() *Catalog { return m.catalog }
