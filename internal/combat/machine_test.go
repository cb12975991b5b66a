package combat

import (
	"errors"
	"reflect"
	"testing"
)

const testFrame = 1.0 / 60.0

// testCatalog is the fixture used by most machine tests:
//
//	jab      light    12/6/18  window [8,14]  -> straight, hook, uppercut
//	straight heavy    10/4/20  window [6,12]  -> uppercut
//	hook     light     9/5/16  window [5,10]  -> (none)
//	uppercut special  20/8/30  window [2,10]  -> (none)
func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog([]ActionDef{
		{
			ID: "jab", StartupFrames: 12, ActiveFrames: 6, RecoveryFrames: 18,
			CancelWindowStart: 8, CancelWindowEnd: 14,
			CancelInto: []ActionID{"straight", "hook", "uppercut"},
			Priority:   PriorityLight,
		},
		{
			ID: "straight", StartupFrames: 10, ActiveFrames: 4, RecoveryFrames: 20,
			CancelWindowStart: 6, CancelWindowEnd: 12,
			CancelInto: []ActionID{"uppercut"},
			Priority:   PriorityHeavy,
		},
		{
			ID: "hook", StartupFrames: 9, ActiveFrames: 5, RecoveryFrames: 16,
			CancelWindowStart: 5, CancelWindowEnd: 10,
			Priority: PriorityLight,
		},
		{
			ID: "uppercut", StartupFrames: 20, ActiveFrames: 8, RecoveryFrames: 30,
			CancelWindowStart: 2, CancelWindowEnd: 10,
			Priority: PrioritySpecial,
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	return cat
}

func testHidden() []HiddenComboDef {
	return []HiddenComboDef{
		{Name: "one-two", Sequence: []ActionID{"jab", "straight"}, BonusDamageScale: 1.5},
	}
}

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	return NewMachine(testCatalog(t), testHidden(), DefaultConfig())
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.events = append(r.events, ev)
}

func (r *eventRecorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind()
	}
	return out
}

func (r *eventRecorder) count(k EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind() == k {
			n++
		}
	}
	return n
}

func tickFrames(t *testing.T, m *Machine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := m.Tick(testFrame); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
}

// TestFrameDeterminism verifies the accumulator contract: sixty small ticks
// and one big one produce identical event streams and identical final state.
func TestFrameDeterminism(t *testing.T) {
	m1 := newTestMachine(t)
	m2 := newTestMachine(t)
	r1 := &eventRecorder{}
	r2 := &eventRecorder{}
	m1.Subscribe(r1.record)
	m2.Subscribe(r2.record)

	m1.TryStartAction("jab")
	m2.TryStartAction("jab")

	tickFrames(t, m1, 60)
	if err := m2.Tick(1.0); err != nil {
		t.Fatalf("Tick(1.0) failed: %v", err)
	}

	if !reflect.DeepEqual(r1.events, r2.events) {
		t.Fatalf("event streams diverged:\n sliced: %v\n single: %v", r1.kinds(), r2.kinds())
	}
	if m1.Phase() != m2.Phase() || m1.CurrentFrame() != m2.CurrentFrame() {
		t.Fatalf("state diverged: (%v, %d) vs (%v, %d)",
			m1.Phase(), m1.CurrentFrame(), m2.Phase(), m2.CurrentFrame())
	}
}

// TestBufferedInputSurvivesCatchUpTick verifies buffered inputs age in frame
// time: a stall delivered as one large delta must drain the buffer at the
// same frame a smooth run of small deltas does, with identical events and
// identical final state.
func TestBufferedInputSurvivesCatchUpTick(t *testing.T) {
	m1 := newTestMachine(t)
	m2 := newTestMachine(t)
	r1 := &eventRecorder{}
	r2 := &eventRecorder{}
	m1.Subscribe(r1.record)
	m2.Subscribe(r2.record)

	// jab starts at t=0; straight is illegal at frame 0 and gets buffered.
	// It becomes a legal cancel at frame 8 (0.133s in), well inside the
	// buffer window, and must drain there on both machines.
	for _, m := range []*Machine{m1, m2} {
		m.TryStartAction("jab")
		m.RequestAction("straight", 0)
	}

	tickFrames(t, m1, 24)
	if err := m2.Tick(24.0 / 60.0); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	if !reflect.DeepEqual(r1.events, r2.events) {
		t.Fatalf("event streams diverged:\n sliced: %v\n single: %v", r1.kinds(), r2.kinds())
	}
	id1, _ := m1.CurrentAction()
	id2, _ := m2.CurrentAction()
	if id1 != id2 || m1.Phase() != m2.Phase() || m1.CurrentFrame() != m2.CurrentFrame() {
		t.Fatalf("state diverged: (%q, %v, %d) vs (%q, %v, %d)",
			id1, m1.Phase(), m1.CurrentFrame(), id2, m2.Phase(), m2.CurrentFrame())
	}
	if id1 != "straight" {
		t.Fatalf("buffered cancel never drained, running %q in %v", id1, m1.Phase())
	}
	if m1.Phase() != PhaseRecovery || m1.CurrentFrame() != 16 {
		t.Fatalf("drain happened at the wrong frame: %v frame %d", m1.Phase(), m1.CurrentFrame())
	}
}

// TestSubFrameAccumulation verifies ticks smaller than one frame are banked,
// not dropped and not rounded up.
func TestSubFrameAccumulation(t *testing.T) {
	m := newTestMachine(t)
	m.TryStartAction("jab")

	if err := m.Tick(0.01); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if m.CurrentFrame() != 0 {
		t.Fatalf("frame advanced on a sub-frame tick: %d", m.CurrentFrame())
	}

	if err := m.Tick(0.01); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if m.CurrentFrame() != 1 {
		t.Fatalf("banked time not applied, frame = %d, want 1", m.CurrentFrame())
	}
}

func TestNegativeDelta(t *testing.T) {
	m := newTestMachine(t)
	if err := m.Tick(-0.01); !errors.Is(err, ErrNegativeDelta) {
		t.Fatalf("Tick(-0.01) = %v, want ErrNegativeDelta", err)
	}
	if m.Clock() != 0 || m.Phase() != PhaseIdle {
		t.Fatal("rejected tick mutated state")
	}
}

// TestPhaseWalkthrough verifies the natural life of an action: Startup for 12
// frames, Active for 6, Recovery for 18, then Idle with the frame counter
// reset.
func TestPhaseWalkthrough(t *testing.T) {
	m := newTestMachine(t)
	if !m.TryStartAction("jab") {
		t.Fatal("TryStartAction(jab) failed from Idle")
	}
	if m.Phase() != PhaseStartup || m.CurrentFrame() != 0 {
		t.Fatalf("after start: (%v, %d), want (startup, 0)", m.Phase(), m.CurrentFrame())
	}

	tickFrames(t, m, 11)
	if m.Phase() != PhaseStartup {
		t.Fatalf("frame 11 phase = %v, want startup", m.Phase())
	}

	tickFrames(t, m, 1)
	if m.Phase() != PhaseActive || m.CurrentFrame() != 12 {
		t.Fatalf("frame 12: (%v, %d), want (active, 12)", m.Phase(), m.CurrentFrame())
	}

	tickFrames(t, m, 6)
	if m.Phase() != PhaseRecovery {
		t.Fatalf("frame 18 phase = %v, want recovery", m.Phase())
	}

	tickFrames(t, m, 18)
	if m.Phase() != PhaseIdle {
		t.Fatalf("frame 36 phase = %v, want idle", m.Phase())
	}
	if _, ok := m.CurrentAction(); ok {
		t.Fatal("action still reported after natural end")
	}
	if m.CurrentFrame() != 0 {
		t.Fatalf("frame counter not reset after end: %d", m.CurrentFrame())
	}
}

func TestUnknownActionDropped(t *testing.T) {
	m := newTestMachine(t)
	if m.TryStartAction("phantom") {
		t.Fatal("unknown action started")
	}
	if m.Phase() != PhaseIdle {
		t.Fatalf("phase = %v, want idle", m.Phase())
	}
	if got := m.BufferedInputs(); len(got) != 0 {
		t.Fatalf("unknown action was buffered: %v", got)
	}
}

// TestCancelEndToEnd walks the full interrupt path: jab is canceled into
// straight inside the window, ActionEnded precedes ActionStarted within the
// same call, and the combo chain reads [jab, straight].
func TestCancelEndToEnd(t *testing.T) {
	m := newTestMachine(t)
	m.TryStartAction("jab")
	tickFrames(t, m, 13) // frame 13: inside [8,14], past the perfect frames

	r := &eventRecorder{}
	m.Subscribe(r.record)
	if !m.TryStartAction("straight") {
		t.Fatal("legal cancel rejected")
	}

	wantKinds := []EventKind{
		EventPhaseChanged, // active -> canceling
		EventActionEnded,
		EventComboUpdated,
		EventHiddenCombo, // [jab, straight] matches one-two
		EventPhaseChanged, // canceling -> startup
		EventActionStarted,
	}
	if !reflect.DeepEqual(r.kinds(), wantKinds) {
		t.Fatalf("event order = %v, want %v", r.kinds(), wantKinds)
	}

	ended := r.events[1].(ActionEnded)
	if ended.Action != "jab" || !ended.WasCanceled {
		t.Fatalf("ActionEnded = %+v, want jab canceled", ended)
	}
	started := r.events[5].(ActionStarted)
	if started.Action != "straight" {
		t.Fatalf("ActionStarted = %+v, want straight", started)
	}

	if m.Phase() != PhaseStartup || m.CurrentFrame() != 0 {
		t.Fatalf("after cancel: (%v, %d), want (startup, 0)", m.Phase(), m.CurrentFrame())
	}
	if got := m.ComboChain(); !reflect.DeepEqual(got, []ActionID{"jab", "straight"}) {
		t.Fatalf("chain = %v, want [jab straight]", got)
	}
	if r.count(EventPerfectCancel) != 0 {
		t.Fatal("frame 13 cancel reported as perfect")
	}
}

// TestPerfectCancelBonus verifies a cancel inside the first frames of the
// window emits PerfectCancel before the transition events.
func TestPerfectCancelBonus(t *testing.T) {
	m := newTestMachine(t)
	m.TryStartAction("jab")
	tickFrames(t, m, 9) // frame 9: one frame into the window

	r := &eventRecorder{}
	m.Subscribe(r.record)
	if !m.TryStartAction("straight") {
		t.Fatal("legal cancel rejected")
	}

	if len(r.events) == 0 || r.events[0].Kind() != EventPerfectCancel {
		t.Fatalf("first event = %v, want perfect_cancel", r.kinds())
	}
	pc := r.events[0].(PerfectCancel)
	if pc.CanceledInto != "straight" {
		t.Fatalf("PerfectCancel into %q, want straight", pc.CanceledInto)
	}
}

// TestEqualPriorityBuffered verifies a same-priority request inside the
// window is deferred, never executed.
func TestEqualPriorityBuffered(t *testing.T) {
	m := newTestMachine(t)
	m.TryStartAction("jab")
	tickFrames(t, m, 9)

	if m.TryStartAction("hook") {
		t.Fatal("equal-priority cancel succeeded")
	}
	if id, _ := m.CurrentAction(); id != "jab" {
		t.Fatalf("current action = %q, want jab", id)
	}
	if got := m.BufferedInputs(); len(got) != 1 || got[0] != "hook" {
		t.Fatalf("buffer = %v, want [hook]", got)
	}
}

// TestBufferedCancelDrains verifies an early illegal request executes later
// from the buffer once the window opens.
func TestBufferedCancelDrains(t *testing.T) {
	m := newTestMachine(t)
	r := &eventRecorder{}
	m.Subscribe(r.record)

	m.TryStartAction("jab")
	tickFrames(t, m, 2)
	if m.TryStartAction("straight") {
		t.Fatal("cancel before the window should be deferred")
	}

	tickFrames(t, m, 6) // frame 8: window opens, buffer drains
	if id, _ := m.CurrentAction(); id != "straight" {
		t.Fatalf("current action = %q, want straight from the buffer", id)
	}
	if len(m.BufferedInputs()) != 0 {
		t.Fatal("buffer not cleared after drain")
	}
	// drained on the window's first frame
	if r.count(EventPerfectCancel) != 1 {
		t.Fatal("drain at the window start should be a perfect cancel")
	}
}

// TestBufferedMostRecentWins verifies that with two deferred inputs the
// later one executes when the window opens.
func TestBufferedMostRecentWins(t *testing.T) {
	m := newTestMachine(t)
	m.TryStartAction("jab")
	tickFrames(t, m, 2)

	m.TryStartAction("straight")
	m.TryStartAction("uppercut")

	tickFrames(t, m, 6)
	if id, _ := m.CurrentAction(); id != "uppercut" {
		t.Fatalf("current action = %q, want uppercut (most recent)", id)
	}
	if len(m.BufferedInputs()) != 0 {
		t.Fatal("buffer not cleared after drain")
	}
}

// TestBufferedInputExpires verifies an input older than the window is gone by
// the time it first becomes legal.
func TestBufferedInputExpires(t *testing.T) {
	cat, err := NewCatalog([]ActionDef{
		{
			ID: "slam", StartupFrames: 30, ActiveFrames: 6, RecoveryFrames: 20,
			CancelWindowStart: 20, CancelWindowEnd: 26,
			CancelInto: []ActionID{"counter"},
			Priority:   PriorityLight,
		},
		{
			ID: "counter", StartupFrames: 8, ActiveFrames: 4, RecoveryFrames: 12,
			CancelWindowStart: 4, CancelWindowEnd: 10,
			Priority: PriorityHeavy,
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	m := NewMachine(cat, nil, DefaultConfig())

	m.TryStartAction("slam")
	m.TryStartAction("counter") // buffered at t=0

	// the window opens at frame 20 = 0.33s, past the 0.2s buffer window
	tickFrames(t, m, 20)
	if id, _ := m.CurrentAction(); id != "slam" {
		t.Fatalf("current action = %q, expired input should not cancel", id)
	}
	if len(m.BufferedInputs()) != 0 {
		t.Fatal("expired input still buffered")
	}
}

// TestComboResetEmitsOnce verifies exactly one zero-count ComboUpdated over a
// long idle stretch.
func TestComboResetEmitsOnce(t *testing.T) {
	m := newTestMachine(t)
	r := &eventRecorder{}
	m.Subscribe(r.record)

	m.TryStartAction("jab")
	tickFrames(t, m, 300) // 5 seconds, action ends at 0.6s

	zero := 0
	for _, ev := range r.events {
		if cu, ok := ev.(ComboUpdated); ok && cu.Count == 0 {
			zero++
			if len(cu.Chain) != 0 {
				t.Fatalf("zero-count update carries a chain: %v", cu.Chain)
			}
		}
	}
	if zero != 1 {
		t.Fatalf("zero-count ComboUpdated emitted %d times, want exactly 1", zero)
	}
	if m.ComboCount() != 0 {
		t.Fatalf("ComboCount = %d after reset, want 0", m.ComboCount())
	}
}

// TestHiddenComboFiresOnceOnAppend verifies the match happens on append only
// and never re-fires while the matched tail merely persists.
func TestHiddenComboFiresOnceOnAppend(t *testing.T) {
	m := newTestMachine(t)
	r := &eventRecorder{}
	m.Subscribe(r.record)

	m.TryStartAction("jab")
	tickFrames(t, m, 9)
	m.TryStartAction("straight") // chain [jab, straight]: one-two fires

	tickFrames(t, m, 34) // straight runs to completion
	m.TryStartAction("hook")

	if got := r.count(EventHiddenCombo); got != 1 {
		t.Fatalf("hidden combo fired %d times, want 1", got)
	}
	hc := func() HiddenComboExecuted {
		for _, ev := range r.events {
			if h, ok := ev.(HiddenComboExecuted); ok {
				return h
			}
		}
		t.Fatal("no hidden combo event recorded")
		return HiddenComboExecuted{}
	}()
	if hc.Name != "one-two" || hc.Def.BonusDamageScale != 1.5 {
		t.Fatalf("hidden combo payload = %+v", hc)
	}
}

func TestCancelOptions(t *testing.T) {
	m := newTestMachine(t)
	m.TryStartAction("jab")

	tickFrames(t, m, 5)
	if got := m.CancelOptions(); got != nil {
		t.Fatalf("options outside the window = %v, want none", got)
	}

	tickFrames(t, m, 4) // frame 9, inside the window
	got := m.CancelOptions()
	want := []ActionID{"straight", "uppercut"} // hook ties on priority
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CancelOptions = %v, want %v", got, want)
	}
}

// TestForceEndAction verifies the escape hatch emits the normal event pair.
func TestForceEndAction(t *testing.T) {
	m := newTestMachine(t)
	m.TryStartAction("jab")
	tickFrames(t, m, 5)

	r := &eventRecorder{}
	m.Subscribe(r.record)
	m.ForceEndAction(false)

	wantKinds := []EventKind{EventPhaseChanged, EventActionEnded}
	if !reflect.DeepEqual(r.kinds(), wantKinds) {
		t.Fatalf("event order = %v, want %v", r.kinds(), wantKinds)
	}
	ended := r.events[1].(ActionEnded)
	if ended.Action != "jab" || ended.WasCanceled {
		t.Fatalf("ActionEnded = %+v, want jab not canceled", ended)
	}
	if m.Phase() != PhaseIdle || m.CurrentFrame() != 0 {
		t.Fatalf("after force end: (%v, %d), want (idle, 0)", m.Phase(), m.CurrentFrame())
	}
}

// TestForcedCancelingDecays verifies a forced Canceling phase ends the action
// as canceled, holds for its fixed frames, then drains to Idle.
func TestForcedCancelingDecays(t *testing.T) {
	m := newTestMachine(t)
	r := &eventRecorder{}
	m.Subscribe(r.record)

	m.TryStartAction("jab")
	tickFrames(t, m, 5)
	m.ForceSetState(PhaseCanceling)

	if m.Phase() != PhaseCanceling {
		t.Fatalf("phase = %v, want canceling", m.Phase())
	}
	if r.count(EventActionEnded) != 1 {
		t.Fatal("forcing Canceling did not end the running action")
	}

	tickFrames(t, m, 2)
	if m.Phase() != PhaseCanceling {
		t.Fatalf("phase after 2 frames = %v, want canceling", m.Phase())
	}
	tickFrames(t, m, 1)
	if m.Phase() != PhaseIdle {
		t.Fatalf("phase after 3 frames = %v, want idle", m.Phase())
	}
}

func TestResetComboEmits(t *testing.T) {
	m := newTestMachine(t)
	m.TryStartAction("jab")

	r := &eventRecorder{}
	m.Subscribe(r.record)
	m.ResetCombo()

	if m.ComboCount() != 0 {
		t.Fatalf("ComboCount = %d, want 0", m.ComboCount())
	}
	if r.count(EventComboUpdated) != 1 {
		t.Fatalf("ResetCombo emitted %d updates, want 1", r.count(EventComboUpdated))
	}
}

// TestSubscriptionCancel verifies a released listener receives nothing and a
// double release is harmless.
func TestSubscriptionCancel(t *testing.T) {
	m := newTestMachine(t)
	r := &eventRecorder{}
	sub := m.Subscribe(r.record)

	sub.Cancel()
	sub.Cancel()

	m.TryStartAction("jab")
	tickFrames(t, m, 40)

	if len(r.events) != 0 {
		t.Fatalf("canceled subscription received %d events", len(r.events))
	}
}

// TestIndependentInstances verifies two machines over the same catalog share
// no state.
func TestIndependentInstances(t *testing.T) {
	cat := testCatalog(t)
	m1 := NewMachine(cat, nil, DefaultConfig())
	m2 := NewMachine(cat, nil, DefaultConfig())

	m1.TryStartAction("jab")
	tickFrames(t, m1, 10)

	if m2.Phase() != PhaseIdle || m2.CurrentFrame() != 0 || m2.ComboCount() != 0 {
		t.Fatal("second instance observed the first instance's activity")
	}
}

func TestPhaseProgress(t *testing.T) {
	m := newTestMachine(t)
	if m.PhaseProgress() != 0 {
		t.Fatalf("idle progress = %v, want 0", m.PhaseProgress())
	}

	m.TryStartAction("jab")
	tickFrames(t, m, 6) // frame 6 of 12 startup frames
	if got := m.PhaseProgress(); got != 0.5 {
		t.Fatalf("startup progress at frame 6 = %v, want 0.5", got)
	}

	tickFrames(t, m, 9) // frame 15: 3 of 6 active frames
	if got := m.PhaseProgress(); got != 0.5 {
		t.Fatalf("active progress at frame 15 = %v, want 0.5", got)
	}
}
