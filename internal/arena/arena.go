// Package arena hosts multiple fighters, each driving one combat state
// machine off a shared catalog. The arena owns the tick loop: machines are
// single-writer, so every machine call happens under the arena mutex.
package arena

import (
	"errors"
	"log"
	"sync"
	"time"

	"frameclash/internal/combat"
	"frameclash/internal/config"
)

var (
	ErrFighterExists  = errors.New("arena: fighter already joined")
	ErrUnknownFighter = errors.New("arena: unknown fighter")
	ErrArenaFull      = errors.New("arena: fighter limit reached")
)

// EventSink receives every combat event with its fighter and tick
// coordinates. Sinks run synchronously inside the tick, so they must be
// fast and must not call back into the arena.
type EventSink func(fighter string, tick uint64, ev combat.Event)

// TickObserver receives the wall-clock cost of advancing every fighter one
// host tick. Observers run under the arena mutex; keep them fast.
type TickObserver func(d time.Duration)

// Fighter couples one state machine with the arena-level state the core
// deliberately does not own: style meter and stun.
type Fighter struct {
	Name string

	machine *combat.Machine
	style   *StyleMeter
	sub     *combat.Subscription

	stunRemaining float64
}

// Arena drives every fighter's machine from one loop.
type Arena struct {
	mu sync.RWMutex

	catalog *combat.Catalog
	hidden  []combat.HiddenComboDef
	timing  config.TimingConfig
	limits  config.ResourceLimits

	fighters map[string]*Fighter
	order    []string

	sinks         []EventSink
	tickObservers []TickObserver

	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}
	tickCount uint64
	lastTick  time.Time
}

// New builds an empty arena over a validated catalog.
func New(catalog *combat.Catalog, hidden []combat.HiddenComboDef, timing config.TimingConfig, limits config.ResourceLimits) *Arena {
	return &Arena{
		catalog:  catalog,
		hidden:   hidden,
		timing:   timing,
		limits:   limits,
		fighters: make(map[string]*Fighter),
		stopChan: make(chan struct{}),
	}
}

// AddSink registers an event fanout target (replay journal, metrics,
// broadcast). Register sinks before fighters join so no event is missed.
func (a *Arena) AddSink(sink EventSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, sink)
}

// AddTickObserver registers a tick cost observer (metrics).
func (a *Arena) AddTickObserver(obs TickObserver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tickObservers = append(a.tickObservers, obs)
}

// Start begins the host loop at the configured frame rate. The loop feeds
// each machine the measured wall-clock delta; the machines' accumulators
// turn that variable delta back into fixed frames.
func (a *Arena) Start() {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.lastTick = time.Now()
	// Assigned under the lock: Stop reads the field under the same lock.
	a.ticker = time.NewTicker(time.Duration(float64(time.Second) / a.timing.TargetFrameRate))
	a.mu.Unlock()

	go func() {
		for {
			select {
			case <-a.ticker.C:
				a.tick()
			case <-a.stopChan:
				return
			}
		}
	}()

	log.Printf("arena: started at %.0f fps", a.timing.TargetFrameRate)
}

// Stop halts the host loop.
func (a *Arena) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	a.running = false
	if a.ticker != nil {
		a.ticker.Stop()
	}
	close(a.stopChan)
	log.Println("arena: stopped")
}

func (a *Arena) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	dt := now.Sub(a.lastTick).Seconds()
	a.lastTick = now

	a.advanceLocked(dt)
}

// Advance steps every fighter by dt seconds without the ticker. Used by
// tests and replay drivers that need deterministic time.
func (a *Arena) Advance(dt float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advanceLocked(dt)
}

func (a *Arena) advanceLocked(dt float64) {
	start := time.Now()
	a.tickCount++
	for _, name := range a.order {
		f := a.fighters[name]
		if f.stunRemaining > 0 {
			f.stunRemaining -= dt
			if f.stunRemaining < 0 {
				f.stunRemaining = 0
			}
		}
		if err := f.machine.Tick(dt); err != nil {
			log.Printf("arena: tick failed for %s: %v", name, err)
		}
		f.style.Decay(dt)
	}

	elapsed := time.Since(start)
	for _, obs := range a.tickObservers {
		obs(elapsed)
	}
}

// Join adds a fighter with a fresh machine over the shared catalog.
func (a *Arena) Join(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if name == "" {
		return ErrUnknownFighter
	}
	if _, exists := a.fighters[name]; exists {
		return ErrFighterExists
	}
	if len(a.fighters) >= a.limits.MaxFighters {
		return ErrArenaFull
	}

	f := &Fighter{
		Name: name,
		machine: combat.NewMachine(a.catalog, a.hidden, combat.Config{
			TargetFrameRate:        a.timing.TargetFrameRate,
			BufferWindowSeconds:    a.timing.BufferWindowSeconds,
			ComboResetSeconds:      a.timing.ComboResetSeconds,
			MaxComboChain:          a.timing.MaxComboChain,
			PerfectCancelExtension: a.timing.PerfectCancelExtension,
		}),
		style: &StyleMeter{},
	}
	f.sub = f.machine.Subscribe(func(ev combat.Event) {
		a.handleEvent(f, ev)
	})

	a.fighters[name] = f
	a.order = append(a.order, name)
	log.Printf("arena: %s joined (%d fighters)", name, len(a.fighters))
	return nil
}

// Leave removes a fighter and releases its machine subscription.
func (a *Arena) Leave(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.fighters[name]
	if !ok {
		return ErrUnknownFighter
	}
	f.sub.Cancel()
	delete(a.fighters, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return nil
}

// handleEvent runs inside the machine's synchronous emission, already under
// the arena mutex: it applies arena-level consequences and fans out.
func (a *Arena) handleEvent(f *Fighter, ev combat.Event) {
	switch e := ev.(type) {
	case combat.ActionStarted:
		f.style.Add(e.Def.StylePoints)
	case combat.HiddenComboExecuted:
		f.style.Add(e.Def.BonusStylePoints)
	}

	for _, sink := range a.sinks {
		sink(f.Name, a.tickCount, ev)
	}
}

// RequestAction forwards an action request to the fighter's machine. A
// stunned fighter cannot act; the request is dropped, not buffered.
func (a *Arena) RequestAction(name string, id combat.ActionID) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.fighters[name]
	if !ok {
		return false, ErrUnknownFighter
	}
	if f.stunRemaining > 0 {
		return false, nil
	}
	return f.machine.TryStartAction(id), nil
}

// Stun force-interrupts a fighter for seconds. Hyper armor blocks it: an
// action flagged has_hyper_armor cannot be interrupted during its Active
// phase. Returns whether the stun landed.
func (a *Arena) Stun(name string, seconds float64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.fighters[name]
	if !ok {
		return false, ErrUnknownFighter
	}

	if def, running := f.machine.CurrentDef(); running &&
		def.HasHyperArmor && f.machine.Phase() == combat.PhaseActive {
		return false, nil
	}

	f.machine.ForceEndAction(true)
	f.machine.ClearInputBuffer()
	f.stunRemaining = seconds
	return true, nil
}

// FighterState is a point-in-time view of one fighter for API consumers.
type FighterState struct {
	Name          string            `json:"name"`
	Phase         combat.Phase      `json:"phase"`
	Action        combat.ActionID   `json:"action,omitempty"`
	Frame         int               `json:"frame"`
	PhaseProgress float64           `json:"phaseProgress"`
	ComboCount    int               `json:"comboCount"`
	ComboChain    []combat.ActionID `json:"comboChain"`
	ComboTime     float64           `json:"comboTimeRemaining"`
	Buffered      []combat.ActionID `json:"bufferedInputs"`
	StylePoints   float64           `json:"stylePoints"`
	StyleRating   string            `json:"styleRating"`
	Stunned       bool              `json:"stunned"`
}

// Snapshot is the whole-arena view.
type Snapshot struct {
	Tick     uint64         `json:"tick"`
	Fighters []FighterState `json:"fighters"`
}

// Snapshot captures every fighter's current state in join order.
func (a *Arena) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := Snapshot{
		Tick:     a.tickCount,
		Fighters: make([]FighterState, 0, len(a.order)),
	}
	for _, name := range a.order {
		f := a.fighters[name]
		st := FighterState{
			Name:          name,
			Phase:         f.machine.Phase(),
			Frame:         f.machine.CurrentFrame(),
			PhaseProgress: f.machine.PhaseProgress(),
			ComboCount:    f.machine.ComboCount(),
			ComboChain:    f.machine.ComboChain(),
			ComboTime:     f.machine.ComboTimeRemaining(),
			Buffered:      f.machine.BufferedInputs(),
			StylePoints:   f.style.Points(),
			StyleRating:   f.style.Rating(),
			Stunned:       f.stunRemaining > 0,
		}
		if id, ok := f.machine.CurrentAction(); ok {
			st.Action = id
		}
		snap.Fighters = append(snap.Fighters, st)
	}
	return snap
}

// Catalog returns the shared read-only catalog.
func (a *Arena) Catalog() *combat.Catalog {
	return a.catalog
}

// FighterCount returns the number of joined fighters.
func (a *Arena) FighterCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.fighters)
}

// TickCount returns the number of host ticks since start.
func (a *Arena) TickCount() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tickCount
}
