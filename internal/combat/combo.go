package combat

// ComboTracker keeps the bounded, time-limited history of executed actions.
// All timing is advanced by the machine in frame-duration steps so the
// tracker stays deterministic for a given input timing.
type ComboTracker struct {
	maxLen     int
	resetAfter float64

	chain     []ActionID
	sinceLast float64
}

// NewComboTracker returns a tracker that clears itself when resetAfter
// seconds pass without a new action, evicting the oldest entry beyond
// maxLen.
func NewComboTracker(maxLen int, resetAfter float64) *ComboTracker {
	return &ComboTracker{
		maxLen:     maxLen,
		resetAfter: resetAfter,
		sinceLast:  resetAfter, // no chain yet, timer already expired
	}
}

// Append records an executed action: the reset timer restarts and the id is
// pushed to the end of the chain, evicting the oldest entry on overflow.
func (t *ComboTracker) Append(id ActionID) {
	t.sinceLast = 0
	t.chain = append(t.chain, id)
	if len(t.chain) > t.maxLen {
		t.chain = t.chain[1:]
	}
}

// Advance moves the reset timer forward by dt seconds. It returns true
// exactly once per expiry: when the timer crosses the reset threshold while
// a chain exists, the chain is cleared and the caller emits the zero-count
// update.
func (t *ComboTracker) Advance(dt float64) bool {
	t.sinceLast += dt
	if t.sinceLast >= t.resetAfter && len(t.chain) > 0 {
		t.chain = t.chain[:0]
		return true
	}
	return false
}

// Extend gives the current chain extra time by winding the timer back,
// never below zero. Used for the perfect-cancel bonus.
func (t *ComboTracker) Extend(seconds float64) {
	t.sinceLast -= seconds
	if t.sinceLast < 0 {
		t.sinceLast = 0
	}
}

// TimeRemaining returns the seconds left before the chain resets.
func (t *ComboTracker) TimeRemaining() float64 {
	remaining := t.resetAfter - t.sinceLast
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the chain immediately and forces the timer to expired.
func (t *ComboTracker) Reset() {
	t.chain = t.chain[:0]
	t.sinceLast = t.resetAfter
}

// Count returns the current chain length.
func (t *ComboTracker) Count() int {
	return len(t.chain)
}

// Chain returns a copy of the history, oldest-first.
func (t *ComboTracker) Chain() []ActionID {
	out := make([]ActionID, len(t.chain))
	copy(out, t.chain)
	return out
}

// MatchHidden compares every definition's required sequence against the
// tail of the chain: exact ids, exact order, no gaps or wildcards. The
// first match in registration order wins. Matching only happens on append,
// so an occurrence fires once and never retroactively re-fires.
func (t *ComboTracker) MatchHidden(combos []HiddenComboDef) (HiddenComboDef, bool) {
	for _, combo := range combos {
		if t.matchesTail(combo.Sequence) {
			return combo, true
		}
	}
	return HiddenComboDef{}, false
}

func (t *ComboTracker) matchesTail(seq []ActionID) bool {
	if len(seq) == 0 || len(t.chain) < len(seq) {
		return false
	}
	offset := len(t.chain) - len(seq)
	for i, id := range seq {
		if t.chain[offset+i] != id {
			return false
		}
	}
	return true
}
