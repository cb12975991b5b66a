package combat

// bufferedInput pairs a requested action with the time it was requested.
type bufferedInput struct {
	id ActionID
	at float64
}

// InputBuffer holds recently requested action ids that could not execute
// immediately. Entries expire after the configured window; duplicates are
// kept because recency decides which queued input wins.
type InputBuffer struct {
	window  float64
	entries []bufferedInput
}

// NewInputBuffer returns a buffer whose entries expire after window seconds.
func NewInputBuffer(window float64) *InputBuffer {
	return &InputBuffer{window: window}
}

// Push appends unconditionally; most-recent-last.
func (b *InputBuffer) Push(id ActionID, now float64) {
	b.entries = append(b.entries, bufferedInput{id: id, at: now})
}

// Drain discards expired entries, then scans the remaining buffer from
// most-recent to oldest and returns the first id accepted by ok. On a match
// the whole buffer is cleared: a consumed input does not linger for future
// attempts. With no match the aged buffer is kept for the next frame.
//
// Most-recent-first is deliberate: when several inputs are queued, the
// player's latest intent wins.
func (b *InputBuffer) Drain(now float64, ok func(ActionID) bool) (ActionID, bool) {
	b.expire(now)
	for i := len(b.entries) - 1; i >= 0; i-- {
		if ok(b.entries[i].id) {
			id := b.entries[i].id
			b.Clear()
			return id, true
		}
	}
	return "", false
}

// expire drops entries older than the buffer window, in place.
func (b *InputBuffer) expire(now float64) {
	n := 0
	for _, e := range b.entries {
		if now-e.at <= b.window {
			b.entries[n] = e
			n++
		}
	}
	b.entries = b.entries[:n]
}

// Clear removes every buffered input.
func (b *InputBuffer) Clear() {
	b.entries = b.entries[:0]
}

// Len returns the number of buffered inputs, including not-yet-expired ones.
func (b *InputBuffer) Len() int {
	return len(b.entries)
}

// Snapshot returns the buffered ids oldest-first, for state queries.
func (b *InputBuffer) Snapshot() []ActionID {
	out := make([]ActionID, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.id
	}
	return out
}
