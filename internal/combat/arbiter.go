package combat

// Cancel arbitration is stateless: every decision is a pure function of the
// current definition, the current frame and the catalog.

const (
	// CancelingFrames is how long the Canceling phase lasts before it
	// drains back to Idle when no new action supersedes it.
	CancelingFrames = 3

	// PerfectCancelFrames bounds the perfect-cancel bonus: a cancel within
	// the first PerfectCancelFrames+1 frames of the window is perfect.
	PerfectCancelFrames = 3
)

// CanCancel decides whether the running action may legally be canceled into
// requested at frame. All four rules must hold:
//
//  1. frame lies inside current's cancel window (inclusive both ends)
//  2. requested is listed in current's cancel targets
//  3. requested resolves to a known definition
//  4. requested has strictly greater priority - equal priority never
//     interrupts, in either direction
func CanCancel(current *ActionDef, frame int, requested ActionID, catalog *Catalog) bool {
	if !current.InCancelWindow(frame) {
		return false
	}
	if !current.CanCancelInto(requested) {
		return false
	}
	target, ok := catalog.Get(requested)
	if !ok {
		return false
	}
	return target.Priority > current.Priority
}

// IsPerfectCancel reports whether a cancel at frame lands in the first
// frames of current's cancel window. It never gates legality, it only
// triggers the bonus event and the combo-timer extension.
func IsPerfectCancel(current *ActionDef, frame int) bool {
	intoWindow := frame - current.CancelWindowStart
	return intoWindow >= 0 && intoWindow <= PerfectCancelFrames
}
