package combat

import "errors"

// Error taxonomy. None of these are fatal: the state machine stays in its
// last valid state when any of them is reported.
var (
	// ErrUnknownAction means a requested action id is not in the catalog.
	// The request is dropped (never buffered - it could never drain).
	ErrUnknownAction = errors.New("combat: unknown action")

	// ErrInvalidTiming means an ActionDef carries malformed frame data.
	// Rejected at catalog construction, never seen on the per-frame path.
	ErrInvalidTiming = errors.New("combat: invalid frame timing")

	// ErrNegativeDelta means Tick was called with dt < 0. The call is a
	// no-op; frame time must be non-negative.
	ErrNegativeDelta = errors.New("combat: negative delta time")
)
