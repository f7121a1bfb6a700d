package progress

import "errors"

// Errors surfaced by the engine and the milestone state machine. Handlers map
// these onto HTTP statuses; see internal/handler.
var (
	// ErrPlanInvalid marks a malformed or order-violating plan tree.
	ErrPlanInvalid = errors.New("invalid roadmap plan")

	// ErrMilestoneLocked is returned when a transition is attempted on a
	// milestone whose predecessors are not yet completed or skipped.
	ErrMilestoneLocked = errors.New("milestone is locked")

	// ErrIllegalTransition marks a status change the state machine forbids.
	ErrIllegalTransition = errors.New("illegal milestone transition")

	// ErrQuizNotPassed rejects completing a quiz milestone without a passing result.
	ErrQuizNotPassed = errors.New("quiz milestone requires a passing result")

	// ErrMilestoneBusy signals another milestone in the roadmap is already in progress.
	ErrMilestoneBusy = errors.New("another milestone is already in progress")

	// ErrInconsistentState reports a stored in_progress row found past an
	// incomplete gate. The engine refuses to silently repair it.
	ErrInconsistentState = errors.New("stored progress contradicts unlock order")
)
