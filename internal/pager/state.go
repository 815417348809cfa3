package pager

// Phase is the coarse state of a list.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseLoadingInitial Phase = "loading_initial"
	PhaseLoadingMore    Phase = "loading_more"
	// PhaseError is informational only; every command behaves as in idle.
	PhaseError Phase = "error"
)

// State is an immutable snapshot of a list. Items is a copy owned by the
// caller.
type State[T any, F comparable] struct {
	Items          []T
	Filter         F
	LoadingInitial bool
	LoadingMore    bool
	HasMore        bool
	Next           Cursor
	Err            error
	ErrorMessage   string
	Epoch          uint64
}

// Phase derives the state machine position from the flags.
func (s State[T, F]) Phase() Phase {
	switch {
	case s.LoadingInitial:
		return PhaseLoadingInitial
	case s.LoadingMore:
		return PhaseLoadingMore
	case s.Err != nil:
		return PhaseError
	default:
		return PhaseIdle
	}
}

// Loading reports whether any fetch is in flight.
func (s State[T, F]) Loading() bool {
	return s.LoadingInitial || s.LoadingMore
}
