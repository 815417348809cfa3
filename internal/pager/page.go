package pager

import "context"

// Page is one slice of a paged resource.
//
// Next is the cursor the API handed out for the following page. When the API
// echoes no token but more rows exist, a fetcher leaves Next empty and sets
// HasMore; the list then asks for the next page number instead.
type Page[T any] struct {
	Items   []T
	Next    Cursor
	HasMore bool
}

// FetchFunc loads the page that cursor points at for filter.
type FetchFunc[T any, F comparable] func(ctx context.Context, filter F, cursor Cursor) (Page[T], error)

// RequestKind separates page-1 loads from incremental loads.
type RequestKind uint8

const (
	KindInitial RequestKind = iota + 1
	KindMore
)

func (k RequestKind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindMore:
		return "more"
	default:
		return "unknown"
	}
}

// Request describes one fetch dispatched by a List. Epoch identifies the
// filter epoch the request belongs to, Seq the request itself.
type Request[F comparable] struct {
	Kind   RequestKind
	Epoch  uint64
	Seq    uint64
	Filter F
	Cursor Cursor
}

// Response pairs a Request with what the fetch returned.
type Response[T any, F comparable] struct {
	Request Request[F]
	Page    Page[T]
	Err     error
}

// Outcome reports what happened to a command or a response.
type Outcome uint8

const (
	// OutcomeIgnored means the command was a no-op and nothing was fetched.
	OutcomeIgnored Outcome = iota
	// OutcomeApplied means the response was merged into the list.
	OutcomeApplied
	// OutcomeFailed means the fetch failed and the error was recorded.
	OutcomeFailed
	// OutcomeStale means a newer request superseded this one and the
	// response was dropped.
	OutcomeStale
	// OutcomeClosed means the controller shut down first.
	OutcomeClosed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	case OutcomeStale:
		return "stale"
	case OutcomeClosed:
		return "closed"
	default:
		return "unknown"
	}
}
