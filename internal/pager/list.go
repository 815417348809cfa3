package pager

import "slices"

// List is the single-owner pagination state machine. It never performs I/O:
// Begin* methods return the Request the owner must dispatch, and Apply merges
// the matching Response. A List is not safe for concurrent use; the owner
// (a Controller goroutine or a bubbletea Update loop) serializes all calls.
type List[T any, F comparable] struct {
	items          []T
	filter         F
	loadingInitial bool
	loadingMore    bool
	hasMore        bool
	next           Cursor
	lastPage       int
	err            error

	epoch    uint64
	seq      uint64
	inflight *Request[F]

	message func(error) string
}

// ListOption configures a List.
type ListOption func(*listOptions)

type listOptions struct {
	message func(error) string
}

// WithMessages sets the function that turns fetch errors into user-facing
// text. The default is err.Error().
func WithMessages(fn func(error) string) ListOption {
	return func(o *listOptions) {
		if fn != nil {
			o.message = fn
		}
	}
}

// NewList returns an empty list bound to filter. Nothing is fetched until
// the owner calls BeginReload.
func NewList[T any, F comparable](filter F, opts ...ListOption) *List[T, F] {
	o := listOptions{message: func(err error) string { return err.Error() }}
	for _, opt := range opts {
		opt(&o)
	}
	return &List[T, F]{
		items:   []T{},
		filter:  filter,
		message: o.message,
	}
}

// BeginReload starts a page-1 load for the current filter. It is a no-op
// while a page-1 load is already in flight.
func (l *List[T, F]) BeginReload() (Request[F], bool) {
	if l.loadingInitial {
		return Request[F]{}, false
	}
	return l.restart(l.filter), true
}

// BeginSetFilter switches to filter and starts its page-1 load. The filter
// is updated before the request exists, so any response from an earlier
// epoch is stale by the time it arrives. Asking for the filter whose page-1
// load is already in flight is a no-op.
func (l *List[T, F]) BeginSetFilter(filter F) (Request[F], bool) {
	if l.loadingInitial && filter == l.filter {
		return Request[F]{}, false
	}
	return l.restart(filter), true
}

func (l *List[T, F]) restart(filter F) Request[F] {
	l.epoch++
	l.seq++
	l.filter = filter
	l.items = []T{}
	l.next = NoCursor
	l.hasMore = false
	l.lastPage = 0
	l.err = nil
	l.loadingInitial = true
	l.loadingMore = false

	req := Request[F]{
		Kind:   KindInitial,
		Epoch:  l.epoch,
		Seq:    l.seq,
		Filter: filter,
		Cursor: FirstPage(),
	}
	l.inflight = &req
	return req
}

// BeginLoadMore starts a load of the next page. It is a no-op while any load
// is in flight or when the feed has no further pages.
func (l *List[T, F]) BeginLoadMore() (Request[F], bool) {
	if l.loadingInitial || l.loadingMore || !l.hasMore || l.next.IsNone() {
		return Request[F]{}, false
	}
	l.seq++
	l.err = nil
	l.loadingMore = true

	req := Request[F]{
		Kind:   KindMore,
		Epoch:  l.epoch,
		Seq:    l.seq,
		Filter: l.filter,
		Cursor: l.next,
	}
	l.inflight = &req
	return req, true
}

// Apply merges resp into the list. Responses that do not match the request
// currently in flight are dropped and reported as OutcomeStale.
func (l *List[T, F]) Apply(resp Response[T, F]) Outcome {
	req := resp.Request
	if l.inflight == nil || req.Epoch != l.epoch || req.Seq != l.inflight.Seq {
		return OutcomeStale
	}
	l.inflight = nil

	switch req.Kind {
	case KindInitial:
		l.loadingInitial = false
		if resp.Err != nil {
			l.err = resp.Err
			l.items = []T{}
			l.hasMore = false
			l.next = NoCursor
			return OutcomeFailed
		}
		l.items = slices.Clone(resp.Page.Items)
		if l.items == nil {
			l.items = []T{}
		}
	case KindMore:
		l.loadingMore = false
		if resp.Err != nil {
			l.err = resp.Err
			return OutcomeFailed
		}
		l.items = append(l.items, resp.Page.Items...)
	default:
		return OutcomeStale
	}

	l.advance(req.Cursor, resp.Page)
	return OutcomeApplied
}

// advance moves the cursor past the page that was just merged. A token from
// the API always wins; the page counter is only used when the API signals
// more rows without handing out a token.
func (l *List[T, F]) advance(requested Cursor, page Page[T]) {
	if n, ok := requested.PageValue(); ok {
		l.lastPage = n
	} else {
		l.lastPage++
	}

	switch {
	case !page.Next.IsNone():
		l.next = page.Next
		l.hasMore = true
	case page.HasMore:
		l.next = PageNumber(l.lastPage + 1)
		l.hasMore = true
	default:
		l.next = NoCursor
		l.hasMore = false
	}
}

// Filter returns the current filter.
func (l *List[T, F]) Filter() F {
	return l.filter
}

// Len returns the number of accumulated items.
func (l *List[T, F]) Len() int {
	return len(l.items)
}

// Loading reports whether a fetch is in flight.
func (l *List[T, F]) Loading() bool {
	return l.loadingInitial || l.loadingMore
}

// Err returns the error of the last settled fetch, if it failed.
func (l *List[T, F]) Err() error {
	return l.err
}

// Item returns the i-th accumulated item.
func (l *List[T, F]) Item(i int) (T, bool) {
	if i < 0 || i >= len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[i], true
}

// Epoch returns the current filter epoch. It is zero until the first load
// starts.
func (l *List[T, F]) Epoch() uint64 {
	return l.epoch
}

// Snapshot copies the list into a State.
func (l *List[T, F]) Snapshot() State[T, F] {
	s := State[T, F]{
		Items:          slices.Clone(l.items),
		Filter:         l.filter,
		LoadingInitial: l.loadingInitial,
		LoadingMore:    l.loadingMore,
		HasMore:        l.hasMore,
		Next:           l.next,
		Err:            l.err,
		Epoch:          l.epoch,
	}
	if s.Items == nil {
		s.Items = []T{}
	}
	if l.err != nil {
		s.ErrorMessage = l.message(l.err)
	}
	return s
}
