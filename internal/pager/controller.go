package pager

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/rawgdex/internal/logger"
)

// Recorder receives pager events, typically to feed metrics.
type Recorder interface {
	Issued(feed string, kind RequestKind)
	Finished(feed string, kind RequestKind, outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) Issued(string, RequestKind)            {}
func (nopRecorder) Finished(string, RequestKind, Outcome) {}

// Options configures a Controller.
type Options struct {
	// Name labels logs and metrics, usually the feed ID.
	Name string
	// FetchTimeout bounds each fetch. Zero means no timeout.
	FetchTimeout time.Duration
	// Message turns fetch errors into user-facing text.
	Message  func(error) string
	Recorder Recorder
	Logger   *logger.Logger
}

// Result is delivered on the channel returned by each command.
type Result[T any, F comparable] struct {
	State   State[T, F]
	Outcome Outcome
}

type waiter[T any, F comparable] struct {
	kind RequestKind
	ch   chan Result[T, F]
}

// Controller runs a List on its own goroutine. Commands and fetch
// completions are funneled onto that goroutine, which is the only writer of
// the list. Commands never block on the network; each returns a channel that
// receives exactly one Result once the command's request settles.
type Controller[T any, F comparable] struct {
	name    string
	fetch   FetchFunc[T, F]
	list    *List[T, F]
	timeout time.Duration
	rec     Recorder
	log     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan func()
	done   chan struct{}

	// owned by the loop goroutine
	waiters map[uint64]waiter[T, F]
	subs    map[int]chan State[T, F]
	nextSub int
}

// NewController starts a controller for fetch bound to filter. It does not
// load anything until Reload or SetFilter is called.
// Parameters:
//   - fetch: page loader for the feed.
//   - filter: initial filter.
//   - opts: naming, timeout, message mapping, metrics and logging.
//
// Returns:
//   - *Controller: running controller; call Close to stop it.
func NewController[T any, F comparable](fetch FetchFunc[T, F], filter F, opts Options) *Controller[T, F] {
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetDefault()
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller[T, F]{
		name:    opts.Name,
		fetch:   fetch,
		list:    NewList[T](filter, WithMessages(opts.Message)),
		timeout: opts.FetchTimeout,
		rec:     opts.Recorder,
		log: opts.Logger.WithFields(logger.Fields{
			logger.FieldComponent: "pager",
			logger.FieldFeed:      opts.Name,
		}),
		ctx:     ctx,
		cancel:  cancel,
		cmds:    make(chan func()),
		done:    make(chan struct{}),
		waiters: make(map[uint64]waiter[T, F]),
		subs:    make(map[int]chan State[T, F]),
	}
	go c.loop()
	return c
}

func (c *Controller[T, F]) loop() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.ctx.Done():
			final := c.list.Snapshot()
			for seq, w := range c.waiters {
				c.rec.Finished(c.name, w.kind, OutcomeClosed)
				w.ch <- Result[T, F]{State: final, Outcome: OutcomeClosed}
				delete(c.waiters, seq)
			}
			for id, ch := range c.subs {
				close(ch)
				delete(c.subs, id)
			}
			return
		}
	}
}

// do runs fn on the loop goroutine. It returns false once the controller
// is closed. The channel is unbuffered, so a successful send means the loop
// has taken fn and will run it.
func (c *Controller[T, F]) do(fn func()) bool {
	select {
	case c.cmds <- fn:
		return true
	case <-c.done:
		return false
	}
}

// Reload refetches page 1 for the current filter. It is ignored while a
// page-1 load is in flight.
func (c *Controller[T, F]) Reload() <-chan Result[T, F] {
	return c.submit(KindInitial, func() (Request[F], bool) { return c.list.BeginReload() })
}

// SetFilter switches the filter and reloads. The latest filter always wins;
// responses for earlier filters are dropped.
func (c *Controller[T, F]) SetFilter(filter F) <-chan Result[T, F] {
	return c.submit(KindInitial, func() (Request[F], bool) { return c.list.BeginSetFilter(filter) })
}

// LoadMore fetches the next page. It is ignored while any load is in flight
// and when the feed is exhausted.
func (c *Controller[T, F]) LoadMore() <-chan Result[T, F] {
	return c.submit(KindMore, func() (Request[F], bool) { return c.list.BeginLoadMore() })
}

func (c *Controller[T, F]) submit(kind RequestKind, begin func() (Request[F], bool)) <-chan Result[T, F] {
	out := make(chan Result[T, F], 1)
	ok := c.do(func() {
		req, issued := begin()
		if !issued {
			c.rec.Finished(c.name, kind, OutcomeIgnored)
			out <- Result[T, F]{State: c.list.Snapshot(), Outcome: OutcomeIgnored}
			return
		}
		c.rec.Issued(c.name, req.Kind)
		c.waiters[req.Seq] = waiter[T, F]{kind: req.Kind, ch: out}
		c.publish()
		go c.run(req)
	})
	if !ok {
		out <- Result[T, F]{State: c.finalState(), Outcome: OutcomeClosed}
	}
	return out
}

func (c *Controller[T, F]) run(req Request[F]) {
	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx = c.log.WithContext(ctx)

	start := time.Now()
	page, err := c.fetch(ctx, req.Filter, req.Cursor)
	elapsed := time.Since(start)

	c.do(func() {
		c.apply(Response[T, F]{Request: req, Page: page, Err: err}, elapsed)
	})
}

func (c *Controller[T, F]) apply(resp Response[T, F], elapsed time.Duration) {
	req := resp.Request
	outcome := c.list.Apply(resp)
	c.rec.Finished(c.name, req.Kind, outcome)

	entry := logger.With(logger.Fields{
		logger.FieldDurationMs: elapsed.Milliseconds(),
		logger.FieldOutcome:    outcome.String(),
		"kind":                 req.Kind.String(),
		"cursor":               req.Cursor.String(),
	})
	ctx := c.log.WithContext(context.Background())
	switch outcome {
	case OutcomeApplied:
		entry.WithCount(len(resp.Page.Items)).Debug(ctx, "Page applied")
	case OutcomeFailed:
		entry.With(logger.Fields{"error": resp.Err.Error()}).Warn(ctx, "Page fetch failed")
	case OutcomeStale:
		entry.Debug(ctx, "Dropped stale page for epoch %d", req.Epoch)
	}

	if w, ok := c.waiters[req.Seq]; ok {
		w.ch <- Result[T, F]{State: c.list.Snapshot(), Outcome: outcome}
		delete(c.waiters, req.Seq)
	}
	if outcome != OutcomeStale {
		c.publish()
	}
}

// publish hands the latest snapshot to every subscriber. Each subscriber
// channel holds one snapshot; an unread one is replaced.
func (c *Controller[T, F]) publish() {
	if len(c.subs) == 0 {
		return
	}
	s := c.list.Snapshot()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Subscribe returns a channel that always holds the latest state after each
// change. Slow readers miss intermediate states, never the last one. The channel
// is closed by the returned cancel func or by Close.
func (c *Controller[T, F]) Subscribe() (<-chan State[T, F], func()) {
	ch := make(chan State[T, F], 1)
	var id int
	ready := make(chan struct{})
	ok := c.do(func() {
		id = c.nextSub
		c.nextSub++
		c.subs[id] = ch
		ch <- c.list.Snapshot()
		close(ready)
	})
	if !ok {
		close(ch)
		return ch, func() {}
	}
	<-ready
	return ch, func() {
		c.do(func() {
			if sub, exists := c.subs[id]; exists {
				close(sub)
				delete(c.subs, id)
			}
		})
	}
}

// State returns the current snapshot.
func (c *Controller[T, F]) State() State[T, F] {
	reply := make(chan State[T, F], 1)
	if !c.do(func() { reply <- c.list.Snapshot() }) {
		return c.finalState()
	}
	return <-reply
}

// finalState reads the list once the loop has exited.
func (c *Controller[T, F]) finalState() State[T, F] {
	<-c.done
	return c.list.Snapshot()
}

// Close stops the controller, cancels in-flight fetches, and settles pending
// commands with OutcomeClosed. It is safe to call more than once.
func (c *Controller[T, F]) Close() {
	c.cancel()
	<-c.done
}

// ErrClosed is returned by Await when the controller shuts down first.
var ErrClosed = errors.New("pager: controller closed")

// Await waits for a command result or ctx.
func Await[T any, F comparable](ctx context.Context, ch <-chan Result[T, F]) (Result[T, F], error) {
	select {
	case res := <-ch:
		if res.Outcome == OutcomeClosed {
			return res, ErrClosed
		}
		return res, nil
	case <-ctx.Done():
		return Result[T, F]{}, ctx.Err()
	}
}
