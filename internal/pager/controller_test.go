package pager

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/rawgdex/internal/logger"
)

type fetchCall struct {
	filter string
	cursor Cursor
	reply  chan fetchReply
}

type fetchReply struct {
	page Page[string]
	err  error
}

// gatedFetch parks every fetch until the test answers it.
type gatedFetch struct {
	calls chan fetchCall
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{calls: make(chan fetchCall, 16)}
}

func (g *gatedFetch) fetch(ctx context.Context, filter string, cursor Cursor) (Page[string], error) {
	call := fetchCall{filter: filter, cursor: cursor, reply: make(chan fetchReply, 1)}
	g.calls <- call
	select {
	case r := <-call.reply:
		return r.page, r.err
	case <-ctx.Done():
		return Page[string]{}, ctx.Err()
	}
}

func (g *gatedFetch) next(t *testing.T) fetchCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch")
		return fetchCall{}
	}
}

type countingRecorder struct {
	mu       sync.Mutex
	issued   int
	outcomes map[Outcome]int
}

func (r *countingRecorder) Issued(string, RequestKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
}

func (r *countingRecorder) Finished(_ string, _ RequestKind, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[Outcome]int{}
	}
	r.outcomes[o]++
}

func await(t *testing.T, ch <-chan Result[string, string]) Result[string, string] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := Await(ctx, ch)
	require.NoError(t, err)
	return res
}

func newTestController(g *gatedFetch, rec Recorder) *Controller[string, string] {
	return NewController[string, string](g.fetch, "all", Options{
		Name:     "test",
		Recorder: rec,
		Logger:   logger.NewNop(),
	})
}

func TestController_ReloadThenLoadMore(t *testing.T) {
	g := newGatedFetch()
	c := newTestController(g, nil)
	defer c.Close()

	reload := c.Reload()
	call := g.next(t)
	assert.Equal(t, FirstPage(), call.cursor)
	assert.True(t, c.State().LoadingInitial)
	call.reply <- fetchReply{page: Page[string]{Items: []string{"A", "B", "C"}, Next: Token("url2")}}

	res := await(t, reload)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, []string{"A", "B", "C"}, res.State.Items)

	more := c.LoadMore()
	call = g.next(t)
	assert.Equal(t, Token("url2"), call.cursor)
	call.reply <- fetchReply{page: Page[string]{Items: []string{"D", "E"}}}

	res = await(t, more)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, res.State.Items)
	assert.False(t, res.State.HasMore)

	res = await(t, c.LoadMore())
	assert.Equal(t, OutcomeIgnored, res.Outcome)
}

func TestController_OutOfOrderCompletion(t *testing.T) {
	g := newGatedFetch()
	rec := &countingRecorder{}
	c := newTestController(g, rec)
	defer c.Close()

	action := c.SetFilter("action")
	rpg := c.SetFilter("rpg")

	calls := map[string]fetchCall{}
	for i := 0; i < 2; i++ {
		call := g.next(t)
		calls[call.filter] = call
	}
	require.Contains(t, calls, "action")
	require.Contains(t, calls, "rpg")

	calls["rpg"].reply <- fetchReply{page: Page[string]{Items: []string{"Z"}}}
	res := await(t, rpg)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	calls["action"].reply <- fetchReply{page: Page[string]{Items: []string{"X", "Y"}, Next: Token("n")}}
	res = await(t, action)
	assert.Equal(t, OutcomeStale, res.Outcome)

	s := c.State()
	assert.Equal(t, []string{"Z"}, s.Items)
	assert.Equal(t, "rpg", s.Filter)
	assert.False(t, s.HasMore)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.issued)
	assert.Equal(t, 1, rec.outcomes[OutcomeApplied])
	assert.Equal(t, 1, rec.outcomes[OutcomeStale])
}

func TestController_ReloadWhileLoadingIsIgnored(t *testing.T) {
	g := newGatedFetch()
	c := newTestController(g, nil)
	defer c.Close()

	first := c.Reload()
	res := await(t, c.Reload())
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.True(t, res.State.LoadingInitial)

	g.next(t).reply <- fetchReply{page: Page[string]{Items: []string{"A"}}}
	assert.Equal(t, OutcomeApplied, await(t, first).Outcome)

	select {
	case <-g.calls:
		t.Fatal("ignored reload issued a fetch")
	default:
	}
}

func TestController_Subscribe(t *testing.T) {
	g := newGatedFetch()
	c := newTestController(g, nil)
	defer c.Close()

	states, cancel := c.Subscribe()
	defer cancel()

	initial := <-states
	assert.Equal(t, PhaseIdle, initial.Phase())
	assert.Empty(t, initial.Items)

	reload := c.Reload()
	g.next(t).reply <- fetchReply{page: Page[string]{Items: []string{"A"}}}
	await(t, reload)

	// Intermediate snapshots may be replaced; the latest one must arrive.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-states:
			if len(s.Items) == 1 && !s.Loading() {
				return
			}
		case <-deadline:
			t.Fatal("latest state never delivered")
		}
	}
}

func TestController_CloseSettlesPending(t *testing.T) {
	g := newGatedFetch()
	c := newTestController(g, nil)

	states, _ := c.Subscribe()
	<-states

	pending := c.Reload()
	g.next(t)
	c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := Await(ctx, pending)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, OutcomeClosed, res.Outcome)

	for range states {
	}

	res, err = Await(ctx, c.LoadMore())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, OutcomeClosed, res.Outcome)

	assert.NotPanics(t, c.Close)
	assert.Equal(t, "all", c.State().Filter)
}

func TestController_FetchTimeout(t *testing.T) {
	g := newGatedFetch()
	c := NewController[string, string](g.fetch, "all", Options{
		Name:         "test",
		FetchTimeout: 20 * time.Millisecond,
		Message:      func(error) string { return "timed out" },
		Logger:       logger.NewNop(),
	})
	defer c.Close()

	reload := c.Reload()
	g.next(t)

	res := await(t, reload)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.State.Err, context.DeadlineExceeded)
	assert.Equal(t, "timed out", res.State.ErrorMessage)
	assert.False(t, res.State.LoadingInitial)
}

// numberedFetch serves four single-item pages per filter, labelled
// filter:page, after a short random delay.
func numberedFetch(ctx context.Context, filter string, cursor Cursor) (Page[string], error) {
	n, _ := cursor.PageValue()
	select {
	case <-time.After(time.Duration(rand.Intn(300)) * time.Microsecond):
	case <-ctx.Done():
		return Page[string]{}, ctx.Err()
	}
	return Page[string]{Items: []string{fmt.Sprintf("%s:%d", filter, n)}, HasMore: n < 4}, nil
}

func TestController_ConcurrentCommandsKeepInvariants(t *testing.T) {
	c := NewController[string, string](numberedFetch, "a", Options{Name: "stress", Logger: logger.NewNop()})
	defer c.Close()

	states, cancel := c.Subscribe()
	var violations []string
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		for s := range states {
			if s.LoadingInitial && s.LoadingMore {
				violations = append(violations, "both loading flags set")
			}
			for _, item := range s.Items {
				if !strings.HasPrefix(item, s.Filter+":") {
					violations = append(violations, fmt.Sprintf("item %s under filter %s", item, s.Filter))
				}
			}
		}
	}()

	filters := []string{"a", "b", "c"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for j := 0; j < 60; j++ {
				var ch <-chan Result[string, string]
				switch rng.Intn(3) {
				case 0:
					ch = c.SetFilter(filters[rng.Intn(len(filters))])
				case 1:
					ch = c.LoadMore()
				default:
					ch = c.Reload()
				}
				if rng.Intn(2) == 0 {
					<-ch
				}
			}
		}(int64(i + 1))
	}
	wg.Wait()

	res := await(t, c.SetFilter("z"))
	require.Equal(t, OutcomeApplied, res.Outcome)
	for res.State.HasMore {
		res = await(t, c.LoadMore())
		require.Equal(t, OutcomeApplied, res.Outcome)
	}
	assert.Equal(t, []string{"z:1", "z:2", "z:3", "z:4"}, res.State.Items)

	cancel()
	<-watched
	assert.Empty(t, violations)
}
