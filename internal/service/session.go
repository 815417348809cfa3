package service

import (
	"context"
	"time"

	"github.com/timmy/rawgdex/internal/catalog"
	"github.com/timmy/rawgdex/internal/pager"
)

// SessionView is the JSON-facing snapshot of a browse session.
type SessionView struct {
	ID             string         `json:"id"`
	Feed           string         `json:"feed"`
	Filter         catalog.Filter `json:"filter"`
	Phase          pager.Phase    `json:"phase"`
	Items          any            `json:"items"`
	Count          int            `json:"count"`
	HasMore        bool           `json:"has_more"`
	LoadingInitial bool           `json:"loading_initial"`
	LoadingMore    bool           `json:"loading_more"`
	Next           pager.Cursor   `json:"next"`
	Error          string         `json:"error,omitempty"`
	// Outcome is set on views delivered by a Completion.
	Outcome   string    `json:"outcome,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}

// Completion settles once the request started by a session command does.
type Completion struct {
	done <-chan SessionView
}

// Wait blocks until the command settles or ctx is done.
func (c Completion) Wait(ctx context.Context) (SessionView, error) {
	select {
	case v := <-c.done:
		return v, nil
	case <-ctx.Done():
		return SessionView{}, ctx.Err()
	}
}

// feedSession erases the item type of a controller so sessions over
// different feeds can share one map.
type feedSession interface {
	Reload() Completion
	LoadMore() Completion
	SetFilter(catalog.Filter) Completion
	State() SessionView
	Close()
}

type controllerSession[T any] struct {
	id   string
	feed string
	ctrl *pager.Controller[T, catalog.Filter]
}

func newControllerSession[T any](id string, feed catalog.Feed[T], filter catalog.Filter, opts pager.Options) *controllerSession[T] {
	return &controllerSession[T]{
		id:   id,
		feed: feed.ID,
		ctrl: pager.NewController(feed.Fetch, filter, opts),
	}
}

func (s *controllerSession[T]) Reload() Completion {
	return s.complete(s.ctrl.Reload())
}

func (s *controllerSession[T]) LoadMore() Completion {
	return s.complete(s.ctrl.LoadMore())
}

func (s *controllerSession[T]) SetFilter(f catalog.Filter) Completion {
	return s.complete(s.ctrl.SetFilter(f))
}

func (s *controllerSession[T]) State() SessionView {
	return s.view(s.ctrl.State())
}

func (s *controllerSession[T]) Close() {
	s.ctrl.Close()
}

// complete converts the controller's result channel. The controller sends
// exactly one result per command, so the goroutine always exits.
func (s *controllerSession[T]) complete(ch <-chan pager.Result[T, catalog.Filter]) Completion {
	out := make(chan SessionView, 1)
	go func() {
		res := <-ch
		v := s.view(res.State)
		v.Outcome = res.Outcome.String()
		out <- v
	}()
	return Completion{done: out}
}

func (s *controllerSession[T]) view(st pager.State[T, catalog.Filter]) SessionView {
	return SessionView{
		ID:             s.id,
		Feed:           s.feed,
		Filter:         st.Filter,
		Phase:          st.Phase(),
		Items:          st.Items,
		Count:          len(st.Items),
		HasMore:        st.HasMore,
		LoadingInitial: st.LoadingInitial,
		LoadingMore:    st.LoadingMore,
		Next:           st.Next,
		Error:          st.ErrorMessage,
	}
}
