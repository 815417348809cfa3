package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/rawgdex/internal/catalog"
	"github.com/timmy/rawgdex/internal/logger"
	"github.com/timmy/rawgdex/internal/pager"
	"github.com/timmy/rawgdex/internal/rawg"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
	ErrUnknownFeed     = errors.New("unknown feed")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// SessionGauge receives the number of open sessions.
type SessionGauge interface {
	SetSessions(n int)
}

// BrowseConfig holds configuration for the browse service.
type BrowseConfig struct {
	SessionTTL   time.Duration
	MaxSessions  int
	FetchTimeout time.Duration
	Recorder     pager.Recorder
	Gauge        SessionGauge
	Now          func() time.Time
}

type sessionEntry struct {
	id       string
	feed     catalog.Descriptor
	sess     feedSession
	created  time.Time
	lastUsed time.Time

	// filterMu serializes filter changes, which read the current filter
	// before replacing it.
	filterMu sync.Mutex
}

// BrowseService keeps one paged feed controller per client session.
type BrowseService struct {
	catalog *catalog.Catalog
	logger  *logger.Logger
	cfg     BrowseConfig

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewBrowseService creates a new browse service.
// Parameters:
//   - cat: feed catalog sessions are opened on.
//   - log: logger instance.
//   - cfg: session limits and controller settings.
//
// Returns:
//   - *BrowseService: service with no open sessions.
func NewBrowseService(cat *catalog.Catalog, log *logger.Logger, cfg BrowseConfig) *BrowseService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &BrowseService{
		catalog:  cat,
		logger:   log.WithField(logger.FieldComponent, "browse"),
		cfg:      cfg,
		sessions: make(map[string]*sessionEntry),
	}
}

// Create opens a session on feed and starts its first load.
// Parameters:
//   - ctx: request context, used for logging only.
//   - feed: feed id from catalog.Descriptors.
//   - filter: initial filter; fields the feed ignores are dropped.
//
// Returns:
//   - string: new session id.
//   - Completion: settles when the first page is in.
//   - error: ErrUnknownFeed, ErrInvalidFilter or ErrTooManySessions.
func (s *BrowseService) Create(ctx context.Context, feed string, filter catalog.Filter) (string, Completion, error) {
	desc, ok := catalog.Lookup(feed)
	if !ok {
		return "", Completion{}, fmt.Errorf("%w: %q", ErrUnknownFeed, feed)
	}
	filter = normalizeFilter(desc, filter, catalog.Filter{})
	if desc.ID == catalog.FeedPlatformGames && filter.Platform <= 0 {
		return "", Completion{}, fmt.Errorf("%w: %s needs a platform", ErrInvalidFilter, desc.ID)
	}

	s.mu.Lock()
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return "", Completion{}, ErrTooManySessions
	}
	id := uuid.New().String()
	sess, err := s.open(id, desc, filter)
	if err != nil {
		s.mu.Unlock()
		return "", Completion{}, err
	}
	now := s.cfg.Now()
	s.sessions[id] = &sessionEntry{id: id, feed: desc, sess: sess, created: now, lastUsed: now}
	count := len(s.sessions)
	s.mu.Unlock()

	s.reportCount(count)
	logger.CtxInfo(logger.SetSessionID(ctx, id), "Opened %s session with %s", desc.ID, filter)
	return id, sess.Reload(), nil
}

func (s *BrowseService) open(id string, desc catalog.Descriptor, filter catalog.Filter) (feedSession, error) {
	opts := pager.Options{
		Name:         desc.ID,
		FetchTimeout: s.cfg.FetchTimeout,
		Message:      rawg.UserMessage,
		Recorder:     s.cfg.Recorder,
		Logger:       s.logger.WithField(logger.FieldSessionID, id),
	}
	switch desc.Items {
	case catalog.ItemPlatforms:
		return newControllerSession(id, s.catalog.Platforms(), filter, opts), nil
	case catalog.ItemGenres:
		return newControllerSession(id, s.catalog.Genres(), filter, opts), nil
	default:
		feed, err := s.catalog.GameFeed(desc.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownFeed, err)
		}
		return newControllerSession(id, feed, filter, opts), nil
	}
}

// normalizeFilter drops the fields desc does not honor. A platform-games
// session keeps its platform when the new filter names none.
func normalizeFilter(desc catalog.Descriptor, f, current catalog.Filter) catalog.Filter {
	var out catalog.Filter
	for _, name := range desc.Filters {
		switch name {
		case "genre":
			out.Genre = f.Genre
		case "platform":
			out.Platform = f.Platform
			if out.Platform <= 0 {
				out.Platform = current.Platform
			}
		case "query":
			out.Query = f.Query
		}
	}
	return out
}

// stamp copies an entry's timestamps while s.mu is held.
type stamp struct {
	created  time.Time
	lastUsed time.Time
}

func (st stamp) decorate(v SessionView) SessionView {
	v.CreatedAt = st.created
	v.LastUsed = st.lastUsed
	return v
}

func (s *BrowseService) touch(id string) (*sessionEntry, stamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, stamp{}, ErrSessionNotFound
	}
	e.lastUsed = s.cfg.Now()
	return e, stamp{created: e.created, lastUsed: e.lastUsed}, nil
}

// Get returns the current state of a session.
func (s *BrowseService) Get(id string) (SessionView, error) {
	e, st, err := s.touch(id)
	if err != nil {
		return SessionView{}, err
	}
	return st.decorate(e.sess.State()), nil
}

// Reload refetches page 1. Returns ErrSessionNotFound for unknown ids.
func (s *BrowseService) Reload(id string) (Completion, error) {
	e, _, err := s.touch(id)
	if err != nil {
		return Completion{}, err
	}
	return e.sess.Reload(), nil
}

// LoadMore fetches the next page of a session.
func (s *BrowseService) LoadMore(id string) (Completion, error) {
	e, _, err := s.touch(id)
	if err != nil {
		return Completion{}, err
	}
	return e.sess.LoadMore(), nil
}

// SetFilter switches the filter of a session and reloads it.
func (s *BrowseService) SetFilter(id string, filter catalog.Filter) (Completion, error) {
	e, _, err := s.touch(id)
	if err != nil {
		return Completion{}, err
	}
	e.filterMu.Lock()
	defer e.filterMu.Unlock()
	current := e.sess.State().Filter
	return e.sess.SetFilter(normalizeFilter(e.feed, filter, current)), nil
}

// Close tears down a session and settles its pending commands.
func (s *BrowseService) Close(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.sess.Close()
	s.reportCount(count)
	s.logger.WithField(logger.FieldSessionID, id).Infof("Closed %s session", e.feed.ID)
	return nil
}

// EvictIdle closes sessions unused for longer than the session TTL.
// Returns:
//   - int: number of sessions closed.
func (s *BrowseService) EvictIdle(now time.Time) int {
	if s.cfg.SessionTTL <= 0 {
		return 0
	}
	s.mu.Lock()
	var idle []*sessionEntry
	for id, e := range s.sessions {
		if now.Sub(e.lastUsed) > s.cfg.SessionTTL {
			idle = append(idle, e)
			delete(s.sessions, id)
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	for _, e := range idle {
		e.sess.Close()
	}
	if len(idle) > 0 {
		s.reportCount(count)
		s.logger.Infof("Evicted %d idle sessions", len(idle))
	}
	return len(idle)
}

// List returns every open session, oldest first.
func (s *BrowseService) List() []SessionView {
	type listed struct {
		sess feedSession
		st   stamp
	}
	s.mu.Lock()
	entries := make([]listed, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, listed{sess: e.sess, st: stamp{created: e.created, lastUsed: e.lastUsed}})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].st.created.Before(entries[j].st.created) })
	views := make([]SessionView, 0, len(entries))
	for _, e := range entries {
		views = append(views, e.st.decorate(e.sess.State()))
	}
	return views
}

// Len returns the number of open sessions.
func (s *BrowseService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown closes every session.
func (s *BrowseService) Shutdown() {
	s.mu.Lock()
	entries := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for _, e := range entries {
		e.sess.Close()
	}
	s.reportCount(0)
}

func (s *BrowseService) reportCount(n int) {
	if s.cfg.Gauge != nil {
		s.cfg.Gauge.SetSessions(n)
	}
}
