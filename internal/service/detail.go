package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/timmy/rawgdex/internal/domain"
	"github.com/timmy/rawgdex/internal/logger"
	"github.com/timmy/rawgdex/internal/rawg"
	"github.com/timmy/rawgdex/internal/repository"
)

// GameSource fetches game details from RAWG.
type GameSource interface {
	Game(ctx context.Context, id int) (*rawg.GameDetail, error)
	Screenshots(ctx context.Context, id int) ([]rawg.Screenshot, error)
	Movies(ctx context.Context, id int) ([]rawg.Movie, error)
}

// GameCache stores fetched details.
type GameCache interface {
	Get(ctx context.Context, id int) (*domain.GameRecord, error)
	Upsert(ctx context.Context, rec *domain.GameRecord) error
}

// CacheObserver counts cache lookups.
type CacheObserver interface {
	CacheResult(result string)
}

// DetailConfig holds configuration for the detail service.
type DetailConfig struct {
	// TTL is how long a cached detail is served. Zero disables caching.
	TTL      time.Duration
	Observer CacheObserver
	Now      func() time.Time
}

// DetailService assembles the game detail view.
type DetailService struct {
	source GameSource
	cache  GameCache
	logger *logger.Logger
	cfg    DetailConfig
}

// NewDetailService creates a new detail service.
// Parameters:
//   - source: RAWG client.
//   - cache: detail cache; nil disables caching.
//   - log: logger instance.
//   - cfg: cache TTL and clock.
//
// Returns:
//   - *DetailService: initialized service.
func NewDetailService(source GameSource, cache GameCache, log *logger.Logger, cfg DetailConfig) *DetailService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &DetailService{
		source: source,
		cache:  cache,
		logger: log.WithField(logger.FieldComponent, "detail"),
		cfg:    cfg,
	}
}

// Get returns the detail view of a game. A fresh cached copy is served
// without touching RAWG. Otherwise detail, screenshots and movies are
// fetched concurrently; screenshot or movie failures leave those lists
// empty. When RAWG fails and an expired copy exists, the expired copy is
// served.
func (s *DetailService) Get(ctx context.Context, id int) (*domain.GameView, error) {
	log := s.logger.WithField(logger.FieldGameID, id)
	now := s.cfg.Now()

	var stale *domain.GameRecord
	if s.cachingEnabled() {
		rec, err := s.cache.Get(ctx, id)
		switch {
		case err == nil && !rec.Expired(now):
			s.observe("hit")
			view := rec.View()
			return &view, nil
		case err == nil:
			s.observe("expired")
			stale = rec
		case errors.Is(err, repository.ErrNotFound):
			s.observe("miss")
		default:
			log.WithError(err).Warn("Detail cache lookup failed")
		}
	}

	view, err := s.fetch(ctx, id)
	if err != nil {
		if stale != nil && rawg.KindOf(err) != rawg.KindStatus {
			log.WithError(err).Warn("Serving expired detail after fetch failure")
			v := stale.View()
			return &v, nil
		}
		return nil, err
	}
	view.FetchedAt = now

	if s.cachingEnabled() {
		if err := s.cache.Upsert(ctx, domain.NewGameRecord(*view, s.cfg.TTL)); err != nil {
			log.WithError(err).Warn("Failed to cache game detail")
		}
	}
	return view, nil
}

func (s *DetailService) fetch(ctx context.Context, id int) (*domain.GameView, error) {
	var (
		detail      *rawg.GameDetail
		screenshots []rawg.Screenshot
		movies      []rawg.Movie
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.source.Game(gctx, id)
		if err != nil {
			return err
		}
		detail = d
		return nil
	})
	g.Go(func() error {
		shots, err := s.source.Screenshots(gctx, id)
		if err != nil {
			logger.CtxDebug(gctx, "Screenshots for game %d unavailable: %v", id, err)
			return nil
		}
		screenshots = shots
		return nil
	})
	g.Go(func() error {
		m, err := s.source.Movies(gctx, id)
		if err != nil {
			logger.CtxDebug(gctx, "Movies for game %d unavailable: %v", id, err)
			return nil
		}
		movies = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if screenshots == nil {
		screenshots = []rawg.Screenshot{}
	}
	if movies == nil {
		movies = []rawg.Movie{}
	}
	return &domain.GameView{Detail: *detail, Screenshots: screenshots, Movies: movies}, nil
}

func (s *DetailService) cachingEnabled() bool {
	return s.cache != nil && s.cfg.TTL > 0
}

func (s *DetailService) observe(result string) {
	if s.cfg.Observer != nil {
		s.cfg.Observer.CacheResult(result)
	}
}
