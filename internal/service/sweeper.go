package service

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/timmy/rawgdex/internal/logger"
)

// ExpiredDeleter purges cache rows that expired at or before now.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// IdleEvicter closes idle sessions.
type IdleEvicter interface {
	EvictIdle(now time.Time) int
}

// SweepResult reports one sweep.
type SweepResult struct {
	ExpiredRows  int64
	IdleSessions int
}

// Sweeper purges expired cache rows and idle sessions on a cron schedule.
type Sweeper struct {
	cron     string
	cache    ExpiredDeleter
	sessions IdleEvicter
	logger   *logger.Logger
	now      func() time.Time
}

// NewSweeper validates cronExpr and returns a sweeper. Either target may be
// nil.
func NewSweeper(cronExpr string, cache ExpiredDeleter, sessions IdleEvicter, log *logger.Logger) (*Sweeper, error) {
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid sweep cron expression: %q", cronExpr)
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Sweeper{
		cron:     cronExpr,
		cache:    cache,
		sessions: sessions,
		logger:   log.WithField(logger.FieldComponent, "sweeper"),
		now:      time.Now,
	}, nil
}

// SweepOnce runs one sweep at the current time.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	now := s.now()
	var res SweepResult
	if s.sessions != nil {
		res.IdleSessions = s.sessions.EvictIdle(now)
	}
	if s.cache != nil {
		n, err := s.cache.DeleteExpired(ctx, now)
		if err != nil {
			return res, fmt.Errorf("delete expired details: %w", err)
		}
		res.ExpiredRows = n
	}
	return res, nil
}

// Next returns the first tick strictly after t.
func (s *Sweeper) Next(t time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.cron, t, false)
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Infof("Sweeper started with schedule %q", s.cron)
	for {
		next, err := s.Next(s.now())
		if err != nil {
			s.logger.WithError(err).Error("Failed to compute next sweep")
			next = s.now().Add(time.Minute)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Sweeper stopped")
			return
		case <-timer.C:
		}

		res, err := s.SweepOnce(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("Sweep failed")
			continue
		}
		if res.ExpiredRows > 0 || res.IdleSessions > 0 {
			s.logger.WithFields(logger.Fields{
				"expired_rows":  res.ExpiredRows,
				"idle_sessions": res.IdleSessions,
			}).Info("Sweep finished")
		}
	}
}
