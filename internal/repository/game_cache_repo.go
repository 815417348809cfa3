package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/rawgdex/internal/domain"
)

// ErrNotFound is returned when no cached record exists.
var ErrNotFound = errors.New("record not found")

// GameCacheRepository stores fetched game details.
type GameCacheRepository struct {
	db *gorm.DB
}

// NewGameCacheRepository creates a new GameCacheRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *GameCacheRepository: repository instance bound to db.
func NewGameCacheRepository(db *gorm.DB) *GameCacheRepository {
	return &GameCacheRepository{db: db}
}

// Get retrieves the cached record for a game.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: RAWG game id.
//
// Returns:
//   - *domain.GameRecord: record if found, expired or not.
//   - error: ErrNotFound when absent.
func (r *GameCacheRepository) Get(ctx context.Context, id int) (*domain.GameRecord, error) {
	var rec domain.GameRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Upsert creates or replaces the cached record keyed by game id.
func (r *GameCacheRepository) Upsert(ctx context.Context, rec *domain.GameRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"slug", "name", "genres", "payload", "fetched_at", "expires_at", "updated_at"}),
	}).Create(rec).Error
}

// DeleteExpired removes records that expired at or before now.
// Returns:
//   - int64: number of rows removed.
//   - error: non-nil if the delete fails.
func (r *GameCacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.GameRecord{})
	return res.RowsAffected, res.Error
}

// Count returns the number of cached records.
func (r *GameCacheRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.GameRecord{}).Count(&n).Error
	return n, err
}
