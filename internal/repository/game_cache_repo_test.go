package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/timmy/rawgdex/internal/config"
	"github.com/timmy/rawgdex/internal/domain"
	"github.com/timmy/rawgdex/internal/rawg"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "cache.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testView(id int, name string, fetched time.Time) domain.GameView {
	return domain.GameView{
		Detail: rawg.GameDetail{
			ID:          id,
			Slug:        "slug-" + name,
			Name:        name,
			TwitchCount: rawg.NewFlexibleInt(3),
			Genres:      []rawg.Genre{{ID: 4, Name: "Action"}},
		},
		Screenshots: []rawg.Screenshot{{ID: 1, Image: "https://media.rawg.io/1.jpg"}},
		FetchedAt:   fetched,
	}
}

func TestGameCacheRepository_RoundTrip(t *testing.T) {
	repo := NewGameCacheRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, domain.NewGameRecord(testView(1, "Portal", now), time.Hour)))

	rec, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Portal", rec.Name)
	assert.Equal(t, domain.StringArray{"Action"}, rec.Genres)
	assert.False(t, rec.Expired(now.Add(30*time.Minute)))
	assert.True(t, rec.Expired(now.Add(time.Hour)))

	view := rec.View()
	assert.True(t, view.Cached)
	assert.Equal(t, "Portal", view.Detail.Name)
	n, ok := view.Detail.TwitchCount.Int()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	require.Len(t, view.Screenshots, 1)

	require.NoError(t, repo.Upsert(ctx, domain.NewGameRecord(testView(1, "Portal 2", now.Add(time.Hour)), time.Hour)))
	rec, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Portal 2", rec.Name)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestGameCacheRepository_DeleteExpired(t *testing.T) {
	repo := NewGameCacheRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, domain.NewGameRecord(testView(1, "Old", now.Add(-2*time.Hour)), time.Hour)))
	require.NoError(t, repo.Upsert(ctx, domain.NewGameRecord(testView(2, "Fresh", now), time.Hour)))

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = repo.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Get(ctx, 2)
	assert.NoError(t, err)
}
