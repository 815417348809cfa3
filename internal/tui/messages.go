package tui

import (
	"time"

	"github.com/timmy/rawgdex/internal/catalog"
	"github.com/timmy/rawgdex/internal/domain"
	"github.com/timmy/rawgdex/internal/pager"
	"github.com/timmy/rawgdex/internal/rawg"
)

// pageMsg carries a finished fetch back to the list of tab.
type pageMsg struct {
	tab     int
	resp    pager.Response[rawg.GameSummary, catalog.Filter]
	elapsed time.Duration
}

type genresMsg struct {
	genres []rawg.Genre
	err    error
}

// detailMsg is dropped unless seq matches the latest detail request.
type detailMsg struct {
	seq  int
	view *domain.GameView
	err  error
}

// searchDebounceMsg fires after typing pauses. Only the latest seq runs.
type searchDebounceMsg struct {
	seq int
}
