// Package catalog defines the browsable RAWG feeds: which endpoint each one
// reads, with which ordering, date window and page size.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/rawgdex/internal/pager"
	"github.com/timmy/rawgdex/internal/rawg"
)

// Feed IDs.
const (
	FeedNewReleases   = "new-releases"
	FeedPopular       = "popular"
	FeedNewest        = "newest"
	FeedTop           = "top"
	FeedPlatforms     = "platforms"
	FeedPlatformGames = "platform-games"
	FeedGenres        = "genres"
	FeedSearch        = "search"
)

// ItemKind tells which item type a feed yields.
type ItemKind string

const (
	ItemGames     ItemKind = "games"
	ItemPlatforms ItemKind = "platforms"
	ItemGenres    ItemKind = "genres"
)

// Descriptor describes a feed without binding it to a client.
type Descriptor struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Items    ItemKind `json:"items"`
	PageSize int      `json:"page_size"`
	// Filters lists the Filter fields the feed honors.
	Filters []string `json:"filters"`
}

// Descriptors lists every feed in display order.
func Descriptors() []Descriptor {
	return []Descriptor{
		{ID: FeedNewReleases, Title: "New This Month", Items: ItemGames, PageSize: 30, Filters: []string{"genre"}},
		{ID: FeedPopular, Title: "Popular", Items: ItemGames, PageSize: 20, Filters: []string{"genre"}},
		{ID: FeedNewest, Title: "Last 30 Days", Items: ItemGames, PageSize: 20, Filters: []string{"genre"}},
		{ID: FeedTop, Title: "Top Games", Items: ItemGames, PageSize: 5, Filters: []string{}},
		{ID: FeedPlatforms, Title: "Platforms", Items: ItemPlatforms, PageSize: 10, Filters: []string{}},
		{ID: FeedPlatformGames, Title: "Platform Games", Items: ItemGames, PageSize: 20, Filters: []string{"platform", "genre"}},
		{ID: FeedGenres, Title: "Genres", Items: ItemGenres, PageSize: 20, Filters: []string{}},
		{ID: FeedSearch, Title: "Search", Items: ItemGames, PageSize: 20, Filters: []string{"query"}},
	}
}

// Lookup returns the descriptor for id.
func Lookup(id string) (Descriptor, bool) {
	for _, d := range Descriptors() {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Feed binds a descriptor to a fetch function.
type Feed[T any] struct {
	Descriptor
	Fetch pager.FetchFunc[T, Filter]
}

// Clock returns the current time.
type Clock func() time.Time

// Catalog builds feeds over one RAWG client.
type Catalog struct {
	client *rawg.Client
	now    Clock
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock replaces time.Now for date windows.
func WithClock(now Clock) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a Catalog reading from client.
func New(client *rawg.Client, opts ...Option) *Catalog {
	c := &Catalog{client: client, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GameFeed returns the game feed with the given id.
func (c *Catalog) GameFeed(id string) (Feed[rawg.GameSummary], error) {
	d, ok := Lookup(id)
	if !ok || d.Items != ItemGames {
		return Feed[rawg.GameSummary]{}, fmt.Errorf("unknown game feed %q", id)
	}

	var fetch pager.FetchFunc[rawg.GameSummary, Filter]
	switch id {
	case FeedNewReleases:
		fetch = c.gamesFetch(d.PageSize, "-released", true, c.currentMonth)
	case FeedPopular:
		fetch = c.gamesFetch(d.PageSize, "-added", true, nil)
	case FeedNewest:
		fetch = c.gamesFetch(d.PageSize, "-released", true, c.last30Days)
	case FeedTop:
		fetch = c.gamesFetch(d.PageSize, "-added", false, c.lastTwoYears)
	case FeedPlatformGames:
		fetch = c.platformGames(d.PageSize)
	case FeedSearch:
		fetch = c.search(d.PageSize)
	}
	return Feed[rawg.GameSummary]{Descriptor: d, Fetch: fetch}, nil
}

// Platforms is the platform list feed.
func (c *Catalog) Platforms() Feed[rawg.Platform] {
	d, _ := Lookup(FeedPlatforms)
	return Feed[rawg.Platform]{
		Descriptor: d,
		Fetch: func(ctx context.Context, _ Filter, cursor pager.Cursor) (pager.Page[rawg.Platform], error) {
			return c.client.Platforms(ctx, d.PageSize, cursor)
		},
	}
}

// Genres is the genre list feed.
func (c *Catalog) Genres() Feed[rawg.Genre] {
	d, _ := Lookup(FeedGenres)
	return Feed[rawg.Genre]{
		Descriptor: d,
		Fetch: func(ctx context.Context, _ Filter, cursor pager.Cursor) (pager.Page[rawg.Genre], error) {
			return c.client.Genres(ctx, cursor)
		},
	}
}

// AllGenres loads every genre, for filter pickers.
func (c *Catalog) AllGenres(ctx context.Context) ([]rawg.Genre, error) {
	return c.client.AllGenres(ctx)
}

func (c *Catalog) gamesFetch(pageSize int, ordering string, genres bool, window func() rawg.DateRange) pager.FetchFunc[rawg.GameSummary, Filter] {
	return func(ctx context.Context, f Filter, cursor pager.Cursor) (pager.Page[rawg.GameSummary], error) {
		q := rawg.GamesQuery{Ordering: ordering, PageSize: pageSize}
		if window != nil {
			r := window()
			q.Dates = &r
		}
		if genres && !f.Genre.IsAll() {
			q.Genres = []int{f.Genre.ID}
		}
		return c.client.Games(ctx, q, cursor)
	}
}

func (c *Catalog) platformGames(pageSize int) pager.FetchFunc[rawg.GameSummary, Filter] {
	return func(ctx context.Context, f Filter, cursor pager.Cursor) (pager.Page[rawg.GameSummary], error) {
		if f.Platform <= 0 {
			return pager.Page[rawg.GameSummary]{}, &rawg.FetchError{
				Kind:     rawg.KindBadRequestURL,
				Endpoint: "games",
				Err:      fmt.Errorf("platform-games needs a platform id"),
			}
		}
		q := rawg.GamesQuery{Ordering: "-released", PageSize: pageSize, Platforms: []int{f.Platform}}
		if !f.Genre.IsAll() {
			q.Genres = []int{f.Genre.ID}
		}
		return c.client.Games(ctx, q, cursor)
	}
}

// currentMonth spans the first to the last day of the current month.
func (c *Catalog) currentMonth() rawg.DateRange {
	now := c.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return rawg.DateRange{From: start, To: start.AddDate(0, 1, -1)}
}

func (c *Catalog) last30Days() rawg.DateRange {
	now := c.now()
	return rawg.DateRange{From: now.AddDate(0, 0, -30), To: now}
}

// lastTwoYears spans Jan 1 of last year to Dec 31 of this year.
func (c *Catalog) lastTwoYears() rawg.DateRange {
	now := c.now()
	return rawg.DateRange{
		From: time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location()),
		To:   time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location()),
	}
}
