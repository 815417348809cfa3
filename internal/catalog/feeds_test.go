package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/rawgdex/internal/pager"
	"github.com/timmy/rawgdex/internal/rawg"
)

type capture struct {
	mu      sync.Mutex
	queries []url.Values
	paths   []string
}

func (c *capture) last(t *testing.T) url.Values {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.queries)
	return c.queries[len(c.queries)-1]
}

func (c *capture) lastPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.paths) == 0 {
		return ""
	}
	return c.paths[len(c.paths)-1]
}

func newTestCatalog(t *testing.T, body string) (*Catalog, *capture) {
	t.Helper()
	captured := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.mu.Lock()
		captured.queries = append(captured.queries, r.URL.Query())
		captured.paths = append(captured.paths, r.URL.Path)
		captured.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := rawg.New(rawg.Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	fixed := time.Date(2026, time.February, 14, 10, 0, 0, 0, time.UTC)
	return New(client, WithClock(func() time.Time { return fixed })), captured
}

func TestGameFeeds_QueryParameters(t *testing.T) {
	tests := []struct {
		feed   string
		filter Filter
		want   map[string]string
		absent []string
	}{
		{
			feed:   FeedNewReleases,
			filter: Filter{Genre: Genre(4)},
			want:   map[string]string{"ordering": "-released", "page_size": "30", "dates": "2026-02-01,2026-02-28", "genres": "4"},
		},
		{
			feed:   FeedNewReleases,
			filter: Filter{Genre: AllGenres},
			want:   map[string]string{"ordering": "-released", "dates": "2026-02-01,2026-02-28"},
			absent: []string{"genres"},
		},
		{
			feed:   FeedPopular,
			filter: Filter{Genre: Genre(51)},
			want:   map[string]string{"ordering": "-added", "page_size": "20", "genres": "51"},
			absent: []string{"dates"},
		},
		{
			feed:   FeedNewest,
			filter: Filter{},
			want:   map[string]string{"ordering": "-released", "page_size": "20", "dates": "2026-01-15,2026-02-14"},
		},
		{
			feed:   FeedTop,
			filter: Filter{Genre: Genre(4)},
			want:   map[string]string{"ordering": "-added", "page_size": "5", "dates": "2025-01-01,2026-12-31"},
			absent: []string{"genres"},
		},
		{
			feed:   FeedPlatformGames,
			filter: Filter{Platform: 187, Genre: Genre(3)},
			want:   map[string]string{"ordering": "-released", "page_size": "20", "platforms": "187", "genres": "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.feed, func(t *testing.T) {
			cat, captured := newTestCatalog(t, `{"count":0,"results":[]}`)
			feed, err := cat.GameFeed(tt.feed)
			require.NoError(t, err)

			_, err = feed.Fetch(context.Background(), tt.filter, pager.FirstPage())
			require.NoError(t, err)

			q := captured.last(t)
			for k, v := range tt.want {
				assert.Equal(t, v, q.Get(k), k)
			}
			for _, k := range tt.absent {
				assert.False(t, q.Has(k), k)
			}
			assert.Equal(t, "1", q.Get("page"))
			assert.Equal(t, "k", q.Get("key"))
		})
	}
}

func TestGameFeed_Unknown(t *testing.T) {
	cat, _ := newTestCatalog(t, `{}`)
	_, err := cat.GameFeed("nope")
	assert.Error(t, err)
	_, err = cat.GameFeed(FeedPlatforms)
	assert.Error(t, err, "platforms is not a game feed")
}

func TestPlatformGames_RequiresPlatform(t *testing.T) {
	cat, captured := newTestCatalog(t, `{"count":0,"results":[]}`)
	feed, err := cat.GameFeed(FeedPlatformGames)
	require.NoError(t, err)

	_, err = feed.Fetch(context.Background(), Filter{}, pager.FirstPage())
	assert.Equal(t, rawg.KindBadRequestURL, rawg.KindOf(err))
	assert.Empty(t, captured.queries)
}

func TestListFeeds(t *testing.T) {
	cat, captured := newTestCatalog(t, `{"count":1,"results":[{"id":4,"name":"PC","slug":"pc","games_count":500}]}`)

	platforms, err := cat.Platforms().Fetch(context.Background(), Filter{}, pager.FirstPage())
	require.NoError(t, err)
	require.Len(t, platforms.Items, 1)
	assert.Equal(t, "PC", platforms.Items[0].Name)
	assert.Equal(t, "10", captured.last(t).Get("page_size"))
	assert.Equal(t, "/platforms", captured.lastPath())

	genres, err := cat.Genres().Fetch(context.Background(), Filter{}, pager.FirstPage())
	require.NoError(t, err)
	require.Len(t, genres.Items, 1)
	assert.Equal(t, "/genres", captured.lastPath())

	all, err := cat.AllGenres(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSearch_EmptyQueryIssuesNoRequest(t *testing.T) {
	cat, captured := newTestCatalog(t, `{"count":0,"results":[]}`)
	feed, err := cat.GameFeed(FeedSearch)
	require.NoError(t, err)

	page, err := feed.Fetch(context.Background(), Filter{Query: "   "}, pager.FirstPage())
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.True(t, page.Next.IsNone())
	assert.Empty(t, captured.queries)
}

func TestSearch_RanksEachPage(t *testing.T) {
	cat, captured := newTestCatalog(t, `{"count":4,"results":[
		{"id":1,"name":"The Witcher 3","released":"2015-05-18","rating":4.6},
		{"id":2,"name":"Witcher Adventure Game","released":"2014-10-01","rating":3.1},
		{"id":3,"name":"Witcher","released":"2007-10-24","rating":3.9},
		{"id":4,"name":"Witcher 2","released":"2011-05-17","rating":4.2}
	]}`)
	feed, err := cat.GameFeed(FeedSearch)
	require.NoError(t, err)

	page, err := feed.Fetch(context.Background(), Filter{Query: "witcher"}, pager.FirstPage())
	require.NoError(t, err)
	assert.Equal(t, "witcher", captured.last(t).Get("search"))

	var ids []int
	for _, g := range page.Items {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []int{3, 2, 4, 1}, ids)
}

func TestRankSearchResults_RatingFallback(t *testing.T) {
	games := []rawg.GameSummary{
		{ID: 1, Name: "Game A", Rating: 2.0},
		{ID: 2, Name: "Game B", Rating: 4.5, Released: "2020-01-01"},
		{ID: 3, Name: "Game C", Rating: 3.0},
	}
	RankSearchResults(games, "zzz")
	assert.Equal(t, 2, games[0].ID)
	assert.Equal(t, 3, games[1].ID)
	assert.Equal(t, 1, games[2].ID)
}

func TestParseGenreFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    GenreFilter
		wantErr bool
	}{
		{in: "all", want: AllGenres},
		{in: "ALL", want: AllGenres},
		{in: "", want: AllGenres},
		{in: " 4 ", want: Genre(4)},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "action", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGenreFilter(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "all", AllGenres.String())
	assert.Equal(t, "4", Genre(4).String())
	assert.Equal(t, `genre=4 platform=187 query="gta"`, Filter{Genre: Genre(4), Platform: 187, Query: "gta"}.String())
}

func TestDescriptors(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Descriptors() {
		assert.False(t, seen[d.ID], "duplicate feed %s", d.ID)
		seen[d.ID] = true
		assert.Positive(t, d.PageSize)
	}
	d, ok := Lookup(FeedTop)
	require.True(t, ok)
	assert.Equal(t, 5, d.PageSize)
}
