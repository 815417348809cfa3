package rawg

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/rawgdex/internal/pager"
)

const dateLayout = "2006-01-02"

// DateRange limits /games to a release window, both ends inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) String() string {
	return r.From.Format(dateLayout) + "," + r.To.Format(dateLayout)
}

// GamesQuery are the /games filters the browser uses.
type GamesQuery struct {
	Search    string
	Ordering  string
	Dates     *DateRange
	Genres    []int
	Platforms []int
	PageSize  int
}

// Values encodes q as RAWG query parameters.
func (q GamesQuery) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Ordering != "" {
		v.Set("ordering", q.Ordering)
	}
	if q.Dates != nil {
		v.Set("dates", q.Dates.String())
	}
	if len(q.Genres) > 0 {
		v.Set("genres", joinInts(q.Genres))
	}
	if len(q.Platforms) > 0 {
		v.Set("platforms", joinInts(q.Platforms))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Games lists games matching q.
func (c *Client) Games(ctx context.Context, q GamesQuery, cursor pager.Cursor) (pager.Page[GameSummary], error) {
	return FetchPage[GameSummary](ctx, c, "games", q.Values(), cursor)
}

// Genres lists genres.
func (c *Client) Genres(ctx context.Context, cursor pager.Cursor) (pager.Page[Genre], error) {
	return FetchPage[Genre](ctx, c, "genres", nil, cursor)
}

// AllGenres walks every genre page. The genre list is short, so the picker
// loads it in one go.
func (c *Client) AllGenres(ctx context.Context) ([]Genre, error) {
	var all []Genre
	cursor := pager.FirstPage()
	for page := 1; ; page++ {
		p, err := c.Genres(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		switch {
		case !p.Next.IsNone():
			cursor = p.Next
		case p.HasMore:
			cursor = pager.PageNumber(page + 1)
		default:
			return all, nil
		}
	}
}

// Platforms lists platforms, pageSize per page.
func (c *Client) Platforms(ctx context.Context, pageSize int, cursor pager.Cursor) (pager.Page[Platform], error) {
	v := url.Values{}
	if pageSize > 0 {
		v.Set("page_size", strconv.Itoa(pageSize))
	}
	return FetchPage[Platform](ctx, c, "platforms", v, cursor)
}

// Game fetches the detail of one game.
func (c *Client) Game(ctx context.Context, id int) (*GameDetail, error) {
	if id <= 0 {
		return nil, badID("games/{id}", id)
	}
	var out GameDetail
	if err := c.getJSON(ctx, "games/{id}", "games/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Screenshots fetches the first page of a game's screenshots.
func (c *Client) Screenshots(ctx context.Context, id int) ([]Screenshot, error) {
	if id <= 0 {
		return nil, badID("games/{id}/screenshots", id)
	}
	var env Envelope[Screenshot]
	if err := c.getJSON(ctx, "games/{id}/screenshots", "games/"+strconv.Itoa(id)+"/screenshots", nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// Movies fetches a game's trailers.
func (c *Client) Movies(ctx context.Context, id int) ([]Movie, error) {
	if id <= 0 {
		return nil, badID("games/{id}/movies", id)
	}
	var env Envelope[Movie]
	if err := c.getJSON(ctx, "games/{id}/movies", "games/"+strconv.Itoa(id)+"/movies", nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

func badID(endpoint string, id int) error {
	return &FetchError{Kind: KindBadRequestURL, Endpoint: endpoint, Err: fmt.Errorf("invalid game id %d", id)}
}
