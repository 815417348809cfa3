package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/timmy/rawgdex/internal/pager"
	"github.com/timmy/rawgdex/internal/rawg"
)

func (c *Catalog) search(pageSize int) pager.FetchFunc[rawg.GameSummary, Filter] {
	return func(ctx context.Context, f Filter, cursor pager.Cursor) (pager.Page[rawg.GameSummary], error) {
		query := strings.TrimSpace(f.Query)
		if query == "" {
			return pager.Page[rawg.GameSummary]{Items: []rawg.GameSummary{}}, nil
		}
		page, err := c.client.Games(ctx, rawg.GamesQuery{Search: query, PageSize: pageSize}, cursor)
		if err != nil {
			return page, err
		}
		RankSearchResults(page.Items, query)
		return page, nil
	}
}

// RankSearchResults orders one page of results in place: exact name
// matches first, then prefix matches, then newer releases, then higher
// rating. Games without a release date fall back to rating.
func RankSearchResults(games []rawg.GameSummary, query string) {
	q := strings.ToLower(strings.TrimSpace(query))
	sort.SliceStable(games, func(i, j int) bool {
		a, b := games[i], games[j]
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)

		if ae, be := an == q, bn == q; ae != be {
			return ae
		}
		if ap, bp := strings.HasPrefix(an, q), strings.HasPrefix(bn, q); ap != bp {
			return ap
		}
		// RAWG dates are YYYY-MM-DD, so string order is date order.
		if a.Released != "" && b.Released != "" && a.Released != b.Released {
			return a.Released > b.Released
		}
		return a.Rating > b.Rating
	})
}
