package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// GenreFilter narrows a game feed to one genre. The zero value is AllGenres.
type GenreFilter struct {
	ID int
}

// AllGenres disables the genre filter.
var AllGenres = GenreFilter{}

// Genre returns the filter for one genre id.
func Genre(id int) GenreFilter {
	return GenreFilter{ID: id}
}

// ParseGenreFilter accepts "all", an empty string, or a positive genre id.
func ParseGenreFilter(s string) (GenreFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return AllGenres, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return AllGenres, fmt.Errorf("invalid genre filter %q", s)
	}
	return GenreFilter{ID: id}, nil
}

// IsAll reports whether the filter lets every genre through.
func (g GenreFilter) IsAll() bool {
	return g.ID <= 0
}

func (g GenreFilter) String() string {
	if g.IsAll() {
		return "all"
	}
	return strconv.Itoa(g.ID)
}

func (g GenreFilter) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *GenreFilter) UnmarshalText(text []byte) error {
	parsed, err := ParseGenreFilter(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Filter is the filter value every feed is keyed on. Feeds read only the
// fields they support: genre feeds read Genre, platform-games also reads
// Platform, and search reads Query.
type Filter struct {
	Genre    GenreFilter `json:"genre"`
	Platform int         `json:"platform,omitempty"`
	Query    string      `json:"query,omitempty"`
}

func (f Filter) String() string {
	var parts []string
	parts = append(parts, "genre="+f.Genre.String())
	if f.Platform > 0 {
		parts = append(parts, "platform="+strconv.Itoa(f.Platform))
	}
	if f.Query != "" {
		parts = append(parts, "query="+strconv.Quote(f.Query))
	}
	return strings.Join(parts, " ")
}
