package rawg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope is the paging wrapper around every RAWG list response.
type Envelope[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// FlexibleInt decodes counters that RAWG sends either as numbers or as
// numeric strings. It re-encodes in the form it was read.
type FlexibleInt struct {
	value  int
	text   string
	quoted bool
	set    bool
}

// NewFlexibleInt returns a numeric FlexibleInt.
func NewFlexibleInt(n int) FlexibleInt {
	return FlexibleInt{value: n, set: true}
}

// Int returns the numeric value and whether there is one.
func (f FlexibleInt) Int() (int, bool) {
	if !f.set {
		return 0, false
	}
	if f.quoted {
		n, err := strconv.Atoi(f.text)
		return n, err == nil
	}
	return f.value, true
}

func (f FlexibleInt) String() string {
	if f.quoted {
		return f.text
	}
	if !f.set {
		return ""
	}
	return strconv.Itoa(f.value)
}

func (f *FlexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FlexibleInt{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleInt{text: s, quoted: true, set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexible int: %w", err)
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("flexible int %q: %w", n, err)
	}
	*f = FlexibleInt{value: int(i), set: true}
	return nil
}

func (f FlexibleInt) MarshalJSON() ([]byte, error) {
	switch {
	case !f.set:
		return []byte("null"), nil
	case f.quoted:
		return json.Marshal(f.text)
	default:
		return []byte(strconv.Itoa(f.value)), nil
	}
}

// NamedRef is the {id, name, slug} triple RAWG nests everywhere.
type NamedRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// PlatformRef wraps a platform as it appears inside a game list item.
type PlatformRef struct {
	Platform NamedRef `json:"platform"`
}

// GameSummary is one row of /games.
type GameSummary struct {
	ID              int           `json:"id"`
	Slug            string        `json:"slug"`
	Name            string        `json:"name"`
	BackgroundImage string        `json:"background_image"`
	Rating          float64       `json:"rating"`
	Released        string        `json:"released"`
	Added           int           `json:"added"`
	Metacritic      int           `json:"metacritic"`
	Genres          []NamedRef    `json:"genres"`
	Platforms       []PlatformRef `json:"platforms"`
}

// PlatformNames lists the platform names of g in API order.
func (g GameSummary) PlatformNames() []string {
	names := make([]string, 0, len(g.Platforms))
	for _, p := range g.Platforms {
		names = append(names, p.Platform.Name)
	}
	return names
}

// Genre is one row of /genres.
type Genre struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	GamesCount      int    `json:"games_count"`
	ImageBackground string `json:"image_background"`
}

// PlatformGame is a sample game embedded in a platform row.
type PlatformGame struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Added int    `json:"added"`
}

// Platform is one row of /platforms.
type Platform struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	GamesCount      int            `json:"games_count"`
	ImageBackground string         `json:"image_background"`
	Image           string         `json:"image"`
	YearStart       *int           `json:"year_start"`
	YearEnd         *int           `json:"year_end"`
	Games           []PlatformGame `json:"games"`
}

type Rating struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type AddedByStatus struct {
	Yet     int `json:"yet"`
	Owned   int `json:"owned"`
	Beaten  int `json:"beaten"`
	ToPlay  int `json:"toplay"`
	Dropped int `json:"dropped"`
	Playing int `json:"playing"`
}

type MetacriticPlatform struct {
	Metascore int    `json:"metascore"`
	URL       string `json:"url"`
	Platform  struct {
		Platform int    `json:"platform"`
		Name     string `json:"name"`
		Slug     string `json:"slug"`
	} `json:"platform"`
}

type Requirements struct {
	Minimum     string `json:"minimum"`
	Recommended string `json:"recommended"`
}

// GamePlatform is a platform entry of a game detail, with release date and
// PC-style requirements.
type GamePlatform struct {
	Platform struct {
		NamedRef
		Image           string `json:"image"`
		YearStart       *int   `json:"year_start"`
		YearEnd         *int   `json:"year_end"`
		GamesCount      int    `json:"games_count"`
		ImageBackground string `json:"image_background"`
	} `json:"platform"`
	ReleasedAt   string        `json:"released_at"`
	Requirements *Requirements `json:"requirements"`
}

type Store struct {
	NamedRef
	Domain          string `json:"domain"`
	GamesCount      int    `json:"games_count"`
	ImageBackground string `json:"image_background"`
}

type StoreLink struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Store Store  `json:"store"`
}

// Company is a developer or publisher.
type Company struct {
	NamedRef
	GamesCount      int    `json:"games_count"`
	ImageBackground string `json:"image_background"`
}

type Tag struct {
	NamedRef
	Language        string `json:"language"`
	GamesCount      int    `json:"games_count"`
	ImageBackground string `json:"image_background"`
}

// GameDetail is the body of /games/{id}.
type GameDetail struct {
	ID                        int                  `json:"id"`
	Slug                      string               `json:"slug"`
	Name                      string               `json:"name"`
	NameOriginal              string               `json:"name_original"`
	Description               string               `json:"description"`
	DescriptionRaw            string               `json:"description_raw"`
	Metacritic                int                  `json:"metacritic"`
	MetacriticPlatforms       []MetacriticPlatform `json:"metacritic_platforms"`
	MetacriticURL             string               `json:"metacritic_url"`
	Released                  string               `json:"released"`
	TBA                       bool                 `json:"tba"`
	Updated                   string               `json:"updated"`
	BackgroundImage           string               `json:"background_image"`
	BackgroundImageAdditional string               `json:"background_image_additional"`
	Website                   string               `json:"website"`
	Rating                    float64              `json:"rating"`
	RatingTop                 int                  `json:"rating_top"`
	Ratings                   []Rating             `json:"ratings"`
	Reactions                 map[string]int       `json:"reactions"`
	Added                     int                  `json:"added"`
	AddedByStatus             *AddedByStatus       `json:"added_by_status"`
	Playtime                  int                  `json:"playtime"`
	ScreenshotsCount          int                  `json:"screenshots_count"`
	MoviesCount               int                  `json:"movies_count"`
	CreatorsCount             int                  `json:"creators_count"`
	AchievementsCount         int                  `json:"achievements_count"`
	ParentAchievementsCount   FlexibleInt          `json:"parent_achievements_count"`
	RedditURL                 string               `json:"reddit_url"`
	RedditName                string               `json:"reddit_name"`
	RedditDescription         string               `json:"reddit_description"`
	RedditLogo                string               `json:"reddit_logo"`
	RedditCount               int                  `json:"reddit_count"`
	TwitchCount               FlexibleInt          `json:"twitch_count"`
	YoutubeCount              FlexibleInt          `json:"youtube_count"`
	ReviewsTextCount          FlexibleInt          `json:"reviews_text_count"`
	RatingsCount              int                  `json:"ratings_count"`
	SuggestionsCount          int                  `json:"suggestions_count"`
	AlternativeNames          []string             `json:"alternative_names"`
	ParentsCount              int                  `json:"parents_count"`
	AdditionsCount            int                  `json:"additions_count"`
	GameSeriesCount           int                  `json:"game_series_count"`
	ESRBRating                *NamedRef            `json:"esrb_rating"`
	ParentPlatforms           []PlatformRef        `json:"parent_platforms"`
	Platforms                 []GamePlatform       `json:"platforms"`
	Stores                    []StoreLink          `json:"stores"`
	Developers                []Company            `json:"developers"`
	Publishers                []Company            `json:"publishers"`
	Genres                    []Genre              `json:"genres"`
	Tags                      []Tag                `json:"tags"`
}

// Screenshot is one row of /games/{id}/screenshots.
type Screenshot struct {
	ID     int    `json:"id"`
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Hidden bool   `json:"hidden"`
}

// MovieData holds trailer URLs by resolution.
type MovieData struct {
	Max  string `json:"max"`
	P480 string `json:"480"`
}

// Movie is one row of /games/{id}/movies.
type Movie struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	Preview string    `json:"preview"`
	Data    MovieData `json:"data"`
}
