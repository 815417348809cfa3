// Package pager coordinates paged list feeds: it accumulates pages fetched
// from a cursor-paged resource, resets on filter changes, and drops
// responses that belong to an older filter epoch.
package pager

import (
	"fmt"
	"strconv"
	"strings"
)

type cursorKind uint8

const (
	cursorNone cursorKind = iota
	cursorToken
	cursorPage
)

// Cursor tells a fetch function which page to return. It is either empty,
// an opaque token handed out by the API (RAWG returns an absolute URL), or a
// page number used when the API did not echo a token.
type Cursor struct {
	kind  cursorKind
	token string
	page  int
}

// NoCursor marks the end of a feed.
var NoCursor = Cursor{}

// Token wraps an opaque next-page token. An empty token is NoCursor.
func Token(token string) Cursor {
	if token == "" {
		return NoCursor
	}
	return Cursor{kind: cursorToken, token: token}
}

// PageNumber wraps a 1-based page index. Values below 1 are clamped to 1.
func PageNumber(page int) Cursor {
	if page < 1 {
		page = 1
	}
	return Cursor{kind: cursorPage, page: page}
}

// FirstPage is the cursor every reload starts from.
func FirstPage() Cursor {
	return PageNumber(1)
}

// IsNone reports whether the cursor points nowhere.
func (c Cursor) IsNone() bool {
	return c.kind == cursorNone
}

// TokenValue returns the token and true when c is a token cursor.
func (c Cursor) TokenValue() (string, bool) {
	return c.token, c.kind == cursorToken
}

// PageValue returns the page number and true when c is a page cursor.
func (c Cursor) PageValue() (int, bool) {
	return c.page, c.kind == cursorPage
}

func (c Cursor) String() string {
	switch c.kind {
	case cursorToken:
		return "token:" + c.token
	case cursorPage:
		return "page:" + strconv.Itoa(c.page)
	default:
		return "none"
	}
}

// MarshalText renders the cursor for JSON views.
func (c Cursor) MarshalText() ([]byte, error) {
	if c.IsNone() {
		return []byte(""), nil
	}
	return []byte(c.String()), nil
}

// UnmarshalText parses the form written by MarshalText. Empty text and
// "none" decode to NoCursor.
func (c *Cursor) UnmarshalText(text []byte) error {
	s := string(text)
	switch {
	case s == "" || s == "none":
		*c = NoCursor
	case strings.HasPrefix(s, "token:"):
		*c = Token(strings.TrimPrefix(s, "token:"))
	case strings.HasPrefix(s, "page:"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "page:"))
		if err != nil || n < 1 {
			return fmt.Errorf("pager: invalid page cursor %q", s)
		}
		*c = PageNumber(n)
	default:
		return fmt.Errorf("pager: invalid cursor %q", s)
	}
	return nil
}
