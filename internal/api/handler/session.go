package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/timmy/rawgdex/internal/api/middleware"
	"github.com/timmy/rawgdex/internal/catalog"
	"github.com/timmy/rawgdex/internal/pager"
	"github.com/timmy/rawgdex/internal/service"
)

// genreParam accepts a genre as "all", a numeric string, or a JSON number.
type genreParam struct {
	catalog.GenreFilter
}

func (g *genreParam) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		g.GenreFilter = catalog.AllGenres
		return nil
	}
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	parsed, err := catalog.ParseGenreFilter(raw)
	if err != nil {
		return err
	}
	g.GenreFilter = parsed
	return nil
}

// FilterRequest is the body of PUT /sessions/:id/filter.
type FilterRequest struct {
	Genre    genreParam `json:"genre"`
	Platform int        `json:"platform"`
	Query    string     `json:"query"`
}

func (r FilterRequest) filter() catalog.Filter {
	return catalog.Filter{Genre: r.Genre.GenreFilter, Platform: r.Platform, Query: r.Query}
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Feed string `json:"feed" binding:"required"`
	FilterRequest
}

// SessionHandler exposes browse sessions. Commands do not block on RAWG
// unless the caller asks with ?wait=true, in which case the handler waits up
// to waitTimeout for the command to settle.
type SessionHandler struct {
	browse      *service.BrowseService
	waitTimeout time.Duration
}

// NewSessionHandler creates a new session handler.
// Parameters:
//   - browse: browse service instance.
//   - waitTimeout: upper bound for ?wait=true; zero waits for the request context only.
//
// Returns:
//   - *SessionHandler: initialized handler.
func NewSessionHandler(browse *service.BrowseService, waitTimeout time.Duration) *SessionHandler {
	return &SessionHandler{browse: browse, waitTimeout: waitTimeout}
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(c *gin.Context) {
	views := h.browse.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": views,
		"count":    len(views),
	})
}

// Create handles POST /api/v1/sessions.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes 201 with the settled state when waiting, 202 otherwise).
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	id, done, err := h.browse.Create(c.Request.Context(), req.Feed, req.filter())
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.TagSession(c, id)
	c.Header("Location", fmt.Sprintf("%s/%s", c.FullPath(), id))
	h.respond(c, id, done, http.StatusCreated)
}

// Get handles GET /api/v1/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	view, err := h.browse.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Reload handles POST /api/v1/sessions/:id/reload.
func (h *SessionHandler) Reload(c *gin.Context) {
	id := c.Param("id")
	done, err := h.browse.Reload(id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, id, done, http.StatusOK)
}

// LoadMore handles POST /api/v1/sessions/:id/more.
func (h *SessionHandler) LoadMore(c *gin.Context) {
	id := c.Param("id")
	done, err := h.browse.LoadMore(id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, id, done, http.StatusOK)
}

// SetFilter handles PUT /api/v1/sessions/:id/filter.
func (h *SessionHandler) SetFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	id := c.Param("id")
	done, err := h.browse.SetFilter(id, req.filter())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, id, done, http.StatusOK)
}

// Close handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) Close(c *gin.Context) {
	if err := h.browse.Close(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respond writes the settled view with status settled when the caller
// waits and the command settles in time. Otherwise it answers 202 with the
// state as it is now.
func (h *SessionHandler) respond(c *gin.Context, id string, done service.Completion, settled int) {
	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		ctx := c.Request.Context()
		if h.waitTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.waitTimeout)
			defer cancel()
		}
		view, err := done.Wait(ctx)
		if err == nil {
			if view.Outcome == pager.OutcomeClosed.String() {
				respondError(c, service.ErrSessionNotFound)
				return
			}
			c.JSON(settled, view)
			return
		}
		middleware.GetLogger(c).Debugf("Gave up waiting on session %s: %v", id, err)
	}

	view, err := h.browse.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}
