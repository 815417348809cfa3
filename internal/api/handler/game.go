package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/rawgdex/internal/domain"
)

// GameDetailer loads the detail view of one game.
type GameDetailer interface {
	Get(ctx context.Context, id int) (*domain.GameView, error)
}

// GameHandler handles game detail endpoints.
type GameHandler struct {
	detail GameDetailer
}

// NewGameHandler creates a new game handler.
// Parameters:
//   - detail: detail service instance.
//
// Returns:
//   - *GameHandler: initialized handler.
func NewGameHandler(detail GameDetailer) *GameHandler {
	return &GameHandler{detail: detail}
}

// Get handles GET /api/v1/games/:id.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *GameHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id: " + c.Param("id")})
		return
	}

	view, err := h.detail.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
