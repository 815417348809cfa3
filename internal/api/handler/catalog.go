package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/rawgdex/internal/catalog"
	"github.com/timmy/rawgdex/internal/rawg"
)

// GenreLister returns every RAWG genre.
type GenreLister interface {
	AllGenres(ctx context.Context) ([]rawg.Genre, error)
}

// CatalogHandler serves feed metadata and the genre list.
type CatalogHandler struct {
	genres GenreLister
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(genres GenreLister) *CatalogHandler {
	return &CatalogHandler{genres: genres}
}

// Feeds handles GET /api/v1/feeds.
func (h *CatalogHandler) Feeds(c *gin.Context) {
	feeds := catalog.Descriptors()
	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"count": len(feeds),
	})
}

// Genres handles GET /api/v1/genres. The list backs the genre filter.
func (h *CatalogHandler) Genres(c *gin.Context) {
	genres, err := h.genres.AllGenres(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"genres": genres,
		"count":  len(genres),
	})
}
