package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCounter reports the number of open browse sessions.
type SessionCounter interface {
	Len() int
}

// PingFunc checks a backing store.
type PingFunc func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	sessions SessionCounter
	ping     PingFunc
}

// NewHealthHandler creates a new health handler. ping may be nil when no
// database is configured.
func NewHealthHandler(sessions SessionCounter, ping PingFunc) *HealthHandler {
	return &HealthHandler{sessions: sessions, ping: ping}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.sessions != nil {
		body["sessions"] = h.sessions.Len()
	}
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	c.JSON(http.StatusOK, body)
}
