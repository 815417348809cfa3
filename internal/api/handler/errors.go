package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/rawgdex/internal/rawg"
	"github.com/timmy/rawgdex/internal/service"
)

// respondError writes err as {"error": message} with the status it maps to.
// Errors that end up as 5xx are also attached to the context for the
// request logger.
func respondError(c *gin.Context, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, service.ErrTooManySessions):
		return http.StatusConflict, "too many open sessions, close one and retry"
	case errors.Is(err, service.ErrUnknownFeed), errors.Is(err, service.ErrInvalidFilter):
		return http.StatusBadRequest, err.Error()
	}

	var fe *rawg.FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.Kind == rawg.KindBadRequestURL:
			return http.StatusBadRequest, err.Error()
		case fe.Kind == rawg.KindStatus && fe.Status == http.StatusNotFound:
			return http.StatusNotFound, rawg.UserMessage(err)
		default:
			return http.StatusBadGateway, rawg.UserMessage(err)
		}
	}
	return http.StatusInternalServerError, "internal server error"
}
