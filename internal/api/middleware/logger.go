package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/timmy/rawgdex/internal/logger"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const loggerKey = "logger"

// Logger returns a Gin middleware that tags each request with an ID and a
// request-scoped logger, then logs its completion.
// Parameters:
//   - log: base logger to enrich with request fields.
//
// Returns:
//   - gin.HandlerFunc: middleware handler.
func Logger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetDefault()
	}
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}

		ctx := log.WithContext(c.Request.Context())
		ctx = logger.SetRequestID(ctx, requestID)
		ctx = logger.SetComponent(ctx, "api")
		c.Request = c.Request.WithContext(ctx)
		c.Set(loggerKey, logger.FromContext(ctx))
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		entry := logger.With(logger.Fields{
			logger.FieldStatus:     status,
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			"client_ip":            c.ClientIP(),
		})
		if sessionID := logger.GetSessionID(c.Request.Context()); sessionID != "" {
			entry = entry.With(logger.Fields{logger.FieldSessionID: sessionID})
		}
		if len(c.Errors) > 0 {
			entry = entry.With(logger.Fields{"error": c.Errors.String()})
		}

		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		switch {
		case status >= 500:
			entry.Error(ctx, "%s %s", c.Request.Method, path)
		case status >= 400:
			entry.Warn(ctx, "%s %s", c.Request.Method, path)
		default:
			entry.Info(ctx, "%s %s", c.Request.Method, path)
		}
	}
}

// GetLogger extracts the request logger from the Gin context.
// Parameters:
//   - c: Gin request context.
//
// Returns:
//   - *logger.Logger: request-scoped logger or the context/default logger.
func GetLogger(c *gin.Context) *logger.Logger {
	if l, exists := c.Get(loggerKey); exists {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.FromContext(c.Request.Context())
}

// TagSession attaches a browse session ID to the request logger, so handler
// logs and the access log carry it.
func TagSession(c *gin.Context, sessionID string) {
	ctx := logger.SetSessionID(c.Request.Context(), sessionID)
	c.Request = c.Request.WithContext(ctx)
	c.Set(loggerKey, logger.FromContext(ctx))
}

// SessionScope tags requests on session routes with the session ID taken
// from the named path parameter.
func SessionScope(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.Param(param); id != "" {
			TagSession(c, id)
		}
		c.Next()
	}
}
