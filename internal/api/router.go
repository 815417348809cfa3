// Package api wires the HTTP surface of rawgdex onto gin.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/timmy/rawgdex/internal/api/handler"
	"github.com/timmy/rawgdex/internal/api/middleware"
	"github.com/timmy/rawgdex/internal/logger"
	"github.com/timmy/rawgdex/internal/service"
)

// Deps are the services the router serves.
type Deps struct {
	Browse  *service.BrowseService
	Detail  handler.GameDetailer
	Genres  handler.GenreLister
	Ping    handler.PingFunc
	Metrics MetricsProvider
	Logger  *logger.Logger
	CORS    middleware.CORSConfig
	// WaitTimeout bounds ?wait=true on session commands.
	WaitTimeout time.Duration
}

// MetricsProvider serves /metrics and observes API requests.
type MetricsProvider interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(deps.CORS))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	healthHandler := handler.NewHealthHandler(deps.Browse, deps.Ping)
	catalogHandler := handler.NewCatalogHandler(deps.Genres)
	sessionHandler := handler.NewSessionHandler(deps.Browse, deps.WaitTimeout)
	gameHandler := handler.NewGameHandler(deps.Detail)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Catalog
		v1.GET("/feeds", catalogHandler.Feeds)
		v1.GET("/genres", catalogHandler.Genres)

		// Browse sessions
		sessions := v1.Group("/sessions")
		sessions.GET("", sessionHandler.List)
		sessions.POST("", sessionHandler.Create)
		session := sessions.Group("/:id", middleware.SessionScope("id"))
		session.GET("", sessionHandler.Get)
		session.POST("/reload", sessionHandler.Reload)
		session.POST("/more", sessionHandler.LoadMore)
		session.PUT("/filter", sessionHandler.SetFilter)
		session.DELETE("", sessionHandler.Close)

		// Games
		v1.GET("/games/:id", gameHandler.Get)
	}

	return r
}
