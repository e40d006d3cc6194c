// Package web exposes the JSON API: event CRUD, chat, accounts, and search.
package web

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamevents/streamevents/internal/search"
	"github.com/streamevents/streamevents/internal/semantic"
	"github.com/streamevents/streamevents/internal/storage"
)

// Server holds the handler dependencies.
type Server struct {
	db         *storage.DB
	idx        *search.Index
	provider   *semantic.Provider
	sessionTTL time.Duration
	appEnv     string
}

// NewServer creates the API server.
func NewServer(db *storage.DB, idx *search.Index, provider *semantic.Provider, sessionTTL time.Duration, appEnv string) *Server {
	if sessionTTL <= 0 {
		sessionTTL = 72 * time.Hour
	}
	return &Server{
		db:         db,
		idx:        idx,
		provider:   provider,
		sessionTTL: sessionTTL,
		appEnv:     appEnv,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.appEnv == "prod" || s.appEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/health/self", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(s.sessionMiddleware())
	{
		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/login", s.handleLogin)
		api.POST("/auth/logout", s.requireAuth, s.handleLogout)

		api.GET("/users/me", s.requireAuth, s.handleMe)
		api.PUT("/users/me", s.requireAuth, s.handleUpdateProfile)
		api.GET("/users/me/events", s.requireAuth, s.handleMyEvents)
		api.GET("/profiles/:username", s.handlePublicProfile)

		api.GET("/events", s.handleListEvents)
		api.POST("/events", s.requireAuth, s.handleCreateEvent)
		api.GET("/events/:id", s.handleGetEvent)
		api.PUT("/events/:id", s.requireAuth, s.handleUpdateEvent)
		api.DELETE("/events/:id", s.requireAuth, s.handleDeleteEvent)

		api.GET("/events/:id/chat", s.handleChatLoad)
		api.POST("/events/:id/chat", s.requireAuth, s.handleChatSend)
		api.DELETE("/chat/:id", s.requireAuth, s.handleChatDelete)
		api.POST("/chat/:id/highlight", s.requireAuth, s.handleChatHighlight)

		api.GET("/search", s.handleSearch)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	eventCount, _ := s.db.CountEvents()
	embeddedCount, _ := s.db.CountEmbeddedEvents()
	indexCount, _ := s.idx.Count()

	c.JSON(200, gin.H{
		"status":          "ok",
		"events":          eventCount,
		"events_embedded": embeddedCount,
		"events_indexed":  indexCount,
		"embedding_model": s.provider.ModelName(),
	})
}
