package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/streamevents/streamevents/internal/storage"
)

const userContextKey = "currentUser"

// requestLogger logs one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// sessionMiddleware resolves the session token, if any, to a user and puts
// it on the context. Requests without a valid token proceed anonymously.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			if cookie, err := c.Cookie("session"); err == nil {
				token = cookie
			}
		}
		if token == "" {
			c.Next()
			return
		}

		session, err := s.db.GetSession(token)
		if err != nil || session == nil {
			c.Next()
			return
		}
		user, err := s.db.GetUser(session.UserID)
		if err != nil || user == nil {
			c.Next()
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// requireAuth aborts anonymous requests.
func (s *Server) requireAuth(c *gin.Context) {
	if currentUser(c) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Next()
}

// currentUser returns the authenticated user or nil.
func currentUser(c *gin.Context) *storage.User {
	if v, ok := c.Get(userContextKey); ok {
		if u, ok := v.(*storage.User); ok {
			return u
		}
	}
	return nil
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
