package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-trial-monitor/internal/metrics"
	"github.com/mr1hm/go-trial-monitor/internal/session"
)

const sessionKey = "session"

// requireSession resolves the bearer token into a session. When roles are
// given the session's role must be one of them.
func (h *Handler) requireSession(roles ...session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		sess, ok := h.sessions.Lookup(strings.TrimSpace(token))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, sess.User.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden for role " + string(sess.User.Role)})
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// MetricsMiddleware records request counts and latency per route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
