package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// AuthConfig holds the credentials accepted under /api/v1
type AuthConfig struct {
	// SchedulerSecret is presented by scheduled jobs in X-Scheduler-Secret
	SchedulerSecret string

	// OperatorTokens maps bearer tokens to operator actor IDs
	OperatorTokens map[string]int64
}

const (
	schedulerSecretHeader = "X-Scheduler-Secret"
	callerKey             = "caller"
)

// Caller identifies who made a request
type Caller struct {
	ActorID   int64
	Scheduler bool
}

// loggingMiddleware logs every request after it completes
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// authMiddleware accepts the scheduler secret or an operator bearer token
// and rejects anonymous calls with 401.
func authMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret := c.GetHeader(schedulerSecretHeader); secret != "" && cfg.SchedulerSecret != "" {
			if subtle.ConstantTimeCompare([]byte(secret), []byte(cfg.SchedulerSecret)) == 1 {
				c.Set(callerKey, Caller{Scheduler: true})
				c.Next()
				return
			}
		}

		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if actorID, found := cfg.OperatorTokens[token]; found {
				c.Set(callerKey, Caller{ActorID: actorID})
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "authentication required",
		})
	}
}

// requireOperator rejects callers without an operator identity, since task
// actions are attributed to an actor.
func requireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller := callerFrom(c); caller.ActorID == 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "operator token required",
			})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func callerFrom(c *gin.Context) Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(Caller); ok {
			return caller
		}
	}
	return Caller{}
}
