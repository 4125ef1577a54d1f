package auth

import (
	"net/http"
	"strings"
	"time"

	"standingwave/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SessionSubject is the single collaborator identity; there are no user
// accounts, only one operator credential.
const SessionSubject = "collaborator"

const sessionIdleTimeout = 30 * time.Minute

// AuthMiddleware validates the bearer token against the redis session.
// When auth is disabled in config it passes everything through.
func AuthMiddleware(cfg *config.Config, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AuthEnabled() || rdb == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Missing or invalid Authorization header"}})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := ParseJWT(cfg.Server.JWTSecret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Invalid or expired token"}})
			return
		}
		sessionToken, err := GetSession(rdb, claims.Subject)
		if err != nil || sessionToken != tokenStr {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Session expired or invalid"}})
			return
		}
		// Refresh the inactivity window on every authenticated request.
		_ = SetSession(rdb, claims.Subject, tokenStr, sessionIdleTimeout)

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
