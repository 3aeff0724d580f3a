package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/textadventure/server/cache"
	"github.com/kasuganosora/textadventure/server/config"
)

const (
	AccountIDKey = "account_id"
	TokenKey     = "token"
)

// SessionKey is the cache key marking a login token as live.
func SessionKey(token string) string { return "auth:" + token }

// bearer extracts the token from the Authorization header, falling back
// to the token query parameter for EventSource clients.
func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// Auth validates the JWT and checks that its login has not been revoked.
func Auth(sec config.SecurityConfig, store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearer(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		live, err := store.Exists(cacheCtx, SessionKey(tokenStr))
		if err != nil || !live {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set(TokenKey, tokenStr)
		c.Next()
	}
}

// GetAccountID retrieves the authenticated account ID from the Gin context.
func GetAccountID(c *gin.Context) int64 {
	return c.GetInt64(AccountIDKey)
}

// GetToken retrieves the raw token the request authenticated with.
func GetToken(c *gin.Context) string {
	return c.GetString(TokenKey)
}
