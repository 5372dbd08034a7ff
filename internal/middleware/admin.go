package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware guards the pipeline-trigger endpoints behind the admin
// API key.
type AdminMiddleware struct {
	apiKey string
}

// NewAdminMiddleware creates the middleware with the configured key.
func NewAdminMiddleware(apiKey string) *AdminMiddleware {
	return &AdminMiddleware{apiKey: apiKey}
}

// RequireAdminAuth validates the admin API key. The key is accepted as a
// Bearer token, an X-API-Key header, or an api_key query parameter.
func (am *AdminMiddleware) RequireAdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.apiKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Admin access disabled",
				"message": "No admin API key is configured",
			})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) == 2 && tokenParts[0] == "Bearer" && tokenParts[1] == am.apiKey {
				c.Next()
				return
			}
		}

		if c.GetHeader("X-API-Key") == am.apiKey {
			c.Next()
			return
		}

		// Query parameter fallback, for development only.
		if c.Query("api_key") == am.apiKey {
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Valid admin API key required for this endpoint",
		})
		c.Abort()
	}
}

// ValidateAdminKey reports whether key matches the configured admin key.
func (am *AdminMiddleware) ValidateAdminKey(key string) bool {
	return am.apiKey != "" && key == am.apiKey
}
