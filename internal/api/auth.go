package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BearerAuthMiddleware gates producer endpoints behind a shared secret.
// An empty key disables the check entirely.
func BearerAuthMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
