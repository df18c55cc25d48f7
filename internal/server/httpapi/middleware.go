package httpapi

import (
	"net/http"
	"strings"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key under which requireAuth stores the
// authenticated user id.
const userIDKey = "user_id"

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AccessTokenHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func (s *Server) userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
