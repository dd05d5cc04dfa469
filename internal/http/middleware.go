package http

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "authorization_header_missing"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(401, gin.H{"error": "authorization_header_invalid"})
			return
		}

		// Token format: token_{userUUID}_{random}
		token := parts[1]
		if !strings.HasPrefix(token, "token_") {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid_token_format"})
			return
		}
		tokenParts := strings.Split(token, "_")
		if len(tokenParts) < 3 {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid_token_structure"})
			return
		}
		uuid := tokenParts[1]

		user, err := s.users.ByUUID(uuid)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid_token_user_not_found"})
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Next()
	}
}
