package middleware

import (
	"net/http"
	"strings"

	"tapminer/internal/service"

	"github.com/gin-gonic/gin"
)

// ContextAccountID is the gin context key holding the authenticated
// account id (int64).
const ContextAccountID = "user_id"

// JWT rejects requests without a valid "Authorization: Bearer <token>".
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing bearer token"})
			return
		}

		accountID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid token"})
			return
		}

		c.Set(ContextAccountID, accountID)
		c.Next()
	}
}
