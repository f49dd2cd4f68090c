package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamwire-backend/pkg/jwt"
)

const (
	contextUserID   = "user_id"
	contextUsername = "username"
)

// AuthMiddleware creates a Gin middleware that validates JWT tokens.
// The token comes from the Authorization header, with a "token" query
// parameter fallback for WebSocket upgrades where browsers cannot set
// headers. If valid, it sets user_id and username in the Gin context.
func AuthMiddleware(jwtManager *jwt.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextUsername, claims.Username)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// GetUserID returns the authenticated user's ID from the Gin context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(contextUserID)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := val.(uuid.UUID)
	return userID, ok
}

// GetUsername returns the authenticated user's username from the Gin context
func GetUsername(c *gin.Context) (string, bool) {
	val, exists := c.Get(contextUsername)
	if !exists {
		return "", false
	}
	username, ok := val.(string)
	return username, ok
}
