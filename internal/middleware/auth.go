package middleware

import (
	"fmt"
	"net/http"
	"strings"

	liveService "anoa.com/clubportal/internal/modules/live/service"
	userDto "anoa.com/clubportal/internal/modules/user/dto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type AuthMiddleware struct {
	live   liveService.Synchronizer
	secret string
}

func NewAuthMiddleware(live liveService.Synchronizer, secret string) *AuthMiddleware {
	if secret == "" {
		secret = "change-me"
	}

	return &AuthMiddleware{
		live:   live,
		secret: secret,
	}
}

// claims returns nil when the request carries no valid token.
func (m *AuthMiddleware) claims(c *gin.Context) (*userDto.Claims, error) {
	tokenString := ""
	authHeader := c.GetHeader("Authorization")

	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}

	// Fallback to query parameter "token" (useful for WebSockets)
	if tokenString == "" {
		tokenString = c.Query("token")
	}

	if tokenString == "" {
		return nil, nil
	}

	claims := &userDto.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid or expired token")
	}
	return claims, nil
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.claims(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("claims", claims)
		c.Next()
	}
}

// OptionalAuth sets the identity when a valid token is present and lets
// anonymous requests through.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := m.claims(c); err == nil && claims != nil {
			c.Set("user_id", claims.Subject)
			c.Set("claims", claims)
		}
		c.Next()
	}
}

// RequireAdmin checks the caller against the latest admin id snapshot.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		if !m.live.Current().AdminIDs.Contains(userID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
