package auth

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/festify/festify/internal/config"
)

const contextClaimsKey = "authClaims"

// Middleware rejects requests without a valid, unrevoked bearer token
// and stores the claims on the gin context for handlers.
func Middleware(cfg *config.Config, store TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenString, err := ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header",
			})
			c.Abort()
			return
		}

		claims, err := ValidateToken(cfg, tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			c.Abort()
			return
		}

		revoked, err := store.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			log.Printf("token store lookup failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to verify token",
			})
			c.Abort()
			return
		}
		if revoked {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Token has been revoked",
			})
			c.Abort()
			return
		}

		c.Set(contextClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by Middleware.
func ClaimsFromContext(c *gin.Context) (*Claims, bool) {
	value, exists := c.Get(contextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok
}
