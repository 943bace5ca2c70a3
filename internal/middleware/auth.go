package middleware

import (
	"net/http"
	"strings"

	"imposter-game-backend/internal/services"

	"github.com/gin-gonic/gin"
)

const ClaimsKey = "claims"

// SessionAuth accepts a bearer token of the given role issued for the
// session named by the :id path parameter.
func SessionAuth(authService *services.AuthService, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required", "code": "UNAUTHORIZED"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format", "code": "UNAUTHORIZED"})
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "code": "UNAUTHORIZED"})
			return
		}
		if claims.SessionID != c.Param("id") || claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token not valid for this action", "code": "UNAUTHORIZED"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func HostAuth(authService *services.AuthService) gin.HandlerFunc {
	return SessionAuth(authService, services.TokenRoleHost)
}

func PlayerAuth(authService *services.AuthService) gin.HandlerFunc {
	return SessionAuth(authService, services.TokenRolePlayer)
}

// Claims returns the claims stored by SessionAuth.
func Claims(c *gin.Context) *services.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*services.Claims)
	return claims
}
