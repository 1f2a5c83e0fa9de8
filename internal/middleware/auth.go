// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopora/shopora-backend/internal/models"
	"github.com/shopora/shopora-backend/internal/tenant"
	"github.com/shopora/shopora-backend/internal/utils"
)

const principalKey = "principal"

// AuthRequired validates the bearer token and builds the request Principal
// exactly once. Everything downstream reads identity from the Principal,
// never from raw claims.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		principal := tenant.Principal{
			UserID: userID,
			Role:   models.UserRole(claims.Role),
		}
		if claims.StoreID != "" {
			if storeID, err := uuid.Parse(claims.StoreID); err == nil {
				principal.StoreID = &storeID
			}
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RoleRequired gates a route group to the given roles. Must run after
// AuthRequired.
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			c.Abort()
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to access this resource"})
		c.Abort()
	}
}

func GetPrincipal(c *gin.Context) (tenant.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return tenant.Principal{}, false
	}
	principal, ok := value.(tenant.Principal)
	return principal, ok
}
