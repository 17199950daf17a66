package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/finops-api/internal/models"
)

const actorKey = "actor"

// Claims represents the JWT claims structure
type Claims struct {
	UserID         uint   `json:"user_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	BusinessUnitID uint   `json:"business_unit_id"`
	jwt.RegisteredClaims
}

// Auth returns a middleware that validates JWT tokens and stores the verified actor
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := ""

		if authHeader == "" {
			// Check query param for download links
			tokenString = c.Query("token")
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Authorization header is required",
				})
				return
			}
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid authorization header format",
				})
				return
			}
			tokenString = parts[1]
		}

		claims, err := validateToken(tokenString, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		actor := models.Actor{
			ID:             claims.UserID,
			Role:           models.ParseRole(claims.Role),
			BusinessUnitID: claims.BusinessUnitID,
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
		}
		if !actor.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token claims",
			})
			return
		}

		c.Set("userID", actor.ID)
		c.Set(actorKey, actor)
		c.Next()
	}
}

// validateToken parses and validates a JWT token string
func validateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token has expired")
		}
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// GetActor returns the verified caller, or the zero actor on public routes
func GetActor(c *gin.Context) models.Actor {
	v, exists := c.Get(actorKey)
	if !exists {
		return models.Actor{}
	}
	actor, _ := v.(models.Actor)
	return actor
}

// SetActor stores an actor on the context. Used by tests and internal callers.
func SetActor(c *gin.Context, actor models.Actor) {
	c.Set("userID", actor.ID)
	c.Set(actorKey, actor)
}

// Require returns a middleware that admits actors whose role passes allowed
func Require(allowed func(models.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allowed(GetActor(c).Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "You do not have access to this section",
			})
			return
		}
		c.Next()
	}
}

// RequireRole returns a middleware that requires one of the given roles
func RequireRole(allowedRoles ...models.Role) gin.HandlerFunc {
	return Require(func(r models.Role) bool {
		for _, role := range allowedRoles {
			if r == role {
				return true
			}
		}
		return false
	})
}
