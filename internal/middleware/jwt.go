package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-observations/internal/models"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
	"github.com/noah-isme/sma-observations/pkg/response"
)

// ContextClaimsKey is the gin context key storing token claims.
const ContextClaimsKey = "tokenClaims"

// TokenValidator checks bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.TokenClaims, error)
}

// JWT protects routes by requiring a valid bearer token.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or invalid authorization header"))
			c.Abort()
			return
		}
		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// RequireScope rejects requests whose token lacks scope. It must run after JWT.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.HasScope(scope) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token lacks scope "+scope))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFromContext returns the claims set by JWT, if any.
func ClaimsFromContext(c *gin.Context) *models.TokenClaims {
	value, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.TokenClaims)
	return claims
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
