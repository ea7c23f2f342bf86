package models

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token scopes understood by the observations API.
const (
	ScopeRead  = "observations:read"
	ScopeWrite = "observations:write"
)

// TokenClaims is the JWT payload carried by API clients.
type TokenClaims struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope.
func (c *TokenClaims) HasScope(scope string) bool {
	return c != nil && slices.Contains(c.Scopes, scope)
}

// IssueTokenRequest describes a token to mint.
type IssueTokenRequest struct {
	ClientID string   `json:"client_id" validate:"required"`
	Scopes   []string `json:"scopes" validate:"required,min=1,dive,oneof=observations:read observations:write"`
}

// TokenResponse is returned after minting a token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}
