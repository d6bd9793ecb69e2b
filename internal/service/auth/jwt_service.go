// Package auth validates caller identity for the HTTP and WebSocket APIs.
// Users are managed elsewhere; this package only issues and checks the
// HMAC-signed access tokens that carry a user ID.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService issues and checks access tokens. The REST middleware reads the
// token from the Authorization header and the task socket from its token
// query parameter; both go through ValidateToken.
type JWTService interface {
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken returns the token's claims, or one of the package errors
	// when the token is malformed, expired, not yet valid or not an access token.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the identity a validated token carries. The hub keys
// connections by UserID.
type Claims struct {
	UserID    uuid.UUID `json:"uid,omitempty"`
	TokenType string    `json:"type,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
