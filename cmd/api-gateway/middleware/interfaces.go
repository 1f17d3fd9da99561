package middleware

import (
	"context"

	"github.com/lgulliver/simpledrive/pkg/types"
)

// TokenValidator defines the contract for authentication services
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}
