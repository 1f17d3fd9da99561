package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/simpledrive/internal/auth"
	"github.com/lgulliver/simpledrive/pkg/types"
	"github.com/rs/zerolog/log"
)

const (
	claimsKey = "claims"

	ErrCodeUnauthorized  = "auth.unauthorized"
	ErrCodeInvalidToken  = "auth.invalid_token"
	ErrCodeTokenNotFound = "auth.token_not_found"
)

// AuthMiddleware requires a Bearer token that was issued by this service
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Authorization header missing or invalid", ErrCodeUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			abortUnauthorized(c, "Authorization header missing or invalid", ErrCodeUnauthorized)
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(claimsKey, claims)
			c.Next()
		case errors.Is(err, auth.ErrTokenNotFound):
			abortUnauthorized(c, "Token not found", ErrCodeTokenNotFound)
		case errors.Is(err, auth.ErrInvalidToken):
			abortUnauthorized(c, "Invalid or expired token", ErrCodeInvalidToken)
		default:
			log.Error().Err(err).Msg("token validation failed")
			abortUnauthorized(c, "Invalid or expired token", ErrCodeInvalidToken)
		}
	}
}

func abortUnauthorized(c *gin.Context, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, types.APIResponse{
		Success:   false,
		Message:   message,
		ErrorCode: code,
	})
}

// GetClaimsFromContext extracts the validated token claims from gin context
func GetClaimsFromContext(c *gin.Context) (*types.TokenClaims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*types.TokenClaims)
	return claims, ok
}
