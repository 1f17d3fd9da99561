package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lgulliver/simpledrive/internal/common"
	"github.com/lgulliver/simpledrive/pkg/config"
	"github.com/lgulliver/simpledrive/pkg/types"
	"github.com/lgulliver/simpledrive/pkg/utils"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials is returned when the client password does not match
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for tokens that fail signature or expiry checks
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenNotFound is returned for well-formed tokens that were never issued
	ErrTokenNotFound = errors.New("token not found")
)

const (
	defaultScope   = "default"
	tokenCacheKey  = "auth_token:%s"
	tokenCacheTTL  = 10 * time.Minute
	minBCryptCost  = 4
	defaultBCrypts = 12
)

// Cache is the subset of the Redis cache the service uses
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// Service issues and validates API tokens
type Service struct {
	db           *common.Database
	cache        Cache
	config       *config.AuthConfig
	passwordHash string
}

// NewService creates a new authentication service. cache may be nil.
func NewService(db *common.Database, cache Cache, cfg *config.AuthConfig) (*Service, error) {
	cost := cfg.BCryptCost
	if cost < minBCryptCost {
		cost = defaultBCrypts
	}

	// only the hash of the client password is kept in memory
	hash, err := utils.HashPassword(cfg.ClientPassword, cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash client password: %w", err)
	}

	return &Service{
		db:           db,
		cache:        cache,
		config:       cfg,
		passwordHash: hash,
	}, nil
}

// IssueToken checks the client credentials, signs a JWT and records its hash
func (s *Service) IssueToken(ctx context.Context, req *types.TokenRequest, clientInfo string) (string, error) {
	if strings.TrimSpace(req.Username) == "" || !utils.CheckPassword(req.Password, s.passwordHash) {
		return "", ErrInvalidCredentials
	}

	scope := req.Scope
	if scope == "" {
		scope = defaultScope
	}

	token, err := utils.GenerateJWT(req.Username, scope, clientInfo, s.config.JWTIssuer, s.config.JWTSecret, s.config.JWTExpiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	record := &types.AuthToken{
		TokenHash:   utils.HashToken(token),
		Subject:     req.Username,
		Scope:       scope,
		Description: fmt.Sprintf("API token for %s (%s scope)", req.Username, scope),
		ExpiresAt:   time.Now().Add(s.config.JWTExpiration),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	log.Info().Str("subject", req.Username).Str("scope", scope).Msg("token issued")
	return token, nil
}

// ValidateToken verifies the JWT and checks it was issued by this service
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*types.TokenClaims, error) {
	claims, err := utils.ValidateJWT(tokenString, s.config.JWTSecret)
	if err != nil {
		log.Debug().Err(err).Msg("jwt validation failed")
		return nil, ErrInvalidToken
	}

	hash := utils.HashToken(tokenString)
	cacheKey := fmt.Sprintf(tokenCacheKey, hash)

	// Try cache first
	if s.cache != nil {
		var cached types.AuthToken
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return claims, nil
		}
	}

	var record types.AuthToken
	if err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}

	if s.cache != nil {
		ttl := tokenCacheTTL
		if remaining := time.Until(claims.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
		if err := s.cache.Set(ctx, cacheKey, &record, ttl); err != nil {
			log.Warn().Err(err).Msg("failed to cache token")
		}
	}

	return claims, nil
}
