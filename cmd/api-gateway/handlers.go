package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apitypes "github.com/lgulliver/simpledrive/cmd/api-gateway/types"
	"github.com/lgulliver/simpledrive/internal/auth"
	"github.com/lgulliver/simpledrive/internal/blobs"
	"github.com/lgulliver/simpledrive/internal/metadata"
	"github.com/lgulliver/simpledrive/internal/storage"
	"github.com/lgulliver/simpledrive/pkg/types"
	"github.com/rs/zerolog/log"
)

// BlobService stores and loads blobs
type BlobService interface {
	Create(ctx context.Context, blobID, content string) (*types.BlobResponse, error)
	Find(ctx context.Context, blobID string) (*types.BlobResponse, error)
}

// TokenIssuer exchanges client credentials for a token
type TokenIssuer interface {
	IssueToken(ctx context.Context, req *types.TokenRequest, clientInfo string) (string, error)
}

// StatsProvider reports storage usage
type StatsProvider interface {
	GetStorageStats(ctx context.Context, query *metadata.StatsQuery) (*metadata.StorageStats, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

func handleIssueToken(issuer TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.TokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusUnprocessableEntity, "Username and password are required", apitypes.ErrCodeInvalidRequest)
			return
		}

		token, err := issuer.IssueToken(c.Request.Context(), &req, c.Request.UserAgent())
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				respondError(c, http.StatusUnauthorized, "Invalid credentials", apitypes.ErrCodeInvalidCredentials)
				return
			}
			log.Error().Err(err).Msg("failed to issue token")
			respondError(c, http.StatusInternalServerError, "Failed to issue token", apitypes.ErrCodeInternal)
			return
		}

		c.JSON(http.StatusCreated, apitypes.TokenResponse{
			Success: true,
			Message: "Token generated successfully",
			Token:   token,
		})
	}
}

func handleCreateBlob(service BlobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateBlobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusUnprocessableEntity, "Request body must be a JSON object with id and data", apitypes.ErrCodeInvalidRequest)
			return
		}

		blob, err := service.Create(c.Request.Context(), req.Identifier(), req.Data)
		if err != nil {
			var validationErr *blobs.ValidationError
			switch {
			case errors.As(err, &validationErr):
				c.JSON(http.StatusUnprocessableEntity, types.APIResponse{
					Success:   false,
					Message:   "Validation failed",
					Details:   validationErr.Details,
					ErrorCode: apitypes.ErrCodeBlobInvalid,
				})
			case errors.Is(err, blobs.ErrBlobExists):
				respondError(c, http.StatusUnprocessableEntity, "Blob with this ID already exists", apitypes.ErrCodeBlobExists)
			default:
				respondServiceError(c, err)
			}
			return
		}

		c.JSON(http.StatusCreated, types.APIResponse{
			Success: true,
			Message: "Blob stored successfully",
			Data:    blob,
		})
	}
}

func handleGetBlob(service BlobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ids may contain slashes, so the route captures the rest of the path
		blob, err := service.Find(c.Request.Context(), strings.TrimPrefix(c.Param("id"), "/"))
		if err != nil {
			switch {
			case errors.Is(err, blobs.ErrBlobNotFound):
				respondError(c, http.StatusNotFound, "Blob not found", apitypes.ErrCodeBlobNotFound)
			case errors.Is(err, blobs.ErrContentNotFound):
				respondError(c, http.StatusNotFound, "Blob content not found in storage", apitypes.ErrCodeContentNotFound)
			default:
				respondServiceError(c, err)
			}
			return
		}

		c.JSON(http.StatusOK, blob)
	}
}

func handleStorageStats(stats StatsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query metadata.StatsQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			respondError(c, http.StatusUnprocessableEntity, "Invalid query parameters", apitypes.ErrCodeInvalidRequest)
			return
		}

		result, err := stats.GetStorageStats(c.Request.Context(), &query)
		if err != nil {
			log.Error().Err(err).Msg("failed to load storage stats")
			respondError(c, http.StatusInternalServerError, "Failed to load storage statistics", apitypes.ErrCodeInternal)
			return
		}

		c.JSON(http.StatusOK, types.APIResponse{Success: true, Data: result})
	}
}

func handleHealth(db Pinger, cache Pinger, providers []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := apitypes.HealthStatus{
			Status:    "healthy",
			Service:   "simpledrive-api-gateway",
			Timestamp: time.Now().UTC(),
			Services:  map[string]string{"database": "up"},
			Providers: providers,
		}
		code := http.StatusOK

		if err := db.Ping(); err != nil {
			log.Warn().Err(err).Msg("database health check failed")
			status.Status = "unhealthy"
			status.Services["database"] = "down"
			code = http.StatusServiceUnavailable
		}
		if cache != nil {
			status.Services["cache"] = "up"
			if err := cache.Ping(); err != nil {
				// tokens still validate against the database
				status.Services["cache"] = "down"
			}
		}

		c.JSON(code, status)
	}
}

func handleUp(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// respondServiceError turns storage failures into their public code and
// message. Anything else is logged and hidden behind a generic 500.
func respondServiceError(c *gin.Context, err error) {
	var storageErr *storage.StorageError
	if errors.As(err, &storageErr) {
		respondError(c, storageErr.Code.HTTPStatus(), storageErr.PublicMessage, string(storageErr.Code))
		return
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	respondError(c, http.StatusInternalServerError, "Internal server error", apitypes.ErrCodeInternal)
}

func respondError(c *gin.Context, status int, message, code string) {
	c.JSON(status, types.APIResponse{
		Success:   false,
		Message:   message,
		ErrorCode: code,
	})
}
