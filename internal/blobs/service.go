package blobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lgulliver/simpledrive/internal/metadata"
	"github.com/lgulliver/simpledrive/internal/storage"
	"github.com/lgulliver/simpledrive/pkg/types"
	"github.com/rs/zerolog/log"
)

var (
	// ErrBlobExists is returned when a blob id is already taken
	ErrBlobExists = errors.New("blob already exists")
	// ErrBlobNotFound is returned when no metadata exists for a blob id
	ErrBlobNotFound = errors.New("blob not found")
	// ErrContentNotFound is returned when metadata exists but the backend has no content
	ErrContentNotFound = errors.New("blob content not found")
)

// ValidationError carries every validation problem found in a request
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid blob: " + strings.Join(e.Details, "; ")
}

// BackendResolver picks storage backends
type BackendResolver interface {
	Default() storage.Backend
	ForProvider(provider string) (storage.Backend, error)
}

// MetadataStore persists blob records
type MetadataStore interface {
	Exists(ctx context.Context, blobID string) (bool, error)
	Create(ctx context.Context, meta *storage.Metadata) (*types.Blob, error)
	FindByBlobID(ctx context.Context, blobID string) (*types.Blob, error)
}

// Service stores and retrieves blobs
type Service struct {
	backends  BackendResolver
	metadata  MetadataStore
	validator *Validator
}

// NewService creates a new blob service
func NewService(backends BackendResolver, metadata MetadataStore, validator *Validator) *Service {
	return &Service{
		backends:  backends,
		metadata:  metadata,
		validator: validator,
	}
}

// Create validates the content, stores it with the configured backend and
// records its metadata. Storage failures are returned as *storage.StorageError.
func (s *Service) Create(ctx context.Context, blobID, content string) (*types.BlobResponse, error) {
	if problems := s.validator.Validate(blobID, content); len(problems) > 0 {
		return nil, &ValidationError{Details: problems}
	}

	exists, err := s.metadata.Exists(ctx, blobID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBlobExists
	}

	backend := s.backends.Default()
	start := time.Now()

	meta, err := backend.Store(ctx, blobID, content)
	if err != nil {
		return nil, err
	}

	blob, err := s.metadata.Create(ctx, meta)
	if err != nil {
		if errors.Is(err, metadata.ErrDuplicate) {
			// lost a race with a concurrent upload of the same id
			return nil, ErrBlobExists
		}
		return nil, fmt.Errorf("failed to record blob: %w", err)
	}

	log.Info().
		Str("blob_id", blobID).
		Str("provider", meta.Provider).
		Int64("size", meta.Size).
		Dur("duration", time.Since(start)).
		Msg("blob created")

	return &types.BlobResponse{
		ID:        blob.BlobID,
		Size:      blob.Size,
		CreatedAt: blob.CreatedAt,
	}, nil
}

// Find loads the blob's metadata and reads its content from the backend that
// stored it.
func (s *Service) Find(ctx context.Context, blobID string) (*types.BlobResponse, error) {
	blob, err := s.metadata.FindByBlobID(ctx, blobID)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}

	backend, err := s.backends.ForProvider(blob.StorageProvider)
	if err != nil {
		return nil, err
	}

	content, found, err := backend.Retrieve(ctx, blobID)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Warn().Str("blob_id", blobID).Str("provider", blob.StorageProvider).Msg("blob metadata exists but content is missing")
		return nil, ErrContentNotFound
	}

	return &types.BlobResponse{
		ID:        blob.BlobID,
		Data:      content,
		Size:      blob.Size,
		CreatedAt: blob.CreatedAt,
	}, nil
}
