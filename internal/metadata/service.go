package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/lgulliver/simpledrive/internal/storage"
	"github.com/lgulliver/simpledrive/pkg/types"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no record exists for a blob id
var ErrNotFound = errors.New("blob metadata not found")

// ErrDuplicate is returned when a record already exists for a blob id
var ErrDuplicate = errors.New("blob metadata already exists")

// Service persists blob metadata records
type Service struct {
	db *gorm.DB
}

// NewService creates a new metadata service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Exists reports whether a record exists for blobID
func (s *Service) Exists(ctx context.Context, blobID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&types.Blob{}).Where("blob_id = ?", blobID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check blob existence: %w", err)
	}
	return count > 0, nil
}

// Create records the metadata returned by a storage backend
func (s *Service) Create(ctx context.Context, meta *storage.Metadata) (*types.Blob, error) {
	blob := &types.Blob{
		BlobID:          meta.BlobID,
		Size:            meta.Size,
		StorageProvider: meta.Provider,
		ReferencePath:   meta.ReferencePath,
	}

	if err := s.db.WithContext(ctx).Create(blob).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to save blob metadata: %w", err)
	}
	return blob, nil
}

// FindByBlobID returns the record for blobID
func (s *Service) FindByBlobID(ctx context.Context, blobID string) (*types.Blob, error) {
	var blob types.Blob
	if err := s.db.WithContext(ctx).Where("blob_id = ?", blobID).First(&blob).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find blob metadata: %w", err)
	}
	return &blob, nil
}
