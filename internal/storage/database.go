package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/lgulliver/simpledrive/pkg/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DatabaseBackend keeps blob content in the blob_contents table
type DatabaseBackend struct {
	db *gorm.DB
}

// NewDatabaseBackend returns a backend over an open gorm connection
func NewDatabaseBackend(db *gorm.DB) *DatabaseBackend {
	return &DatabaseBackend{db: db}
}

// Provider returns "database"
func (d *DatabaseBackend) Provider() string {
	return ProviderDatabase
}

// Store inserts the base64 content as-is. The decoded length is the blob size.
func (d *DatabaseBackend) Store(ctx context.Context, blobID, content string) (*Metadata, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	data, err := decodeContent(content)
	if err != nil {
		return nil, err
	}

	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&types.BlobContent{BlobID: blobID, Content: content}).Error
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, contextError(err)
		}
		return nil, Wrap(ErrCodeUploadFailed, msgUploadFailed, fmt.Errorf("failed to insert blob content: %w", err))
	}

	log.Info().Str("blob_id", blobID).Int("size", len(data)).Msg("blob stored in database")

	return &Metadata{
		BlobID:   blobID,
		Size:     int64(len(data)),
		Provider: ProviderDatabase,
	}, nil
}

// Retrieve looks up the content record for blobID
func (d *DatabaseBackend) Retrieve(ctx context.Context, blobID string) (string, bool, error) {
	if err := checkContext(ctx); err != nil {
		return "", false, err
	}

	var record types.BlobContent
	err := d.db.WithContext(ctx).Where("blob_id = ?", blobID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", false, contextError(err)
		}
		return "", false, Wrap(ErrCodeDownloadFailed, msgDownloadFailed, fmt.Errorf("failed to query blob content: %w", err))
	}

	return record.Content, true, nil
}
