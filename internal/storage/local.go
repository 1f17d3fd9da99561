package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// FileBackend stores blobs as files under a base directory
type FileBackend struct {
	basePath string
}

// NewFileBackend creates the base directory if needed and returns a backend rooted there
func NewFileBackend(basePath string) (*FileBackend, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		log.Error().Err(err).Str("path", absPath).Msg("failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	log.Info().Str("path", absPath).Msg("file storage initialized")
	return &FileBackend{basePath: absPath}, nil
}

// Provider returns "file"
func (fb *FileBackend) Provider() string {
	return ProviderFile
}

// Dir returns the absolute base directory
func (fb *FileBackend) Dir() string {
	return fb.basePath
}

// Store decodes the content and writes it atomically to {dir}/{blobID}
func (fb *FileBackend) Store(ctx context.Context, blobID, content string) (*Metadata, error) {
	startTime := time.Now()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	data, err := decodeContent(content)
	if err != nil {
		return nil, err
	}

	fullPath, err := fb.resolve(blobID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, Wrap(ErrCodeUploadFailed, msgUploadFailed, fmt.Errorf("failed to create directory: %w", err))
	}

	// Write to a temp file and rename so readers never see partial content
	tempFile, err := os.CreateTemp(filepath.Dir(fullPath), filepath.Base(fullPath)+".tmp.*")
	if err != nil {
		return nil, Wrap(ErrCodeUploadFailed, msgUploadFailed, fmt.Errorf("failed to create temporary file: %w", err))
	}
	tempPath := tempFile.Name()

	defer func() {
		tempFile.Close()
		if _, err := os.Stat(tempPath); err == nil {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return nil, Wrap(ErrCodeUploadFailed, msgUploadFailed, fmt.Errorf("failed to write content: %w", err))
	}

	if err := tempFile.Sync(); err != nil {
		return nil, Wrap(ErrCodeUploadFailed, msgUploadFailed, fmt.Errorf("failed to sync temporary file: %w", err))
	}

	tempFile.Close()

	if err := os.Rename(tempPath, fullPath); err != nil {
		return nil, Wrap(ErrCodeUploadFailed, msgUploadFailed, fmt.Errorf("failed to move file to final location: %w", err))
	}

	checksum := sha256.Sum256(data)
	log.Info().
		Str("blob_id", blobID).
		Int("bytes_written", len(data)).
		Str("checksum", hex.EncodeToString(checksum[:])).
		Dur("duration", time.Since(startTime)).
		Msg("blob stored on filesystem")

	return &Metadata{
		BlobID:        blobID,
		Size:          int64(len(data)),
		Provider:      ProviderFile,
		ReferencePath: stringPtr(fullPath),
	}, nil
}

// Retrieve reads {dir}/{blobID} and returns it base64 encoded
func (fb *FileBackend) Retrieve(ctx context.Context, blobID string) (string, bool, error) {
	if err := checkContext(ctx); err != nil {
		return "", false, err
	}

	fullPath, err := fb.resolve(blobID)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("blob_id", blobID).Msg("file not found")
			return "", false, nil
		}
		return "", false, Wrap(ErrCodeDownloadFailed, msgDownloadFailed, fmt.Errorf("failed to read file: %w", err))
	}

	log.Debug().Str("blob_id", blobID).Int("size", len(data)).Msg("blob read from filesystem")
	return encodeContent(data), true, nil
}

// resolve maps a blob id to a path and refuses ids that escape the base directory
func (fb *FileBackend) resolve(blobID string) (string, error) {
	fullPath := filepath.Join(fb.basePath, blobID)
	rel, err := filepath.Rel(fb.basePath, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", Wrap(ErrCodeConfiguration, msgInvalidBlobPath, fmt.Errorf("blob id %q escapes %s", blobID, fb.basePath))
	}
	return fullPath, nil
}
