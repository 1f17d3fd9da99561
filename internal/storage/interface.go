package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Provider names recorded alongside blob metadata
const (
	ProviderFile     = "file"
	ProviderDatabase = "database"
	ProviderS3       = "s3"
	ProviderFTP      = "ftp"
)

// Backend is the contract every blob storage implementation satisfies.
// Every failure is returned as a *StorageError. A blob that does not exist is
// reported by Retrieve as found == false with a nil error.
type Backend interface {
	// Provider returns the name recorded in blob metadata for this backend
	Provider() string

	// Store decodes base64 content and saves it under blobID
	Store(ctx context.Context, blobID, content string) (*Metadata, error)

	// Retrieve returns the base64 encoded content stored under blobID
	Retrieve(ctx context.Context, blobID string) (content string, found bool, err error)
}

// Metadata describes a stored blob
type Metadata struct {
	BlobID        string
	Size          int64
	Provider      string
	ReferencePath *string
}

func decodeContent(content string) ([]byte, error) {
	data, err := base64.StdEncoding.Strict().DecodeString(content)
	if err != nil {
		return nil, Wrap(ErrCodeUploadFailed, msgInvalidContent, err)
	}
	return data, nil
}

func encodeContent(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// checkContext converts a finished context into a StorageError before any I/O
func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return contextError(err)
	}
	return nil
}

func contextError(err error) *StorageError {
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(ErrCodeTimeout, msgTimeout, err)
	}
	return Wrap(ErrCodeUnknown, msgUnknown, err)
}

// isConnectionError reports DNS, refused-connection, reset and timeout failures
func isConnectionError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}

func connectionError(provider string, err error) *StorageError {
	return Wrap(ErrCodeConnection, fmt.Sprintf(msgConnectionFormat, provider), err)
}

func stringPtr(s string) *string {
	return &s
}
