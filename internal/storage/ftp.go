package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// FTPBackend stores blobs as files on an FTP server
type FTPBackend struct {
	client *FTPClient
}

// NewFTPBackend wraps a configured client
func NewFTPBackend(client *FTPClient) *FTPBackend {
	return &FTPBackend{client: client}
}

// Provider returns "ftp"
func (f *FTPBackend) Provider() string {
	return ProviderFTP
}

// Store uploads the decoded content to {directory}/{blobID}
func (f *FTPBackend) Store(ctx context.Context, blobID, content string) (*Metadata, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	remote, err := f.remotePath(blobID)
	if err != nil {
		return nil, err
	}

	data, err := decodeContent(content)
	if err != nil {
		return nil, err
	}

	if err := f.client.PutObject(ctx, blobID, data); err != nil {
		return nil, f.classify(ctx, err, ErrCodeUploadFailed, msgUploadFailed)
	}

	log.Info().Str("blob_id", blobID).Int("size", len(data)).Str("path", remote).Msg("blob stored on ftp")

	return &Metadata{
		BlobID:        blobID,
		Size:          int64(len(data)),
		Provider:      ProviderFTP,
		ReferencePath: stringPtr(fmt.Sprintf("ftp://%s%s", f.client.Host(), remote)),
	}, nil
}

// Retrieve downloads {directory}/{blobID}
func (f *FTPBackend) Retrieve(ctx context.Context, blobID string) (string, bool, error) {
	if err := checkContext(ctx); err != nil {
		return "", false, err
	}

	if _, err := f.remotePath(blobID); err != nil {
		return "", false, err
	}

	data, found, err := f.client.GetObject(ctx, blobID)
	if err != nil {
		return "", false, f.classify(ctx, err, ErrCodeDownloadFailed, msgDownloadFailed)
	}
	if !found {
		log.Debug().Str("blob_id", blobID).Msg("file not found on ftp")
		return "", false, nil
	}

	return encodeContent(data), true, nil
}

func (f *FTPBackend) remotePath(blobID string) (string, error) {
	remote, err := f.client.RemotePath(blobID)
	if err != nil {
		return "", Wrap(ErrCodeConfiguration, msgInvalidBlobPath, err)
	}
	return remote, nil
}

func (f *FTPBackend) classify(ctx context.Context, err error, fallback ErrorCode, fallbackMsg string) *StorageError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return contextError(ctx.Err())
	}
	if errors.Is(err, ErrIncompleteTransfer) {
		return Wrap(ErrCodeUploadFailed, msgUploadFailed, err)
	}
	if code, ok := replyCode(err); ok {
		if code >= 500 {
			return Wrap(ErrCodeUnauthorized, msgFTPDenied, err)
		}
		return Wrap(fallback, fallbackMsg, err)
	}
	if isConnectionError(err) {
		return connectionError(ProviderFTP, err)
	}
	return Wrap(ErrCodeUnknown, msgUnknown, err)
}
