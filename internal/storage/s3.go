package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// S3Backend stores blobs as objects in an S3-compatible bucket
type S3Backend struct {
	client *S3Client
}

// NewS3Backend wraps a configured client
func NewS3Backend(client *S3Client) *S3Backend {
	return &S3Backend{client: client}
}

// Provider returns "s3"
func (s *S3Backend) Provider() string {
	return ProviderS3
}

// Store uploads the decoded content to the object {blobID}
func (s *S3Backend) Store(ctx context.Context, blobID, content string) (*Metadata, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	data, err := decodeContent(content)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.PutObject(ctx, blobID, data)
	if err != nil {
		return nil, s.transportError(ctx, err)
	}
	if !resp.OK() {
		return nil, s.statusError(resp, ErrCodeUploadFailed, msgUploadFailed)
	}

	log.Info().Str("blob_id", blobID).Int("size", len(data)).Str("bucket", s.client.Bucket()).Msg("blob stored in s3")

	return &Metadata{
		BlobID:        blobID,
		Size:          int64(len(data)),
		Provider:      ProviderS3,
		ReferencePath: stringPtr(fmt.Sprintf("s3://%s/%s", s.client.Bucket(), blobID)),
	}, nil
}

// Retrieve downloads the object {blobID}. A 404 means the blob is absent.
func (s *S3Backend) Retrieve(ctx context.Context, blobID string) (string, bool, error) {
	if err := checkContext(ctx); err != nil {
		return "", false, err
	}

	resp, err := s.client.GetObject(ctx, blobID)
	if err != nil {
		return "", false, s.transportError(ctx, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		log.Debug().Str("blob_id", blobID).Msg("object not found in s3")
		return "", false, nil
	case !resp.OK():
		return "", false, s.statusError(resp, ErrCodeDownloadFailed, msgDownloadFailed)
	}

	return encodeContent(resp.Body), true, nil
}

func (s *S3Backend) statusError(resp *S3Response, fallback ErrorCode, fallbackMsg string) *StorageError {
	cause := fmt.Errorf("s3 responded %d: %s", resp.StatusCode, resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Wrap(ErrCodeUnauthorized, msgS3Denied, cause)
	case http.StatusNotFound:
		return Wrap(ErrCodeNotFound, msgS3NotFound, cause)
	default:
		return Wrap(fallback, fallbackMsg, cause)
	}
}

func (s *S3Backend) transportError(ctx context.Context, err error) *StorageError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return contextError(ctx.Err())
	}
	if isConnectionError(err) {
		return connectionError(ProviderS3, err)
	}
	return Wrap(ErrCodeUnknown, msgUnknown, err)
}
