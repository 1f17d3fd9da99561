package storage

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorCode identifies the class of a storage failure
type ErrorCode string

const (
	// Authentication & authorization
	ErrCodeUnauthorized       ErrorCode = "storage.unauthorized"
	ErrCodeForbidden          ErrorCode = "storage.forbidden"
	ErrCodeCredentialsMissing ErrorCode = "storage.credentials_missing"

	// Storage operations
	ErrCodeNotFound       ErrorCode = "storage.not_found"
	ErrCodeUploadFailed   ErrorCode = "storage.upload_failed"
	ErrCodeDownloadFailed ErrorCode = "storage.download_failed"
	ErrCodeDeleteFailed   ErrorCode = "storage.delete_failed"

	// Configuration
	ErrCodeConfiguration ErrorCode = "storage.configuration_error"

	// Connectivity
	ErrCodeConnection ErrorCode = "storage.connection_error"
	ErrCodeTimeout    ErrorCode = "storage.timeout"

	ErrCodeUnknown ErrorCode = "storage.unknown_error"
)

// Public messages. These are returned to API clients verbatim, so they must
// stay free of anything Scrub would redact.
const (
	msgUploadFailed     = "Failed to upload the blob to storage"
	msgDownloadFailed   = "Failed to download the blob from storage"
	msgUnknown          = "An unexpected storage error occurred"
	msgInvalidContent   = "Blob content is not valid base64"
	msgS3Denied         = "Access to S3 storage was denied"
	msgS3NotFound       = "The S3 bucket or object could not be found"
	msgFTPDenied        = "Access to FTP storage was denied"
	msgTimeout          = "The storage operation timed out"
	msgInvalidBlobPath  = "Blob identifier resolves outside the storage directory"
	msgUnknownProvider  = "Blob was stored by an unknown storage provider"
	msgBackendNotReady  = "Storage provider is not configured"
	msgConnectionFormat = "Could not connect to %s storage"
)

// HTTPStatus maps an error code to the status the API responds with
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeConnection:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// StorageError is the only error type that crosses the Backend boundary.
// Its message is safe to show to clients; the underlying cause is kept for
// diagnostics and never serialized.
type StorageError struct {
	Code          ErrorCode
	PublicMessage string
	cause         error
}

// Wrap creates a StorageError and logs the scrubbed cause, if any
func Wrap(code ErrorCode, publicMessage string, cause error) *StorageError {
	e := &StorageError{
		Code:          code,
		PublicMessage: Scrub(publicMessage),
		cause:         cause,
	}

	if cause != nil {
		log.Error().
			Str("error_code", string(code)).
			Str("cause", Scrub(cause.Error())).
			Msgf("Storage Error [%s]", code)
	}
	return e
}

// Error returns the public message only
func (e *StorageError) Error() string {
	return e.PublicMessage
}

// Cause returns the scrubbed description of the underlying failure
func (e *StorageError) Cause() string {
	if e.cause == nil {
		return ""
	}
	return Scrub(e.cause.Error())
}

// MarshalJSON renders the client-facing shape of the error
func (e *StorageError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error     bool      `json:"error"`
		ErrorCode ErrorCode `json:"error_code"`
		Message   string    `json:"message"`
	}{true, e.Code, e.PublicMessage})
}

// CodeOf returns the code of a StorageError anywhere in err's chain, or
// ErrCodeUnknown.
func CodeOf(err error) ErrorCode {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeUnknown
}

// IsCode reports whether err carries the given storage error code
func IsCode(err error, code ErrorCode) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Code == code
}
