package types

import "time"

// Error codes returned by the blob and token handlers. Storage failures use
// the storage package's own codes.
const (
	ErrCodeInvalidRequest     = "request.invalid"
	ErrCodeInvalidCredentials = "auth.invalid_credentials"
	ErrCodeBlobInvalid        = "blob.invalid"
	ErrCodeBlobExists         = "blob.duplicate"
	ErrCodeBlobNotFound       = "blob.not_found"
	ErrCodeContentNotFound    = "blob.content_not_found"
	ErrCodeInternal           = "internal_error"
)

// TokenResponse is returned when a token is issued
type TokenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

// HealthStatus is returned by the health endpoint
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Providers []string          `json:"providers"`
}
