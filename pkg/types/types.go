package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Blob is the metadata record kept for every stored blob
type Blob struct {
	ID              uuid.UUID `json:"-" gorm:"primaryKey"`
	BlobID          string    `json:"id" gorm:"uniqueIndex;not null"`
	Size            int64     `json:"size"`
	StorageProvider string    `json:"storage_provider" gorm:"not null"`
	ReferencePath   *string   `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID for the blob ID
func (b *Blob) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BlobContent holds base64 content for blobs kept by the database backend
type BlobContent struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	BlobID    string    `gorm:"uniqueIndex;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate generates a UUID for the content ID
func (b *BlobContent) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// AuthToken records an issued API token. Only the SHA-256 of the token is kept.
type AuthToken struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey"`
	TokenHash   string    `json:"-" gorm:"uniqueIndex;not null"`
	Subject     string    `json:"subject" gorm:"not null"`
	Scope       string    `json:"scope"`
	Description string    `json:"description" gorm:"not null"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate generates a UUID for the token ID
func (a *AuthToken) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TokenClaims is the application view of a validated JWT
type TokenClaims struct {
	Subject    string    `json:"user_id"`
	Scope      string    `json:"scope"`
	ClientInfo string    `json:"client_info"`
	Issuer     string    `json:"iss"`
	IssuedAt   time.Time `json:"iat"`
	ExpiresAt  time.Time `json:"exp"`
}

// CreateBlobRequest represents a blob upload request. blob_id is accepted as
// an alias for id.
type CreateBlobRequest struct {
	ID     string `json:"id"`
	BlobID string `json:"blob_id"`
	Data   string `json:"data"`
}

// Identifier returns the blob id from whichever field was set
func (r *CreateBlobRequest) Identifier() string {
	if r.ID != "" {
		return r.ID
	}
	return r.BlobID
}

// TokenRequest represents a token issuance request
type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Scope    string `json:"scope"`
}

// BlobResponse is the public view of a blob
type BlobResponse struct {
	ID        string    `json:"id"`
	Data      string    `json:"data,omitempty"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
}
