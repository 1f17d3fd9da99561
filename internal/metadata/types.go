package metadata

import "time"

// StatsQuery narrows the blobs counted by GetStorageStats
type StatsQuery struct {
	Provider  string     `form:"provider"`
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"end_date" time_format:"2006-01-02"`
}

// StorageStats summarizes stored blobs
type StorageStats struct {
	TotalBlobs     int64           `json:"total_blobs"`
	TotalBytes     int64           `json:"total_bytes"`
	Providers      []ProviderStats `json:"providers"`
	RecentActivity []ActivityPoint `json:"recent_activity"`
}

// ProviderStats is the per-backend share of stored blobs
type ProviderStats struct {
	Provider  string `json:"provider"`
	BlobCount int64  `json:"blob_count"`
	Bytes     int64  `json:"bytes"`
}

// ActivityPoint is the number of blobs created on one day
type ActivityPoint struct {
	Date  string `json:"date"`
	Blobs int64  `json:"blobs"`
	Bytes int64  `json:"bytes"`
}
