package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/lgulliver/simpledrive/internal/storage"
	"github.com/lgulliver/simpledrive/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	// Auto migrate tables
	require.NoError(t, db.AutoMigrate(&types.Blob{}))
	return db
}

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db := setupTestDB(t)
	return NewService(db), db
}

func createTestBlob(t *testing.T, service *Service, blobID, provider string, size int64) *types.Blob {
	ref := "/tmp/" + blobID
	blob, err := service.Create(context.Background(), &storage.Metadata{
		BlobID:        blobID,
		Size:          size,
		Provider:      provider,
		ReferencePath: &ref,
	})
	require.NoError(t, err)
	return blob
}

func TestService_CreateAndFind(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	created := createTestBlob(t, service, "doc-1", storage.ProviderFile, 5)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := service.FindByBlobID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, int64(5), found.Size)
	assert.Equal(t, storage.ProviderFile, found.StorageProvider)
	require.NotNil(t, found.ReferencePath)
	assert.Equal(t, "/tmp/doc-1", *found.ReferencePath)
}

func TestService_NilReferencePath(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, &storage.Metadata{BlobID: "db-blob", Size: 3, Provider: storage.ProviderDatabase})
	require.NoError(t, err)

	found, err := service.FindByBlobID(ctx, "db-blob")
	require.NoError(t, err)
	assert.Nil(t, found.ReferencePath)
}

func TestService_Exists(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	exists, err := service.Exists(ctx, "doc")
	require.NoError(t, err)
	assert.False(t, exists)

	createTestBlob(t, service, "doc", storage.ProviderFile, 1)

	exists, err = service.Exists(ctx, "doc")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestService_Duplicate(t *testing.T) {
	service, _ := setupTestService(t)

	createTestBlob(t, service, "doc", storage.ProviderFile, 1)

	_, err := service.Create(context.Background(), &storage.Metadata{BlobID: "doc", Size: 1, Provider: storage.ProviderS3})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestService_FindMissing(t *testing.T) {
	service, _ := setupTestService(t)

	blob, err := service.FindByBlobID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, blob)
}

func TestService_GetStorageStats(t *testing.T) {
	service, db := setupTestService(t)
	ctx := context.Background()

	createTestBlob(t, service, "a", storage.ProviderFile, 10)
	createTestBlob(t, service, "b", storage.ProviderFile, 20)
	createTestBlob(t, service, "c", storage.ProviderS3, 5)
	old := createTestBlob(t, service, "d", storage.ProviderFTP, 7)

	// move one blob outside the activity window
	require.NoError(t, db.Model(old).Update("created_at", time.Now().Add(-60*24*time.Hour)).Error)

	stats, err := service.GetStorageStats(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalBlobs)
	assert.Equal(t, int64(42), stats.TotalBytes)
	assert.Equal(t, []ProviderStats{
		{Provider: storage.ProviderFile, BlobCount: 2, Bytes: 30},
		{Provider: storage.ProviderFTP, BlobCount: 1, Bytes: 7},
		{Provider: storage.ProviderS3, BlobCount: 1, Bytes: 5},
	}, stats.Providers)

	var recent int64
	for _, point := range stats.RecentActivity {
		recent += point.Blobs
	}
	assert.Equal(t, int64(3), recent)

	filtered, err := service.GetStorageStats(ctx, &StatsQuery{Provider: storage.ProviderFile})
	require.NoError(t, err)
	assert.Equal(t, int64(2), filtered.TotalBlobs)
	assert.Equal(t, int64(30), filtered.TotalBytes)
}

func TestService_GetStorageStats_Empty(t *testing.T) {
	service, _ := setupTestService(t)

	stats, err := service.GetStorageStats(context.Background(), &StatsQuery{})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBlobs)
	assert.Zero(t, stats.TotalBytes)
	assert.Empty(t, stats.Providers)
	assert.Empty(t, stats.RecentActivity)
}
