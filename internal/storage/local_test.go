package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileBackend(t *testing.T) {
	tests := []struct {
		name        string
		basePath    string
		shouldError bool
	}{
		{
			name:        "valid path",
			basePath:    t.TempDir(),
			shouldError: false,
		},
		{
			name:        "non-existent path",
			basePath:    filepath.Join(t.TempDir(), "nested", "path"),
			shouldError: false,
		},
		{
			name:        "invalid path (file instead of directory)",
			basePath:    createTempFile(t),
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := NewFileBackend(tt.basePath)

			if tt.shouldError {
				assert.Error(t, err)
				assert.Nil(t, backend)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.basePath, backend.Dir())
				assert.Equal(t, ProviderFile, backend.Provider())

				info, err := os.Stat(tt.basePath)
				assert.NoError(t, err)
				assert.True(t, info.IsDir())
			}
		})
	}
}

func TestFileBackend_StoreAndRetrieve(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	meta, err := backend.Store(ctx, "doc-1", "aGVsbG8=")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", meta.BlobID)
	assert.Equal(t, int64(5), meta.Size)
	assert.Equal(t, ProviderFile, meta.Provider)
	require.NotNil(t, meta.ReferencePath)
	assert.Equal(t, filepath.Join(backend.Dir(), "doc-1"), *meta.ReferencePath)

	onDisk, err := os.ReadFile(*meta.ReferencePath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(onDisk))

	content, found, err := backend.Retrieve(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "aGVsbG8=", content)
}

func TestFileBackend_BinaryRoundTrip(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	raw := []byte{0x00, 0xff, 0x00, 0x10, 'a', 0x00}
	encoded := base64.StdEncoding.EncodeToString(raw)

	meta, err := backend.Store(ctx, "binary", encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), meta.Size)

	content, found, err := backend.Retrieve(ctx, "binary")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, encoded, content)
}

func TestFileBackend_Overwrite(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	_, err := backend.Store(ctx, "doc", base64.StdEncoding.EncodeToString([]byte("first")))
	require.NoError(t, err)
	_, err = backend.Store(ctx, "doc", base64.StdEncoding.EncodeToString([]byte("second")))
	require.NoError(t, err)

	content, found, err := backend.Retrieve(ctx, "doc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("second")), content)

	entries, err := os.ReadDir(backend.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileBackend_RetrieveMissing(t *testing.T) {
	backend := setupFileBackend(t)

	content, found, err := backend.Retrieve(context.Background(), "missing")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, content)
}

func TestFileBackend_Errors(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func() error
		errCode ErrorCode
	}{
		{
			name: "invalid base64",
			run: func() error {
				_, err := backend.Store(ctx, "bad", "not base64!!")
				return err
			},
			errCode: ErrCodeUploadFailed,
		},
		{
			name: "store outside base directory",
			run: func() error {
				_, err := backend.Store(ctx, "../escape", "aGVsbG8=")
				return err
			},
			errCode: ErrCodeConfiguration,
		},
		{
			name: "retrieve outside base directory",
			run: func() error {
				_, _, err := backend.Retrieve(ctx, "../../etc/passwd")
				return err
			},
			errCode: ErrCodeConfiguration,
		},
		{
			name: "retrieve a directory",
			run: func() error {
				require.NoError(t, os.Mkdir(filepath.Join(backend.Dir(), "folder"), 0755))
				_, _, err := backend.Retrieve(ctx, "folder")
				return err
			},
			errCode: ErrCodeDownloadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)

			var se *StorageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.errCode, se.Code)
		})
	}

	_, statErr := os.Stat(filepath.Join(filepath.Dir(backend.Dir()), "escape"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileBackend_ContextDone(t *testing.T) {
	backend := setupFileBackend(t)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := backend.Store(ctx, "cancelled", "aGVsbG8=")
		assert.True(t, IsCode(err, ErrCodeUnknown))
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		_, _, err := backend.Retrieve(ctx, "anything")
		assert.True(t, IsCode(err, ErrCodeTimeout))
	})
}

func TestFileBackend_ConcurrentAccess(t *testing.T) {
	backend := setupFileBackend(t)
	ctx := context.Background()

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(index int) {
			defer wg.Done()

			content := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("content from goroutine %d", index)))
			_, err := backend.Store(ctx, fmt.Sprintf("concurrent_%d", index), content)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		content, found, err := backend.Retrieve(ctx, fmt.Sprintf("concurrent_%d", i))
		require.NoError(t, err)
		assert.True(t, found)
		decoded, err := base64.StdEncoding.DecodeString(content)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("content from goroutine %d", i), string(decoded))
	}
}

// Helper functions

func setupFileBackend(t *testing.T) *FileBackend {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return backend
}

func createTempFile(t *testing.T) string {
	tempFile, err := os.CreateTemp(t.TempDir(), "test")
	require.NoError(t, err)
	tempFile.Close()
	return tempFile.Name()
}
