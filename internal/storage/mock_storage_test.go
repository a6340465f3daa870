package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStorageService(t *testing.T) {
	ctx := context.Background()
	svc, err := NewMockStorageService("http://localhost:8080/", t.TempDir())
	require.NoError(t, err)

	t.Run("UploadReadDelete", func(t *testing.T) {
		url, err := svc.Upload(ctx, "12-offer-letter", "application/pdf", []byte("%PDF-1.4"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/files/12-offer-letter", url)

		exists, size, err := svc.FileExists(ctx, "12-offer-letter")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, int64(8), size)

		rc, err := svc.ReadFile(ctx, "12-offer-letter")
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, "%PDF-1.4", string(data))

		require.NoError(t, svc.DeleteFile(ctx, "12-offer-letter"))
		exists, _, err = svc.FileExists(ctx, "12-offer-letter")
		require.NoError(t, err)
		assert.False(t, exists)

		// deleting twice is fine
		assert.NoError(t, svc.DeleteFile(ctx, "12-offer-letter"))
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := svc.ReadFile(ctx, "nope")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("RejectsTraversal", func(t *testing.T) {
		_, err := svc.Upload(ctx, "../escape", "application/pdf", []byte("x"))
		assert.Error(t, err)
		_, err = svc.ReadFile(ctx, "a/b")
		assert.Error(t, err)
	})
}
