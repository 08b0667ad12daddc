package blob_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-marketdata/pkg/blob"
)

func TestHandle(t *testing.T) {
	h := blob.FromURL("https://cdn.example.com/photo.jpg")
	assert.Equal(t, "https://cdn.example.com/photo.jpg", h.DirectURL())
	assert.False(t, h.IsZero())
	assert.True(t, blob.Handle{}.IsZero())
}

func TestMemoryStore_UploadAndFetch(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	content := []byte(strings.Repeat("photo-bytes-", 100))

	t.Run("Round trip", func(t *testing.T) {
		handle, err := store.Upload(ctx, "dress.jpg", bytes.NewReader(content), int64(len(content)), nil)
		require.NoError(t, err)
		assert.NotEmpty(t, handle.Object)
		assert.NotEmpty(t, handle.DirectURL())

		got, err := store.Bytes(ctx, handle)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("Progress is monotonic and terminates at 100", func(t *testing.T) {
		var ticks []int
		_, err := store.Upload(ctx, "big.jpg", bytes.NewReader(content), int64(len(content)), func(pct int) {
			ticks = append(ticks, pct)
		})
		require.NoError(t, err)
		require.NotEmpty(t, ticks)
		for i := 1; i < len(ticks); i++ {
			assert.Greater(t, ticks[i], ticks[i-1])
		}
		assert.Equal(t, 100, ticks[len(ticks)-1])
	})

	t.Run("Unknown handle misses", func(t *testing.T) {
		_, err := store.Bytes(ctx, blob.Handle{Object: "uploads/missing.jpg"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("Empty name is rejected", func(t *testing.T) {
		_, err := store.Upload(ctx, "", bytes.NewReader(content), int64(len(content)), nil)
		require.Error(t, err)
	})
}
