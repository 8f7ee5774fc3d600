package minio

import (
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegrationStore requires a running MinIO instance at
// localhost:9000. Skipped if one isn't reachable.
func TestIntegrationStore(t *testing.T) {
	const (
		endpoint  = "localhost:9000"
		accessKey = "minioadmin"
		secretKey = "minioadmin"
		bucket    = "test-primal"
	)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	t.Run("create and read", func(t *testing.T) {
		name := "test.blob"
		data := []byte("hello minio world")

		w, err := store.Create(ctx, name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, names, name)

		r, err := store.Open(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), r.Size())
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		require.NoError(t, r.Close())

		require.NoError(t, store.Delete(ctx, name))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.Open(ctx, "nonexistent")
		assert.Error(t, err)
	})
}
