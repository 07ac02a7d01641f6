package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSinkPut(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	sink, err := NewLocalSink(root)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Put(ctx, "run-1/step_001.jpg", []byte("jpeg"), "image/jpeg"))

	data, err := os.ReadFile(filepath.Join(root, "run-1", "step_001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, filepath.Join(root, "run-1", "step_001.jpg"), sink.Location("run-1/step_001.jpg"))
}

func TestLocalSinkRejectsEscapingKeys(t *testing.T) {
	sink, err := NewLocalSink(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"", ".", "..", "../secret", "a/../../b"} {
		assert.Error(t, sink.Put(ctx, key, []byte("x"), "text/plain"), "key %q", key)
	}
}

func TestLocalSinkCancelled(t *testing.T) {
	sink, err := NewLocalSink(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Put(ctx, "a.jpg", nil, "image/jpeg"), context.Canceled)
}

func TestCleanKey(t *testing.T) {
	k, err := cleanKey("/run//frames/./step_001.jpg")
	require.NoError(t, err)
	assert.Equal(t, "run/frames/step_001.jpg", k)

	k, err = cleanKey(`run\manifest.json`)
	require.NoError(t, err)
	assert.Equal(t, "run/manifest.json", k)
}

func TestMinioSinkConfig(t *testing.T) {
	_, err := NewMinioSink(MinioConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	sink, err := NewMinioSink(MinioConfig{Endpoint: "localhost:9000", Bucket: "steps"})
	require.NoError(t, err)
	assert.Equal(t, "s3://steps/run/step_001.jpg", sink.Location("run/step_001.jpg"))
}
