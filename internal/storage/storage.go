// Package storage writes extraction output to a local directory or a
// MinIO bucket.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/keagan/stepsnap/pkg/util"
)

// Sink receives extracted frames and manifests
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Location describes where key ends up, for logs and manifests
	Location(key string) string
}

// cleanKey rejects keys that are empty or escape the sink root
func cleanKey(key string) (string, error) {
	k := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return k, nil
}

// LocalSink writes objects as files below a root directory
type LocalSink struct {
	root string
}

// NewLocalSink creates root if needed
func NewLocalSink(root string) (*LocalSink, error) {
	if err := util.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &LocalSink{root: root}, nil
}

func (s *LocalSink) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := cleanKey(key)
	if err != nil {
		return err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(k))
	if err := util.EnsureDir(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("create dir for %s: %w", k, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", k, err)
	}
	return nil
}

func (s *LocalSink) Location(key string) string {
	k, err := cleanKey(key)
	if err != nil {
		return s.root
	}
	return filepath.Join(s.root, filepath.FromSlash(k))
}
