// Package artifact loads the serialized model and preprocessor at startup.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
)

// ErrNotFound reports that an artifact object does not exist in its source.
var ErrNotFound = errors.New("artifact not found")

// Source reads artifact objects by name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Location renders name as a human-readable URI for logs and errors.
	Location(name string) string
}

// LocalSource reads artifacts from a directory on disk.
type LocalSource struct {
	dir string
}

// NewLocalSource creates a LocalSource rooted at dir.
func NewLocalSource(dir string) (*LocalSource, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	return &LocalSource{dir: dir}, nil
}

// Open opens dir/name, refusing names that escape dir.
func (s *LocalSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	full := filepath.Join(s.dir, name)
	rel, err := filepath.Rel(filepath.Clean(s.dir), full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("path traversal detected")
	}
	f, err := os.Open(full) //nolint:gosec // path is confined to the artifact dir above
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", full, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", full, err)
	}
	return f, nil
}

// Location returns a file:// URI.
func (s *LocalSource) Location(name string) string {
	return "file://" + filepath.Join(s.dir, name)
}

// GCSSource reads artifacts from a Google Cloud Storage bucket.
type GCSSource struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSource creates a GCS-backed source. prefix is prepended to every
// object name.
func NewGCSSource(client *storage.Client, bucket, prefix string) (*GCSSource, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCSSource{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *GCSSource) object(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Open returns a reader for the object.
func (s *GCSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", s.Location(name), ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", s.Location(name), err)
	}
	return r, nil
}

// Location returns a gs:// URI.
func (s *GCSSource) Location(name string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object(name))
}

// MemorySource serves artifacts from memory, mainly for tests and the CLI.
type MemorySource struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{objects: make(map[string][]byte)}
}

// Put stores data under name.
func (s *MemorySource) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = append([]byte(nil), data...)
}

// Open returns a reader over a copy of the stored bytes.
func (s *MemorySource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", s.Location(name), ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), data...))), nil
}

// Location returns a memory:// URI.
func (s *MemorySource) Location(name string) string {
	return "memory://" + name
}
