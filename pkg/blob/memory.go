package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and local
// development. It mimics the GCS store's progress reporting so upload flows
// can be exercised without network access.
type MemoryStore struct {
	urlBase string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory photo store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		urlBase: "mem://photos",
		objects: make(map[string][]byte),
	}
}

// Upload reads the content into memory, reporting progress in chunks.
func (s *MemoryStore) Upload(ctx context.Context, name string, r io.Reader, size int64, onProgress ProgressFunc) (Handle, error) {
	if name == "" {
		return Handle{}, errors.New("object name is required")
	}
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}

	buf := &memoryBuffer{}
	var dst io.Writer = buf
	if onProgress != nil && size > 0 {
		dst = &progressWriter{inner: buf, total: size, onProgress: onProgress}
	}
	if _, err := io.Copy(dst, r); err != nil {
		return Handle{}, fmt.Errorf("memory upload of %s: %w", name, err)
	}
	if onProgress != nil {
		onProgress(100)
	}

	objectPath := path.Join("uploads", name)
	s.mu.Lock()
	s.objects[objectPath] = buf.data
	s.mu.Unlock()

	return Handle{Object: objectPath, URL: s.urlBase + "/" + objectPath}, nil
}

// Bytes returns a copy of the stored content for a handle.
func (s *MemoryStore) Bytes(_ context.Context, h Handle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[h.Object]
	if !ok {
		return nil, fmt.Errorf("object %q not found", h.Object)
	}
	return append([]byte(nil), data...), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

type memoryBuffer struct {
	data []byte
}

func (b *memoryBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
