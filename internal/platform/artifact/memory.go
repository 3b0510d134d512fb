package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

type storedArtifact struct {
	content     []byte
	contentType string
}

// MemoryStore is a thread-safe, in-memory Store for testing and development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*storedArtifact
	maxSize int64
}

// NewMemoryStore returns a ready-to-use MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*storedArtifact),
		maxSize: DefaultMaxSize,
	}
}

// Put reads the content into memory and stores it under path.
func (s *MemoryStore) Put(_ context.Context, path string, content io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(content, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", ErrFileTooLarge
	}

	s.mu.Lock()
	s.objects[path] = &storedArtifact{content: data, contentType: contentType}
	s.mu.Unlock()

	return s.ReferenceFor(path), nil
}

// Get returns the artifact content and content type.
func (s *MemoryStore) Get(_ context.Context, path string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	obj, ok := s.objects[path]
	s.mu.RUnlock()

	if !ok {
		return nil, "", ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.content)), obj.contentType, nil
}

// Delete removes the artifact at path. Missing paths are ignored.
func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	delete(s.objects, path)
	s.mu.Unlock()
	return nil
}

// Exists reports whether an artifact is stored under path.
func (s *MemoryStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	_, ok := s.objects[path]
	s.mu.RUnlock()
	return ok, nil
}

// ReferenceFor returns the locator for path.
func (s *MemoryStore) ReferenceFor(path string) string {
	return "memory://" + path
}

// Len returns the number of stored artifacts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
