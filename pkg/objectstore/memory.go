package objectstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-memory Store for tests and local development.
// Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

var _ Store = (*Memory)(nil)

// Download returns a copy of the stored content.
func (m *Memory) Download(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("download %s: %w", path, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Upload stores a copy of data at path.
func (m *Memory) Upload(ctx context.Context, path string, data []byte, contentType string, upsert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[path]; exists && !upsert {
		return fmt.Errorf("upload %s: object exists", path)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[path] = stored
	return nil
}

// Delete removes the object if present.
func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

// SignedURL returns a fake URL embedding the path and expiry.
func (m *Memory) SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[path]; !ok {
		return "", fmt.Errorf("sign url for %s: %w", path, ErrNotFound)
	}
	return fmt.Sprintf("memory://%s?expires_in=%d", path, int(expiresIn.Seconds())), nil
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
