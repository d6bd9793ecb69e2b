package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/atelier-api/internal/blob"
)

// MockBlobStore implements blob.Store in memory.
type MockBlobStore struct {
	// UploadFn allows test cases to mock the Upload behavior
	UploadFn func(ctx context.Context, data []byte, objectName, contentType string) (string, error)

	// SignFn allows test cases to mock the Sign behavior
	SignFn func(ctx context.Context, objectName string, ttl time.Duration) (string, error)

	// BaseURL prefixes uploaded object names in returned URLs
	BaseURL string

	mu      sync.Mutex
	Objects map[string][]byte
}

var _ blob.Store = (*MockBlobStore)(nil)

// NewMockBlobStore creates an empty MockBlobStore.
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{
		BaseURL: "https://cdn.example.com",
		Objects: make(map[string][]byte),
	}
}

// Upload implements blob.Store.
func (m *MockBlobStore) Upload(ctx context.Context, data []byte, objectName, contentType string) (string, error) {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, data, objectName, contentType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectName] = data
	return m.BaseURL + "/" + objectName, nil
}

// Delete implements blob.Store.
func (m *MockBlobStore) Delete(ctx context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectName)
	return nil
}

// Sign implements blob.Store.
func (m *MockBlobStore) Sign(ctx context.Context, objectName string, ttl time.Duration) (string, error) {
	if m.SignFn != nil {
		return m.SignFn(ctx, objectName, ttl)
	}
	return m.BaseURL + "/" + objectName + "?signature=test", nil
}

// Count returns the number of stored objects.
func (m *MockBlobStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}
