package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/fileserver/pkg/content"
)

// MemoryProvider implements content.WritableProvider using in-memory storage.
//
// This implementation keeps every file in a map keyed by normalized path. It's
// designed for:
//   - Testing and development
//   - Small sites seeded from configuration
//   - Ephemeral content that doesn't need to survive restarts
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Multiple concurrent readers
// are allowed, writes are exclusive. Data is copied on the way in and on the
// way out, so callers never share a buffer with the store.
type MemoryProvider struct {
	// files stores content keyed by normalized path
	files map[content.Path][]byte

	// mu protects concurrent access to files
	mu sync.RWMutex
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		files: make(map[content.Path][]byte),
	}
}

// NewMemoryProviderWithFiles creates an in-memory provider pre-populated with
// files. Keys are raw paths and are normalized with content.ParsePath.
//
// Returns:
//   - *MemoryProvider: Seeded provider
//   - error: content.ErrInvalidPath if a key normalizes to the root
func NewMemoryProviderWithFiles(files map[string]string) (*MemoryProvider, error) {
	p := NewMemoryProvider()
	if err := content.Seed(context.Background(), p, files); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadFile returns a copy of the file at path.
//
// Returns:
//   - []byte: Copy of the content (non-nil when found)
//   - error: content.ErrContentNotFound if absent, or context errors
func (p *MemoryProvider) ReadFile(ctx context.Context, path content.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	data, exists := p.files[path]
	if !exists {
		return nil, fmt.Errorf("file %s: %w", path, content.ErrContentNotFound)
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return dataCopy, nil
}

// WriteFile stores a copy of data at path, replacing any existing file.
func (p *MemoryProvider) WriteFile(ctx context.Context, path content.Path, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("write %s: %w", path, content.ErrInvalidPath)
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.files[path] = dataCopy
	return nil
}

// DeleteFile removes the file at path. Missing files are not an error.
func (p *MemoryProvider) DeleteFile(ctx context.Context, path content.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.files, path)
	return nil
}

// Len returns the number of stored files.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.files)
}
