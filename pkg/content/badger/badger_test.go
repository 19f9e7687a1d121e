package badger

import (
	"context"
	"testing"

	"github.com/marmos91/fileserver/pkg/content"
	contenttesting "github.com/marmos91/fileserver/pkg/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *BadgerProvider {
	t.Helper()

	p, err := NewBadgerProvider(context.Background(), BadgerProviderConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// TestBadgerProvider runs the complete provider test suite
// against the BadgerProvider implementation.
func TestBadgerProvider(t *testing.T) {
	suite := &contenttesting.ProviderTestSuite{
		NewProvider: func(t *testing.T) content.WritableProvider {
			return newTestProvider(t)
		},
		MaxFileSize: newTestProvider(t).MaxFileSize(),
	}

	suite.Run(t)
}

// TestBadgerProvider_OnDisk runs the suite against a disk-backed database,
// where large files go to the value log.
func TestBadgerProvider_OnDisk(t *testing.T) {
	suite := &contenttesting.ProviderTestSuite{
		NewProvider: func(t *testing.T) content.WritableProvider {
			p, err := NewBadgerProvider(context.Background(), BadgerProviderConfig{DBPath: t.TempDir()})
			require.NoError(t, err)
			t.Cleanup(func() { _ = p.Close() })
			return p
		},
	}

	suite.Run(t)
}

func TestBadgerProvider_InMemoryFileSizeLimit(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	path := content.ParsePath("/large.bin")

	limit := p.MaxFileSize()
	require.Equal(t, 1<<20-1, limit)

	err := p.WriteFile(ctx, path, make([]byte, 1<<20))
	require.ErrorIs(t, err, content.ErrFileTooLarge)

	require.NoError(t, p.WriteFile(ctx, path, make([]byte, limit)))
	data, err := p.ReadFile(ctx, path)
	require.NoError(t, err)
	assert.Len(t, data, limit)
}

func TestBadgerProvider_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	path := content.ParsePath("/index.html")

	p, err := NewBadgerProvider(ctx, BadgerProviderConfig{DBPath: dir})
	require.NoError(t, err)
	require.NoError(t, p.WriteFile(ctx, path, []byte("<html></html>")))
	require.NoError(t, p.Close())

	reopened, err := NewBadgerProvider(ctx, BadgerProviderConfig{DBPath: dir})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	data, err := reopened.ReadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestBadgerProvider_Count(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	require.NoError(t, p.WriteFile(ctx, content.ParsePath("/a"), []byte("a")))
	require.NoError(t, p.WriteFile(ctx, content.ParsePath("/b/c"), []byte("c")))

	count, err := p.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewBadgerProvider_RequiresPath(t *testing.T) {
	_, err := NewBadgerProvider(context.Background(), BadgerProviderConfig{})
	assert.Error(t, err)
}
