package memory

import (
	"context"
	"testing"

	"github.com/marmos91/fileserver/pkg/content"
	contenttesting "github.com/marmos91/fileserver/pkg/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryProvider runs the complete provider test suite
// against the MemoryProvider implementation.
func TestMemoryProvider(t *testing.T) {
	suite := &contenttesting.ProviderTestSuite{
		NewProvider: func(t *testing.T) content.WritableProvider {
			return NewMemoryProvider()
		},
	}

	suite.Run(t)
}

func TestNewMemoryProviderWithFiles(t *testing.T) {
	p, err := NewMemoryProviderWithFiles(map[string]string{
		"/index.html": "<html></html>",
		"/empty":      "",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())

	data, err := p.ReadFile(context.Background(), content.ParsePath("index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	data, err = p.ReadFile(context.Background(), content.ParsePath("/empty"))
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestMemoryProvider_ReadReturnsCopy(t *testing.T) {
	p := NewMemoryProvider()
	path := content.ParsePath("/a")
	require.NoError(t, p.WriteFile(context.Background(), path, []byte("hello")))

	data, err := p.ReadFile(context.Background(), path)
	require.NoError(t, err)
	data[0] = 'J'

	again, err := p.ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(again))
}

func TestMemoryProvider_RootRejected(t *testing.T) {
	p := NewMemoryProvider()

	err := p.WriteFile(context.Background(), content.ParsePath("/"), []byte("x"))
	assert.ErrorIs(t, err, content.ErrInvalidPath)
}
