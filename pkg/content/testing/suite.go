package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/fileserver/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ProviderTestSuite is a conformance suite for WritableProvider implementations.
// It tests the interface contract, not implementation details, so it is reused
// across backends (memory, filesystem, badger, S3).
//
// Usage:
//
//	func TestMyProvider(t *testing.T) {
//	    suite := &contenttesting.ProviderTestSuite{
//	        NewProvider: func(t *testing.T) content.WritableProvider {
//	            return myprovider.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type ProviderTestSuite struct {
	// NewProvider creates a fresh, empty provider for each test.
	NewProvider func(t *testing.T) content.WritableProvider

	// MaxFileSize is the largest file the provider stores; 0 means no limit.
	// Larger writes must fail with content.ErrFileTooLarge.
	MaxFileSize int
}

// Run executes all tests in the suite.
func (suite *ProviderTestSuite) Run(t *testing.T) {
	t.Run("ReadFile_NotFound", suite.testReadFileNotFound)
	t.Run("ReadFile_Success", suite.testReadFileSuccess)
	t.Run("ReadFile_EmptyContent", suite.testReadFileEmpty)
	t.Run("ReadFile_Nested", suite.testReadFileNested)
	t.Run("ReadFile_Binary", suite.testReadFileBinary)
	t.Run("ReadFile_Large", suite.testReadFileLarge)
	t.Run("WriteFile_TooLarge", suite.testWriteFileTooLarge)
	t.Run("ReadFile_CancelledContext", suite.testReadFileCancelled)
	t.Run("WriteFile_Overwrite", suite.testWriteFileOverwrite)
	t.Run("DeleteFile_Success", suite.testDeleteFile)
	t.Run("DeleteFile_Missing", suite.testDeleteMissing)
	t.Run("ReadFile_Concurrent", suite.testConcurrentReads)
}

func testContext() context.Context {
	return context.Background()
}

func mustWrite(t *testing.T, p content.WritableProvider, raw string, data []byte) content.Path {
	t.Helper()
	path := content.ParsePath(raw)
	require.NoError(t, p.WriteFile(testContext(), path, data))
	return path
}

func (suite *ProviderTestSuite) testReadFileNotFound(t *testing.T) {
	p := suite.NewProvider(t)

	data, err := p.ReadFile(testContext(), content.ParsePath("/missing.txt"))
	assert.ErrorIs(t, err, content.ErrContentNotFound)
	assert.Nil(t, data)
}

func (suite *ProviderTestSuite) testReadFileSuccess(t *testing.T) {
	p := suite.NewProvider(t)
	path := mustWrite(t, p, "/index.html", []byte("<html></html>"))

	data, err := p.ReadFile(testContext(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("<html></html>"), data)
}

func (suite *ProviderTestSuite) testReadFileEmpty(t *testing.T) {
	p := suite.NewProvider(t)
	path := mustWrite(t, p, "/empty.txt", []byte{})

	data, err := p.ReadFile(testContext(), path)
	require.NoError(t, err, "empty content must be found, not absent")
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func (suite *ProviderTestSuite) testReadFileNested(t *testing.T) {
	p := suite.NewProvider(t)
	path := mustWrite(t, p, "/docs/guide/intro.md", []byte("# intro"))

	data, err := p.ReadFile(testContext(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("# intro"), data)

	_, err = p.ReadFile(testContext(), content.ParsePath("/docs/guide/other.md"))
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *ProviderTestSuite) testReadFileBinary(t *testing.T) {
	p := suite.NewProvider(t)
	payload := []byte{0x00, 0xff, '\r', '\n', 0x7f, 0x80}
	path := mustWrite(t, p, "/blob.bin", payload)

	data, err := p.ReadFile(testContext(), path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func (suite *ProviderTestSuite) testReadFileLarge(t *testing.T) {
	p := suite.NewProvider(t)
	payload := bytes.Repeat([]byte("0123456789abcdef"), 64*1024) // 1MB
	if suite.MaxFileSize > 0 && len(payload) > suite.MaxFileSize {
		payload = payload[:suite.MaxFileSize]
	}
	path := mustWrite(t, p, "/large.bin", payload)

	data, err := p.ReadFile(testContext(), path)
	require.NoError(t, err)
	assert.Equal(t, len(payload), len(data))
	assert.True(t, bytes.Equal(payload, data))
}

func (suite *ProviderTestSuite) testWriteFileTooLarge(t *testing.T) {
	if suite.MaxFileSize == 0 {
		t.Skip("provider has no file size limit")
	}
	p := suite.NewProvider(t)
	path := content.ParsePath("/too-large.bin")

	err := p.WriteFile(testContext(), path, make([]byte, suite.MaxFileSize+1))
	assert.ErrorIs(t, err, content.ErrFileTooLarge)

	_, err = p.ReadFile(testContext(), path)
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *ProviderTestSuite) testReadFileCancelled(t *testing.T) {
	p := suite.NewProvider(t)
	path := mustWrite(t, p, "/a.txt", []byte("a"))

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := p.ReadFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func (suite *ProviderTestSuite) testWriteFileOverwrite(t *testing.T) {
	p := suite.NewProvider(t)
	path := mustWrite(t, p, "/a.txt", []byte("first"))
	mustWrite(t, p, "/a.txt", []byte("second"))

	data, err := p.ReadFile(testContext(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func (suite *ProviderTestSuite) testDeleteFile(t *testing.T) {
	p := suite.NewProvider(t)
	path := mustWrite(t, p, "/a.txt", []byte("a"))

	require.NoError(t, p.DeleteFile(testContext(), path))

	_, err := p.ReadFile(testContext(), path)
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *ProviderTestSuite) testDeleteMissing(t *testing.T) {
	p := suite.NewProvider(t)

	assert.NoError(t, p.DeleteFile(testContext(), content.ParsePath("/never-written")))
}

func (suite *ProviderTestSuite) testConcurrentReads(t *testing.T) {
	p := suite.NewProvider(t)
	a := mustWrite(t, p, "/a", []byte("hello"))
	b := content.ParsePath("/b")

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			data, err := p.ReadFile(testContext(), a)
			if err != nil {
				errs <- err
				return
			}
			if string(data) != "hello" {
				errs <- fmt.Errorf("unexpected content %q", data)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := p.ReadFile(testContext(), b); !errors.Is(err, content.ErrContentNotFound) {
				errs <- fmt.Errorf("expected not found, got %v", err)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent read failed: %v", err)
	}
}
