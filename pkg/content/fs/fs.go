// Package fs implements a content provider backed by a local directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/marmos91/fileserver/pkg/content"
)

// FSProvider implements content.WritableProvider on top of a local directory.
//
// Request paths map directly onto the directory tree below basePath: the path
// "/docs/a.txt" is served from "<basePath>/docs/a.txt". Because content.Path
// never contains ".." components, lookups cannot escape basePath.
//
// Directories are not files: reading a path that names a directory reports
// content.ErrContentNotFound.
//
// Thread Safety:
// Reads are safe for concurrent use (the OS provides the guarantees).
// Concurrent writes to the same path may interleave; WriteFile uses a
// temporary file and rename so readers never observe a partial write.
type FSProvider struct {
	basePath string
}

// NewFSProvider creates a filesystem provider rooted at basePath.
//
// The base directory is created with permissions 0755 if it doesn't exist.
//
// Parameters:
//   - ctx: Context for cancellation (checked before touching the filesystem)
//   - basePath: Root directory to serve
//
// Returns:
//   - *FSProvider: Initialized provider
//   - error: Returns error if directory creation fails or context is cancelled
func NewFSProvider(ctx context.Context, basePath string) (*FSProvider, error) {
	// ========================================================================
	// Step 1: Check context before filesystem operation
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Create the base directory if it doesn't exist
	// ========================================================================

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	return &FSProvider{basePath: absPath}, nil
}

// BasePath returns the absolute root directory of the provider.
func (p *FSProvider) BasePath() string {
	return p.basePath
}

// filePath returns the on-disk location for path. It performs no I/O.
func (p *FSProvider) filePath(path content.Path) string {
	return filepath.Join(append([]string{p.basePath}, path.Components()...)...)
}

// ReadFile returns the content of the regular file at path.
//
// Returns:
//   - []byte: File content (non-nil when found)
//   - error: content.ErrContentNotFound if the path is missing or is a
//     directory, or context/IO errors
func (p *FSProvider) ReadFile(ctx context.Context, path content.Path) ([]byte, error) {
	// ========================================================================
	// Step 1: Check context before filesystem operation
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Stat the file to reject directories
	// ========================================================================

	filePath := p.filePath(path)
	info, err := os.Stat(filePath)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", path, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("file %s is a directory: %w", path, content.ErrContentNotFound)
	}

	// ========================================================================
	// Step 3: Read the file
	// ========================================================================

	data, err := os.ReadFile(filePath)
	if err != nil {
		if isNotExist(err) {
			// Removed between stat and read
			return nil, fmt.Errorf("file %s: %w", path, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if data == nil {
		data = []byte{}
	}

	return data, nil
}

// WriteFile creates or replaces the file at path, creating parent directories
// as needed.
func (p *FSProvider) WriteFile(ctx context.Context, path content.Path, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("write %s: %w", path, content.ErrInvalidPath)
	}

	filePath := p.filePath(path)
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	return nil
}

// DeleteFile removes the file at path. Missing files are not an error.
func (p *FSProvider) DeleteFile(ctx context.Context, path content.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("delete %s: %w", path, content.ErrInvalidPath)
	}

	if err := os.Remove(p.filePath(path)); err != nil && !isNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// isNotExist also treats ENOTDIR as absence: "/a.txt/b" where a.txt is a file.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
