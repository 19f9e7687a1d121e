package content

import (
	"context"
)

// ============================================================================
// Provider Interface
// ============================================================================

// Provider is the read-only filesystem abstraction the file server resolves
// request paths against.
//
// A provider answers a single question: given a normalized path, what bytes
// live there? It knows nothing about HTTP, connections or workers.
//
// Absence:
// A missing file is reported with ErrContentNotFound (possibly wrapped). It is
// a distinguishable sentinel, not a failure: callers map it to "404 Not Found".
// Any other non-nil error is an I/O failure of the backend.
//
// Empty files:
// An existing file with no content returns a non-nil, zero-length slice and a
// nil error. It is found, never absent.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines. The
// server invokes ReadFile from every worker with no external locking, so any
// internal state is the implementation's own responsibility.
type Provider interface {
	// ReadFile returns the complete content of the file at path.
	//
	// Context Cancellation:
	// Implementations check the context before doing any work and pass it to
	// blocking backend calls (network, disk) where the backend supports it.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - path: Normalized file path (see ParsePath)
	//
	// Returns:
	//   - []byte: File content (non-nil, possibly empty, when found)
	//   - error: ErrContentNotFound if the file doesn't exist, or context/IO errors
	ReadFile(ctx context.Context, path Path) ([]byte, error)
}

// WritableProvider extends Provider with the operations used to seed and
// maintain content.
//
// The HTTP server never writes; these methods exist for configuration-driven
// seeding and tests.
type WritableProvider interface {
	Provider

	// WriteFile creates or replaces the file at path.
	WriteFile(ctx context.Context, path Path, data []byte) error

	// DeleteFile removes the file at path. Deleting a missing file succeeds.
	DeleteFile(ctx context.Context, path Path) error
}

// Seed writes every entry of files into provider.
//
// Keys are raw paths and are normalized with ParsePath before writing.
//
// Returns:
//   - error: ErrInvalidPath for a key that normalizes to the root, or the
//     first write error
func Seed(ctx context.Context, provider WritableProvider, files map[string]string) error {
	for raw, data := range files {
		path := ParsePath(raw)
		if path.IsRoot() {
			return &PathError{Op: "seed", Path: raw, Err: ErrInvalidPath}
		}
		if err := provider.WriteFile(ctx, path, []byte(data)); err != nil {
			return &PathError{Op: "seed", Path: raw, Err: err}
		}
	}
	return nil
}

// PathError records an error and the path that caused it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}
