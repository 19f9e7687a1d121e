package content

import "errors"

// ============================================================================
// Standard Provider Errors
// ============================================================================

// These errors give every provider implementation a consistent way to report
// common conditions. Protocol handlers check for them with errors.Is and map
// them to protocol-specific outcomes.
//
// Usage Pattern:
//
//	data, err := provider.ReadFile(ctx, path)
//	if errors.Is(err, content.ErrContentNotFound) {
//	    // 404 Not Found
//	}
//
// Implementations wrap these errors with context:
//
//	return nil, fmt.Errorf("file %s: %w", path, content.ErrContentNotFound)

var (
	// ErrContentNotFound indicates that no file exists at the requested path.
	//
	// This is the absence signal of the provider contract: it is a normal,
	// modeled outcome and not an I/O failure.
	//
	// Protocol Mapping:
	//   - HTTP: 404 Not Found
	ErrContentNotFound = errors.New("content not found")

	// ErrReadOnly indicates a write was attempted against a provider that
	// does not accept writes.
	ErrReadOnly = errors.New("provider is read-only")

	// ErrInvalidPath indicates a path that cannot be stored (for example, the
	// root path as a file name).
	ErrInvalidPath = errors.New("invalid path")

	// ErrFileTooLarge indicates a write larger than the provider can store.
	ErrFileTooLarge = errors.New("file too large")
)
