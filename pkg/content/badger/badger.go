// Package badger implements a persistent content provider on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/fileserver/pkg/content"
)

// keyPrefix namespaces file entries so the database can hold other data later.
const keyPrefix = "file:"

// BadgerProvider implements content.WritableProvider using BadgerDB.
//
// Each file is one key-value pair: the key is "file:" followed by the
// normalized absolute path, the value is the raw content. BadgerDB's MVCC
// transactions make concurrent reads lock-free and writes atomic per file.
//
// Thread Safety:
// Safe for concurrent use. Callers must call Close when done to flush and
// release the database directory lock.
type BadgerProvider struct {
	db *badger.DB

	// maxFileSize is the largest value WriteFile accepts; 0 means no limit
	maxFileSize int
}

// BadgerProviderConfig contains configuration for the BadgerDB provider.
type BadgerProviderConfig struct {
	// DBPath is the directory holding the database files.
	// Required unless InMemory is set.
	DBPath string

	// InMemory runs BadgerDB without touching disk (tests, ephemeral setups).
	// Without a value log, files must stay below BadgerDB's value threshold
	// (1MB); larger writes fail with content.ErrFileTooLarge.
	InMemory bool

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64
}

// NewBadgerProvider opens (or creates) a BadgerDB database.
//
// Context Cancellation:
// The context is checked before the database is opened.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Database location and cache sizing
//
// Returns:
//   - *BadgerProvider: Provider ready for use
//   - error: If the configuration is invalid or the database cannot be opened
func NewBadgerProvider(ctx context.Context, config BadgerProviderConfig) (*BadgerProvider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if config.DBPath == "" && !config.InMemory {
		return nil, fmt.Errorf("badger provider: db_path is required")
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.DBPath)
	}

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}

	opts = opts.
		WithLogger(nil).
		WithCompression(options.Snappy).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	provider := &BadgerProvider{db: db}
	if config.InMemory {
		// Values at or above the threshold belong in the value log, which
		// in-memory mode does not have. Badger's writer panics on them.
		provider.maxFileSize = int(opts.ValueThreshold) - 1
	}

	return provider, nil
}

func fileKey(path content.Path) []byte {
	return []byte(keyPrefix + path.String())
}

// ReadFile returns the content stored for path.
//
// Returns:
//   - []byte: Content (non-nil when found)
//   - error: content.ErrContentNotFound if no entry exists, or context/DB errors
func (p *BadgerProvider) ReadFile(ctx context.Context, path content.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(path))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("file %s: %w", path, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to read %s from BadgerDB: %w", path, err)
	}

	// ValueCopy returns nil for empty values; empty files are still found.
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// WriteFile stores data at path, replacing any existing entry.
func (p *BadgerProvider) WriteFile(ctx context.Context, path content.Path, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("write %s: %w", path, content.ErrInvalidPath)
	}
	if p.maxFileSize > 0 && len(data) > p.maxFileSize {
		return fmt.Errorf("write %s (%d bytes, limit %d): %w",
			path, len(data), p.maxFileSize, content.ErrFileTooLarge)
	}

	value := make([]byte, len(data))
	copy(value, data)

	if err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fileKey(path), value)
	}); err != nil {
		return fmt.Errorf("failed to write %s to BadgerDB: %w", path, err)
	}
	return nil
}

// DeleteFile removes the entry at path. Missing entries are not an error.
func (p *BadgerProvider) DeleteFile(ctx context.Context, path content.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fileKey(path))
	}); err != nil {
		return fmt.Errorf("failed to delete %s from BadgerDB: %w", path, err)
	}
	return nil
}

// MaxFileSize returns the largest file WriteFile accepts, or 0 when the size
// is unbounded.
func (p *BadgerProvider) MaxFileSize() int {
	return p.maxFileSize
}

// Count returns the number of stored files.
func (p *BadgerProvider) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return count, nil
}

// Close flushes pending writes and releases the database.
func (p *BadgerProvider) Close() error {
	return p.db.Close()
}
