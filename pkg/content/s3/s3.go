// Package s3 implements a content provider backed by Amazon S3 or any
// S3-compatible object store.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/fileserver/pkg/content"
)

// Client is the subset of the S3 API used by the provider.
// *s3.Client satisfies it.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Provider implements content.WritableProvider using S3.
//
// Path-Based Key Design:
//   - The object key is KeyPrefix followed by the path without its leading "/"
//   - "/docs/report.pdf" with prefix "site/" is stored at "site/docs/report.pdf"
//   - The bucket mirrors the served tree and can be populated with any S3 tool
//
// Every read hits S3. Wrap the provider in a cache.CachedProvider to avoid
// repeated round trips for hot files.
//
// Thread Safety:
// Safe for concurrent use. Concurrent writes to the same path are
// last-write-wins.
type S3Provider struct {
	client    Client
	bucket    string
	keyPrefix string
}

// S3ProviderConfig contains configuration for the S3 provider.
type S3ProviderConfig struct {
	// Client is the configured S3 client
	Client Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "site/" results in keys like "site/index.html"
	KeyPrefix string

	// SkipBucketCheck disables the HeadBucket check at construction
	SkipBucketCheck bool
}

// NewS3Provider creates a new S3-based content provider.
//
// The bucket must already exist; this function does not create it.
//
// Context Cancellation:
// This operation checks the context before verifying bucket access.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3Provider: Initialized provider
//   - error: Returns error if bucket access fails or context is cancelled
func NewS3Provider(ctx context.Context, cfg S3ProviderConfig) (*S3Provider, error) {
	// ========================================================================
	// Step 1: Check context before S3 operations
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Validate configuration
	// ========================================================================

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	// ========================================================================
	// Step 3: Verify bucket access
	// ========================================================================

	if !cfg.SkipBucketCheck {
		_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(cfg.Bucket),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &S3Provider{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// objectKey returns the S3 object key for path.
func (p *S3Provider) objectKey(path content.Path) string {
	return p.keyPrefix + path.Relative()
}

// ReadFile downloads the object for path.
//
// Returns:
//   - []byte: Object content (non-nil when found)
//   - error: content.ErrContentNotFound if the key is missing, or S3 errors
func (p *S3Provider) ReadFile(ctx context.Context, path content.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The root has no object key of its own.
	if path.IsRoot() {
		return nil, fmt.Errorf("file %s: %w", path, content.ErrContentNotFound)
	}

	key := p.objectKey(path)
	result, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("file %s: %w", path, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}
	if data == nil {
		data = []byte{}
	}

	return data, nil
}

// WriteFile uploads data as the object for path.
func (p *S3Provider) WriteFile(ctx context.Context, path content.Path, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("write %s: %w", path, content.ErrInvalidPath)
	}

	key := p.objectKey(path)
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}
	return nil
}

// DeleteFile removes the object for path. S3 treats deleting a missing key
// as success.
func (p *S3Provider) DeleteFile(ctx context.Context, path content.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("delete %s: %w", path, content.ErrInvalidPath)
	}

	key := p.objectKey(path)
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
