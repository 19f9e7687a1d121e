package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/fileserver/internal/logger"
	"github.com/marmos91/fileserver/pkg/content"
	contentBadger "github.com/marmos91/fileserver/pkg/content/badger"
	"github.com/marmos91/fileserver/pkg/content/cache"
	contentFs "github.com/marmos91/fileserver/pkg/content/fs"
	"github.com/marmos91/fileserver/pkg/content/memory"
	contentS3 "github.com/marmos91/fileserver/pkg/content/s3"
	"github.com/mitchellh/mapstructure"
)

// ProviderResult is the configured content provider together with the
// resources that must be released at shutdown.
type ProviderResult struct {
	// Provider is what adapters read from (the cache when enabled)
	Provider content.Provider

	// Cache is the read-through cache, nil when disabled
	Cache *cache.CachedProvider

	closers []func() error
}

// Close releases the cache and the backend, in that order.
func (r *ProviderResult) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// CreateProvider creates a content provider based on configuration.
//
// This factory function uses the Type field to determine which provider
// implementation to create, then decodes the type-specific configuration from
// the corresponding map and passes it to the provider's constructor. When the
// cache is enabled the backend is wrapped in a cache.CachedProvider.
//
// Supported types:
//   - "memory": Uses pkg/content/memory (seeded from the files map)
//   - "filesystem": Uses pkg/content/fs (serves a local directory)
//   - "s3": Uses pkg/content/s3 (Amazon S3 or compatible storage)
//   - "badger": Uses pkg/content/badger (BadgerDB, persistent)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Content configuration
//
// Returns:
//   - *ProviderResult: Initialized provider; call Close at shutdown
//   - error: Configuration or initialization error
func CreateProvider(ctx context.Context, cfg *ContentConfig) (*ProviderResult, error) {
	result := &ProviderResult{}

	var (
		backend content.Provider
		err     error
	)
	switch cfg.Type {
	case "memory":
		backend, err = createMemoryProvider(cfg.Memory)
	case "filesystem":
		backend, err = createFilesystemProvider(ctx, cfg.Filesystem)
	case "s3":
		backend, err = createS3Provider(ctx, cfg.S3)
	case "badger":
		var p *contentBadger.BadgerProvider
		p, err = createBadgerProvider(ctx, cfg.Badger)
		if err == nil {
			backend = p
			result.closers = append(result.closers, p.Close)
		}
	default:
		return nil, fmt.Errorf("unknown content provider type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	result.Provider = backend

	if cfg.Cache.Enabled {
		cached, err := cache.New(backend, cache.Config{
			MaxBytes: cfg.Cache.MaxBytes,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			_ = result.Close()
			return nil, fmt.Errorf("failed to create content cache: %w", err)
		}
		result.Provider = cached
		result.Cache = cached
		result.closers = append(result.closers, func() error {
			cached.Close()
			return nil
		})
		logger.Info("Content cache enabled: max_bytes=%d ttl=%v", cfg.Cache.MaxBytes, cfg.Cache.TTL)
	}

	return result, nil
}

// decodeOptions decodes a provider option map into out.
//
// Weak typing lets values that arrive as strings from environment variables
// decode into numeric and boolean fields.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// createMemoryProvider creates an in-memory provider seeded from options.
func createMemoryProvider(options map[string]any) (content.Provider, error) {
	type MemoryProviderConfig struct {
		Files map[string]string `mapstructure:"files"`
	}

	var providerCfg MemoryProviderConfig
	if err := decodeOptions(options, &providerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory provider config: %w", err)
	}

	provider, err := memory.NewMemoryProviderWithFiles(providerCfg.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory provider: %w", err)
	}

	logger.Info("Memory content provider initialized with %d file(s)", provider.Len())
	return provider, nil
}

// createFilesystemProvider creates a provider serving a local directory.
func createFilesystemProvider(ctx context.Context, options map[string]any) (content.Provider, error) {
	type FilesystemProviderConfig struct {
		Path string `mapstructure:"path"`
	}

	var providerCfg FilesystemProviderConfig
	if err := decodeOptions(options, &providerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem provider config: %w", err)
	}

	if providerCfg.Path == "" {
		return nil, fmt.Errorf("filesystem provider: path is required")
	}

	provider, err := contentFs.NewFSProvider(ctx, providerCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem provider: %w", err)
	}

	logger.Info("Filesystem content provider initialized: path=%s", provider.BasePath())
	return provider, nil
}

// createBadgerProvider opens a BadgerDB provider and applies the optional seed.
func createBadgerProvider(ctx context.Context, options map[string]any) (*contentBadger.BadgerProvider, error) {
	type BadgerProviderConfig struct {
		DBPath           string            `mapstructure:"db_path"`
		InMemory         bool              `mapstructure:"in_memory"`
		BlockCacheSizeMB int64             `mapstructure:"block_cache_size_mb"`
		IndexCacheSizeMB int64             `mapstructure:"index_cache_size_mb"`
		Files            map[string]string `mapstructure:"files"`
	}

	var providerCfg BadgerProviderConfig
	if err := decodeOptions(options, &providerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger provider config: %w", err)
	}

	provider, err := contentBadger.NewBadgerProvider(ctx, contentBadger.BadgerProviderConfig{
		DBPath:           providerCfg.DBPath,
		InMemory:         providerCfg.InMemory,
		BlockCacheSizeMB: providerCfg.BlockCacheSizeMB,
		IndexCacheSizeMB: providerCfg.IndexCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger provider: %w", err)
	}

	if err := content.Seed(ctx, provider, providerCfg.Files); err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to seed badger provider: %w", err)
	}

	count, err := provider.Count(ctx)
	if err != nil {
		logger.Warn("BadgerDB content provider: failed to count files: %v", err)
	}
	logger.Info("BadgerDB content provider initialized: path=%s in_memory=%t files=%d",
		providerCfg.DBPath, providerCfg.InMemory, count)

	return provider, nil
}

// createS3Provider creates an S3-based content provider.
func createS3Provider(ctx context.Context, options map[string]any) (content.Provider, error) {
	type S3ProviderConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
		SkipBucketCheck bool   `mapstructure:"skip_bucket_check"`
	}

	var providerCfg S3ProviderConfig
	if err := decodeOptions(options, &providerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 provider config: %w", err)
	}

	if providerCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 provider: bucket is required")
	}

	if providerCfg.Region == "" {
		return nil, fmt.Errorf("S3 provider: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(providerCfg.Region))

	// Set credentials if provided, otherwise use default credential chain
	if providerCfg.AccessKeyID != "" && providerCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			providerCfg.AccessKeyID,
			providerCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Default to 10 attempts (AWS default is 3)
	maxRetries := providerCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoint (MinIO, Localstack, ...) with path-style addressing
		if providerCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(providerCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Provider
	// ========================================================================

	provider, err := contentS3.NewS3Provider(ctx, contentS3.S3ProviderConfig{
		Client:          client,
		Bucket:          providerCfg.Bucket,
		KeyPrefix:       providerCfg.KeyPrefix,
		SkipBucketCheck: providerCfg.SkipBucketCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 provider: %w", err)
	}

	logger.Info("S3 content provider initialized: bucket=%s, region=%s, prefix=%s",
		providerCfg.Bucket, providerCfg.Region, providerCfg.KeyPrefix)

	return provider, nil
}
