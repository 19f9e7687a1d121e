package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configHeader = `# fileserver Configuration File
#
# Values below are the defaults. Every key can be overridden with an
# environment variable: FILESERVER_<SECTION>_<KEY>, for example
# FILESERVER_ADAPTERS_HTTP_PORT=8081 or FILESERVER_LOGGING_LEVEL=DEBUG.`

// InitConfig writes a default configuration file to the default location.
//
// Parameters:
//   - force: Overwrite an existing file
//
// Returns:
//   - string: Path of the written file
//   - error: If the file exists and force is false, or writing fails
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath writes a default configuration file to configPath,
// creating parent directories as needed.
func InitConfigToPath(configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML with a comment above every key.
//
// The document is built as a yaml.Node tree so durations render as "30s"
// rather than nanosecond integers and comments stay attached to their keys.
func generateYAMLWithComments(cfg *Config) (string, error) {
	b := &nodeBuilder{}

	logging := b.mapping(
		b.field("level", cfg.Logging.Level, "Minimum level: DEBUG, INFO, WARN, ERROR"),
		b.field("format", cfg.Logging.Format, "Output format: text or json"),
		b.field("output", cfg.Logging.Output, "Destination: stdout, stderr or a file path"),
	)

	server := b.mapping(
		b.field("shutdown_timeout", cfg.Server.ShutdownTimeout, "Upper bound for each adapter to stop"),
	)

	contentSection := b.mapping(
		b.field("type", cfg.Content.Type, "Provider: memory, filesystem, s3 or badger"),
		b.field("memory", cfg.Content.Memory, "memory: files maps request paths to their content"),
		b.field("filesystem", cfg.Content.Filesystem, "filesystem: path is the directory to serve"),
		b.field("s3", cfg.Content.S3,
			"s3: bucket, region, key_prefix, endpoint, access_key_id,\n"+
				"secret_access_key, max_retries, skip_bucket_check"),
		b.field("badger", cfg.Content.Badger,
			"badger: db_path, in_memory, block_cache_size_mb, index_cache_size_mb, files"),
		b.field("cache", b.mapping(
			b.field("enabled", cfg.Content.Cache.Enabled, "Read-through cache in front of the provider"),
			b.field("max_bytes", cfg.Content.Cache.MaxBytes, "Total size of cached file bodies"),
			b.field("ttl", cfg.Content.Cache.TTL, "Entry lifetime, 0s keeps entries until evicted"),
		), ""),
	)

	h := cfg.Adapters.HTTP
	adapters := b.mapping(
		b.field("http", b.mapping(
			b.field("enabled", h.Enabled, ""),
			b.field("port", h.Port, "TCP port to listen on"),
			b.field("workers", h.Workers, "Fixed number of workers, the bound on concurrent connections"),
			b.field("queue_size", h.QueueSize, "Accepted connections waiting for a worker, 0 hands off directly"),
			b.field("max_request_line_bytes", h.MaxRequestLineBytes, "Longer request lines are dropped"),
			b.field("read_timeout", h.ReadTimeout, "Wait for the request line, 0s waits forever"),
			b.field("write_timeout", h.WriteTimeout, "Wait for the response write, 0s waits forever"),
			b.field("shutdown_timeout", h.ShutdownTimeout, "Grace period before in-flight connections are closed"),
			b.field("accept_rate", h.AcceptRate, "Connections per second handed to workers, 0 is unlimited"),
			b.field("accept_burst", h.AcceptBurst, "Connections let through at once, defaults to accept_rate"),
			b.field("metrics_log_interval", h.MetricsLogInterval, "Log adapter counters periodically, 0s disables"),
		), "HTTP/1.0 file server"),
	)

	metricsSection := b.mapping(
		b.field("enabled", cfg.Metrics.Enabled, "Expose Prometheus metrics on /metrics"),
		b.field("port", cfg.Metrics.Port, ""),
	)

	root := b.mapping(
		b.field("logging", logging, "Logging configuration"),
		b.field("server", server, "Server-wide settings"),
		b.field("content", contentSection, "Content provider the server reads files from"),
		b.field("adapters", adapters, "Protocol adapters"),
		b.field("metrics", metricsSection, "Metrics endpoint"),
	)
	if b.err != nil {
		return "", b.err
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: configHeader,
		Content:     []*yaml.Node{root},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// nodeBuilder assembles a yaml.Node tree, keeping the first encoding error.
type nodeBuilder struct {
	err error
}

// keyValue is one mapping entry.
type keyValue struct {
	key   *yaml.Node
	value *yaml.Node
}

func (b *nodeBuilder) mapping(fields ...keyValue) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		n.Content = append(n.Content, f.key, f.value)
	}
	return n
}

// field creates a key with an optional comment. value may be a *yaml.Node or
// any value yaml.v3 can encode.
func (b *nodeBuilder) field(key string, value any, comment string) keyValue {
	k := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	if comment != "" {
		k.HeadComment = "# " + strings.ReplaceAll(comment, "\n", "\n# ")
	}

	if n, ok := value.(*yaml.Node); ok {
		return keyValue{key: k, value: n}
	}

	if d, ok := value.(time.Duration); ok {
		value = d.String()
	}

	v := &yaml.Node{}
	if err := v.Encode(value); err != nil && b.err == nil {
		b.err = fmt.Errorf("encode %s: %w", key, err)
	}
	return keyValue{key: k, value: v}
}
