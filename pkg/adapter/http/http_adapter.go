package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/fileserver/internal/logger"
	"github.com/marmos91/fileserver/internal/ratelimiter"
	protocol "github.com/marmos91/fileserver/internal/protocol/http"
	"github.com/marmos91/fileserver/pkg/content"
	"github.com/marmos91/fileserver/pkg/metrics"
)

// ErrNoProvider is returned by Serve when no content provider was injected.
var ErrNoProvider = errors.New("no content provider configured")

// HTTPAdapter implements the adapter.Adapter interface for the HTTP/1.0
// file server.
//
// Architecture:
// A single acceptor (the goroutine running Serve) accepts connections and
// hands each one to a fixed pool of worker goroutines over a bounded channel.
// A worker owns its connection from hand-off until close and serves exactly
// one request on it. The worker count therefore bounds how many connections
// are in flight; QueueSize bounds how many accepted connections may wait for
// an idle worker.
//
//	listener --Accept--> acceptor --conns (cap QueueSize)--> worker 1..N
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (acceptor unblocks and stops handing off)
//  3. Hand-off channel closed; workers finish their current connection
//  4. Connections still queued are closed without a response
//  5. After ShutdownTimeout, remaining connections are force-closed and the
//     request context is cancelled
//
// An Accept error outside shutdown is fatal: the adapter shuts down the same
// way and Serve returns the error.
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown uses sync.Once so Stop
// may be called any number of times, concurrently with Serve.
type HTTPAdapter struct {
	// config holds the server configuration (port, workers, timeouts)
	config HTTPConfig

	// provider resolves request paths to file content
	provider content.Provider

	// metrics provides optional Prometheus metrics collection
	metrics metrics.HTTPMetrics

	// limiter throttles hand-off when AcceptRate > 0; nil means unlimited
	limiter *ratelimiter.RateLimiter

	// buffers recycles per-connection readers and writers
	buffers *bufferPool

	// mu guards listener, which Port() reads concurrently with Serve
	mu       sync.RWMutex
	listener net.Listener

	// conns is the hand-off channel between the acceptor and the workers.
	// Only the acceptor sends and closes it.
	conns chan net.Conn

	// workers tracks worker goroutines for graceful shutdown
	workers sync.WaitGroup

	// shutdownOnce ensures shutdown is only initiated once
	shutdownOnce sync.Once

	// shutdown is closed by initiateShutdown()
	shutdown chan struct{}

	// done is closed when Serve has returned
	done chan struct{}

	// started is set when Serve begins; Stop on a never-started adapter returns at once
	started atomic.Bool

	// shutdownCtx is cancelled as soon as shutdown begins. It bounds waits
	// in the acceptor (rate limiter) and the metrics logger.
	shutdownCtx  context.Context
	stopAccepter context.CancelFunc

	// requestCtx is handed to the provider. It is cancelled only when the
	// shutdown timeout expires, so in-flight reads may finish.
	requestCtx     context.Context
	cancelRequests context.CancelFunc

	// connCount tracks the number of connections owned by workers
	connCount atomic.Int32

	// requestsServed counts finished connections, for periodic logging
	requestsServed atomic.Uint64

	// activeConnections tracks worker-owned connections for forced closure
	activeConnections sync.Map
}

// HTTPConfig holds configuration parameters for the HTTP adapter.
//
// Default values (applied by New if zero):
//   - Port: none, 0 lets the OS choose (pkg/config defaults it to 8080)
//   - Workers: runtime.NumCPU()
//   - QueueSize: 0 (unbuffered: the acceptor waits for an idle worker)
//   - MaxRequestLineBytes: 8KB
//   - ReadTimeout / WriteTimeout: 0 (none)
//   - ShutdownTimeout: 30s
//   - AcceptRate: 0 (unlimited)
//   - MetricsLogInterval: 0 (disabled)
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port to listen on. 0 lets the OS pick one.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// Workers is the fixed number of worker goroutines.
	// It is the upper bound on connections served concurrently.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"min=0"`

	// QueueSize is the capacity of the hand-off channel.
	// 0 makes every hand-off a rendezvous with an idle worker.
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size" validate:"min=0"`

	// MaxRequestLineBytes bounds the request line including its terminator.
	// Longer lines are malformed and the connection is closed silently.
	MaxRequestLineBytes int `mapstructure:"max_request_line_bytes" yaml:"max_request_line_bytes" validate:"omitempty,min=16"`

	// ReadTimeout bounds the wait for the request line. 0 means no timeout.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the response. 0 means no timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// connections during graceful shutdown before they are force-closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`

	// AcceptRate is the sustained number of connections per second handed to
	// workers. 0 disables rate limiting.
	AcceptRate float64 `mapstructure:"accept_rate" yaml:"accept_rate" validate:"min=0"`

	// AcceptBurst is the number of connections allowed through at once.
	// Defaults to AcceptRate when 0.
	AcceptBurst int `mapstructure:"accept_burst" yaml:"accept_burst" validate:"min=0"`

	// MetricsLogInterval is the interval at which to log adapter counters.
	// 0 disables periodic logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval" validate:"min=0"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *HTTPConfig) applyDefaults() {
	// Note: Enabled field defaults are handled in pkg/config/defaults.go
	// to allow explicit false values from configuration files.

	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxRequestLineBytes == 0 {
		c.MaxRequestLineBytes = protocol.DefaultMaxRequestLineBytes
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// validate checks that the configuration is usable.
func (c *HTTPConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid Workers %d: must be >= 1", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("invalid QueueSize %d: must be >= 0", c.QueueSize)
	}
	if c.MaxRequestLineBytes < protocol.MinRequestLineBytes {
		return fmt.Errorf("invalid MaxRequestLineBytes %d: must be >= %d",
			c.MaxRequestLineBytes, protocol.MinRequestLineBytes)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.AcceptRate < 0 {
		return fmt.Errorf("invalid AcceptRate %v: must be >= 0", c.AcceptRate)
	}
	if c.AcceptBurst < 0 {
		return fmt.Errorf("invalid AcceptBurst %d: must be >= 0", c.AcceptBurst)
	}
	if c.MetricsLogInterval < 0 {
		return fmt.Errorf("invalid MetricsLogInterval %v: must be >= 0", c.MetricsLogInterval)
	}
	return nil
}

// New creates a new HTTPAdapter with the specified configuration.
//
// The adapter is created in a stopped state. Call SetProvider() to inject
// the content provider, then Serve() or ServeListener() to start.
//
// Parameters:
//   - config: Server configuration (port, workers, timeouts)
//   - httpMetrics: Optional metrics collector (nil for no metrics)
//
// Panics if config validation fails.
func New(config HTTPConfig, httpMetrics metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	limiter := ratelimiter.New(config.AcceptRate, config.AcceptBurst)
	if limiter != nil {
		logger.Debug("HTTP accept rate limit: %.1f conn/s (burst %d)", limiter.Limit(), limiter.Burst())
	}

	shutdownCtx, stopAccepter := context.WithCancel(context.Background())
	requestCtx, cancelRequests := context.WithCancel(context.Background())

	return &HTTPAdapter{
		config:         config,
		metrics:        httpMetrics,
		limiter:        limiter,
		buffers:        newBufferPool(config.MaxRequestLineBytes),
		conns:          make(chan net.Conn, config.QueueSize),
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		stopAccepter:   stopAccepter,
		requestCtx:     requestCtx,
		cancelRequests: cancelRequests,
	}
}

// SetProvider injects the content provider requests are resolved against.
//
// Thread safety:
// Called once before Serve(), no synchronization needed.
func (s *HTTPAdapter) SetProvider(provider content.Provider) {
	s.provider = provider
	logger.Debug("HTTP content provider configured")
}

// Serve listens on the configured port and serves until the context is
// cancelled or accepting fails.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener cannot be created, Accept fails, or in-flight
//     connections had to be force-closed
func (s *HTTPAdapter) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on port %d: %w", s.config.Port, err)
	}

	return s.ServeListener(ctx, listener)
}

// ServeListener serves connections accepted from listener.
//
// The adapter takes ownership of listener and closes it on shutdown. It
// starts exactly Workers worker goroutines and runs the acceptor in the
// calling goroutine.
//
// Parameters:
//   - ctx: Controls the server lifecycle. Cancellation triggers graceful shutdown.
//   - listener: Source of connections
//
// Returns the same errors as Serve.
//
// Thread safety:
// Serve/ServeListener should only be called once per HTTPAdapter instance.
func (s *HTTPAdapter) ServeListener(ctx context.Context, listener net.Listener) error {
	if s.provider == nil {
		_ = listener.Close()
		return ErrNoProvider
	}

	s.started.Store(true)
	defer close(s.done)

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logger.Info("HTTP server listening on %s", listener.Addr())
	logger.Debug("HTTP config: workers=%d queue_size=%d max_request_line_bytes=%d read_timeout=%v write_timeout=%v",
		s.config.Workers, s.config.QueueSize, s.config.MaxRequestLineBytes,
		s.config.ReadTimeout, s.config.WriteTimeout)

	// If Stop() ran before we stored the listener, it could not close it.
	select {
	case <-s.shutdown:
		_ = listener.Close()
	default:
	}

	// Monitor context cancellation in separate goroutine
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("HTTP shutdown signal received: %v", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(s.shutdownCtx)
	}

	for i := 0; i < s.config.Workers; i++ {
		s.workers.Add(1)
		go s.worker(i)
	}

	acceptErr := s.acceptLoop()
	if acceptErr != nil {
		logger.Error("HTTP accept failed, shutting down: %v", acceptErr)
		s.initiateShutdown()
	}

	// The acceptor is the only sender, so closing here is safe.
	close(s.conns)

	shutdownErr := s.gracefulShutdown()
	if acceptErr != nil {
		return fmt.Errorf("HTTP accept failed: %w", acceptErr)
	}
	return shutdownErr
}

// acceptLoop accepts connections and hands them to workers until shutdown.
//
// Returns nil when stopped by shutdown, or the Accept error otherwise.
func (s *HTTPAdapter) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				// Expected error during shutdown (listener was closed)
				return nil
			default:
				return err
			}
		}

		s.metrics.RecordConnectionAccepted()
		logger.Debug("HTTP connection accepted from %s", conn.RemoteAddr())

		throttled, err := s.limiter.Acquire(s.shutdownCtx)
		if throttled {
			s.metrics.RecordAcceptThrottled()
			logger.Debug("HTTP accept throttled for %s (%.2f tokens left)", conn.RemoteAddr(), s.limiter.Tokens())
		}
		if err != nil {
			// Only shutdown cancels the limiter wait
			s.discard(conn)
			return nil
		}

		select {
		case s.conns <- conn:
			s.metrics.SetQueueDepth(len(s.conns))
		case <-s.shutdown:
			s.discard(conn)
			return nil
		}
	}
}

// worker serves connections from the hand-off channel until it is closed.
func (s *HTTPAdapter) worker(id int) {
	defer s.workers.Done()
	logger.Debug("HTTP worker %d started", id)

	for conn := range s.conns {
		s.metrics.SetQueueDepth(len(s.conns))

		// Connections still queued at shutdown get no response
		select {
		case <-s.shutdown:
			s.discard(conn)
			continue
		default:
		}

		s.serveConn(conn)
	}

	logger.Debug("HTTP worker %d stopped", id)
}

// serveConn runs one connection to completion, tracking it for forced closure.
func (s *HTTPAdapter) serveConn(conn net.Conn) {
	s.activeConnections.Store(conn, struct{}{})
	current := s.connCount.Add(1)
	s.metrics.SetActiveConnections(current)

	defer func() {
		s.activeConnections.Delete(conn)
		current := s.connCount.Add(-1)
		s.requestsServed.Add(1)

		s.metrics.RecordConnectionClosed()
		s.metrics.SetActiveConnections(current)

		logger.Debug("HTTP connection closed from %s (active: %d)", conn.RemoteAddr(), current)
	}()

	NewHTTPConnection(s, conn).Serve(s.requestCtx)
}

// discard closes a connection that will never be served.
func (s *HTTPAdapter) discard(conn net.Conn) {
	if err := conn.Close(); err != nil {
		logger.Debug("Error closing unserved connection from %s: %v", conn.RemoteAddr(), err)
	}
	s.metrics.RecordConnectionClosed()
}

// initiateShutdown signals the server to begin graceful shutdown.
//
// Shutdown sequence:
//  1. Close shutdown channel (signals acceptor and workers)
//  2. Close listener (unblocks Accept)
//  3. Cancel shutdownCtx (unblocks a rate limiter wait)
//
// In-flight provider reads keep their context until the shutdown timeout.
//
// Thread safety:
// Safe to call multiple times and from multiple goroutines.
func (s *HTTPAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP shutdown initiated")

		close(s.shutdown)

		s.mu.RLock()
		listener := s.listener
		s.mu.RUnlock()

		if listener != nil {
			if err := listener.Close(); err != nil {
				logger.Debug("Error closing HTTP listener: %v", err)
			}
		}

		s.stopAccepter()
	})
}

// gracefulShutdown waits for workers to finish or the shutdown timeout.
//
// Returns:
//   - nil if all workers exited gracefully
//   - error if the timeout expired and connections were force-closed
func (s *HTTPAdapter) gracefulShutdown() error {
	activeCount := s.connCount.Load()
	logger.Info("HTTP graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		activeCount, s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.config.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		s.cancelRequests()
		logger.Info("HTTP graceful shutdown complete: all connections closed")
		return nil

	case <-timer.C:
		remaining := s.connCount.Load()
		logger.Warn("HTTP shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
			remaining, s.config.ShutdownTimeout)

		s.cancelRequests()
		s.forceCloseConnections()

		return fmt.Errorf("HTTP shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections closes all worker-owned connections so blocked reads
// and writes fail immediately.
func (s *HTTPAdapter) forceCloseConnections() {
	logger.Info("Force-closing active HTTP connections")

	closedCount := 0
	s.activeConnections.Range(func(key, _ any) bool {
		conn := key.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection to %s: %v", conn.RemoteAddr(), err)
		} else {
			closedCount++
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})

	if closedCount > 0 {
		logger.Info("Force-closed %d connection(s)", closedCount)
	}
}

// Stop initiates graceful shutdown and waits for Serve to return.
//
// Parameters:
//   - ctx: Bounds the wait. If cancelled first, Stop returns the context error
//     while shutdown continues in the background.
//
// Thread safety:
// Safe to call concurrently from multiple goroutines.
func (s *HTTPAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if !s.started.Load() {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		logger.Warn("HTTP shutdown context cancelled: %d connection(s) still active: %v",
			s.connCount.Load(), ctx.Err())
		return ctx.Err()
	}
}

// logMetrics periodically logs adapter counters until ctx is cancelled.
func (s *HTTPAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("HTTP metrics: active_connections=%d queued=%d served=%d",
				s.connCount.Load(), len(s.conns), s.requestsServed.Load())
		}
	}
}

// GetActiveConnections returns the number of connections owned by workers.
func (s *HTTPAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// Port returns the bound TCP port once listening, or the configured port.
func (s *HTTPAdapter) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.config.Port
}

// Protocol returns "HTTP" as the protocol identifier.
func (s *HTTPAdapter) Protocol() string {
	return "HTTP"
}
