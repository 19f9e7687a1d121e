package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/fileserver/internal/logger"
	"github.com/marmos91/fileserver/pkg/adapter"
	"github.com/marmos91/fileserver/pkg/content"
)

// DefaultStopTimeout bounds how long Serve waits for each adapter's Stop call.
const DefaultStopTimeout = 30 * time.Second

// ErrNoAdapters is returned by Serve when nothing was registered.
var ErrNoAdapters = errors.New("no adapters registered; call AddAdapter() before Serve()")

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("Serve() has already been called on this server instance")

// Server manages the lifecycle of protocol adapters that share one content
// provider.
//
// Lifecycle:
//  1. Creation: New() with a provider
//  2. Registration: AddAdapter() for each protocol
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: Context cancellation or an adapter failure stops every adapter
//
// Thread safety:
// Server is safe for concurrent use. Serve() should only be called once per
// server instance.
//
// Example usage:
//
//	srv := server.New(provider)
//	if err := srv.AddAdapter(http.New(httpConfig, httpMetrics)); err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
//	    log.Fatal(err)
//	}
type Server struct {
	// provider is the shared content source for all adapters
	provider content.Provider

	// adapters contains all registered protocol adapters
	adapters []adapter.Adapter

	// mu protects adapters
	mu sync.RWMutex

	// served is set by the first Serve call
	served atomic.Bool

	// stopTimeout bounds each adapter Stop call during shutdown
	stopTimeout time.Duration
}

// New creates a Server around the provider every adapter will read from.
//
// Panics if provider is nil (indicates programmer error).
func New(provider content.Provider) *Server {
	if provider == nil {
		panic("content provider cannot be nil")
	}

	return &Server{
		provider:    provider,
		adapters:    make([]adapter.Adapter, 0, 2),
		stopTimeout: DefaultStopTimeout,
	}
}

// SetStopTimeout overrides DefaultStopTimeout. Values <= 0 are ignored.
func (s *Server) SetStopTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.stopTimeout = d
	s.mu.Unlock()
}

// AddAdapter registers a protocol adapter and injects the shared provider.
//
// Each adapter must implement a different protocol and listen on a different
// port.
//
// Returns:
//   - error if the adapter conflicts with an existing adapter, or Serve()
//     has already been called
//
// Panics if a is nil (programmer error).
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served.Load() {
		return fmt.Errorf("cannot add %s adapter after Serve() has been called", a.Protocol())
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetProvider(s.provider)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// When either happens every adapter receives Stop() in reverse registration
// order, and Serve waits for all adapter goroutines before returning.
//
// Returns:
//   - ctx.Err() if shutdown was triggered by context cancellation
//   - the wrapped adapter error if an adapter failed
//   - nil if every adapter returned on its own without error
//   - ErrNoAdapters or ErrAlreadyServed on misuse
func (s *Server) Serve(ctx context.Context) error {
	if !s.served.CompareAndSwap(false, true) {
		return ErrAlreadyServed
	}

	s.mu.RLock()
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	stopTimeout := s.stopTimeout
	s.mu.RUnlock()

	if len(adapters) == 0 {
		return ErrNoAdapters
	}

	logger.Info("Starting server with %d adapter(s)", len(adapters))

	// Buffered so a failing adapter never blocks after Serve stopped listening
	errChan := make(chan adapterError, len(adapters))
	allDone := make(chan struct{})

	var wg sync.WaitGroup
	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(ctx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
			case ctx.Err() == nil:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			case errors.Is(err, context.Canceled):
				// Expected during shutdown
				logger.Debug("%s adapter stopped gracefully", protocol)
			default:
				logger.Warn("%s adapter stopped with error: %v", protocol, err)
			}
		}(adp)
	}

	go func() {
		wg.Wait()
		close(allDone)
	}()

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters, stopTimeout)
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		s.stopAllAdapters(adapters, stopTimeout)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)

	case <-allDone:
		// Every adapter returned nil on its own
	}

	logger.Debug("Waiting for all adapters to complete shutdown")
	<-allDone

	logger.Info("Server stopped")
	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters stops adapters in reverse registration order, each bounded
// by timeout. Errors are logged and do not prevent stopping the rest.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter, timeout time.Duration) {
	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := adp.Stop(ctx)
		cancel()

		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stopped", protocol)
		}
	}
}

// Adapters returns a snapshot of the registered adapters.
//
// Thread safety:
// Safe to call concurrently with AddAdapter() and Serve().
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
