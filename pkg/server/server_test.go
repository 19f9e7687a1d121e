package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/fileserver/pkg/content"
	"github.com/marmos91/fileserver/pkg/content/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter blocks in Serve until its context ends or Stop is called, unless
// serveErr is set.
type fakeAdapter struct {
	protocol string
	port     int
	serveErr error

	mu       sync.Mutex
	provider content.Provider
	stopped  chan struct{}
	stopOnce sync.Once
	started  chan struct{}
	order    *stopOrder
}

type stopOrder struct {
	mu    sync.Mutex
	names []string
}

func (o *stopOrder) add(name string) {
	o.mu.Lock()
	o.names = append(o.names, name)
	o.mu.Unlock()
}

func newFakeAdapter(protocol string, port int) *fakeAdapter {
	return &fakeAdapter{
		protocol: protocol,
		port:     port,
		stopped:  make(chan struct{}),
		started:  make(chan struct{}),
	}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	close(f.started)
	if f.serveErr != nil {
		return f.serveErr
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.stopped:
		return nil
	}
}

func (f *fakeAdapter) SetProvider(p content.Provider) {
	f.mu.Lock()
	f.provider = p
	f.mu.Unlock()
}

func (f *fakeAdapter) Stop(ctx context.Context) error {
	f.stopOnce.Do(func() {
		if f.order != nil {
			f.order.add(f.protocol)
		}
		close(f.stopped)
	})
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

func newProvider(t *testing.T) content.Provider {
	t.Helper()
	p, err := memory.NewMemoryProviderWithFiles(map[string]string{"/a": "hello"})
	require.NoError(t, err)
	return p
}

func TestNew_NilProviderPanics(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestAddAdapter_InjectsProvider(t *testing.T) {
	provider := newProvider(t)
	srv := New(provider)
	a := newFakeAdapter("HTTP", 8080)

	require.NoError(t, srv.AddAdapter(a))

	assert.Same(t, provider, a.provider)
	assert.Len(t, srv.Adapters(), 1)
}

func TestAddAdapter_Conflicts(t *testing.T) {
	srv := New(newProvider(t))
	require.NoError(t, srv.AddAdapter(newFakeAdapter("HTTP", 8080)))

	err := srv.AddAdapter(newFakeAdapter("HTTP", 8081))
	assert.ErrorContains(t, err, "already registered")

	err = srv.AddAdapter(newFakeAdapter("ADMIN", 8080))
	assert.ErrorContains(t, err, "port 8080 already in use")

	// Port 0 means "pick one" and never conflicts
	require.NoError(t, srv.AddAdapter(newFakeAdapter("A", 0)))
	require.NoError(t, srv.AddAdapter(newFakeAdapter("B", 0)))
}

func TestAddAdapter_NilPanics(t *testing.T) {
	srv := New(newProvider(t))
	assert.Panics(t, func() { _ = srv.AddAdapter(nil) })
}

func TestServe_NoAdapters(t *testing.T) {
	srv := New(newProvider(t))
	assert.ErrorIs(t, srv.Serve(context.Background()), ErrNoAdapters)
}

func TestServe_ContextCancellationStopsInReverseOrder(t *testing.T) {
	srv := New(newProvider(t))
	order := &stopOrder{}

	first := newFakeAdapter("FIRST", 1)
	second := newFakeAdapter("SECOND", 2)
	first.order = order
	second.order = order
	require.NoError(t, srv.AddAdapter(first))
	require.NoError(t, srv.AddAdapter(second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	<-first.started
	<-second.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	assert.Equal(t, []string{"SECOND", "FIRST"}, order.names)
}

func TestServe_AdapterFailureStopsOthers(t *testing.T) {
	srv := New(newProvider(t))

	healthy := newFakeAdapter("HEALTHY", 1)
	failing := newFakeAdapter("FAILING", 2)
	failing.serveErr = errors.New("bind: address already in use")
	require.NoError(t, srv.AddAdapter(healthy))
	require.NoError(t, srv.AddAdapter(failing))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, failing.serveErr)
		assert.Contains(t, err.Error(), "FAILING adapter error")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	select {
	case <-healthy.stopped:
	default:
		t.Fatal("healthy adapter was not stopped")
	}
}

func TestServe_OnlyOnce(t *testing.T) {
	srv := New(newProvider(t))
	a := newFakeAdapter("HTTP", 8080)
	require.NoError(t, srv.AddAdapter(a))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	<-a.started

	assert.ErrorIs(t, srv.Serve(ctx), ErrAlreadyServed)
	assert.Error(t, srv.AddAdapter(newFakeAdapter("OTHER", 9000)))

	cancel()
	<-done
}

func TestSetStopTimeout(t *testing.T) {
	srv := New(newProvider(t))
	assert.Equal(t, DefaultStopTimeout, srv.stopTimeout)

	srv.SetStopTimeout(0)
	assert.Equal(t, DefaultStopTimeout, srv.stopTimeout)

	srv.SetStopTimeout(time.Second)
	assert.Equal(t, time.Second, srv.stopTimeout)
}
