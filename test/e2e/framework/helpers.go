package framework

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// TestContext holds the context for a test run
type TestContext struct {
	T      *testing.T
	Server *TestServer
}

// Response is a parsed HTTP/1.0 response
type Response struct {
	StatusCode int
	StatusLine string
	Headers    []string
	Body       []byte
}

// NewTestContext creates a started server for storeType seeded with files
func NewTestContext(t *testing.T, storeType StoreType, files map[string]string) *TestContext {
	t.Helper()

	ctx := &TestContext{T: t}

	server := NewTestServer(t, TestServerConfig{
		ContentStore: storeType,
		Files:        files,
	})
	ctx.Server = server

	// Registered after NewTestServer so it runs before any cleanup the
	// server registered (cleanups run last-in first-out)
	t.Cleanup(func() {
		ctx.Cleanup()
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	return ctx
}

// Cleanup stops the server
func (tc *TestContext) Cleanup() {
	tc.T.Helper()
	if tc.Server != nil {
		if err := tc.Server.Stop(); err != nil {
			tc.T.Errorf("Server returned error: %v", err)
		}
	}
}

// SendRaw writes payload on a fresh connection and returns every byte the
// server sent before closing it.
func (tc *TestContext) SendRaw(payload string) ([]byte, error) {
	tc.T.Helper()

	conn, err := net.DialTimeout("tcp", tc.Server.Addr(), 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(conn, payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}

	return io.ReadAll(conn)
}

// Get issues "GET path HTTP/1.0" and parses the response
func (tc *TestContext) Get(path string) (*Response, error) {
	tc.T.Helper()

	raw, err := tc.SendRaw("GET " + path + " HTTP/1.0\r\n\r\n")
	if err != nil {
		return nil, err
	}
	return ParseResponse(raw)
}

// ParseResponse splits raw bytes into status, headers and body
func ParseResponse(raw []byte) (*Response, error) {
	r := bufio.NewReader(strings.NewReader(string(raw)))

	statusLine, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read status line: %w", err)
	}
	statusLine = strings.TrimRight(statusLine, "\r\n")

	parts := strings.SplitN(statusLine, " ", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed status line %q", statusLine)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed status code in %q: %w", statusLine, err)
	}

	resp := &Response{StatusCode: code, StatusLine: statusLine}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read headers: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		resp.Headers = append(resp.Headers, line)
	}

	resp.Body, err = io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return resp, nil
}

// AssertFileContent asserts that path is served with the expected body
func (tc *TestContext) AssertFileContent(path string, expected []byte) {
	tc.T.Helper()
	resp, err := tc.Get(path)
	if err != nil {
		tc.T.Fatalf("GET %s failed: %v", path, err)
	}
	if resp.StatusCode != 200 {
		tc.T.Fatalf("GET %s: expected status 200, got %q", path, resp.StatusLine)
	}
	if string(resp.Body) != string(expected) {
		tc.T.Fatalf("Body mismatch for %s:\nExpected: %q\nGot: %q",
			path, string(expected), string(resp.Body))
	}
}

// AssertNotFound asserts that path is answered with 404 and no body
func (tc *TestContext) AssertNotFound(path string) {
	tc.T.Helper()
	resp, err := tc.Get(path)
	if err != nil {
		tc.T.Fatalf("GET %s failed: %v", path, err)
	}
	if resp.StatusCode != 404 {
		tc.T.Fatalf("GET %s: expected status 404, got %q", path, resp.StatusLine)
	}
	if len(resp.Body) != 0 {
		tc.T.Fatalf("GET %s: expected empty body, got %q", path, resp.Body)
	}
}

// AssertSilentClose asserts that the server closes without writing anything
func (tc *TestContext) AssertSilentClose(payload string) {
	tc.T.Helper()
	raw, err := tc.SendRaw(payload)
	if err != nil {
		tc.T.Fatalf("Request %q failed: %v", payload, err)
	}
	if len(raw) != 0 {
		tc.T.Fatalf("Request %q: expected zero bytes, got %q", payload, raw)
	}
}
