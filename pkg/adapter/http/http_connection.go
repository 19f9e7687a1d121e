package http

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/marmos91/fileserver/internal/logger"
	protocol "github.com/marmos91/fileserver/internal/protocol/http"
	"github.com/marmos91/fileserver/pkg/content"
	"github.com/marmos91/fileserver/pkg/metrics"
)

// HTTPConnection serves exactly one request on one accepted connection.
//
// State machine:
//
//	AWAIT_LINE -> PARSE -> LOOKUP_AND_RESPOND -> CLOSE
//
// CLOSE is reached on every path, including errors and panics. Malformed
// requests and methods other than GET close the connection without writing
// a byte.
type HTTPConnection struct {
	server *HTTPAdapter
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

// NewHTTPConnection wraps an accepted connection with pooled buffers.
func NewHTTPConnection(server *HTTPAdapter, conn net.Conn) *HTTPConnection {
	return &HTTPConnection{
		server: server,
		conn:   conn,
		reader: server.buffers.getReader(conn),
		writer: server.buffers.getWriter(conn),
	}
}

// Serve runs the connection state machine to completion.
//
// It implements panic recovery so a misbehaving provider cannot take the
// worker down with it. After a panic nothing buffered is sent: the client
// sees the connection close with zero bytes.
//
// Parameters:
//   - ctx: Request context passed to the provider; cancelled when the adapter
//     gives up waiting for in-flight connections at shutdown
func (c *HTTPConnection) Serve(ctx context.Context) {
	clientAddr := c.conn.RemoteAddr().String()
	startTime := time.Now()

	var (
		method  string
		outcome string
		err     error
	)

	defer func() {
		// Panic recovery - prevents a single connection from crashing the worker
		if r := recover(); r != nil {
			logger.Error("Panic in connection handler from %s: %v", clientAddr, r)
			c.writer.Reset(io.Discard)
			outcome = metrics.OutcomeError
		}

		c.close()

		if outcome != "" {
			c.server.metrics.RecordRequest(method, outcome, time.Since(startTime))
		}

		c.server.buffers.putReader(c.reader)
		c.server.buffers.putWriter(c.writer)
	}()

	method, outcome, err = c.handleRequest(ctx)
	if err == nil {
		return
	}

	var netErr net.Error
	switch {
	case errors.Is(err, protocol.ErrNoRequest):
		logger.Debug("Connection from %s closed without a request", clientAddr)
	case errors.Is(err, protocol.ErrMalformedRequest):
		logger.Debug("Malformed request from %s: %v", clientAddr, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		logger.Debug("Connection from %s timed out: %v", clientAddr, err)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		logger.Debug("Connection from %s cancelled: %v", clientAddr, err)
	default:
		logger.Debug("Error handling request from %s: %v", clientAddr, err)
	}
}

// handleRequest reads, parses and answers one request.
//
// Returns:
//   - method: The parsed method, or "" if parsing did not get that far
//   - outcome: A metrics.Outcome* value, or "" when the client sent nothing
//   - error: Why the connection ended without a normal response, if it did
func (c *HTTPConnection) handleRequest(ctx context.Context) (string, string, error) {
	clientAddr := c.conn.RemoteAddr().String()

	// ========================================================================
	// Step 1: AWAIT_LINE - read the request line
	// ========================================================================

	if c.server.config.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout)); err != nil {
			return "", metrics.OutcomeError, err
		}
	}

	line, err := protocol.ReadRequestLine(c.reader)
	if err != nil {
		switch {
		case errors.Is(err, protocol.ErrNoRequest):
			return "", "", err
		case errors.Is(err, protocol.ErrMalformedRequest):
			return "", metrics.OutcomeMalformed, err
		default:
			return "", metrics.OutcomeError, err
		}
	}

	// ========================================================================
	// Step 2: PARSE - method and resource path
	// ========================================================================

	req, err := protocol.ParseRequestLine(line)
	if err != nil {
		return "", metrics.OutcomeMalformed, err
	}

	if !req.IsGet() {
		logger.Debug("Unsupported method %q from %s", req.Method, clientAddr)
		return req.Method, metrics.OutcomeUnsupported, nil
	}

	// ========================================================================
	// Step 3: LOOKUP - resolve against the content provider
	// ========================================================================

	path := content.ParsePath(req.ResourcePath)

	data, err := c.server.provider.ReadFile(ctx, path)
	found := true
	if err != nil {
		if !errors.Is(err, content.ErrContentNotFound) {
			logger.Warn("Provider failed reading %s for %s: %v", path, clientAddr, err)
			return req.Method, metrics.OutcomeError, err
		}
		found = false
	}

	// ========================================================================
	// Step 4: RESPOND - write and flush the response
	// ========================================================================

	if c.server.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout)); err != nil {
			return req.Method, metrics.OutcomeError, err
		}
	}

	n, err := protocol.WriteResponse(c.writer, data, found)
	if err == nil {
		err = c.writer.Flush()
	}
	c.server.metrics.RecordBytesSent(int64(n))
	if err != nil {
		return req.Method, metrics.OutcomeError, err
	}

	if found {
		logger.Debug("GET %s from %s: 200 (%d bytes)", path, clientAddr, len(data))
		return req.Method, metrics.OutcomeOK, nil
	}
	logger.Debug("GET %s from %s: 404", path, clientAddr)
	return req.Method, metrics.OutcomeNotFound, nil
}

// Lingering close bounds. Unread request bytes (headers, an over-long line)
// make the kernel answer close() with a RST, which can destroy the response
// before the client reads it. Draining briefly after the write side is shut
// avoids that without letting a client pin the worker.
const (
	lingerTimeout  = 200 * time.Millisecond
	maxLingerBytes = 64 << 10 // 64KB
)

// close flushes anything still buffered, half-closes both directions when the
// connection supports it and releases the socket.
func (c *HTTPConnection) close() {
	clientAddr := c.conn.RemoteAddr().String()

	if err := c.writer.Flush(); err != nil {
		logger.Debug("Error flushing response to %s: %v", clientAddr, err)
	}

	if hc, ok := c.conn.(interface{ CloseWrite() error }); ok {
		if err := hc.CloseWrite(); err == nil {
			c.drain()
		}
	}
	if hc, ok := c.conn.(interface{ CloseRead() error }); ok {
		_ = hc.CloseRead()
	}

	if err := c.conn.Close(); err != nil {
		logger.Debug("Error closing connection to %s: %v", clientAddr, err)
	}
}

// drain discards what the client still sends until it closes its side or the
// linger bounds are hit.
func (c *HTTPConnection) drain() {
	if err := c.conn.SetReadDeadline(time.Now().Add(lingerTimeout)); err != nil {
		return
	}
	_, _ = io.CopyN(io.Discard, c.conn, maxLingerBytes)
}
