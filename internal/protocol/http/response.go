package http

import (
	"fmt"
	"io"
)

// Pre-rendered response heads. They never change, so they are built once.
var (
	headOK       = []byte(StatusLineOK + CRLF + ServerHeader + CRLF + CRLF)
	headNotFound = []byte(StatusLineNotFound + CRLF + ServerHeader + CRLF + CRLF)
)

// WriteResponse writes a complete HTTP/1.0 response to w.
//
// Found resources (including empty files) get "200 OK" followed by the raw
// body. Absent resources get "404 Not Found" with no body. Neither response
// carries Content-Length: the connection is closed after the response, which
// delimits the body under HTTP/1.0.
//
// Parameters:
//   - w: Destination, typically a buffered writer over the connection
//   - body: File content; ignored when found is false
//   - found: Whether the provider located the resource
//
// Returns:
//   - int: Bytes written
//   - error: The first write error
func WriteResponse(w io.Writer, body []byte, found bool) (int, error) {
	if !found {
		n, err := w.Write(headNotFound)
		if err != nil {
			return n, fmt.Errorf("write response head: %w", err)
		}
		return n, nil
	}

	n, err := w.Write(headOK)
	if err != nil {
		return n, fmt.Errorf("write response head: %w", err)
	}

	m, err := w.Write(body)
	n += m
	if err != nil {
		return n, fmt.Errorf("write response body: %w", err)
	}
	return n, nil
}
