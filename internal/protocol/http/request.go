package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrMalformedRequest indicates a request line that cannot be parsed.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrNoRequest indicates the client closed the connection before sending
	// any byte of a request line.
	ErrNoRequest = errors.New("no request")
)

// Request is the parsed first line of an HTTP request.
//
// Only the method and resource path are kept. Everything after the second
// token (the protocol version) and every header line is ignored.
type Request struct {
	// Method is the first token, compared case-sensitively
	Method string

	// ResourcePath is the second token, exactly as sent by the client
	ResourcePath string
}

// IsGet reports whether the request method is GET.
func (r *Request) IsGet() bool {
	return r.Method == MethodGet
}

// IsPost reports whether the request method is POST.
func (r *Request) IsPost() bool {
	return r.Method == MethodPost
}

// ParseRequestLine parses a request line such as "GET /index.html HTTP/1.0".
//
// The line is split on single space characters. Empty tokens at the end are
// discarded, so "GET " yields one token, while "GET  /a" yields ["GET", "",
// "/a"] and an empty resource path. A trailing "\r\n" or "\n" is stripped
// first.
//
// Returns:
//   - *Request: The method and resource path
//   - error: ErrMalformedRequest if the line has fewer than two tokens
func ParseRequestLine(line string) (*Request, error) {
	line = trimLineEnding(line)

	tokens := strings.Split(line, " ")
	for len(tokens) > 0 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}

	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: expected method and path, got %d token(s)", ErrMalformedRequest, len(tokens))
	}

	return &Request{
		Method:       tokens[0],
		ResourcePath: tokens[1],
	}, nil
}

// ReadRequestLine reads one line from r.
//
// A line ends at "\n", "\r\n" or a bare "\r". After a "\r" the reader only
// consumes a "\n" that is already buffered, so a client that sends a bare
// "\r" and keeps the connection open still gets its line. The line is bounded
// by r's buffer size: a line whose content fills the buffer is malformed. A
// final line without a terminator is accepted when the stream ends after it.
//
// Returns:
//   - string: The line without its line ending
//   - error: ErrNoRequest if the stream ended before any byte,
//     ErrMalformedRequest if the line exceeds the buffer, or the read error
func ReadRequestLine(r *bufio.Reader) (string, error) {
	line := make([]byte, 0, 64)
	for len(line) < r.Size() {
		b, err := r.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", err
			}
			if len(line) == 0 {
				return "", ErrNoRequest
			}
			return string(line), nil
		}

		switch b {
		case '\n':
			return string(line), nil
		case '\r':
			if r.Buffered() > 0 {
				if next, _ := r.Peek(1); len(next) == 1 && next[0] == '\n' {
					_, _ = r.Discard(1)
				}
			}
			return string(line), nil
		}
		line = append(line, b)
	}

	return "", fmt.Errorf("%w: request line exceeds %d bytes", ErrMalformedRequest, r.Size())
}

func trimLineEnding(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
