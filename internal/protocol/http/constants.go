package http

// Protocol Version
const (
	// Version is the only protocol version the server speaks
	Version = "HTTP/1.0"
)

// Request Methods
// Method names are case-sensitive (RFC 1945 Section 5.1.1).
const (
	// MethodGet retrieves the resource identified by the request path
	MethodGet = "GET"

	// MethodPost is recognized by the parser but never dispatched
	MethodPost = "POST"
)

// Response Lines
// Each line is terminated by CRLF; the header block ends with an empty line.
const (
	// StatusLineOK is sent when the resource exists (including empty files)
	StatusLineOK = Version + " 200 OK"

	// StatusLineNotFound is sent when the provider reports the resource absent
	StatusLineNotFound = Version + " 404 Not Found"

	// ServerHeader identifies the server on every response
	ServerHeader = "Server: FileServer"

	// CRLF terminates every line of the response head
	CRLF = "\r\n"
)

// Request Line Limits
const (
	// DefaultMaxRequestLineBytes bounds the request line; its content must end before the buffer fills
	DefaultMaxRequestLineBytes = 8 << 10 // 8KB

	// MinRequestLineBytes is the smallest buffer bufio will allocate
	MinRequestLineBytes = 16
)
