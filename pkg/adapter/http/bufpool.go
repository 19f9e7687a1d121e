package http

import (
	"bufio"
	"io"
	"sync"
)

// ============================================================================
// Buffer Pool for Connection I/O
// ============================================================================
//
// Every connection needs one bufio.Reader (sized to the request line bound)
// and one bufio.Writer. Connections are short-lived, so allocating both per
// connection churns the GC under load; the pools recycle them instead.
//
// The reader size is fixed per adapter (MaxRequestLineBytes), so each adapter
// owns its own pool rather than sharing a global one.
//
// Thread Safety:
// All operations are thread-safe via sync.Pool.

// writerBufferSize is large enough for the response head plus a small file in
// one write; larger bodies pass through bufio without extra copies.
const writerBufferSize = 4 << 10 // 4KB

// bufferPool recycles the buffered reader and writer of a connection.
type bufferPool struct {
	readers sync.Pool
	writers sync.Pool
}

func newBufferPool(readerSize int) *bufferPool {
	return &bufferPool{
		readers: sync.Pool{
			New: func() any {
				return bufio.NewReaderSize(nil, readerSize)
			},
		},
		writers: sync.Pool{
			New: func() any {
				return bufio.NewWriterSize(nil, writerBufferSize)
			},
		},
	}
}

// getReader returns a reader bound to r.
func (p *bufferPool) getReader(r io.Reader) *bufio.Reader {
	br := p.readers.Get().(*bufio.Reader)
	br.Reset(r)
	return br
}

// putReader releases br. The caller must not use it afterwards.
func (p *bufferPool) putReader(br *bufio.Reader) {
	br.Reset(nil)
	p.readers.Put(br)
}

// getWriter returns a writer bound to w.
func (p *bufferPool) getWriter(w io.Writer) *bufio.Writer {
	bw := p.writers.Get().(*bufio.Writer)
	bw.Reset(w)
	return bw
}

// putWriter releases bw, dropping any unflushed data.
func (p *bufferPool) putWriter(bw *bufio.Writer) {
	bw.Reset(nil)
	p.writers.Put(bw)
}
