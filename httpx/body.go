package httpx

import (
	"io"
	"sync"
)

// maxChunk caps a single body read.
const maxChunk = 1024

// BodyReader streams a Content-Length framed request body off a Conn. Its
// budget only shrinks; once it reaches zero nothing more is read, whatever
// the peer sends. All methods serialize on one lock, so at most one read is
// in flight.
//
// The server drains whatever the handler leaves unread before it reuses the
// connection.
type BodyReader struct {
	mu        sync.Mutex
	c         *Conn
	remaining uint64
}

// NewBodyReader gives the reader exclusive use of c's read half until
// Release.
func NewBodyReader(declared uint64, c *Conn) *BodyReader {
	return &BodyReader{c: c, remaining: declared}
}

// Remaining returns how many declared bytes are still unread.
func (b *BodyReader) Remaining() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Next returns the next chunk of at most 1024 bytes. It returns io.EOF once
// the budget is spent or the peer closed early; in the latter case the
// budget is zeroed.
func (b *BodyReader) Next() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining == 0 {
		return nil, io.EOF
	}
	buf := make([]byte, min(maxChunk, b.remaining))
	n, err := b.readLocked(buf)
	if n > 0 {
		return buf[:n], nil
	}
	return nil, err
}

// Read implements io.Reader over the remaining budget.
func (b *BodyReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.readLocked(p)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

// ReadAll collects the rest of the body.
func (b *BodyReader) ReadAll() ([]byte, error) {
	out := make([]byte, 0, maxChunk)
	for {
		chunk, err := b.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, chunk...)
	}
}

// Drain discards the rest of the declared body. On an already drained
// reader it returns nil at once.
func (b *BodyReader) Drain() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var buf [maxChunk]byte
	for b.remaining > 0 {
		_, err := b.readLocked(buf[:min(maxChunk, b.remaining)])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Release hands the connection back to the caller. Later reads fail with
// ErrBodyReleased.
func (b *BodyReader) Release() *Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.c
	b.c = nil
	return c
}

// readLocked does one read into p, which must not exceed the budget. EOF
// from the peer ends the body.
func (b *BodyReader) readLocked(p []byte) (int, error) {
	if b.c == nil {
		return 0, ErrBodyReleased
	}
	n, err := b.c.Reader().Read(p)
	b.remaining -= uint64(n)
	if err == io.EOF {
		b.remaining = 0
	}
	if n == 0 && err == nil {
		return 0, io.ErrNoProgress
	}
	return n, err
}
