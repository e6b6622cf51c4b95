package httpx

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"dqx0.com/go/h1wire/httpx/internal/http1"
)

// Conn is a duplex byte channel over one network connection. The read and
// write halves are buffered and locked independently, so draining a request
// body never contends with writing a response. Ordering between the halves
// is the caller's job.
type Conn struct {
	c net.Conn
	r *ReadHalf
	w *WriteHalf
}

// ReadHalf is the buffered readable side of a Conn.
type ReadHalf struct {
	mu    sync.Mutex
	br    *bufio.Reader
	limit int
}

// WriteHalf is the buffered writable side of a Conn.
type WriteHalf struct {
	mu sync.Mutex
	bw *bufio.Writer
}

// NewConn wraps an accepted connection.
func NewConn(c net.Conn) *Conn {
	return &Conn{
		c: c,
		r: &ReadHalf{br: bufio.NewReader(c)},
		w: &WriteHalf{bw: bufio.NewWriter(c)},
	}
}

// Dial connects to addr over TCP and wraps the result.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}

func (c *Conn) Reader() *ReadHalf  { return c.r }
func (c *Conn) Writer() *WriteHalf { return c.w }

// ReadLine reads one line. n counts raw bytes including terminators; line
// has them stripped. n == 0 with a nil error means the peer closed.
func (c *Conn) ReadLine() (n int, line string, err error) {
	return c.r.ReadLine()
}

// WriteAll writes p in full to the write buffer.
func (c *Conn) WriteAll(p []byte) error {
	_, err := c.w.Write(p)
	return err
}

func (c *Conn) Flush() error { return c.w.Flush() }

func (c *Conn) Close() error { return c.c.Close() }

func (c *Conn) RemoteAddr() net.Addr { return c.c.RemoteAddr() }

func (c *Conn) LocalAddr() net.Addr { return c.c.LocalAddr() }

// SetMaxLineBytes caps the length of a single line read by ReadLine.
// Zero or less means no cap.
func (c *Conn) SetMaxLineBytes(n int) {
	c.r.mu.Lock()
	c.r.limit = n
	c.r.mu.Unlock()
}

// SetReadDeadline bounds pending and future reads; zero clears it.
func (c *Conn) SetReadDeadline(t time.Time) error { return c.c.SetReadDeadline(t) }

func (h *ReadHalf) ReadLine() (int, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, line, err := http1.ReadLine(h.br, h.limit)
	if err != nil {
		return n, "", fmt.Errorf("httpx: read line: %w", err)
	}
	return n, line, nil
}

// Read performs at most one read from the buffer or the connection.
func (h *ReadHalf) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.br.Read(p)
}

func (h *WriteHalf) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bw.Write(p)
}

func (h *WriteHalf) WriteString(s string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bw.WriteString(s)
}

func (h *WriteHalf) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bw.Flush()
}

// withBuffer runs fn with exclusive access to the underlying writer.
func (h *WriteHalf) withBuffer(fn func(bw *bufio.Writer) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.bw)
}
