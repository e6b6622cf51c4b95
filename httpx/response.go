package httpx

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dqx0.com/go/h1wire/httpx/internal/http1"
)

// ChunkStream lazily yields response body chunks. A non-nil error aborts
// the response mid-write.
type ChunkStream = iter.Seq2[[]byte, error]

type bodyKind int

const (
	noBody bodyKind = iota
	bytesBody
	streamBody
)

// Response is a status, headers, extensions and at most one body: either
// bytes framed by Content-Length or a stream sent chunked. Build one with
// NewResponse.
type Response struct {
	Status     int
	Header     Header
	Extensions *Extensions

	kind   bodyKind
	bytes  []byte
	stream ChunkStream
	closer io.Closer
}

// ResponseBuilder accumulates a Response. The body setters finish it.
type ResponseBuilder struct {
	res *Response
}

// NewResponse starts a 200 response carrying a Date header.
func NewResponse() *ResponseBuilder {
	h := Header{}
	h.Set("Date", time.Now().UTC().Format(http1.TimeFormat))
	return &ResponseBuilder{res: &Response{Status: 200, Header: h, Extensions: NewExtensions()}}
}

// Builder reopens r for further changes.
func (r *Response) Builder() *ResponseBuilder {
	return &ResponseBuilder{res: r}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.res.Status = code
	return b
}

// Header sets name to value, replacing earlier values.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.res.Header.Set(name, value)
	return b
}

// Cookie appends a Set-Cookie header.
func (b *ResponseBuilder) Cookie(name, value string) *ResponseBuilder {
	b.res.Header.AddSetCookie(name, value)
	return b
}

// Body finishes the response with an in-memory body. Content-Type defaults
// to plain UTF-8 text.
func (b *ResponseBuilder) Body(p []byte) *Response {
	r := b.res
	if !r.Header.Has("Content-Type") {
		r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	r.Header.Set("Content-Length", strconv.Itoa(len(p)))
	r.Header.Del("Transfer-Encoding")
	r.discardStream()
	r.kind, r.bytes = bytesBody, p
	return r
}

func (b *ResponseBuilder) BodyString(s string) *Response {
	return b.Body([]byte(s))
}

// Stream finishes the response with a chunked body. Content-Type defaults
// to application/octet-stream.
func (b *ResponseBuilder) Stream(s ChunkStream) *Response {
	r := b.res
	if !r.Header.Has("Content-Type") {
		r.Header.Set("Content-Type", "application/octet-stream")
	}
	r.Header.Del("Content-Length")
	r.Header.Set("Transfer-Encoding", "chunked")
	r.discardStream()
	r.kind, r.bytes, r.stream = streamBody, nil, s
	return r
}

// File streams the file at path. Content-Type is guessed from the
// extension unless already set. The file stays open until the response is
// sent or closed.
func (b *ResponseBuilder) File(path string) (*Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !b.res.Header.Has("Content-Type") {
		ct := mime.TypeByExtension(filepath.Ext(path))
		if ct == "" {
			ct = "application/octet-stream"
		}
		b.res.Header.Set("Content-Type", ct)
	}
	r := b.Stream(ReaderChunks(f, 4096))
	r.closer = f
	return r, nil
}

// End finishes the response without a body.
func (b *ResponseBuilder) End() *Response {
	return b.res
}

// ReaderChunks adapts rd into a ChunkStream of reads of at most size bytes.
func ReaderChunks(rd io.Reader, size int) ChunkStream {
	return func(yield func([]byte, error) bool) {
		for {
			buf := make([]byte, size)
			n, err := rd.Read(buf)
			if n > 0 && !yield(buf[:n], nil) {
				return
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Chunks is a ChunkStream over fixed slices.
func Chunks(parts ...[]byte) ChunkStream {
	return func(yield func([]byte, error) bool) {
		for _, p := range parts {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// HasBody reports whether a body is attached.
func (r *Response) HasBody() bool { return r.kind != noBody }

// IsStream reports whether the body is sent chunked.
func (r *Response) IsStream() bool { return r.kind == streamBody }

// Bytes returns an in-memory body, or nil.
func (r *Response) Bytes() []byte { return r.bytes }

// Close releases resources held by a stream body. Send calls it.
func (r *Response) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

func (r *Response) discardStream() {
	_ = r.Close()
	r.stream = nil
}

func (r *Response) head() string {
	head := http1.StatusLine(r.Status)
	if hs := r.Header.Serialize(); hs != "" {
		head += hs + "\r\n"
	}
	return head + "\r\n"
}

// Send writes the response to c and flushes it. The body is consumed. A
// failing stream aborts the write; bytes already written stay written.
func (r *Response) Send(c *Conn) error {
	defer r.Close()
	kind := r.kind
	r.kind = noBody
	w := c.Writer()

	switch kind {
	case bytesBody:
		head := r.head()
		payload := make([]byte, 0, len(head)+len(r.bytes))
		payload = append(append(payload, head...), r.bytes...)
		r.bytes = nil
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("httpx: write response: %w", err)
		}
	case streamBody:
		if _, err := w.WriteString(r.head()); err != nil {
			return fmt.Errorf("httpx: write response head: %w", err)
		}
		stream := r.stream
		r.stream = nil
		for chunk, err := range stream {
			if err != nil {
				return fmt.Errorf("httpx: stream body: %w", err)
			}
			err = w.withBuffer(func(bw *bufio.Writer) error {
				_, err := http1.WriteChunk(bw, chunk)
				return err
			})
			if err != nil {
				return fmt.Errorf("httpx: write chunk: %w", err)
			}
		}
		if err := w.withBuffer(http1.EndChunked); err != nil {
			return fmt.Errorf("httpx: write chunk: %w", err)
		}
	default:
		if _, err := w.WriteString(r.head()); err != nil {
			return fmt.Errorf("httpx: write response head: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("httpx: flush response: %w", err)
	}
	return nil
}
