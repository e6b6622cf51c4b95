package httpx

import (
	"errors"
	"strconv"
	"strings"

	"dqx0.com/go/h1wire/httpx/internal/http1"
)

// Request is a parsed request head. It exists only once a valid request
// line and a well-formed header block were read; the body travels
// separately as a *BodyReader.
type Request struct {
	// Method is the uppercased request method.
	Method string
	// Path always starts with "/" and has no trailing slash. The query
	// component is dropped.
	Path       string
	Header     Header
	Extensions *Extensions
	// RemoteAddr is the peer address, when known.
	RemoteAddr string
}

type contentLength uint64

type requestID string

// ContentLength returns the declared body size, if the request carried a
// Content-Length header.
func (r *Request) ContentLength() (uint64, bool) {
	n, ok := Load[contentLength](r.Extensions)
	return uint64(n), ok
}

// RequestID returns the identifier the server assigned to r.
func (r *Request) RequestID() string {
	id, _ := Load[requestID](r.Extensions)
	return string(id)
}

// Trace returns the trace context attached to r.
func (r *Request) Trace() (Trace, bool) {
	return Load[Trace](r.Extensions)
}

// Cookie returns the named value from the Cookie header.
func (r *Request) Cookie(name string) (string, bool) {
	return r.Header.Cookie(name)
}

// ReadRequest reads one request head from c, leaving c positioned at the
// first body byte. The returned error is always a *RequestError; Kind
// ErrConnectionClosed means the peer went away between requests.
func ReadRequest(c *Conn) (*Request, error) {
	n, line, err := c.ReadLine()
	if errors.Is(err, http1.ErrLineTooLong) {
		return nil, requestError(ErrInvalidRequestLine, "", err)
	}
	if err != nil {
		return nil, requestError(ErrRead, "", err)
	}
	if n == 0 {
		return nil, requestError(ErrConnectionClosed, "", nil)
	}
	rl, err := http1.ParseRequestLine(line)
	if err != nil {
		return nil, requestError(ErrInvalidRequestLine, line, nil)
	}
	if rl.Proto != http1.Proto {
		return nil, requestError(ErrUnsupportedVersion, rl.Proto, nil)
	}

	h := Header{}
	ext := NewExtensions()
	for {
		n, line, err := c.ReadLine()
		if errors.Is(err, http1.ErrLineTooLong) {
			return nil, requestError(ErrInvalidHeader, "", err)
		}
		if err != nil {
			return nil, requestError(ErrRead, "", err)
		}
		if n <= 2 {
			break
		}
		k, v, err := http1.SplitHeaderLine(line)
		if err != nil {
			return nil, requestError(ErrInvalidHeader, line, nil)
		}
		if strings.EqualFold(k, "Content-Length") {
			cl, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, requestError(ErrInvalidContentLength, v, nil)
			}
			Insert(ext, contentLength(cl))
		}
		h.Add(k, v)
	}

	r := &Request{
		Method:     rl.Method,
		Path:       http1.NormalizePath(rl.Target),
		Header:     h,
		Extensions: ext,
	}
	if a := c.RemoteAddr(); a != nil {
		r.RemoteAddr = a.String()
	}
	return r, nil
}
