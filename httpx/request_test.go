package httpx

import (
	"errors"
	"io"
	"testing"
)

func TestReadRequest_Basic(t *testing.T) {
	c := feed(t, "get /users/42/?x=1 HTTP/1.1\r\nHost: x\r\nCookie: sid=abc\r\nContent-Length: 5\r\n\r\nhello", true)
	r, err := ReadRequest(c)
	if err != nil {
		t.Fatalf("ReadRequest error: %v", err)
	}
	if r.Method != "GET" || r.Path != "/users/42" {
		t.Fatalf("method=%q path=%q", r.Method, r.Path)
	}
	if r.Header.Get("host") != "x" {
		t.Fatalf("host=%q", r.Header.Get("host"))
	}
	if v, _ := r.Cookie("sid"); v != "abc" {
		t.Fatalf("cookie=%q", v)
	}
	if n, ok := r.ContentLength(); !ok || n != 5 {
		t.Fatalf("content length=%d,%v", n, ok)
	}
	if got := r.Header.Values("Content-Length"); len(got) != 1 || got[0] != "5" {
		t.Fatalf("Content-Length header=%v", got)
	}
	// The channel sits on the first body byte.
	buf := make([]byte, 5)
	if _, err := io.ReadFull(c.Reader(), buf); err != nil || string(buf) != "hello" {
		t.Fatalf("body=%q err=%v", buf, err)
	}
}

func TestReadRequest_RootPath(t *testing.T) {
	for _, target := range []string{"/", "/?q=1", "//"} {
		c := feed(t, "GET "+target+" HTTP/1.1\r\n\r\n", true)
		r, err := ReadRequest(c)
		if err != nil {
			t.Fatalf("%s: %v", target, err)
		}
		if r.Path != "/" {
			t.Fatalf("%s: path=%q", target, r.Path)
		}
		if _, ok := r.ContentLength(); ok {
			t.Fatalf("%s: unexpected content length", target)
		}
	}
}

func TestReadRequest_Errors(t *testing.T) {
	cases := []struct {
		raw    string
		kind   error
		status int
	}{
		{"garbage\r\n\r\n", ErrInvalidRequestLine, 500},
		{"GET /\r\n\r\n", ErrInvalidRequestLine, 500},
		{"GET / HTTP/1.0\r\n\r\n", ErrUnsupportedVersion, 505},
		{"GET / HTTP/1.1\r\nHost:x\r\n\r\n", ErrInvalidHeader, 400},
		{"GET / HTTP/1.1\r\nContent-Length: ten\r\n\r\n", ErrInvalidContentLength, 400},
		{"GET / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", ErrInvalidContentLength, 400},
		{"", ErrConnectionClosed, 500},
	}
	for _, tc := range cases {
		_, err := ReadRequest(feed(t, tc.raw, true))
		if !errors.Is(err, tc.kind) {
			t.Fatalf("%q: err=%v, want %v", tc.raw, err, tc.kind)
		}
		var rerr *RequestError
		if !errors.As(err, &rerr) || rerr.Status() != tc.status {
			t.Fatalf("%q: status mapping wrong for %v", tc.raw, err)
		}
	}
}

func TestReadRequest_HeadersEndAtEOF(t *testing.T) {
	r, err := ReadRequest(feed(t, "POST /a HTTP/1.1\r\nX-A: 1\r\n", true))
	if err != nil {
		t.Fatalf("ReadRequest error: %v", err)
	}
	if r.Header.Get("X-A") != "1" {
		t.Fatalf("headers=%v", r.Header)
	}
}

func TestRequestErrorMessage(t *testing.T) {
	err := requestError(ErrInvalidHeader, "Bad", nil)
	if got := err.Error(); got != `httpx: invalid header: "Bad"` {
		t.Fatalf("got %q", got)
	}
	cause := errors.New("boom")
	err = requestError(ErrRead, "", cause)
	if !errors.Is(err, cause) || !errors.Is(err, ErrRead) {
		t.Fatal("errors.Is should match kind and cause")
	}
}
