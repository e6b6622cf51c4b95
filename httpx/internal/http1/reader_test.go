package http1

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadLine_StripsTerminators(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("GET / HTTP/1.1\r\n\r\n"))
	n, line, err := ReadLine(br, 0)
	if err != nil {
		t.Fatalf("ReadLine error: %v", err)
	}
	if n != 16 || line != "GET / HTTP/1.1" {
		t.Fatalf("n=%d line=%q", n, line)
	}
	n, line, err = ReadLine(br, 0)
	if err != nil || n != 2 || line != "" {
		t.Fatalf("blank line: n=%d line=%q err=%v", n, line, err)
	}
	n, _, err = ReadLine(br, 0)
	if err != nil || n != 0 {
		t.Fatalf("eof: n=%d err=%v", n, err)
	}
}

func TestReadLine_Limit(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("short\r\n" + strings.Repeat("a", 9000) + "\r\n"))
	if _, line, err := ReadLine(br, 64); err != nil || line != "short" {
		t.Fatalf("short line: line=%q err=%v", line, err)
	}
	if _, _, err := ReadLine(br, 64); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("long line: err=%v, want ErrLineTooLong", err)
	}

	// Lines longer than the bufio buffer are still read whole without a limit.
	long := strings.Repeat("b", 9000)
	br = bufio.NewReader(strings.NewReader(long + "\r\n"))
	n, line, err := ReadLine(br, 0)
	if err != nil || n != 9002 || line != long {
		t.Fatalf("unlimited: n=%d len=%d err=%v", n, len(line), err)
	}
}

func TestParseRequestLine(t *testing.T) {
	rl, err := ParseRequestLine("get /a?b=c HTTP/1.1")
	if err != nil {
		t.Fatalf("ParseRequestLine error: %v", err)
	}
	if rl.Method != "GET" || rl.Target != "/a?b=c" || rl.Proto != Proto {
		t.Fatalf("got %+v", rl)
	}
	for _, bad := range []string{"garbage", "GET /", "", "G(T / HTTP/1.1"} {
		if _, err := ParseRequestLine(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/":             "/",
		"":              "/",
		"/?x=1":         "/",
		"/a/b/":         "/a/b",
		"a/b":           "/a/b",
		"//a//?q":       "/a",
		"/users/42?x=y": "/users/42",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Fatalf("NormalizePath(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestSplitHeaderLine(t *testing.T) {
	k, v, err := SplitHeaderLine("Host: example.com ")
	if err != nil || k != "Host" || v != "example.com" {
		t.Fatalf("k=%q v=%q err=%v", k, v, err)
	}
	k, v, err = SplitHeaderLine("X-Time: 12:30:00")
	if err != nil || k != "X-Time" || v != "12:30:00" {
		t.Fatalf("k=%q v=%q err=%v", k, v, err)
	}
	for _, bad := range []string{"Host:example.com", "no separator", "Bad( : v"} {
		if _, _, err := SplitHeaderLine(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestCanonicalHeaderKey(t *testing.T) {
	cases := map[string]string{
		"content-type":    "Content-Type",
		"CONTENT-LENGTH":  "Content-Length",
		"x-forwarded-for": "X-Forwarded-For",
		"set-cookie":      "Set-Cookie",
		"keep-alive":      "Keep-Alive",
		"x-1abc":          "X-1abc",
	}
	for in, want := range cases {
		if got := CanonicalHeaderKey(in); got != want {
			t.Fatalf("CanonicalHeaderKey(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestWriteChunk(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if _, err := WriteChunk(bw, []byte("hello world, this is!")); err != nil {
		t.Fatal(err)
	}
	if n, _ := WriteChunk(bw, nil); n != 0 {
		t.Fatalf("empty chunk wrote %d", n)
	}
	if err := EndChunked(bw); err != nil {
		t.Fatal(err)
	}
	_ = bw.Flush()
	if got, want := buf.String(), "15\r\nhello world, this is!\r\n0\r\n\r\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStatusLine(t *testing.T) {
	if got := StatusLine(200); got != "HTTP/1.1 200 OK \r\n" {
		t.Fatalf("got %q", got)
	}
	if got := StatusLine(505); got != "HTTP/1.1 505 HTTP Version Not Supported \r\n" {
		t.Fatalf("got %q", got)
	}
	if got := StatusLine(799); got != "HTTP/1.1 799  \r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeHeaderValue(t *testing.T) {
	if got := SanitizeHeaderValue("a\r\nb\tc\x00"); got != "ab\tc" {
		t.Fatalf("got %q", got)
	}
}
