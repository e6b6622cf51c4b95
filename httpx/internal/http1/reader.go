package http1

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	errRequestLine = errors.New("http1: malformed request line")
	errHeaderLine  = errors.New("http1: malformed header line")

	// ErrLineTooLong reports a line that grew past the reader's limit.
	ErrLineTooLong = errors.New("http1: line too long")
)

// Proto is the only protocol version accepted on a request line.
const Proto = "HTTP/1.1"

// ReadLine reads one line from br. n is the number of raw bytes consumed,
// terminators included; line has trailing whitespace stripped. A clean EOF
// before any byte yields n == 0 and a nil error, which callers treat as the
// peer closing the connection. A positive limit caps n; a longer line fails
// with ErrLineTooLong once the limit is passed.
func ReadLine(br *bufio.Reader, limit int) (n int, line string, err error) {
	var raw []byte
	for {
		frag, err := br.ReadSlice('\n')
		raw = append(raw, frag...)
		if limit > 0 && len(raw) > limit {
			return len(raw), "", ErrLineTooLong
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && err != io.EOF {
			return len(raw), "", err
		}
		break
	}
	return len(raw), strings.TrimRight(string(raw), " \t\r\n"), nil
}

// RequestLine holds the three tokens of a request line.
type RequestLine struct {
	Method string
	Target string
	Proto  string
}

// ParseRequestLine splits line on whitespace. Extra tokens after the version
// are ignored. The method is uppercased and must be a token.
func ParseRequestLine(line string) (RequestLine, error) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return RequestLine{}, errRequestLine
	}
	method := strings.ToUpper(parts[0])
	for _, r := range method {
		if !httpguts.IsTokenRune(r) {
			return RequestLine{}, errRequestLine
		}
	}
	return RequestLine{Method: method, Target: parts[1], Proto: parts[2]}, nil
}

// NormalizePath drops the query component of target and returns the path
// with exactly one leading slash and no trailing slash. The root path
// normalizes to "/".
func NormalizePath(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	return "/" + strings.Trim(target, "/")
}

// SplitHeaderLine splits "Name: value" on the first ": ". Name and value are
// trimmed; the name must be a valid field name.
func SplitHeaderLine(line string) (key, value string, err error) {
	k, v, ok := strings.Cut(line, ": ")
	if !ok {
		return "", "", errHeaderLine
	}
	k = strings.TrimSpace(k)
	if !httpguts.ValidHeaderFieldName(k) {
		return "", "", errHeaderLine
	}
	return k, strings.TrimSpace(v), nil
}

// CanonicalHeaderKey lowercases s and then capitalizes the first letter of
// every hyphen-delimited segment ("content-TYPE" -> "Content-Type").
func CanonicalHeaderKey(s string) string {
	b := []byte(strings.ToLower(s))
	upper := true
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			if upper {
				b[i] = c - 'a' + 'A'
			}
			upper = false
			continue
		}
		upper = c == '-'
	}
	return string(b)
}
