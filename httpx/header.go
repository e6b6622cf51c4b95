package httpx

import (
	"errors"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"

	"dqx0.com/go/h1wire/httpx/internal/http1"
)

// Header maps canonical header names to their values in arrival order.
// Every method folds the key, so "content-type" and "Content-Type" name
// the same entry.
type Header map[string][]string

var errHeaderLine = errors.New("httpx: header line lacks \": \" separator")

// Get returns the first value for key, or "".
func (h Header) Get(key string) string {
	if vv := h[http1.CanonicalHeaderKey(key)]; len(vv) > 0 {
		return vv[0]
	}
	return ""
}

// Lookup is Get with a presence flag.
func (h Header) Lookup(key string) (string, bool) {
	vv := h[http1.CanonicalHeaderKey(key)]
	if len(vv) == 0 {
		return "", false
	}
	return vv[0], true
}

// Values returns every value for key.
func (h Header) Values(key string) []string {
	return h[http1.CanonicalHeaderKey(key)]
}

// Set replaces any values for key with value.
func (h Header) Set(key, value string) {
	h[http1.CanonicalHeaderKey(key)] = []string{value}
}

// Add appends value without touching existing values. Use it for
// repeatable headers such as Set-Cookie.
func (h Header) Add(key, value string) {
	k := http1.CanonicalHeaderKey(key)
	h[k] = append(h[k], value)
}

func (h Header) Del(key string) {
	delete(h, http1.CanonicalHeaderKey(key))
}

func (h Header) Has(key string) bool {
	_, ok := h[http1.CanonicalHeaderKey(key)]
	return ok
}

// ParseLine adds one "Name: value" wire line.
func (h Header) ParseLine(line string) error {
	k, v, ok := strings.Cut(line, ": ")
	if !ok {
		return errHeaderLine
	}
	h.Add(k, v)
	return nil
}

// AddSetCookie appends a "name=value" Set-Cookie header.
func (h Header) AddSetCookie(name, value string) {
	h.Add("Set-Cookie", name+"="+value)
}

// Cookie returns the value of the first pair called name in the Cookie
// request header.
func (h Header) Cookie(name string) (string, bool) {
	raw, ok := h.Lookup("Cookie")
	if !ok {
		return "", false
	}
	for _, pair := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k == name {
			return v, true
		}
	}
	return "", false
}

// IsChunked reports whether Transfer-Encoding is exactly "chunked".
func (h Header) IsChunked() bool {
	return h.Get("Transfer-Encoding") == "chunked"
}

// Clone returns a deep copy.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, vv := range h {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// Serialize renders every value of every header as "Name: value", names in
// sorted order, joined by CRLF with no trailing terminator. Headers whose
// name is not a valid token are skipped and values are stripped of control
// characters.
func (h Header) Serialize() string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		name := http1.CanonicalHeaderKey(k)
		if !httpguts.ValidHeaderFieldName(name) {
			continue
		}
		for _, v := range h[k] {
			lines = append(lines, name+": "+http1.SanitizeHeaderValue(v))
		}
	}
	return strings.Join(lines, "\r\n")
}
