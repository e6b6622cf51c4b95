package httpx

import (
	"strings"
	"testing"
)

func TestHeaderCanonicalization(t *testing.T) {
	h := Header{}
	h.Add("x-foo", "a")
	h.Add("X-FOO", "b")
	if got := h.Get("X-Foo"); got != "a" {
		t.Fatalf("Get canonical = %q, want %q", got, "a")
	}
	if got := len(h["X-Foo"]); got != 2 {
		t.Fatalf("len values = %d, want 2", got)
	}
	h.Set("content-type", "text/plain")
	if got := h.Get("Content-Type"); got != "text/plain" {
		t.Fatalf("content-type = %q", got)
	}
	h.Set("x-foo", "c")
	if got := h.Values("x-foo"); len(got) != 1 || got[0] != "c" {
		t.Fatalf("after Set, values = %v", got)
	}
	h.Del("x-FOO")
	if h.Has("X-Foo") {
		t.Fatal("after Del, key still present")
	}
	if _, ok := h.Lookup("missing"); ok {
		t.Fatal("Lookup found a missing key")
	}
}

func TestHeaderParseLine(t *testing.T) {
	h := Header{}
	if err := h.ParseLine("Accept: */*"); err != nil {
		t.Fatalf("ParseLine error: %v", err)
	}
	if err := h.ParseLine("Accept:text/html"); err == nil {
		t.Fatal("expected error for missing \": \"")
	}
	if got := h.Get("accept"); got != "*/*" {
		t.Fatalf("accept = %q", got)
	}
}

func TestHeaderCookies(t *testing.T) {
	h := Header{}
	h.Set("Cookie", "a=1; session=xyz; b=2=3")
	if v, ok := h.Cookie("session"); !ok || v != "xyz" {
		t.Fatalf("session = %q,%v", v, ok)
	}
	if v, ok := h.Cookie("b"); !ok || v != "2=3" {
		t.Fatalf("b = %q,%v", v, ok)
	}
	if _, ok := h.Cookie("nope"); ok {
		t.Fatal("found missing cookie")
	}

	res := Header{}
	res.AddSetCookie("a", "1")
	res.AddSetCookie("b", "2")
	if got := res.Values("Set-Cookie"); len(got) != 2 || got[0] != "a=1" || got[1] != "b=2" {
		t.Fatalf("Set-Cookie = %v", got)
	}
}

func TestHeaderIsChunked(t *testing.T) {
	h := Header{}
	if h.IsChunked() {
		t.Fatal("empty header is chunked")
	}
	h.Set("transfer-encoding", "chunked")
	if !h.IsChunked() {
		t.Fatal("expected chunked")
	}
	h.Set("Transfer-Encoding", "gzip, chunked")
	if h.IsChunked() {
		t.Fatal("only an exact match counts")
	}
}

func TestHeaderSerialize(t *testing.T) {
	h := Header{}
	h.Set("content-type", "text/plain")
	h.AddSetCookie("a", "1")
	h.AddSetCookie("b", "2")
	h.Set("x-evil", "v\r\nInjected: 1")
	h["bad name"] = []string{"dropped"}
	want := "Content-Type: text/plain\r\nSet-Cookie: a=1\r\nSet-Cookie: b=2\r\nX-Evil: vInjected: 1"
	if got := h.Serialize(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := (Header{}).Serialize(); got != "" {
		t.Fatalf("empty header = %q", got)
	}
}

func TestHeaderSerializeRoundTrip(t *testing.T) {
	h := Header{}
	h.Set("Host", "example.com")
	h.Add("accept", "text/html")
	h.Add("Accept", "*/*")
	h.Set("X-Trace", "a: b")

	back := Header{}
	for _, line := range strings.Split(h.Serialize(), "\r\n") {
		if err := back.ParseLine(line); err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}
	}
	if len(back) != len(h) {
		t.Fatalf("keys: got %v, want %v", back, h)
	}
	for k, vv := range h {
		got := back.Values(k)
		if strings.Join(got, "|") != strings.Join(vv, "|") {
			t.Fatalf("%s: got %v, want %v", k, got, vv)
		}
	}
}
