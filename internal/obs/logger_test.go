package obs

import (
	"bytes"
	"log"
	"log/slog"
	"strings"
	"testing"
)

func TestStdLogger_FiltersAndFormats(t *testing.T) {
	var buf bytes.Buffer
	l := StdLogger{L: log.New(&buf, "", 0), Min: Info, Pref: "srv "}
	l.Log(Debug, "hidden")
	l.Log(Warn, "drain failed", "peer", "127.0.0.1:9", "err", "boom")
	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Fatalf("debug line not filtered: %q", got)
	}
	if want := "srv [WARN] drain failed peer=127.0.0.1:9 err=boom\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStdLogger_OddPairs(t *testing.T) {
	var buf bytes.Buffer
	StdLogger{L: log.New(&buf, "", 0)}.Log(Error, "x", "dangling")
	if !strings.Contains(buf.String(), "!BADKEY=dangling") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	SlogLogger{L: slog.New(h)}.Log(Info, "accepted", "conns", 3)
	if !strings.Contains(buf.String(), "msg=accepted") || !strings.Contains(buf.String(), "conns=3") {
		t.Fatalf("got %q", buf.String())
	}
	SlogLogger{}.Log(Info, "nil logger is a no-op")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"DEBUG": Debug, "info": Info, "Warning": Warn, "error": Error} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q)=%v,%v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error")
	}
}
