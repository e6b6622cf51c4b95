package httpx

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// Trace carries minimal W3C trace context. TraceID is 32 hex digits,
// SpanID 16, Flags 2 (e.g. "01").
type Trace struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Flags        string
}

// Traceparent renders t as a traceparent header value.
func (t Trace) Traceparent() string {
	return formatTraceparent(t.TraceID, t.SpanID, t.Flags)
}

// traceFor continues the inbound traceparent when it is valid and starts a
// new trace otherwise. The server span always gets a fresh id.
func traceFor(h Header) Trace {
	if tid, sid, fl, ok := parseTraceparent(h.Get("Traceparent")); ok {
		return Trace{TraceID: tid, SpanID: genSpanID(), ParentSpanID: sid, Flags: fl}
	}
	return Trace{TraceID: genTraceID(), SpanID: genSpanID(), Flags: "01"}
}

func genTraceID() string { return randomHex(16) }

func genSpanID() string { return randomHex(8) }

// randomHex returns n random bytes as lowercase hex, never all zeros.
func randomHex(n int) string {
	b := make([]byte, n)
	for {
		if _, err := rand.Read(b); err == nil && !allZero(b) {
			return hex.EncodeToString(b)
		}
	}
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// parseTraceparent extracts trace-id, span-id, flags. Returns ok=false if invalid.
func parseTraceparent(v string) (traceID, spanID, flags string, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", "", "", false
	}
	parts := strings.Split(v, "-")
	if len(parts) < 4 {
		return "", "", "", false
	}
	ver, tid, sid, fl := parts[0], parts[1], parts[2], parts[3]
	if len(ver) != 2 || len(tid) != 32 || len(sid) != 16 || len(fl) != 2 {
		return "", "", "", false
	}
	if !isHex(tid) || !isHex(sid) || !isHex(fl) {
		return "", "", "", false
	}
	if strings.Trim(tid, "0") == "" || strings.Trim(sid, "0") == "" {
		return "", "", "", false
	}
	return strings.ToLower(tid), strings.ToLower(sid), strings.ToLower(fl), true
}

func formatTraceparent(traceID, spanID, flags string) string {
	if flags == "" {
		flags = "01"
	}
	return "00-" + strings.ToLower(traceID) + "-" + strings.ToLower(spanID) + "-" + strings.ToLower(flags)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			continue
		}
		return false
	}
	return true
}
