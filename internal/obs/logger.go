package obs

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a minimal structured logging interface. kv holds alternating
// keys and values, as with log/slog.
type Logger interface {
	Log(level Level, msg string, kv ...any)
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Log(level Level, msg string, kv ...any) {}

// StdLogger adapts the standard library logger. Pairs are rendered as
// key=value after the message.
type StdLogger struct {
	L    *log.Logger
	Min  Level
	Pref string // optional prefix per log line
}

func (s StdLogger) Log(level Level, msg string, kv ...any) {
	if s.L == nil || level < s.Min {
		return
	}
	var b strings.Builder
	b.WriteString(s.Pref)
	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(kv) {
			fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, "!BADKEY=%v", kv[i])
		}
	}
	s.L.Print(b.String())
}

// SlogLogger forwards to a *slog.Logger.
type SlogLogger struct {
	L *slog.Logger
}

func (s SlogLogger) Log(level Level, msg string, kv ...any) {
	if s.L == nil {
		return
	}
	s.L.Log(context.Background(), SlogLevel(level), msg, kv...)
}

// SlogLevel maps a Level onto the slog scale.
func SlogLevel(l Level) slog.Level {
	switch l {
	case Debug:
		return slog.LevelDebug
	case Info:
		return slog.LevelInfo
	case Warn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	}
	return Info, fmt.Errorf("obs: unknown level %q", s)
}
