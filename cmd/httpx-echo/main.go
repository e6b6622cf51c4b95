package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"dqx0.com/go/h1wire/httpx"
	"dqx0.com/go/h1wire/internal/obs"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	timeout := flag.Duration("timeout", 5*time.Second, "keep-alive idle timeout")
	maxReqs := flag.Int("max", 200, "requests per keep-alive connection")
	root := flag.String("root", "", "serve files under this directory at /files/")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	lvl, err := obs.ParseLevel(*level)
	if err != nil {
		log.Fatal(err)
	}
	lv := &slog.LevelVar{}
	lv.Set(obs.SlogLevel(lvl))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))

	meter := &obs.Tally{}
	s := &httpx.Server{
		Addr:             *addr,
		Handler:          echoHandler(*root),
		KeepAliveTimeout: *timeout,
		KeepAliveMax:     *maxReqs,
		Logger:           obs.SlogLogger{L: logger},
		Meter:            meter,
		ConnErrorHandler: func(err error) {
			logger.Warn("accept error", "err", err)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	logger.Info("listening", "addr", *addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, httpx.ErrServerClosed) {
		log.Fatal(err)
	}
	logger.Info("stopped", "metrics", meter.Snapshot())
}

// echoHandler answers GET /files/<name> from root and echoes any other
// request body back.
func echoHandler(root string) httpx.Handler {
	return httpx.HandlerFunc(func(r *httpx.Request, body *httpx.BodyReader) *httpx.Response {
		if root != "" && r.Method == "GET" && strings.HasPrefix(r.Path, "/files/") {
			name := filepath.Join(root, filepath.FromSlash(filepath.Clean("/"+strings.TrimPrefix(r.Path, "/files/"))))
			res, err := httpx.NewResponse().File(name)
			if err != nil {
				return httpx.NewResponse().Status(404).BodyString("not found")
			}
			return res
		}
		b, err := body.ReadAll()
		if err != nil {
			return httpx.NewResponse().Status(400).Header("Connection", "close").BodyString(err.Error())
		}
		return httpx.NewResponse().Header("X-Request-Id", r.RequestID()).Body(b)
	})
}
