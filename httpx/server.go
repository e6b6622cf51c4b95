package httpx

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"dqx0.com/go/h1wire/internal/obs"
)

// Handler turns a request and its body into a response. The body may be
// read, partly read or ignored; the server drains the rest.
type Handler interface {
	ServeHTTP(*Request, *BodyReader) *Response
}

type HandlerFunc func(*Request, *BodyReader) *Response

func (f HandlerFunc) ServeHTTP(r *Request, body *BodyReader) *Response {
	return f(r, body)
}

const (
	defaultKeepAliveTimeout = 5 * time.Second
	defaultKeepAliveMax     = 200
	defaultMaxLineBytes     = 8 << 10
)

// Server accepts connections and runs the keep-alive loop on each.
type Server struct {
	Addr    string
	Handler Handler

	// KeepAliveTimeout bounds the wait for each request head. Default 5s.
	// The Keep-Alive header advertises it in whole seconds, rounded up.
	KeepAliveTimeout time.Duration
	// KeepAliveMax is the number of requests served per connection.
	// Default 200.
	KeepAliveMax int
	// MaxHeaderBytes caps each line of a request head. A longer line is
	// answered as a malformed request. Default 8 KiB.
	MaxHeaderBytes int

	// ClientErrorHandler builds the response to an unparsable request. The
	// status is the suggested one. Connection: close is forced afterwards.
	ClientErrorHandler func(err *RequestError, status int) *Response
	// TimeoutHandler builds the response sent when no request arrived in
	// time. It should answer 408.
	TimeoutHandler func() *Response
	// ConnErrorHandler is told about accept failures.
	ConnErrorHandler func(error)

	Logger obs.Logger
	Meter  obs.Meter

	mu         sync.Mutex
	listeners  map[*net.Listener]struct{}
	conns      *xsync.MapOf[*Conn, struct{}]
	active     sync.WaitGroup
	inShutdown atomic.Bool
}

func (s *Server) ListenAndServe() error {
	if s.shuttingDown() {
		return ErrServerClosed
	}
	addr := s.Addr
	if addr == "" {
		addr = ":8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts on l until it is closed, running each connection in its
// own goroutine. Accept failures are reported and retried with backoff.
// After Shutdown or Close it returns ErrServerClosed.
func (s *Server) Serve(l net.Listener) error {
	if !s.trackListener(&l, true) {
		return ErrServerClosed
	}
	defer s.trackListener(&l, false)
	defer l.Close()

	var tempDelay time.Duration
	for {
		rw, err := l.Accept()
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.meter().Counter("httpx.accept.error", 1)
			s.logger().Log(obs.Warn, "accept failed", "err", err)
			if s.ConnErrorHandler != nil {
				s.ConnErrorHandler(err)
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if max := 1 * time.Second; tempDelay > max {
				tempDelay = max
			}
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0
		s.meter().Counter("httpx.conn.accepted", 1)
		c := NewConn(rw)
		if !s.trackConn(c, true) {
			_ = c.Close()
			continue
		}
		go func() {
			defer s.trackConn(c, false)
			s.ServeConn(c)
		}()
	}
}

// Shutdown closes the listeners and every open connection, then waits for
// the connection goroutines to exit or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Close()
	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the listeners and closes open connections immediately.
func (s *Server) Close() error {
	s.mu.Lock()
	s.inShutdown.Store(true)
	var err error
	for ln := range s.listeners {
		if cerr := (*ln).Close(); cerr != nil && err == nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	s.mu.Unlock()
	s.connSet().Range(func(c *Conn, _ struct{}) bool {
		_ = c.Close()
		return true
	})
	return err
}

// ActiveConns returns the number of connections being served.
func (s *Server) ActiveConns() int {
	return s.connSet().Size()
}

func (s *Server) shuttingDown() bool { return s.inShutdown.Load() }

func (s *Server) trackListener(ln *net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[*net.Listener]struct{})
	}
	if add {
		if s.shuttingDown() {
			return false
		}
		s.listeners[ln] = struct{}{}
	} else {
		delete(s.listeners, ln)
	}
	return true
}

func (s *Server) connSet() *xsync.MapOf[*Conn, struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		s.conns = xsync.NewMapOf[*Conn, struct{}]()
	}
	return s.conns
}

// trackConn registers or forgets c. Registration fails once Close has
// started.
func (s *Server) trackConn(c *Conn, add bool) bool {
	conns := s.connSet()
	if add {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.shuttingDown() {
			return false
		}
		s.active.Add(1)
		conns.Store(c, struct{}{})
		return true
	}
	conns.Delete(c)
	s.active.Done()
	return true
}

func (s *Server) keepAliveTimeout() time.Duration {
	if s.KeepAliveTimeout <= 0 {
		return defaultKeepAliveTimeout
	}
	return s.KeepAliveTimeout
}

func (s *Server) keepAliveMax() int {
	if s.KeepAliveMax <= 0 {
		return defaultKeepAliveMax
	}
	return s.KeepAliveMax
}

func (s *Server) maxLineBytes() int {
	if s.MaxHeaderBytes <= 0 {
		return defaultMaxLineBytes
	}
	return s.MaxHeaderBytes
}

func (s *Server) logger() obs.Logger {
	if s.Logger == nil {
		return obs.NopLogger{}
	}
	return s.Logger
}

func (s *Server) meter() obs.Meter {
	if s.Meter == nil {
		return obs.NopMeter{}
	}
	return s.Meter
}

func (s *Server) handler() Handler {
	if s.Handler == nil {
		return HandlerFunc(func(*Request, *BodyReader) *Response {
			return NewResponse().Status(404).BodyString("not found")
		})
	}
	return s.Handler
}

func (s *Server) clientErrorResponse(err *RequestError, status int) *Response {
	if s.ClientErrorHandler != nil {
		if res := s.ClientErrorHandler(err, status); res != nil {
			return res
		}
	}
	return NewResponse().Status(status).BodyString("invalid request: " + err.Error())
}

func (s *Server) timeoutResponse() *Response {
	if s.TimeoutHandler != nil {
		if res := s.TimeoutHandler(); res != nil {
			return res
		}
	}
	return NewResponse().Status(408).Header("Connection", "close").BodyString("Request Timeout")
}

// keepAliveValue renders the Keep-Alive header advertising the limits.
func (s *Server) keepAliveValue() string {
	secs := int((s.keepAliveTimeout() + time.Second - 1) / time.Second)
	return "timeout=" + strconv.Itoa(secs) + ", max=" + strconv.Itoa(s.keepAliveMax())
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func closeRequested(h Header) bool {
	return strings.EqualFold(h.Get("Connection"), "close")
}
