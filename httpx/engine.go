package httpx

import (
	"errors"
	"net"
	"runtime/debug"
	"strconv"
	"time"

	"dqx0.com/go/h1wire/internal/obs"
)

// connState names the steps of the keep-alive loop, for logs.
type connState int

const (
	stateAwaiting connState = iota
	stateDispatching
	stateDraining
	stateResponding
	stateClosed
)

func (st connState) String() string {
	switch st {
	case stateAwaiting:
		return "awaiting"
	case stateDispatching:
		return "dispatching"
	case stateDraining:
		return "draining"
	case stateResponding:
		return "responding"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// session is the per-connection loop state.
type session struct {
	s      *Server
	c      *Conn
	peer   string
	log    obs.Logger
	meter  obs.Meter
	served int
	state  connState
}

// ServeConn runs the keep-alive loop on c until the peer leaves, a close
// condition is met or I/O fails, then closes c. Requests are handled
// strictly one after another.
func (s *Server) ServeConn(c *Conn) {
	c.SetMaxLineBytes(s.maxLineBytes())
	ss := &session{s: s, c: c, log: s.logger(), meter: s.meter()}
	if a := c.RemoteAddr(); a != nil {
		ss.peer = a.String()
	}
	defer func() {
		ss.state = stateClosed
		_ = c.Close()
		ss.meter.Counter("httpx.conn.closed", 1)
		ss.log.Log(obs.Debug, "connection closed", "peer", ss.peer, "served", ss.served)
	}()
	defer ss.recoverPanic()

	for ss.step() {
	}
}

// recoverPanic keeps a panic outside the handler, such as one raised by a
// stream body, from taking down the process.
func (ss *session) recoverPanic() {
	if p := recover(); p != nil {
		ss.log.Log(obs.Error, "panic serving connection", "peer", ss.peer, "state", ss.state, "panic", p, "stack", string(debug.Stack()))
	}
}

// step serves one request and reports whether the loop goes on.
func (ss *session) step() bool {
	s, c := ss.s, ss.c
	ss.served++
	ss.state = stateAwaiting

	_ = c.SetReadDeadline(time.Now().Add(s.keepAliveTimeout()))
	req, err := ReadRequest(c)
	_ = c.SetReadDeadline(time.Time{})
	start := time.Now()

	var res *Response
	if err != nil {
		var rerr *RequestError
		if !errors.As(err, &rerr) {
			rerr = requestError(ErrRead, "", err)
		}
		switch {
		case errors.Is(rerr, ErrConnectionClosed), errors.Is(rerr, net.ErrClosed):
			ss.log.Log(obs.Info, "connection closed by client, stopping keep-alive loop", "peer", ss.peer)
			return false
		case isTimeout(rerr):
			ss.log.Log(obs.Info, "request timed out, sending timeout response", "peer", ss.peer, "timeout", s.keepAliveTimeout())
			ss.meter.Counter("httpx.request.error", 1, obs.L("kind", "timeout"))
			res = s.timeoutResponse()
		default:
			status := rerr.Status()
			ss.log.Log(obs.Warn, "error receiving request, sending error response", "peer", ss.peer, "status", status, "err", rerr)
			ss.meter.Counter("httpx.request.error", 1, obs.L("kind", errorKind(rerr)))
			res = s.clientErrorResponse(rerr, status)
		}
		// The stream position is no longer trusted after a failed or
		// abandoned read.
		res.Header.Set("Connection", "close")
		res.Header.Del("Keep-Alive")
	} else {
		annotate(req)
		res = ss.dispatch(req)
		if res == nil {
			return false
		}
	}

	ss.state = stateResponding
	if err := res.Send(ss.c); err != nil {
		ss.log.Log(obs.Warn, "error sending response, closing connection", "peer", ss.peer, "err", err)
		return false
	}
	ss.meter.Counter("httpx.request.served", 1, obs.L("status", strconv.Itoa(res.Status)))
	ss.meter.Histogram("httpx.request.duration_ms", float64(time.Since(start).Milliseconds()))

	if ss.served >= s.keepAliveMax() {
		ss.log.Log(obs.Info, "max keep-alive requests reached, closing connection", "peer", ss.peer, "served", ss.served)
		return false
	}
	// A missing Keep-Alive header closes the connection, including when a
	// handler set Connection to something other than close or keep-alive.
	if !res.Header.Has("Keep-Alive") {
		ss.log.Log(obs.Info, "no Keep-Alive on response, closing connection", "peer", ss.peer, "connection", res.Header.Get("Connection"))
		return false
	}
	return true
}

// dispatch runs the handler, settles the Connection headers and drains the
// body. A nil result means the connection must be dropped unanswered.
func (ss *session) dispatch(req *Request) *Response {
	s := ss.s
	cl, _ := req.ContentLength()
	body := NewBodyReader(cl, ss.c)

	ss.state = stateDispatching
	ss.log.Log(obs.Debug, "dispatching request", "peer", ss.peer, "request_id", req.RequestID(), "method", req.Method, "path", req.Path)
	res := ss.invoke(req, body)

	if !res.Header.Has("Connection") {
		if closeRequested(req.Header) {
			res.Header.Set("Connection", "close")
			res.Header.Del("Keep-Alive")
		} else {
			res.Header.Set("Connection", "keep-alive")
			res.Header.Set("Keep-Alive", s.keepAliveValue())
		}
	}

	ss.state = stateDraining
	if err := body.Drain(); errors.Is(err, ErrBodyReleased) {
		// The handler took the connection back with bytes unread. The
		// response can still go out but the stream position is lost.
		ss.log.Log(obs.Warn, "request body released unread, closing after response", "peer", ss.peer, "request_id", req.RequestID())
		res.Header.Set("Connection", "close")
		res.Header.Del("Keep-Alive")
	} else if err != nil {
		ss.log.Log(obs.Warn, "error draining request body, closing connection", "peer", ss.peer, "request_id", req.RequestID(), "err", err)
		_ = res.Close()
		return nil
	}
	// The handler may already have released the body; the session still
	// owns the connection either way.
	if c := body.Release(); c != nil {
		ss.c = c
	}
	return res
}

// invoke calls the handler. A panic or a nil response becomes a 500 that
// closes the connection.
func (ss *session) invoke(req *Request, body *BodyReader) (res *Response) {
	defer func() {
		if p := recover(); p != nil {
			ss.log.Log(obs.Error, "handler panic", "peer", ss.peer, "request_id", req.RequestID(), "panic", p, "stack", string(debug.Stack()))
			res = internalError()
		}
	}()
	res = ss.s.handler().ServeHTTP(req, body)
	if res == nil {
		ss.log.Log(obs.Error, "handler returned no response", "peer", ss.peer, "request_id", req.RequestID())
		return internalError()
	}
	return res
}

func internalError() *Response {
	return NewResponse().Status(500).Header("Connection", "close").BodyString("Internal Server Error")
}

func errorKind(err *RequestError) string {
	switch err.Kind {
	case ErrRead:
		return "read"
	case ErrInvalidRequestLine:
		return "request_line"
	case ErrUnsupportedVersion:
		return "version"
	case ErrInvalidHeader:
		return "header"
	case ErrInvalidContentLength:
		return "content_length"
	}
	return "other"
}
