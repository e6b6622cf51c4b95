package httpx

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionClosed     = errors.New("httpx: connection closed by peer")
	ErrRead                 = errors.New("httpx: read failed")
	ErrInvalidRequestLine   = errors.New("httpx: invalid request line")
	ErrUnsupportedVersion   = errors.New("httpx: unsupported http version")
	ErrInvalidHeader        = errors.New("httpx: invalid header")
	ErrInvalidContentLength = errors.New("httpx: invalid content length")
	ErrBodyReleased         = errors.New("httpx: body reader released")
	ErrServerClosed         = errors.New("httpx: server closed")
)

// RequestError describes why a request could not be read. Kind is one of
// the Err* sentinels above; Text is the offending input, if any; Cause is
// the underlying failure, if any. errors.Is matches both Kind and Cause.
type RequestError struct {
	Kind  error
	Text  string
	Cause error
}

func (e *RequestError) Error() string {
	switch {
	case e.Cause != nil && e.Text != "":
		return fmt.Sprintf("%v: %q: %v", e.Kind, e.Text, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	case e.Text != "":
		return fmt.Sprintf("%v: %q", e.Kind, e.Text)
	}
	return e.Kind.Error()
}

func (e *RequestError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Status maps the error onto the response status sent to the client.
func (e *RequestError) Status() int {
	switch e.Kind {
	case ErrInvalidHeader, ErrInvalidContentLength:
		return 400
	case ErrUnsupportedVersion:
		return 505
	}
	return 500
}

func requestError(kind error, text string, cause error) *RequestError {
	return &RequestError{Kind: kind, Text: text, Cause: cause}
}
