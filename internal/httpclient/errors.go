package httpclient

import (
	"errors"
	"fmt"
)

// ErrorCode classifies transport failures, where no HTTP response was received.
type ErrorCode int

const (
	// ErrCodeConnection covers DNS, TLS, refused and reset connections.
	ErrCodeConnection ErrorCode = iota
	// ErrCodeTimeout covers client timeouts and context deadlines.
	ErrCodeTimeout
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeConnection:
		return "connection"
	case ErrCodeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Do when the request never produced a response.
type Error struct {
	Code     ErrorCode
	Message  string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
}

func newConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Err: err}
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeTimeout
}

// IsConnection reports whether err is a connection-level failure.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConnection
}
