package authority

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDecode marks a response body that could not be decoded.
var ErrDecode = errors.New("decode authority response")

// ErrTooLarge marks a response body over the client's read limit.
var ErrTooLarge = errors.New("authority response too large")

// StatusError represents a non-successful response to a roster read.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("authority responded %d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
	}
	return fmt.Sprintf("authority responded %d %s", e.Status, http.StatusText(e.Status))
}

// TransportError reports a request that did not complete.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
