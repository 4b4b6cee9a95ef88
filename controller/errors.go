package controller

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies controller errors.
type Kind int

// Error kinds.
const (
	// AuthError is returned for rejected credentials or an unreachable
	// controller during login.
	AuthError Kind = iota + 1
	// NotFoundError is returned when the object does not exist.
	NotFoundError
	// ValidationError is returned when the controller rejects a request.
	ValidationError
	// TransportError is returned for connection failures and timeouts.
	TransportError
)

func (k Kind) String() string {
	switch k {
	case AuthError:
		return "auth"
	case NotFoundError:
		return "not found"
	case ValidationError:
		return "validation"
	case TransportError:
		return "transport"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// An Error is returned by the controller client. Message holds the text the
// controller returned, unchanged.
type Error struct {
	Kind       Kind
	StatusCode int    // HTTP status, zero for transport errors.
	Message    string // Server message, verbatim.
	Body       []byte // Response body, verbatim. Nil if there was no response.
	Err        error  // Underlying error for transport and login failures.
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error (status %d)", e.Kind, e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether err, or an error it wraps, is a NotFoundError.
func IsNotFound(err error) bool { return kindOf(err) == NotFoundError }

// IsAuth reports whether err, or an error it wraps, is an AuthError.
func IsAuth(err error) bool { return kindOf(err) == AuthError }

// IsValidation reports whether err, or an error it wraps, is a
// ValidationError.
func IsValidation(err error) bool { return kindOf(err) == ValidationError }

// IsTransport reports whether err, or an error it wraps, is a
// TransportError.
func IsTransport(err error) bool { return kindOf(err) == TransportError }
