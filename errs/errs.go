// File: errs/errs.go
// Package errs defines the error taxonomy shared across the transport engine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package errs

import "fmt"

// Kind classifies an Error into one of the taxonomy buckets a caller can
// switch on without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindIllegalState
	KindClosedChannel
	KindConnectTimeout
	KindConnectRefused
	KindUnresolvedAddress
	KindIO
	KindCancellation
	KindIllegalRefCount
	KindBufferReleased
	KindBufferTooLarge
	KindEncoderException
	KindDecoderException
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindIllegalState:
		return "IllegalState"
	case KindClosedChannel:
		return "ClosedChannel"
	case KindConnectTimeout:
		return "ConnectTimeout"
	case KindConnectRefused:
		return "ConnectRefused"
	case KindUnresolvedAddress:
		return "UnresolvedAddress"
	case KindIO:
		return "IO"
	case KindCancellation:
		return "Cancellation"
	case KindIllegalRefCount:
		return "IllegalRefCount"
	case KindBufferReleased:
		return "BufferReleased"
	case KindBufferTooLarge:
		return "BufferTooLarge"
	case KindEncoderException:
		return "EncoderException"
	case KindDecoderException:
		return "DecoderException"
	case KindPanic:
		return "Panic"
	default:
		return "Unknown"
	}
}

// Error is the structured error type returned through futures and
// exceptionCaught. It wraps an optional cause for errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target has the same Kind, letting callers write
// errors.Is(err, errs.New(errs.KindClosedChannel, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind carrying cause as its Unwrap target.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// OfKind returns true if err is (or wraps) an *Error of the given kind.
func OfKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Sentinel convenience constructors for the most frequently raised kinds.
var (
	ErrConnectionPending = New(KindIllegalState, "connect already pending")
	ErrAlreadyRegistered = New(KindIllegalState, "channel already registered")
	ErrChannelClosed     = New(KindClosedChannel, "channel is closed")
	// ErrWouldBlock signals a non-blocking read, write or accept that made
	// no progress; the caller stops and waits for the fd to report ready
	// again (arming OP_WRITE first in the write case).
	ErrWouldBlock = New(KindIO, "operation would block")
)
