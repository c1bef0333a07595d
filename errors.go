package tubes

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Kind classifies tube failures.
type Kind int

const (
	// KindIO is an underlying transport read or write failure. Fatal to
	// the tube: later receives on the same tube fail the same way.
	KindIO Kind = iota + 1

	// KindEOF means the peer closed before the requested pattern or
	// length was satisfied. The error carries every unconsumed byte
	// accumulated so far. Fatal to the receive direction.
	KindEOF

	// KindTimeout means the deadline elapsed with no match. Unconsumed
	// bytes stay buffered, so a retried call continues where this one
	// left off.
	KindTimeout

	// KindCancelled means the context was cancelled before completion.
	// Buffered bytes are retained exactly like KindTimeout.
	KindCancelled

	// KindBadPattern means a regular expression failed to compile or a
	// delimiter was empty. No transport interaction took place.
	KindBadPattern

	// KindBusy means another receive was already in flight on this tube.
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindEOF:
		return "eof"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindBadPattern:
		return "bad pattern"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// ErrBusy is the cause of KindBusy errors: the tube's receive buffer is
// exclusively owned by one in-flight receive at a time, and a second
// concurrent receive is rejected immediately rather than queued.
var ErrBusy = errors.New("receive already in progress")

// ErrClosed is the cause of KindIO errors from operations attempted after
// the tube has been closed.
var ErrClosed = errors.New("tube closed")

// errNoHalfClose is returned by transports that cannot close just the
// write direction (a PTY has a single file descriptor for both).
var errNoHalfClose = errors.New("transport does not support write half-close")

// Error is the error type returned by Tube operations.
//
// Classification goes through Kind, or through errors.Is against the
// wrapped cause: io.EOF for KindEOF, context.DeadlineExceeded for
// KindTimeout, context.Canceled for KindCancelled, ErrBusy for KindBusy,
// ErrClosed for KindIO raised by a closed tube.
type Error struct {
	Kind Kind
	Op   string
	Data []byte // partial payload, set for KindEOF
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tubes: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tubes: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error is a deadline expiry, mirroring
// net.Error.
func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

// Partial returns the unconsumed bytes attached to err, if err is a tube
// EOF error. A truncated banner is still worth inspecting.
func Partial(err error) []byte {
	var te *Error
	if errors.As(err, &te) {
		return te.Data
	}
	return nil
}

// IsKind reports whether err is a tube error of the given kind.
func IsKind(err error, k Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == k
}

func ioErr(op string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

func eofErr(op string, data []byte) *Error {
	return &Error{Kind: KindEOF, Op: op, Data: data, Err: io.EOF}
}

func ctxErr(op string, ctx context.Context) *Error {
	err := ctx.Err()
	kind := KindCancelled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func patternErr(op string, err error) *Error {
	return &Error{Kind: KindBadPattern, Op: op, Err: err}
}

func busyErr(op string) *Error {
	return &Error{Kind: KindBusy, Op: op, Err: ErrBusy}
}
