package tubes

import (
	"io"
	"net"
	"sync"

	"github.com/ankouros/tubes/internal/duplex"
)

// Transport is the duplex byte channel a Tube operates over. All variants
// (process pipes, sockets, SSH channels, in-memory streams) are treated
// uniformly through this capability set; the tube core never inspects the
// concrete type.
type Transport interface {
	io.Reader
	io.Writer

	// CloseWrite closes the write direction so the peer observes EOF,
	// while the read direction stays usable. Transports without a
	// separable write half return an error.
	CloseWrite() error

	// Close releases the underlying resource. Implementations are
	// idempotent.
	io.Closer
}

type writeHalfCloser interface {
	CloseWrite() error
}

// rawTransport adapts an arbitrary duplex stream. Half-close and close are
// forwarded when the wrapped value supports them.
type rawTransport struct {
	rw   io.ReadWriter
	once sync.Once
}

var _ Transport = (*rawTransport)(nil)

// Raw wraps any duplex byte stream as a Transport. If rw implements
// CloseWrite (net.TCPConn and friends do), half-close is forwarded;
// otherwise CloseWrite fails. Close is forwarded when rw is an io.Closer.
func Raw(rw io.ReadWriter) Transport {
	if t, ok := rw.(Transport); ok {
		return t
	}
	return &rawTransport{rw: rw}
}

// Conn wraps an established network connection as a Transport.
func Conn(c net.Conn) Transport {
	return Raw(c)
}

func (r *rawTransport) Read(p []byte) (int, error) {
	return r.rw.Read(p)
}

func (r *rawTransport) Write(p []byte) (int, error) {
	return r.rw.Write(p)
}

func (r *rawTransport) CloseWrite() error {
	if hc, ok := r.rw.(writeHalfCloser); ok {
		return hc.CloseWrite()
	}
	return errNoHalfClose
}

func (r *rawTransport) Close() error {
	var err error
	r.once.Do(func() {
		if c, ok := r.rw.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

// defaultPipeSize is the per-direction cushion of the in-memory loopback
// pair.
const defaultPipeSize = 64 << 10

// Pipe returns two Tubes connected by an in-memory duplex channel, useful
// for tests and for composing tube-based code without a real peer. Bytes
// written to one side become readable on the other; CloseWrite on one side
// delivers EOF to the peer after the cushion drains.
func Pipe(opts ...Option) (*Tube, *Tube) {
	a, b := duplex.Pipe(defaultPipeSize)
	return New(a, opts...), New(b, opts...)
}
