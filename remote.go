package tubes

import (
	"context"
	"net"
)

// Remote connects to a TCP address and wraps the connection in a Tube.
func Remote(ctx context.Context, addr string, opts ...Option) (*Tube, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(Conn(conn), opts...), nil
}

// Listener accepts TCP connections and hands them out as Tubes.
type Listener struct {
	inner net.Listener
}

// Listen binds to addr. An empty addr binds an ephemeral port on all
// interfaces; use Port to discover it.
func Listen(addr string) (*Listener, error) {
	if addr == "" {
		addr = "0.0.0.0:0"
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{inner: l}, nil
}

// Accept waits for a connection and returns it as a Tube.
func (l *Listener) Accept(opts ...Option) (*Tube, error) {
	conn, err := l.inner.Accept()
	if err != nil {
		return nil, err
	}
	return New(Conn(conn), opts...), nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.inner.Addr()
}

// Port returns the bound TCP port.
func (l *Listener) Port() int {
	if a, ok := l.inner.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Close stops the listener. Tubes already accepted stay open.
func (l *Listener) Close() error {
	return l.inner.Close()
}
