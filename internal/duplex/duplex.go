// Package duplex provides an in-memory bidirectional byte channel with the
// half-close semantics of a TCP socket. Each direction is a bounded ring
// buffer between a writer and a reader, so bursty writers get a cushion
// before they block on a slow reader.
package duplex

import (
	"io"
	"sync"
)

// half is one direction of the channel: a single-producer, single-consumer
// ring with blocking reads and writes and independent close of each side.
type half struct {
	mu      sync.Mutex
	canRead sync.Cond
	canWrit sync.Cond

	ring  []byte
	rpos  int
	count int

	rclosed bool
	wclosed bool
	werr    error // returned to the reader once drained
	rerr    error // returned to the writer
}

func newHalf(size int) *half {
	if size <= 0 {
		size = 1
	}
	h := &half{ring: make([]byte, size)}
	h.canRead.L = &h.mu
	h.canWrit.L = &h.mu
	return h
}

func (h *half) read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for h.count == 0 {
		if h.rclosed {
			return 0, io.ErrClosedPipe
		}
		if h.wclosed {
			if h.werr != nil {
				return 0, h.werr
			}
			return 0, io.EOF
		}
		h.canRead.Wait()
	}

	n := h.count
	if n > len(p) {
		n = len(p)
	}
	first := len(h.ring) - h.rpos
	if first >= n {
		copy(p, h.ring[h.rpos:h.rpos+n])
	} else {
		copy(p, h.ring[h.rpos:])
		copy(p[first:], h.ring[:n-first])
	}
	h.rpos = (h.rpos + n) % len(h.ring)
	h.count -= n
	h.canWrit.Signal()
	return n, nil
}

func (h *half) write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var done int
	for {
		if h.wclosed {
			return done, io.ErrClosedPipe
		}
		if h.rclosed {
			if h.rerr != nil {
				return done, h.rerr
			}
			return done, io.ErrClosedPipe
		}
		if len(p) == 0 {
			return done, nil
		}
		free := len(h.ring) - h.count
		if free == 0 {
			h.canWrit.Wait()
			continue
		}
		n := free
		if n > len(p) {
			n = len(p)
		}
		wpos := (h.rpos + h.count) % len(h.ring)
		first := len(h.ring) - wpos
		if first >= n {
			copy(h.ring[wpos:], p[:n])
		} else {
			copy(h.ring[wpos:], p[:first])
			copy(h.ring, p[first:n])
		}
		h.count += n
		done += n
		p = p[n:]
		h.canRead.Signal()
	}
}

func (h *half) closeWrite(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.wclosed {
		return
	}
	h.wclosed = true
	h.werr = err
	h.canRead.Broadcast()
	h.canWrit.Broadcast()
}

func (h *half) closeRead(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rclosed {
		return
	}
	h.rclosed = true
	h.rerr = err
	h.canRead.Broadcast()
	h.canWrit.Broadcast()
}

// Endpoint is one side of the duplex channel.
type Endpoint struct {
	in  *half // peer writes, we read
	out *half // we write, peer reads
}

// Pipe returns two connected endpoints, each direction buffered to size
// bytes.
func Pipe(size int) (*Endpoint, *Endpoint) {
	a := newHalf(size)
	b := newHalf(size)
	return &Endpoint{in: a, out: b}, &Endpoint{in: b, out: a}
}

// Read blocks until bytes are available or the peer's write side is closed,
// at which point it drains the cushion and then reports io.EOF.
func (e *Endpoint) Read(p []byte) (int, error) {
	return e.in.read(p)
}

// Write blocks until the full payload fits into the cushion or the peer's
// read side is gone.
func (e *Endpoint) Write(p []byte) (int, error) {
	return e.out.write(p)
}

// CloseWrite half-closes the endpoint: the peer reads EOF after draining,
// while this side can keep reading.
func (e *Endpoint) CloseWrite() error {
	e.out.closeWrite(nil)
	return nil
}

// CloseWriteError is like CloseWrite but surfaces err to the peer's reads
// instead of EOF.
func (e *Endpoint) CloseWriteError(err error) error {
	e.out.closeWrite(err)
	return nil
}

// Close shuts down both directions. Safe to call multiple times.
func (e *Endpoint) Close() error {
	e.out.closeWrite(nil)
	e.in.closeRead(nil)
	return nil
}
