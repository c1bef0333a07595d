package tubes

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ankouros/tubes/internal/recvbuf"
)

const defaultReadSize = 4096

// Tube is the unified handle for sending and receiving bytes over a
// Transport, with buffered pattern-based receiving and an interactive
// bridging mode.
//
// A single reader goroutine owns all transport reads and hands chunks to
// whichever receive operation is in flight, which is what gives every
// receive uniform timeout and cancellation behaviour without polling.
// Receives are exclusive: a second receive while one is in flight fails
// with ErrBusy. Sends take an independent path and may run concurrently
// with a receive.
type Tube struct {
	tr       Transport
	log      *zap.Logger
	timeout  time.Duration
	readSize int

	buf      *recvbuf.Buffer
	chunks   chan []byte
	done     chan struct{}
	readErr  error // cause of pump exit, valid once chunks is closed
	pumpDone bool  // receive-path view of the pump state, guarded by recvMu

	recvMu  sync.Mutex
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Tube at construction.
type Option func(*Tube)

// WithTimeout sets a default deadline applied to every receive whose
// context carries none. Zero means block until the transport delivers.
func WithTimeout(d time.Duration) Option {
	return func(t *Tube) { t.timeout = d }
}

// WithLogger routes the tube's debug logging (hex dumps of sent and
// received bytes, bridge lifecycle) to l. The default logger discards
// everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tube) { t.log = l }
}

// WithReadSize sets the transport read chunk size.
func WithReadSize(n int) Option {
	return func(t *Tube) {
		if n > 0 {
			t.readSize = n
		}
	}
}

// New wraps an already-open Transport in a Tube and starts its reader.
// The Tube takes ownership: closing the Tube closes the Transport.
func New(tr Transport, opts ...Option) *Tube {
	t := &Tube{
		tr:       tr,
		log:      zap.NewNop(),
		readSize: defaultReadSize,
		buf:      recvbuf.New(),
		chunks:   make(chan []byte),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.pump()
	return t
}

// pump is the tube's only transport reader. It delivers copied chunks over
// an unbuffered channel so a stalled consumer exerts backpressure instead
// of growing memory, and records the terminal error before closing the
// channel.
func (t *Tube) pump() {
	buf := make([]byte, t.readSize)
	for {
		n, err := t.tr.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			if ce := t.log.Check(zapcore.DebugLevel, "recv"); ce != nil {
				ce.Write(zap.Int("len", n), zap.String("data", hexDump(b)))
			}
			select {
			case t.chunks <- b:
			case <-t.done:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				t.log.Debug("read error", zap.Error(err))
			}
			t.readErr = err
			close(t.chunks)
			return
		}
	}
}

// acquire claims the receive side or fails immediately with a busy error.
func (t *Tube) acquire(op string) error {
	if !t.recvMu.TryLock() {
		return busyErr(op)
	}
	return nil
}

// recvCtx applies the tube's default timeout when the caller's context has
// no deadline of its own.
func (t *Tube) recvCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			return context.WithTimeout(ctx, t.timeout)
		}
	}
	return ctx, func() {}
}

// drain moves chunks the pump has already delivered into the buffer
// without blocking. Bytes read during an earlier timed-out call surface
// here instead of being lost.
func (t *Tube) drain() {
	for !t.pumpDone {
		select {
		case b, ok := <-t.chunks:
			if !ok {
				t.pumpDone = true
				return
			}
			t.buf.Append(b)
		default:
			return
		}
	}
}

// wait blocks until the pump delivers more bytes, the transport ends, the
// tube is closed, or the context expires. A context expiry leaves the
// buffer untouched. The done branch matters when the pump was parked on a
// delivery at close time: it exits without ever closing the chunk channel,
// and without this branch a later receive would block forever.
func (t *Tube) wait(ctx context.Context, op string) error {
	if t.pumpDone {
		return t.endErr(op)
	}
	select {
	case b, ok := <-t.chunks:
		if !ok {
			t.pumpDone = true
			return t.endErr(op)
		}
		t.buf.Append(b)
		return nil
	case <-t.done:
		return ioErr(op, ErrClosed)
	case <-ctx.Done():
		return ctxErr(op, ctx)
	}
}

// endErr converts the pump's terminal state into the caller-facing error.
// EOF hands over everything still buffered so partial data is inspectable.
func (t *Tube) endErr(op string) error {
	if t.readErr != nil && t.readErr != io.EOF {
		return ioErr(op, t.readErr)
	}
	return eofErr(op, t.buf.Take())
}

// CloseWrite half-closes the transport's write direction so the peer
// observes EOF. Receiving stays possible.
func (t *Tube) CloseWrite() error {
	return t.tr.CloseWrite()
}

// Close shuts the tube down and releases the transport. Idempotent; any
// in-flight or later receive fails with an error wrapping ErrClosed or
// the aborted transport read's error.
func (t *Tube) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.closeErr = t.tr.Close()
	})
	return t.closeErr
}
