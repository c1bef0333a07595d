package tubes

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
)

// Interactive bridges the tube to the local stdin and stdout until either
// side reaches end-of-stream. When the remote side ends the session, a
// read left blocked on stdin may still consume one buffered line of input
// after Interactive returns. See InteractiveWith.
func (t *Tube) Interactive(ctx context.Context) error {
	return t.InteractiveWith(ctx, os.Stdin, os.Stdout)
}

// InteractiveWith runs two pump loops, local input to transport and
// transport to local output, until either direction ends. Any bytes
// already sitting unconsumed in the receive buffer are flushed to out
// first, so nothing read by an earlier receive is lost.
//
// A clean EOF on either side is a normal termination; once one loop stops
// the other is cancelled rather than waited for. Only local-side failures
// (reading in, writing out) are surfaced; a vanished peer ends the session
// silently. Local input bytes already written to the transport are not
// recoverable after termination.
//
// The bridge holds the tube's receive side for its duration, so a
// concurrent receive fails with ErrBusy. If in is blocked in a read when
// the remote side closes, InteractiveWith still returns immediately; the
// input pump exits on its next read.
func (t *Tube) InteractiveWith(ctx context.Context, in io.Reader, out io.Writer) error {
	const op = "interactive"
	if err := t.acquire(op); err != nil {
		return err
	}
	defer t.recvMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.drain()
	if b := t.buf.Take(); len(b) > 0 {
		if _, err := out.Write(b); err != nil {
			return ioErr(op, err)
		}
	}

	t.log.Debug("interactive session started")
	localDone := make(chan error, 1)
	go func() {
		localDone <- t.pumpLocal(ctx, in)
	}()

	for {
		select {
		case b, ok := <-t.chunks:
			if !ok {
				t.pumpDone = true
				t.log.Debug("interactive session ended",
					zap.String("cause", "remote closed"))
				return nil
			}
			if _, err := out.Write(b); err != nil {
				return ioErr(op, err)
			}
		case err := <-localDone:
			if err != nil {
				t.log.Debug("interactive session ended", zap.Error(err))
				return ioErr(op, err)
			}
			t.log.Debug("interactive session ended",
				zap.String("cause", "local eof"))
			return nil
		case <-t.done:
			t.log.Debug("interactive session ended",
				zap.String("cause", "tube closed"))
			return ioErr(op, ErrClosed)
		case <-ctx.Done():
			t.log.Debug("interactive session ended",
				zap.String("cause", "cancelled"))
			return ctxErr(op, ctx)
		}
	}
}

// pumpLocal moves local input to the transport. A transport write failure
// means the peer is gone and ends the session without an error; only
// failures reading the local side are reported.
func (t *Tube) pumpLocal(ctx context.Context, in io.Reader) error {
	buf := make([]byte, t.readSize)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if serr := t.Send(ctx, buf[:n]); serr != nil {
				return nil
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
