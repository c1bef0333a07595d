package tubes

import (
	"context"
	"errors"

	"github.com/ankouros/tubes/internal/scan"
)

// Recv performs one opportunistic receive: it returns whatever is
// available, up to max bytes, blocking only until at least one byte
// arrives, the transport ends, or the deadline expires.
func (t *Tube) Recv(ctx context.Context, max int) ([]byte, error) {
	const op = "recv"
	if max <= 0 {
		return nil, nil
	}
	if err := t.acquire(op); err != nil {
		return nil, err
	}
	defer t.recvMu.Unlock()
	ctx, cancel := t.recvCtx(ctx)
	defer cancel()

	t.drain()
	for t.buf.Len() == 0 {
		if err := t.wait(ctx, op); err != nil {
			return nil, err
		}
	}
	n := t.buf.Len()
	if n > max {
		n = max
	}
	return t.buf.Consume(n), nil
}

// RecvN receives exactly n bytes. On EOF before n bytes arrive the
// returned error carries the bytes received so far.
func (t *Tube) RecvN(ctx context.Context, n int) ([]byte, error) {
	const op = "recv_n"
	if n <= 0 {
		return nil, nil
	}
	if err := t.acquire(op); err != nil {
		return nil, err
	}
	defer t.recvMu.Unlock()
	ctx, cancel := t.recvCtx(ctx)
	defer cancel()

	t.drain()
	for t.buf.Len() < n {
		if err := t.wait(ctx, op); err != nil {
			return nil, err
		}
	}
	return t.buf.Consume(n), nil
}

// RecvUntil receives until the literal delimiter is found, returning
// everything up to and including it. The search is incremental: each byte
// pulled from the transport is examined once, however many reads delivered
// it.
func (t *Tube) RecvUntil(ctx context.Context, delim []byte) ([]byte, error) {
	const op = "recv_until"
	if len(delim) == 0 {
		return nil, patternErr(op, errors.New("empty delimiter"))
	}
	if err := t.acquire(op); err != nil {
		return nil, err
	}
	defer t.recvMu.Unlock()
	ctx, cancel := t.recvCtx(ctx)
	defer cancel()

	m := scan.NewLiteral(delim)
	t.buf.ResetScan()
	t.drain()
	for {
		adv, ok := m.Feed(t.buf.Unscanned())
		t.buf.MarkScanned(adv)
		if ok {
			return t.buf.Consume(t.buf.Scanned()), nil
		}
		if err := t.wait(ctx, op); err != nil {
			return nil, err
		}
	}
}

// RecvLine receives until the next newline (0xA), inclusive.
func (t *Tube) RecvLine(ctx context.Context) ([]byte, error) {
	return t.RecvUntil(ctx, []byte{newLine})
}

// RecvRegex receives until the unconsumed buffer matches the regular
// expression. It returns the bytes from the start of the buffer through
// the end of the match plus the capture groups. A pattern that fails to
// compile is reported before any transport interaction.
//
// Unlike the literal search, a regex match can look arbitrarily far back,
// so the whole unconsumed view is rescanned each time new bytes arrive.
func (t *Tube) RecvRegex(ctx context.Context, pattern string) ([]byte, [][]byte, error) {
	const op = "recv_regex"
	m, err := scan.NewRegex(pattern)
	if err != nil {
		return nil, nil, patternErr(op, err)
	}
	if err := t.acquire(op); err != nil {
		return nil, nil, err
	}
	defer t.recvMu.Unlock()
	ctx, cancel := t.recvCtx(ctx)
	defer cancel()

	t.buf.ResetScan()
	t.drain()
	for {
		if end, groups, ok := m.Find(t.buf.Bytes()); ok {
			return t.buf.Consume(end), groups, nil
		}
		if err := t.wait(ctx, op); err != nil {
			return nil, nil, err
		}
	}
}

// Peek returns up to n buffered bytes without consuming them, blocking
// until at least one byte is available.
func (t *Tube) Peek(ctx context.Context, n int) ([]byte, error) {
	const op = "peek"
	if n <= 0 {
		return nil, nil
	}
	if err := t.acquire(op); err != nil {
		return nil, err
	}
	defer t.recvMu.Unlock()
	ctx, cancel := t.recvCtx(ctx)
	defer cancel()

	t.drain()
	for t.buf.Len() == 0 {
		if err := t.wait(ctx, op); err != nil {
			return nil, err
		}
	}
	return t.buf.Peek(n), nil
}
