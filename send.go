package tubes

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const newLine = 0xA

// Send writes the full payload to the transport, looping on partial writes
// until everything is accepted or the transport fails.
func (t *Tube) Send(ctx context.Context, data []byte) error {
	const op = "send"
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return ctxErr(op, ctx)
	}
	rest := data
	for len(rest) > 0 {
		n, err := t.tr.Write(rest)
		rest = rest[n:]
		if err != nil {
			return ioErr(op, err)
		}
	}
	if ce := t.log.Check(zapcore.DebugLevel, "send"); ce != nil {
		ce.Write(zap.Int("len", len(data)), zap.String("data", hexDump(data)))
	}
	return nil
}

// SendString sends a text payload.
func (t *Tube) SendString(ctx context.Context, data string) error {
	return t.Send(ctx, []byte(data))
}

// SendLine sends the payload followed by a newline (0xA).
func (t *Tube) SendLine(ctx context.Context, data []byte) error {
	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, newLine)
	return t.Send(ctx, line)
}

// SendLineString sends a text payload followed by a newline.
func (t *Tube) SendLineString(ctx context.Context, data string) error {
	return t.SendLine(ctx, []byte(data))
}

// SendLineAfter receives until pattern is seen, then sends data as a line.
// It returns the bytes received up to and including the pattern.
func (t *Tube) SendLineAfter(ctx context.Context, pattern, data []byte) ([]byte, error) {
	got, err := t.RecvUntil(ctx, pattern)
	if err != nil {
		return nil, err
	}
	if err := t.SendLine(ctx, data); err != nil {
		return got, err
	}
	return got, nil
}
