// Package tubes provides pwntools-style tube functionality: a unified
// handle for interactive byte-stream communication with a spawned process,
// a TCP peer, an SSH session, or any duplex byte channel.
//
// A Tube buffers everything its transport delivers and exposes receives
// bounded by a literal delimiter, a regular expression, or a fixed length.
// Pattern searches are incremental, so delivering a delimiter in many
// small reads costs the same as delivering it in one. Timeouts and
// cancellation never lose data: whatever was read stays buffered for the
// next call.
//
//	p, err := tubes.Process(ctx, "/usr/bin/cat")
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	if err := p.SendString(ctx, "Hello World!"); err != nil {
//		return err
//	}
//	out, err := p.RecvUntil(ctx, []byte("World"))
//	// out == []byte("Hello World")
//
//	// Hand the stream over to the local terminal.
//	if err := p.Interactive(ctx); err != nil {
//		return err
//	}
//
// Remote peers work the same way:
//
//	l, _ := tubes.Listen("")
//	p, _ := tubes.Remote(ctx, fmt.Sprintf("127.0.0.1:%d", l.Port()))
//
// Sent and received bytes can be hex-dumped at debug level by supplying a
// zap logger with WithLogger.
package tubes
