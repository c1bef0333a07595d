package tubes

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecvUntilSplitDelivery(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "abc"))

	// Make sure the first chunk arrived before the rest is sent, so the
	// delimiter really is delivered by a separate transport read.
	got, err := b.Peek(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), got)

	require.NoError(t, a.SendString(ctx, "Xdef"))

	got, err = b.RecvUntil(ctx, []byte("X"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abcX"), got)

	got, err = b.RecvN(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("def"), got)
}

func TestRecvUntilEOFCarriesUnconsumedBytes(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "no delimiter here"))
	require.NoError(t, a.CloseWrite())

	_, err := b.RecvUntil(ctx, []byte("END"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindEOF))
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, []byte("no delimiter here"), Partial(err))

	// The tube stays unusable for receives afterwards.
	_, err = b.RecvN(ctx, 1)
	assert.True(t, IsKind(err, KindEOF))
	assert.Empty(t, Partial(err))
}

func TestRecvNExactAndEOFPartial(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "abc"))
	require.NoError(t, a.CloseWrite())

	_, err := b.RecvN(ctx, 5)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindEOF))
	assert.Equal(t, []byte("abc"), Partial(err))
}

func TestTimeoutRetainsData(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "partial"))

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := b.RecvUntil(short, []byte("END"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// Everything read before the deadline is still buffered; no new
	// transport bytes are needed to satisfy this.
	got, err := b.RecvN(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("partial"), got)
}

func TestDefaultTimeoutOption(t *testing.T) {
	a, b := Pipe(WithTimeout(50 * time.Millisecond))
	defer a.Close()
	defer b.Close()

	start := time.Now()
	_, err := b.RecvLine(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCancelRetainsData(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	cancelCtx, cancel := context.WithCancel(ctx)
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := b.RecvUntil(cancelCtx, []byte("END"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCancelled))
	assert.True(t, errors.Is(err, context.Canceled))

	// The tube stays fully usable after a cancellation.
	require.NoError(t, a.SendString(ctx, "payload"))
	got, err := b.RecvN(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestEchoRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	// Echo loop: whatever arrives on b goes straight back.
	go func() {
		for {
			chunk, err := b.Recv(ctx, 1024)
			if err != nil {
				return
			}
			if err := b.Send(ctx, chunk); err != nil {
				return
			}
		}
	}()

	require.NoError(t, a.SendString(ctx, "PING\n"))
	got, err := a.RecvUntil(ctx, []byte("PING\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("PING\n"), got)
}

func TestRecvOpportunistic(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "abcdef"))

	got, err := b.Recv(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), got)

	got, err = b.Recv(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("ef"), got)
}

func TestRecvRegexCaptures(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "user: alice id=42\nrest"))

	data, groups, err := b.RecvRegex(ctx, `id=(\d+)`)
	require.NoError(t, err)
	assert.Equal(t, []byte("user: alice id=42"), data)
	require.Len(t, groups, 1)
	assert.Equal(t, []byte("42"), groups[0])

	// Bytes past the match end stay buffered.
	got, err := b.RecvN(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("\nrest"), got)
}

func TestRecvRegexBadPattern(t *testing.T) {
	_, b := Pipe()
	defer b.Close()

	_, _, err := b.RecvRegex(context.Background(), "(")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadPattern))
}

func TestRecvUntilEmptyDelimiter(t *testing.T) {
	_, b := Pipe()
	defer b.Close()

	_, err := b.RecvUntil(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadPattern))
}

func TestPeekDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "hello"))

	got, err := b.Peek(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("hel"), got)

	got, err = b.RecvN(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestConcurrentReceiveIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		_, _ = b.RecvUntil(ctx, []byte("never")) // parks until cancel
	}()

	<-started
	time.Sleep(20 * time.Millisecond)

	_, err := b.RecvN(ctx, 1)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBusy))
	assert.True(t, errors.Is(err, ErrBusy))

	// Sends stay independent of the receive in flight.
	require.NoError(t, b.SendString(ctx, "out of band"))
	got, err := a.RecvN(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, []byte("out of band"), got)

	cancel()
	<-done
}

func TestSendLineAfter(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "login: "))

	got, err := b.SendLineAfter(ctx, []byte("login:"), []byte("alice"))
	require.NoError(t, err)
	assert.Equal(t, []byte("login:"), got)

	line, err := a.RecvLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("alice\n"), line)
}

func TestReceiveAfterCloseFails(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()

	// Land a byte so b's reader is parked mid-delivery when Close runs;
	// that path exits without closing the chunk channel.
	require.NoError(t, a.SendString(ctx, "x"))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Close())

	errc := make(chan error, 1)
	go func() {
		_, err := b.RecvN(ctx, 2)
		errc <- err
	}()

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.True(t, IsKind(err, KindIO))
	case <-time.After(2 * time.Second):
		t.Fatal("receive on a closed tube did not fail")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a, b := Pipe()
	defer b.Close()

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	// The peer observes EOF once the closed side is gone.
	_, err := b.RecvN(context.Background(), 1)
	require.Error(t, err)
}

func TestRawRejectsHalfCloseWhenUnsupported(t *testing.T) {
	r, w := io.Pipe()
	defer r.Close()
	defer w.Close()

	tr := Raw(struct {
		io.Reader
		io.Writer
	}{r, w})
	assert.Error(t, tr.CloseWrite())
}
