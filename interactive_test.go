package tubes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockedInput returns a local-input reader that never yields data, plus a
// closer that releases the goroutine pumping it.
func blockedInput(t *testing.T) (io.Reader, func()) {
	t.Helper()
	pr, pw := io.Pipe()
	return pr, func() { _ = pw.Close(); _ = pr.Close() }
}

func TestInteractiveEndsOnRemoteEOF(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "goodbye"))
	require.NoError(t, a.CloseWrite())

	in, release := blockedInput(t)
	defer release()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- b.InteractiveWith(ctx, in, &out) }()

	// Remote EOF must end the session without waiting on local input.
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not terminate on remote EOF")
	}
	assert.Equal(t, "goodbye", out.String())
}

func TestInteractiveFlushesBufferedBytesFirst(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.SendString(ctx, "hello"))

	// Consume part of the first chunk; "llo" stays buffered on b.
	got, err := b.RecvN(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []byte("he"), got)

	require.NoError(t, a.SendString(ctx, "world"))
	require.NoError(t, a.CloseWrite())

	in, release := blockedInput(t)
	defer release()

	var out bytes.Buffer
	require.NoError(t, b.InteractiveWith(ctx, in, &out))
	assert.Equal(t, "lloworld", out.String())
}

func TestInteractiveForwardsLocalInputUntilEOF(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	var out bytes.Buffer
	err := b.InteractiveWith(ctx, strings.NewReader("ping"), &out)
	require.NoError(t, err, "local EOF is a clean termination")

	got, err := a.RecvN(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), got)
}

func TestInteractiveSurfacesLocalReadError(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	boom := errors.New("keyboard on fire")
	err := b.InteractiveWith(ctx, &failingReader{err: boom}, io.Discard)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestInteractiveCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	in, release := blockedInput(t)
	defer release()

	time.AfterFunc(30*time.Millisecond, cancel)
	err := b.InteractiveWith(ctx, in, io.Discard)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCancelled))
}

func TestInteractiveHoldsReceiveSide(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	in, release := blockedInput(t)
	defer release()

	done := make(chan error, 1)
	go func() { done <- b.InteractiveWith(ctx, in, io.Discard) }()
	time.Sleep(20 * time.Millisecond)

	_, err := b.RecvN(ctx, 1)
	assert.True(t, IsKind(err, KindBusy))

	cancel()
	<-done
}

type failingReader struct {
	err error
}

func (f *failingReader) Read([]byte) (int, error) {
	return 0, f.err
}
