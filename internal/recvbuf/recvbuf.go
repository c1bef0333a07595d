// Package recvbuf holds bytes pulled from a transport that the caller has
// not consumed yet. The buffer is append-only between consumes and keeps a
// scan cursor so pattern searches never revisit bytes they already rejected.
package recvbuf

// Buffer is a growable window of unconsumed bytes.
//
// Two cursors are tracked: the consumed offset (bytes handed back to the
// caller, logically gone) and the scanned offset (bytes the current search
// has examined without finding a match start). scanned never exceeds the
// unconsumed length. Consuming more than is buffered is a programmer error
// and panics.
type Buffer struct {
	data    []byte
	off     int // consumed offset into data
	scanned int // relative to the unconsumed start
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append extends the buffer with a copy-safe chunk. The caller must not
// reuse p afterwards.
func (b *Buffer) Append(p []byte) {
	if b.off == len(b.data) && b.off > 0 {
		b.data = b.data[:0]
		b.off = 0
	}
	b.data = append(b.data, p...)
}

// Len reports the number of unconsumed bytes.
func (b *Buffer) Len() int {
	return len(b.data) - b.off
}

// Bytes returns the unconsumed view. The slice is invalidated by the next
// Append or Consume.
func (b *Buffer) Bytes() []byte {
	return b.data[b.off:]
}

// Unscanned returns the portion of the unconsumed view the current search
// has not examined yet.
func (b *Buffer) Unscanned() []byte {
	return b.data[b.off+b.scanned:]
}

// Scanned reports the scan cursor relative to the unconsumed start.
func (b *Buffer) Scanned() int {
	return b.scanned
}

// MarkScanned advances the scan cursor by n bytes.
func (b *Buffer) MarkScanned(n int) {
	if n < 0 || b.scanned+n > b.Len() {
		panic("recvbuf: scan cursor beyond buffered data")
	}
	b.scanned += n
}

// ResetScan rewinds the scan cursor to the unconsumed start. Receive
// operations call this on entry since the previous search's progress is
// meaningless for a different pattern.
func (b *Buffer) ResetScan() {
	b.scanned = 0
}

// Peek returns a copy of up to n leading unconsumed bytes without moving
// any cursor.
func (b *Buffer) Peek(n int) []byte {
	if n > b.Len() {
		n = b.Len()
	}
	out := make([]byte, n)
	copy(out, b.data[b.off:])
	return out
}

// Consume removes and returns the first n unconsumed bytes. Panics if n
// exceeds the buffered length; callers locate a boundary before consuming.
func (b *Buffer) Consume(n int) []byte {
	if n < 0 || n > b.Len() {
		panic("recvbuf: consume beyond buffered data")
	}
	out := make([]byte, n)
	copy(out, b.data[b.off:])
	b.off += n
	b.scanned -= n
	if b.scanned < 0 {
		b.scanned = 0
	}
	b.compact()
	return out
}

// Take consumes and returns everything buffered.
func (b *Buffer) Take() []byte {
	return b.Consume(b.Len())
}

// compact reclaims the consumed prefix once it dominates the backing array.
func (b *Buffer) compact() {
	if b.off > 4096 && b.off*2 >= len(b.data) {
		n := copy(b.data, b.data[b.off:])
		b.data = b.data[:n]
		b.off = 0
	}
}
