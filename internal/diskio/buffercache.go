package diskio

import "os"

// PathBuilder is a mutable absolute-path accumulator. Reset truncates it
// back to a supplied base; subsequent Push calls amortise the allocation
// that would otherwise occur on every path join.
type PathBuilder struct {
	buf []byte
}

// Reset truncates the builder to base, discarding anything appended since
// the last Reset.
func (b *PathBuilder) Reset(base string) *PathBuilder {
	b.buf = append(b.buf[:0], base...)
	return b
}

// Push appends a path component, separated from whatever is already in the
// builder by the OS path separator.
func (b *PathBuilder) Push(component string) *PathBuilder {
	if len(b.buf) > 0 && b.buf[len(b.buf)-1] != os.PathSeparator {
		b.buf = append(b.buf, os.PathSeparator)
	}
	b.buf = append(b.buf, component...)
	return b
}

// String returns the accumulated path.
func (b *PathBuilder) String() string {
	return string(b.buf)
}

// BufferCache owns the executor's three reusable scratch buffers: a
// piece-sized byte buffer used for hashing and streaming, and two
// independent path builders so a single job (Move, Serialize) may hold two
// distinct paths at once without aliasing. None of these are shared across
// jobs or goroutines; the executor is their sole owner.
type BufferCache struct {
	piece []byte
	pb1   PathBuilder
	pb2   PathBuilder
}

// NewBufferCache returns an empty BufferCache.
func NewBufferCache() *BufferCache {
	return &BufferCache{}
}

// PieceBuffer returns a byte slice of length exactly n, grown in place and
// not zeroed on reuse.
func (c *BufferCache) PieceBuffer(n int) []byte {
	if cap(c.piece) < n {
		grown := make([]byte, n)
		copy(grown, c.piece[:cap(c.piece)])
		c.piece = grown
	}
	return c.piece[:n]
}

// PathBuilder1 returns the first of the two path builders, reset to base.
func (c *BufferCache) PathBuilder1(base string) *PathBuilder {
	return c.pb1.Reset(base)
}

// PathBuilder2 returns the second of the two path builders, reset to base.
func (c *BufferCache) PathBuilder2(base string) *PathBuilder {
	return c.pb2.Reset(base)
}
