package diskio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathBuilder(t *testing.T) {
	var b PathBuilder
	b.Reset("/tmp/torrents").Push("sub").Push("file.dat")
	require.Equal(t, "/tmp/torrents/sub/file.dat", b.String())
}

func TestPathBuilderResetDiscardsPriorPushes(t *testing.T) {
	var b PathBuilder
	b.Reset("/a").Push("b").Push("c")
	b.Reset("/x")
	require.Equal(t, "/x", b.String())
}

func TestBufferCacheIndependentPathBuilders(t *testing.T) {
	c := NewBufferCache()
	p1 := c.PathBuilder1("/a").Push("one")
	p2 := c.PathBuilder2("/b").Push("two")
	require.Equal(t, "/a/one", p1.String())
	require.Equal(t, "/b/two", p2.String())
}

func TestBufferCachePieceBufferGrows(t *testing.T) {
	c := NewBufferCache()
	buf := c.PieceBuffer(10)
	require.Len(t, buf, 10)
	buf[0] = 0xFF

	bigger := c.PieceBuffer(20)
	require.Len(t, bigger, 20)

	smaller := c.PieceBuffer(5)
	require.Len(t, smaller, 5)
	require.Equal(t, byte(0xFF), smaller[0])
}
