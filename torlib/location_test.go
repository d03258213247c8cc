package torlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocationIteratorSingleFileWholePiece(t *testing.T) {
	info := CustomInfoFixture(128, 32)
	it, err := NewPieceLocationIterator(info, 1, true)
	require.NoError(t, err)

	loc, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, 0, loc.File)
	require.Equal(t, int64(32), loc.Offset)
	require.Equal(t, 0, loc.Start)
	require.Equal(t, 32, loc.End)
	require.True(t, loc.Allocate)

	_, ok = it.Next()
	require.False(t, ok)
}

func TestLocationIteratorSpansFileBoundary(t *testing.T) {
	// Two files of 10 bytes each, piece length 16: piece 0 spans bytes
	// [0,16), which covers all of file0 (0-10) and the first 6 bytes of
	// file1 (10-16).
	ttf := MultiFileTestTorrentFileFixture([]uint64{10, 10}, 16)
	it, err := NewPieceLocationIterator(ttf.Info, 0, false)
	require.NoError(t, err)

	loc1, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, 0, loc1.File)
	require.Equal(t, 0, loc1.Start)
	require.Equal(t, 10, loc1.End)

	loc2, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, 1, loc2.File)
	require.Equal(t, int64(0), loc2.Offset)
	require.Equal(t, 10, loc2.Start)
	require.Equal(t, 16, loc2.End)

	_, ok = it.Next()
	require.False(t, ok)
}

func TestLocationIteratorPartialRange(t *testing.T) {
	info := CustomInfoFixture(128, 32)
	it, err := NewLocationIterator(info, 0, 4, 10, false)
	require.NoError(t, err)

	loc, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, 4, loc.Start)
	require.Equal(t, 14, loc.End)
	require.Equal(t, int64(4), loc.Offset)
}

func TestLocationIteratorRejectsOutOfBoundsPiece(t *testing.T) {
	info := CustomInfoFixture(128, 32)
	_, err := NewPieceLocationIterator(info, info.NumPieces(), false)
	require.Error(t, err)
}

func TestLocationIteratorRejectsRangeExceedingPiece(t *testing.T) {
	info := CustomInfoFixture(128, 32)
	_, err := NewLocationIterator(info, 0, 0, 33, false)
	require.Error(t, err)
}

func TestLocationPathAndLen(t *testing.T) {
	ttf := MultiFileTestTorrentFileFixture([]uint64{10, 10}, 16)
	it, err := NewPieceLocationIterator(ttf.Info, 0, false)
	require.NoError(t, err)
	loc, _ := it.Next()
	require.Equal(t, "file0.dat", loc.Path())
	require.Equal(t, 10, loc.Len())
}
