package torlib

import "fmt"

// Location maps one contiguous slice of a piece onto one file: the byte
// range [Start, End) of the piece buffer corresponds to [Offset, Offset +
// (End - Start)) of Files[File].
type Location struct {
	File     int
	FileLen  int64
	Offset   int64
	Start    int
	End      int
	Allocate bool

	info *Info
}

// Path returns the path of the file this location refers to, relative to
// the torrent's top-level directory.
func (l Location) Path() string {
	return l.info.Files[l.File].Path
}

// Len returns the number of bytes this location covers.
func (l Location) Len() int {
	return l.End - l.Start
}

func (l Location) String() string {
	return fmt.Sprintf("Location{file: %d, off: %d, s: %d, e: %d}", l.File, l.Offset, l.Start, l.End)
}

// LocationIterator is a lazy, finite sequence of Locations produced from a
// (torrent, piece) or (torrent, piece, begin, length) query. It is cheap to
// construct and consumed by a single goroutine (the disk executor); it holds
// no buffers of its own.
type LocationIterator struct {
	info *Info

	fileIdx  int   // next candidate file index
	pos      int64 // absolute stream offset of the next byte to emit
	end      int64 // absolute stream offset, exclusive, of the range to cover
	allocate bool

	pieceStart int64 // absolute stream offset where the piece begins, used to compute Start/End
}

// NewPieceLocationIterator returns a LocationIterator covering the entirety
// of piece p.
func NewPieceLocationIterator(info *Info, p int, allocate bool) (*LocationIterator, error) {
	return NewLocationIterator(info, p, 0, info.PieceLen(p), allocate)
}

// NewLocationIterator returns a LocationIterator covering [begin, begin+length)
// within piece p, allocate indicating whether each referenced file should be
// preallocated on first write.
func NewLocationIterator(info *Info, p int, begin int64, length int64, allocate bool) (*LocationIterator, error) {
	if p < 0 || p >= info.NumPieces() {
		return nil, fmt.Errorf("piece index %d out of range [0, %d)", p, info.NumPieces())
	}
	pieceStart := int64(p) * info.PieceLength
	start := pieceStart + begin
	end := start + length
	if begin < 0 || length < 0 || end > pieceStart+info.PieceLen(p) {
		return nil, fmt.Errorf("range [%d, %d) exceeds piece %d bounds", begin, begin+length, p)
	}
	it := &LocationIterator{
		info:       info,
		pos:        start,
		end:        end,
		allocate:   allocate,
		pieceStart: pieceStart,
	}
	it.seekFile()
	return it, nil
}

// seekFile advances fileIdx until it points at the file containing it.pos.
func (it *LocationIterator) seekFile() {
	for it.fileIdx < len(it.info.Files)-1 {
		fileEnd := it.info.fileOffset(it.fileIdx) + it.info.Files[it.fileIdx].Length
		if it.pos < fileEnd {
			break
		}
		it.fileIdx++
	}
}

// Next returns the next Location in the sequence. ok is false once the
// iterator is exhausted.
func (it *LocationIterator) Next() (Location, bool) {
	if it.pos >= it.end {
		return Location{}, false
	}
	it.seekFile()

	file := it.info.Files[it.fileIdx]
	fileStart := it.info.fileOffset(it.fileIdx)
	fileEnd := fileStart + file.Length

	chunkEnd := it.end
	if fileEnd < chunkEnd {
		chunkEnd = fileEnd
	}

	loc := Location{
		File:     it.fileIdx,
		FileLen:  file.Length,
		Offset:   it.pos - fileStart,
		Start:    int(it.pos - it.pieceStart),
		End:      int(chunkEnd - it.pieceStart),
		Allocate: it.allocate,
		info:     it.info,
	}
	it.pos = chunkEnd
	return loc, true
}

// fileOffset returns the cumulative offset of Files[i] within the logical
// stream, recomputing the index if necessary (e.g. after deserialization).
func (info *Info) fileOffset(i int) int64 {
	info.ensureIndexed()
	return info.fileOffsets[i]
}
