package torlib

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	bencode "github.com/jackpal/bencode-go"
)

const pieceHashSize = sha1.Size

// FileEntry describes one file within a (possibly multi-file) torrent: its
// path relative to the torrent's top-level directory, and its length.
type FileEntry struct {
	Path   string `bencode:"path" json:"path"`
	Length int64  `bencode:"length" json:"length"`
}

// Info is a torrent info dictionary: the immutable description of how a
// torrent's content is split into pieces and laid out across files.
//
// Info is shared by reference across every job that touches a given
// torrent (Write, Read, Validate, ValidatePiece); nothing on Info is ever
// mutated after construction, so no locking is required to share it.
type Info struct {
	PieceLength int64       `bencode:"piece length" json:"piece_length"`
	Pieces      Pieces      `bencode:"pieces" json:"pieces"`
	Name        string      `bencode:"name" json:"name"`
	Files       []FileEntry `bencode:"files" json:"files"`

	// fileOffsets[i] is the cumulative byte offset of Files[i] within the
	// concatenated logical stream. Computed once at construction time.
	fileOffsets []int64
}

// NewInfo builds an Info for a multi-file torrent whose content is supplied
// by blob, split into pieceLength chunks and hashed with SHA-1. files must
// sum to the same length as blob.
func NewInfo(name string, files []FileEntry, pieceLength int64, blob io.Reader) (*Info, error) {
	if pieceLength <= 0 {
		return nil, errors.New("piece length must be positive")
	}
	if len(files) == 0 {
		return nil, errors.New("torrent must have at least one file")
	}
	pieces, err := generatePieces(blob, pieceLength)
	if err != nil {
		return nil, fmt.Errorf("generate pieces: %s", err)
	}
	info := &Info{
		PieceLength: pieceLength,
		Pieces:      pieces,
		Name:        name,
		Files:       files,
	}
	info.indexFiles()
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

// NewInfoFromDir walks files rooted at dir (each path given relative to dir)
// and builds an Info from their concatenated contents, in the order given.
func NewInfoFromDir(name, dir string, relPaths []string, pieceLength int64) (*Info, error) {
	var files []FileEntry
	var readers []io.Reader
	for _, rel := range relPaths {
		fi, err := os.Stat(dir + string(os.PathSeparator) + rel)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %s", rel, err)
		}
		f, err := os.Open(dir + string(os.PathSeparator) + rel)
		if err != nil {
			return nil, fmt.Errorf("open %s: %s", rel, err)
		}
		defer f.Close()
		files = append(files, FileEntry{Path: rel, Length: fi.Size()})
		readers = append(readers, f)
	}
	return NewInfo(name, files, pieceLength, io.MultiReader(readers...))
}

// indexFiles computes the cumulative offset of each file within the logical
// torrent stream.
func (info *Info) indexFiles() {
	info.fileOffsets = make([]int64, len(info.Files))
	var off int64
	for i, f := range info.Files {
		info.fileOffsets[i] = off
		off += f.Length
	}
}

// ensureIndexed lazily recomputes fileOffsets after deserialization, since
// the unexported field is never (de)serialized.
func (info *Info) ensureIndexed() {
	if len(info.fileOffsets) != len(info.Files) {
		info.indexFiles()
	}
}

// TotalLength returns the sum of the length of every file in the torrent.
func (info *Info) TotalLength() int64 {
	info.ensureIndexed()
	if len(info.Files) == 0 {
		return 0
	}
	last := len(info.Files) - 1
	return info.fileOffsets[last] + info.Files[last].Length
}

// NumPieces returns the number of pieces in the torrent.
func (info *Info) NumPieces() int {
	return len(info.Pieces) / pieceHashSize
}

// PieceLen returns the length of piece p in bytes, which is PieceLength for
// every piece except possibly the last.
func (info *Info) PieceLen(p int) int64 {
	if p == info.NumPieces()-1 {
		if rem := info.TotalLength() % info.PieceLength; rem != 0 {
			return rem
		}
	}
	return info.PieceLength
}

// PieceHash returns the expected SHA-1 digest of piece p.
func (info *Info) PieceHash(piece int) ([]byte, error) {
	if piece < 0 || piece >= info.NumPieces() {
		return nil, fmt.Errorf("piece index %d out of range [0, %d)", piece, info.NumPieces())
	}
	start := piece * pieceHashSize
	end := start + pieceHashSize
	hash := make([]byte, pieceHashSize)
	copy(hash, info.Pieces[start:end])
	return hash, nil
}

// Validate returns an error if info's fields are internally inconsistent.
func (info *Info) Validate() error {
	if len(info.Pieces)%pieceHashSize != 0 {
		return errors.New("pieces has invalid length")
	}
	if info.PieceLength <= 0 {
		return errors.New("piece length must be positive")
	}
	wantPieces := int((info.TotalLength() + info.PieceLength - 1) / info.PieceLength)
	if wantPieces != info.NumPieces() {
		return fmt.Errorf(
			"piece count and file lengths are at odds: have %d pieces, files imply %d",
			info.NumPieces(), wantPieces)
	}
	return nil
}

// ComputeInfoHash returns the InfoHash identifying this torrent.
func (info *Info) ComputeInfoHash() (InfoHash, error) {
	var b bytes.Buffer
	if err := bencode.Marshal(&b, *info); err != nil {
		return InfoHash{}, fmt.Errorf("bencode: %s", err)
	}
	return NewInfoHashFromBytes(b.Bytes()), nil
}

// Serialize returns info encoded for debug/log output. Wire persistence of
// torrent metadata uses bencode (see ComputeInfoHash), not this form.
func (info *Info) Serialize() ([]byte, error) {
	return json.Marshal(info)
}

// generatePieces hashes blob content in pieceLength chunks, returning the
// concatenated SHA-1 digests.
func generatePieces(blob io.Reader, pieceLength int64) (Pieces, error) {
	var pieces Pieces
	for {
		h := sha1.New()
		n, err := io.CopyN(h, blob, pieceLength)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read blob: %s", err)
		}
		if n == 0 {
			break
		}
		pieces = h.Sum(pieces)
		if n < pieceLength {
			break
		}
	}
	return pieces, nil
}
