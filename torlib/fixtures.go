package torlib

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
)

const fixtureTempDir = "/tmp/diskd_fixtures"

func init() {
	os.MkdirAll(fixtureTempDir, 0755)
}

// randomText returns n bytes of pseudo-random content, suitable for
// generating deterministic-enough fixture file bodies.
func randomText(n uint64) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

// InfoHashFixture returns a randomly generated InfoHash.
func InfoHashFixture() InfoHash {
	return InfoFixture().mustInfoHash()
}

func (info *Info) mustInfoHash() InfoHash {
	h, err := info.ComputeInfoHash()
	if err != nil {
		panic(err)
	}
	return h
}

// TestTorrentFile joins an Info with the file contents used to generate it.
// Content is indexed the same way as Info.Files: Content[i] is the body of
// Files[i]. No files are written to disk, so there's nothing to clean up.
type TestTorrentFile struct {
	Info    *Info
	Content [][]byte
}

// CustomTestTorrentFileFixture returns a randomly generated single-file
// TestTorrentFile of the given size and piece length.
func CustomTestTorrentFileFixture(size uint64, pieceLength uint64) *TestTorrentFile {
	return MultiFileTestTorrentFileFixture([]uint64{size}, pieceLength)
}

// MultiFileTestTorrentFileFixture returns a randomly generated multi-file
// TestTorrentFile whose files have the given sizes, in order.
func MultiFileTestTorrentFileFixture(sizes []uint64, pieceLength uint64) *TestTorrentFile {
	var files []FileEntry
	var contents [][]byte
	var blob bytes.Buffer
	for i, size := range sizes {
		content := randomText(size)
		contents = append(contents, content)
		files = append(files, FileEntry{
			Path:   fmt.Sprintf("file%d.dat", i),
			Length: int64(size),
		})
		blob.Write(content)
	}
	info, err := NewInfo(fmt.Sprintf("torrent_%d", rand.Int63()), files, int64(pieceLength), &blob)
	if err != nil {
		panic(err)
	}
	return &TestTorrentFile{Info: info, Content: contents}
}

// TestTorrentFileFixture returns a randomly generated single-file
// TestTorrentFile.
func TestTorrentFileFixture() *TestTorrentFile {
	return CustomTestTorrentFileFixture(128, 32)
}

// InfoFixture returns a randomly generated single-file Info.
func InfoFixture() *Info {
	return TestTorrentFileFixture().Info
}

// CustomInfoFixture returns a randomly generated single-file Info of the
// given size and piece length.
func CustomInfoFixture(size, pieceLength uint64) *Info {
	return CustomTestTorrentFileFixture(size, pieceLength).Info
}

// WriteTestTorrentFiles writes each file of ttf to dir, returning the paths
// written to, in Info.Files order.
func WriteTestTorrentFiles(dir string, ttf *TestTorrentFile) ([]string, error) {
	var paths []string
	for i, f := range ttf.Info.Files {
		path := dir + string(os.PathSeparator) + f.Path
		if err := ioutil.WriteFile(path, ttf.Content[i], 0644); err != nil {
			return nil, fmt.Errorf("write %s: %s", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
