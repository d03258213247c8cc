package diskio

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/kraken-torrent/diskd/torlib"
)

func newTestExecutor(t *testing.T) (*Executor, func()) {
	dir, err := ioutil.TempDir("", "diskio_executor_test")
	require.NoError(t, err)

	e, err := NewExecutor(Config{
		SessionDir:  dir,
		DownloadDir: dir,
		TimeSlice:   time.Second,
	}, clock.New(), nil, nil)
	require.NoError(t, err)

	return e, func() { os.RemoveAll(dir) }
}

func TestExecutorWriteThenRead(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	ttf := torlib.MultiFileTestTorrentFileFixture([]uint64{10, 10}, 16)

	locs, err := torlib.NewPieceLocationIterator(ttf.Info, 0, true)
	require.NoError(t, err)
	data := append(append([]byte{}, ttf.Content[0]...), ttf.Content[1][:6]...)

	wr := WriteRequest{TID: 1, Data: data, Locations: locs, Path: e.config.DownloadDir}
	_, err = e.Execute(wr)
	require.NoError(t, err)

	readLocs, err := torlib.NewPieceLocationIterator(ttf.Info, 0, false)
	require.NoError(t, err)
	out := make([]byte, len(data))
	rr := ReadRequest{Ctx: Ctx{TID: 1, Idx: 0}, Data: out, Locations: readLocs, Path: e.config.DownloadDir}
	result, err := e.Execute(rr)
	require.NoError(t, err)
	resp, ok := result.Response()
	require.True(t, ok)
	readResp := resp.(ReadResponse)
	require.Equal(t, data, readResp.Data)
}

func TestExecutorValidatePieceDetectsCorruption(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	ttf := torlib.MultiFileTestTorrentFileFixture([]uint64{32}, 32)
	_, err := torlib.WriteTestTorrentFiles(e.config.DownloadDir, ttf)
	require.NoError(t, err)

	valid := e.validatePiece(ttf.Info, e.config.DownloadDir, 0)
	require.True(t, valid)

	// Corrupt the file on disk.
	path := filepath.Join(e.config.DownloadDir, ttf.Info.Files[0].Path)
	require.NoError(t, ioutil.WriteFile(path, make([]byte, 32), 0644))

	valid = e.validatePiece(ttf.Info, e.config.DownloadDir, 0)
	require.False(t, valid)
}

func TestExecutorValidateRequestCompletesWithinOneSlice(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	ttf := torlib.MultiFileTestTorrentFileFixture([]uint64{96}, 32)
	_, err := torlib.WriteTestTorrentFiles(e.config.DownloadDir, ttf)
	require.NoError(t, err)

	req := ValidateRequest{TID: 1, Info: ttf.Info, Path: e.config.DownloadDir}
	result, err := e.Execute(req)
	require.NoError(t, err)
	resp, ok := result.Response()
	require.True(t, ok)
	complete := resp.(ValidationCompleteResponse)
	require.Empty(t, complete.Invalid)
	_, hasNext := result.Next()
	require.False(t, hasNext)
}

func TestExecutorValidateRequestCompletesUnderFrozenMockClock(t *testing.T) {
	dir, err := ioutil.TempDir("", "diskio_executor_test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	mock := clock.NewMock()
	e, err := NewExecutor(Config{
		SessionDir:  dir,
		DownloadDir: dir,
		TimeSlice:   time.Millisecond,
	}, mock, nil, nil)
	require.NoError(t, err)

	ttf := torlib.MultiFileTestTorrentFileFixture([]uint64{64}, 32)
	_, err = torlib.WriteTestTorrentFiles(dir, ttf)
	require.NoError(t, err)

	// validatePiece itself doesn't advance the mock clock, so the deadline
	// (set once at entry) never elapses mid-loop; assert Validate still
	// completes deterministically under a mock clock that never advances.
	req := ValidateRequest{TID: 1, Info: ttf.Info, Path: dir}
	result, err := e.Execute(req)
	require.NoError(t, err)
	_, isComplete := result.Response()
	require.True(t, isComplete)
}

func TestExecutorSerializeThenDeleteSessionFile(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	hash := torlib.InfoHashFixture()
	req := SerializeRequest{TID: 1, Data: []byte("resume data"), Hash: hash}
	_, err := e.Execute(req)
	require.NoError(t, err)

	path := filepath.Join(e.config.SessionDir, hash.HexString())
	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "resume data", string(got))

	del := DeleteRequest{TID: 1, Hash: hash, Artifacts: false}
	_, err = e.Execute(del)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestExecutorMoveSameFilesystem(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	from := filepath.Join(e.config.DownloadDir, "from")
	to := filepath.Join(e.config.DownloadDir, "to")
	require.NoError(t, os.MkdirAll(filepath.Join(from, "torrent"), 0755))
	require.NoError(t, os.MkdirAll(to, 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(from, "torrent", "a.dat"), []byte("x"), 0644))

	req := MoveRequest{TID: 1, From: from, To: to, Target: "torrent"}
	result, err := e.Execute(req)
	require.NoError(t, err)
	resp, ok := result.Response()
	require.True(t, ok)
	require.Equal(t, MovedResponse{TID: 1, Path: to}, resp)

	got, err := ioutil.ReadFile(filepath.Join(to, "torrent", "a.dat"))
	require.NoError(t, err)
	require.Equal(t, "x", string(got))
	_, err = os.Stat(filepath.Join(from, "torrent"))
	require.True(t, os.IsNotExist(err))
}

func TestExecutorWriteFileRequest(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	path := filepath.Join(e.config.DownloadDir, "job.json")
	req := WriteFileRequest{Data: []byte("hello"), Path: path}
	_, err := e.Execute(req)
	require.NoError(t, err)

	got, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestExecutorFreeSpaceRequest(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	result, err := e.Execute(FreeSpaceRequest{})
	require.NoError(t, err)
	resp, ok := result.Response()
	require.True(t, ok)
	_, ok = resp.(FreeSpaceResponse)
	require.True(t, ok)
}

func TestExecutorPingRequest(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	result, err := e.Execute(PingRequest{})
	require.NoError(t, err)
	_, hasResp := result.Response()
	require.False(t, hasResp)
}
