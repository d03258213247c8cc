package diskio

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"syscall"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kraken-torrent/diskd/torlib"
	"github.com/kraken-torrent/diskd/utils/errutil"
)

// Executor runs Requests to completion or to their next suspension point. It
// is the sole owner of the File Cache and Buffer Cache; nothing about it is
// safe for concurrent use from more than one goroutine, which is by design —
// it is driven exclusively by the reactor loop in reactor.go.
type Executor struct {
	config Config
	files  *FileCache
	bufs   *BufferCache
	clock  clock.Clock
	log    *zap.SugaredLogger
	stats  tally.Scope
}

// NewExecutor constructs an Executor. clk and logger may be overridden for
// tests; a nil logger installs a no-op logger.
func NewExecutor(config Config, clk clock.Clock, logger *zap.SugaredLogger, stats tally.Scope) (*Executor, error) {
	config = config.applyDefaults()
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if stats == nil {
		stats = tally.NoopScope
	}
	files, err := NewFileCache(config.FileCacheCapacity, stats)
	if err != nil {
		return nil, fmt.Errorf("file cache: %s", err)
	}
	return &Executor{
		config: config,
		files:  files,
		bufs:   NewBufferCache(),
		clock:  clk,
		log:    logger,
		stats:  stats,
	}, nil
}

// Execute runs req, dispatching to its execute method. It is the only
// switch-free entry point the reactor calls; the tagged variant dispatch
// happens via the Request interface, not a type switch here.
func (e *Executor) Execute(req Request) (JobResult, error) {
	return req.execute(e)
}

func (e *Executor) basePath(override string) string {
	if override != "" {
		return override
	}
	return e.config.DownloadDir
}

func (r WriteRequest) execute(e *Executor) (JobResult, error) {
	base := e.basePath(r.Path)
	for {
		loc, ok := r.Locations.Next()
		if !ok {
			break
		}
		pb := e.bufs.PathBuilder1(base).Push(loc.Path())
		path := pb.String()
		var lenHint int64
		if loc.Allocate {
			lenHint = loc.FileLen
		}
		if err := e.files.WriteRange(path, lenHint, loc.Allocate, loc.Offset, r.Data[loc.Start:loc.End]); err != nil {
			return JobResult{}, err
		}
		if loc.Len() < BounceBufferSize {
			if err := e.files.FlushFile(path); err != nil {
				return JobResult{}, err
			}
		}
	}
	return doneResult(), nil
}

func (r ReadRequest) execute(e *Executor) (JobResult, error) {
	base := e.basePath(r.Path)
	for {
		loc, ok := r.Locations.Next()
		if !ok {
			break
		}
		pb := e.bufs.PathBuilder1(base).Push(loc.Path())
		if err := e.files.ReadRange(pb.String(), loc.Offset, r.Data[loc.Start:loc.End]); err != nil {
			return JobResult{}, err
		}
	}
	return respResult(ReadResponse{Ctx: r.Ctx, Data: r.Data}), nil
}

func (r SerializeRequest) execute(e *Executor) (JobResult, error) {
	hex := r.Hash.HexString()
	temp := e.bufs.PathBuilder1(e.config.SessionDir).Push(hex + ".temp").String()
	final := e.bufs.PathBuilder2(e.config.SessionDir).Push(hex).String()

	if err := ioutil.WriteFile(temp, r.Data, 0644); err != nil {
		os.Remove(temp)
		return JobResult{}, newIOErr(err)
	}
	if err := os.Rename(temp, final); err != nil {
		os.Remove(temp)
		return JobResult{}, newIOErr(err)
	}
	return doneResult(), nil
}

func (r DeleteRequest) execute(e *Executor) (JobResult, error) {
	hex := r.Hash.HexString()

	metaPath := e.bufs.PathBuilder1(e.config.SessionDir).Push(hex).String()
	os.Remove(metaPath)
	torrentPath := e.bufs.PathBuilder1(e.config.SessionDir).Push(hex + ".torrent").String()
	os.Remove(torrentPath)

	base := e.basePath(r.Path)
	var cleanupErrs []error
	for _, f := range r.Files {
		path := e.bufs.PathBuilder2(base).Push(f).String()
		e.files.RemoveFile(path)
		if r.Artifacts {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				cleanupErrs = append(cleanupErrs, fmt.Errorf("%s: %s", path, err))
			}
		}
	}
	if len(cleanupErrs) > 0 {
		e.log.Debugf("Failed to delete some artifact files: %s", errutil.Join(cleanupErrs))
	}

	if r.Artifacts && len(r.Files) > 0 {
		top := topLevelComponent(r.Files[0])
		dir := e.bufs.PathBuilder1(base).Push(top).String()
		os.Remove(dir) // ignores non-empty-directory errors by design
	}

	return doneResult(), nil
}

func topLevelComponent(rel string) string {
	rel = filepath.Clean(rel)
	parts := splitPath(rel)
	if len(parts) == 0 {
		return rel
	}
	return parts[0]
}

func splitPath(rel string) []string {
	var parts []string
	for {
		dir, file := filepath.Split(rel)
		if file != "" {
			parts = append([]string{file}, parts...)
		}
		if dir == "" || dir == rel {
			break
		}
		rel = filepath.Clean(dir)
		if rel == "." || rel == string(filepath.Separator) {
			break
		}
	}
	return parts
}

func (r MoveRequest) execute(e *Executor) (JobResult, error) {
	from := e.bufs.PathBuilder1(r.From).Push(r.Target).String()
	to := e.bufs.PathBuilder2(r.To).Push(r.Target).String()

	err := os.Rename(from, to)
	if err != nil && errors.Is(err, syscall.EXDEV) {
		if cerr := copyRecursive(from, to); cerr != nil {
			os.RemoveAll(to)
			e.log.Errorf("Cross-device copy failed: %s", cerr)
			return JobResult{}, newIOErr(cerr)
		}
		if rerr := os.RemoveAll(from); rerr != nil {
			return JobResult{}, newIOErr(rerr)
		}
		err = nil
	}
	if err != nil {
		return JobResult{}, newIOErr(err)
	}
	return respResult(MovedResponse{TID: r.TID, Path: r.To}), nil
}

// copyRecursive copies src to dst, which may be a single file or a
// directory tree. Used as the EXDEV fallback for Move.
func copyRecursive(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info)
	}
	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return err
	}
	entries, err := ioutil.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		s := filepath.Join(src, entry.Name())
		d := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyRecursive(s, d); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(s, d, entry); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func (r ValidatePieceRequest) execute(e *Executor) (JobResult, error) {
	valid := e.validatePiece(r.Info, r.Path, int(r.Piece))
	return respResult(PieceValidatedResponse{TID: r.TID, Piece: r.Piece, Valid: valid}), nil
}

// validatePiece hashes one piece and compares it against the expected
// digest, treating any read failure as invalid rather than aborting.
func (e *Executor) validatePiece(info *torlib.Info, path string, piece int) bool {
	buf := e.bufs.PieceBuffer(int(info.PieceLen(piece)))
	base := e.basePath(path)

	it, err := torlib.NewPieceLocationIterator(info, piece, false)
	if err != nil {
		return false
	}
	h := sha1.New()
	for {
		loc, ok := it.Next()
		if !ok {
			break
		}
		pb := e.bufs.PathBuilder1(base).Push(loc.Path())
		if err := e.files.ReadRange(pb.String(), loc.Offset, buf[loc.Start:loc.End]); err != nil {
			return false
		}
		h.Write(buf[loc.Start:loc.End])
	}
	want, err := info.PieceHash(piece)
	if err != nil {
		return false
	}
	sum := h.Sum(nil)
	if len(sum) != len(want) {
		return false
	}
	for i := range sum {
		if sum[i] != want[i] {
			return false
		}
	}
	return true
}

func (r ValidateRequest) execute(e *Executor) (JobResult, error) {
	idx := r.Idx
	invalid := r.Invalid
	total := uint32(r.Info.NumPieces())

	deadline := e.clock.Now().Add(e.config.TimeSlice)
	for idx < total && e.clock.Now().Before(deadline) {
		if !e.validatePiece(r.Info, r.Path, int(idx)) {
			invalid = append(invalid, idx)
		}
		idx++
	}

	if idx == total {
		return respResult(ValidationCompleteResponse{TID: r.TID, Invalid: invalid}), nil
	}
	next := ValidateRequest{TID: r.TID, Info: r.Info, Path: r.Path, Idx: idx, Invalid: invalid}
	percent := float32(idx) / float32(total)
	return updateResult(next, ValidationUpdateResponse{TID: r.TID, Percent: percent}), nil
}

func (r WriteFileRequest) execute(e *Executor) (JobResult, error) {
	temp := r.Path + ".temp"
	if err := ioutil.WriteFile(temp, r.Data, 0644); err != nil {
		e.log.Errorf("Failed to write disk job: %s", err)
		os.Remove(temp)
		return doneResult(), nil
	}
	if err := os.Rename(temp, r.Path); err != nil {
		e.log.Errorf("Failed to rename disk job: %s", err)
		os.Remove(temp)
	}
	return doneResult(), nil
}

func (r FreeSpaceRequest) execute(e *Executor) (JobResult, error) {
	bytes, err := statfsFreeSpace(e.config.DownloadDir)
	if err != nil {
		return JobResult{}, err
	}
	return respResult(FreeSpaceResponse{Bytes: bytes}), nil
}

func (r PingRequest) execute(e *Executor) (JobResult, error) {
	return doneResult(), nil
}
