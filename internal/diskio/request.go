package diskio

import "github.com/kraken-torrent/diskd/torlib"

// Ctx identifies the peer/torrent/piece/block a Read request was issued on
// behalf of, threaded through unchanged to the ReadResponse.
type Ctx struct {
	PID    uint64
	TID    uint64
	Idx    uint32
	Begin  uint32
	Length uint32
}

// Request is a tagged variant consumed by the executor. Each concrete type
// implements execute against the executor's File Cache and Buffer Cache, and
// reports whether it may run concurrently with other in-flight requests.
type Request interface {
	// Concurrent reports whether this request may be interleaved with other
	// requests from the same producer. Only Validate returns false: the
	// engine must not run two Validate jobs against the same torrent info
	// at once.
	Concurrent() bool

	execute(e *Executor) (JobResult, error)
}

// WriteRequest writes data sliced by locations into the files locations
// addresses.
type WriteRequest struct {
	TID       uint64
	Data      []byte
	Locations *torlib.LocationIterator
	Path      string // overrides Config.DownloadDir when non-empty
}

// ReadRequest reads bytes addressed by locations into Data, ultimately
// returned as a ReadResponse.
type ReadRequest struct {
	Ctx       Ctx
	Data      []byte
	Locations *torlib.LocationIterator
	Path      string
}

// SerializeRequest persists torrent resume data atomically.
type SerializeRequest struct {
	TID  uint64
	Data []byte
	Hash torlib.InfoHash
}

// DeleteRequest removes a torrent's session metadata and, optionally, its
// content files.
type DeleteRequest struct {
	TID       uint64
	Hash      torlib.InfoHash
	Files     []string
	Path      string
	Artifacts bool
}

// MoveRequest relocates a torrent's content directory, tolerating a
// cross-filesystem source/destination pair.
type MoveRequest struct {
	TID    uint64
	From   string
	To     string
	Target string
}

// ValidateRequest is the resumable whole-torrent verification job. Idx and
// Invalid carry state forward across time-sliced Update continuations.
type ValidateRequest struct {
	TID     uint64
	Info    *torlib.Info
	Path    string
	Idx     uint32
	Invalid []uint32
}

// ValidatePieceRequest verifies a single piece.
type ValidatePieceRequest struct {
	TID   uint64
	Info  *torlib.Info
	Path  string
	Piece uint32
}

// WriteFileRequest writes an arbitrary byte slice to an absolute path via
// temp-file-then-rename. No response is emitted; failures are logged.
type WriteFileRequest struct {
	Data []byte
	Path string
}

// FreeSpaceRequest queries available space on the download filesystem.
type FreeSpaceRequest struct{}

// PingRequest is a no-op used to detect worker liveness.
type PingRequest struct{}

// ShutdownRequest drains the queue and terminates the worker. It is never
// dispatched through execute; the reactor checks for it directly.
type ShutdownRequest struct{}

// tid returns the torrent id associated with req, when it carries one. Used
// by the reactor to tag Error responses per §7.
func tid(req Request) (uint64, bool) {
	switch r := req.(type) {
	case WriteRequest:
		return r.TID, true
	case ReadRequest:
		return r.Ctx.TID, true
	case SerializeRequest:
		return r.TID, true
	case DeleteRequest:
		return r.TID, true
	case MoveRequest:
		return r.TID, true
	case ValidateRequest:
		return r.TID, true
	case ValidatePieceRequest:
		return r.TID, true
	default:
		return 0, false
	}
}

func (WriteRequest) Concurrent() bool         { return true }
func (ReadRequest) Concurrent() bool          { return true }
func (SerializeRequest) Concurrent() bool     { return true }
func (DeleteRequest) Concurrent() bool        { return true }
func (MoveRequest) Concurrent() bool          { return true }
func (r ValidateRequest) Concurrent() bool    { return false }
func (ValidatePieceRequest) Concurrent() bool { return true }
func (WriteFileRequest) Concurrent() bool     { return true }
func (FreeSpaceRequest) Concurrent() bool     { return true }
func (PingRequest) Concurrent() bool          { return true }
func (ShutdownRequest) Concurrent() bool      { return true }

// execute is never called in practice: the reactor intercepts Shutdown
// before handing requests to the executor. It exists only to satisfy the
// Request interface.
func (ShutdownRequest) execute(e *Executor) (JobResult, error) {
	return doneResult(), nil
}
