package diskio

import (
	"fmt"
	"path"
	"strings"

	"github.com/kraken-torrent/diskd/internal/diskio/nbio"
)

// HTTPRange is one byte range of a Download request, in the same units as
// an HTTP Range header: Start is the first byte, Length the count of bytes.
type HTTPRange struct {
	Start  int64
	Length int64
}

// DownloadRequest streams an HTTP/1.1 response for one or more byte ranges
// of a file already known to be complete on disk. Its fields double as the
// state carried across Paused/Blocked continuations.
type DownloadRequest struct {
	Client    nbio.Socket
	Path      string
	FileLen   int64
	Ranged    bool
	ReactorID int

	ranges   []HTTPRange
	rangeIdx int
	writing  bool
	buf      [BounceBufferSize]byte
	bufIdx   int
	bufMax   int
}

func (DownloadRequest) Concurrent() bool { return true }

// NewDownloadRequest builds the initial DownloadRequest for the given file
// and ranges, pre-encoding the response headers (and, for ranged==true with
// exactly one range, collapsing to the single-range form per §6).
func NewDownloadRequest(client nbio.Socket, filePath string, ranges []HTTPRange, requestedRanged bool, fileLen int64) *DownloadRequest {
	// A single requested range collapses to the plain single-range form
	// with a top-level Content-Range rather than multipart; only 2+ ranges
	// use the multipart encoding below.
	ranged := requestedRanged && len(ranges) > 1

	var lines []string
	switch {
	case ranged:
		lines = []string{
			"HTTP/1.1 206 Partial Content",
			"Accept-Ranges: bytes",
			fmt.Sprintf("Content-Type: multipart/byteranges; boundary=%s", boundary),
			"Connection: Close",
			"\r\n",
		}
	case requestedRanged:
		r := ranges[0]
		lines = []string{
			"HTTP/1.1 206 Partial Content",
			fmt.Sprintf("Content-Length: %d", r.Length),
			fmt.Sprintf("Content-Range: bytes %d-%d/%d", r.Start, r.Start+r.Length-1, fileLen),
			"Accept-Ranges: bytes",
			"Content-Type: application/octet-stream",
			"Connection: Close",
			"\r\n",
		}
	default:
		lines = []string{
			"HTTP/1.1 200 OK",
			"Accept-Ranges: bytes",
			fmt.Sprintf("Content-Length: %d", fileLen),
			"Content-Type: application/octet-stream",
			fmt.Sprintf("Content-Disposition: attachment; filename=%q", path.Base(filePath)),
			"Connection: Close",
			"\r\n",
		}
	}
	data := strings.Join(lines, "\r\n")

	req := &DownloadRequest{
		Client:  client,
		Path:    filePath,
		FileLen: fileLen,
		Ranged:  ranged,
		writing: true,
		bufMax:  len(data),
	}
	copy(req.buf[:len(data)], data)

	if ranged {
		// Sentinel zero-length range so the first loop iteration formats
		// the first part header uniformly, the same way a part header is
		// formatted after every subsequent range.
		req.ranges = append([]HTTPRange{{Start: 0, Length: 0}}, ranges...)
	} else {
		req.ranges = ranges
	}
	return req
}

func (r *DownloadRequest) execute(e *Executor) (JobResult, error) {
	deadline := e.clock.Now().Add(e.config.TimeSlice)
	for e.clock.Now().Before(deadline) {
		if r.writing {
			n, result, err := nbio.Write(r.Client, r.buf[r.bufIdx:r.bufMax])
			switch result {
			case nbio.Complete:
				r.writing = false
			case nbio.Incomplete:
				r.bufIdx += n
			case nbio.Blocked:
				return blockedResult(r.ReactorID, r), nil
			case nbio.EOF, nbio.Err:
				return JobResult{}, ErrPeerSocket
			}
			if err != nil && result != nbio.Blocked {
				return JobResult{}, err
			}
			continue
		}

		if r.rangeIdx == len(r.ranges) {
			return doneResult(), nil
		}

		if r.ranges[r.rangeIdx].Length == 0 {
			r.rangeIdx++
			if r.rangeIdx == len(r.ranges) {
				if r.Ranged {
					closer := fmt.Sprintf("\r\n--%s--", boundary)
					r.bufIdx = 0
					r.bufMax = len(closer)
					copy(r.buf[:len(closer)], closer)
					r.writing = true
				}
				continue
			}
			rr := r.ranges[r.rangeIdx]
			part := strings.Join([]string{
				fmt.Sprintf("\r\n--%s", boundary),
				"Content-Type: application/octet-stream",
				fmt.Sprintf("Content-Range: bytes %d-%d/%d", rr.Start, rr.Start+rr.Length-1, r.FileLen),
				"\r\n",
			}, "\r\n")
			r.bufIdx = 0
			r.bufMax = len(part)
			copy(r.buf[:len(part)], part)
			r.writing = true
			continue
		}

		rr := &r.ranges[r.rangeIdx]
		amnt := rr.Length
		if amnt > BounceBufferSize {
			amnt = BounceBufferSize
		}
		if err := e.files.ReadRange(r.Path, rr.Start, r.buf[:amnt]); err != nil {
			return JobResult{}, err
		}
		rr.Length -= amnt
		rr.Start += amnt
		r.bufIdx = 0
		r.bufMax = int(amnt)
		r.writing = true
	}
	return pausedResult(r), nil
}
