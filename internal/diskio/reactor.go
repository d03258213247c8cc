package diskio

import (
	"container/list"

	"golang.org/x/sys/unix"

	"github.com/kraken-torrent/diskd/internal/diskio/nbio"
)

// Reactor is the single goroutine the disk engine runs on. It drains the
// inbound request channel, executes each request against the Executor up to
// its time slice, re-queues continuations at the back of the queue, and
// polls Download jobs parked on a would-block socket for writability, so it
// waits on download sockets as well as on the request channel.
type Reactor struct {
	executor *Executor
	requests <-chan Request
	done     <-chan struct{}
	onResp   func(Response)

	queue   *list.List // FIFO of requests ready to run
	blocked map[int]*blockedJob

	nextReactorID int

	// draining is set once a Shutdown request is received: no further
	// inbound requests are accepted, but the queue (including blocked jobs
	// and their continuations) is run to completion before Run returns.
	draining bool
}

type blockedJob struct {
	fd  int
	req Request
}

// NewReactor constructs a Reactor. onResp is invoked (from the reactor's own
// goroutine) for every Response the executor emits.
func NewReactor(executor *Executor, requests <-chan Request, done <-chan struct{}, onResp func(Response)) *Reactor {
	return &Reactor{
		executor: executor,
		requests: requests,
		done:     done,
		onResp:   onResp,
		queue:    list.New(),
		blocked:  make(map[int]*blockedJob),
	}
}

// Run drives the reactor until done is closed, or until a Shutdown request
// has been received and every request already queued (including Blocked and
// Paused/Update continuations) has run to completion. It is intended to be
// the body of the single disk-engine goroutine and must never be called
// concurrently with itself.
func (r *Reactor) Run() {
	for {
		if r.drainOneReady() {
			continue
		}

		if r.draining {
			if len(r.blocked) == 0 {
				return
			}
			r.pollBlocked(jobPollTimeoutMillis)
			continue
		}

		if len(r.blocked) > 0 {
			// Give new inbound requests a non-blocking chance first, then
			// fall through to polling blocked sockets.
			select {
			case req, ok := <-r.requests:
				if !ok {
					return
				}
				r.handleInbound(req)
			default:
				r.pollBlocked(jobPollTimeoutMillis)
			}
			continue
		}

		select {
		case req, ok := <-r.requests:
			if !ok {
				return
			}
			r.handleInbound(req)
		case <-r.done:
			return
		}
	}
}

// handleInbound enqueues req, or, for Shutdown, switches the reactor into
// draining mode so no further inbound requests are accepted.
func (r *Reactor) handleInbound(req Request) {
	if _, isShutdown := req.(ShutdownRequest); isShutdown {
		r.draining = true
		return
	}
	r.enqueue(req)
}

// jobPollTimeoutMillis bounds how long Run blocks in unix.Poll while waiting
// for a blocked download's socket to become writable again.
const jobPollTimeoutMillis = 50

// enqueue pushes req onto the ready queue, assigning fresh Download jobs a
// reactor id before they can ever be returned as Blocked.
func (r *Reactor) enqueue(req Request) {
	if dl, ok := req.(*DownloadRequest); ok && dl.ReactorID == 0 {
		r.registerDownload(dl)
	}
	r.queue.PushBack(req)
}

// drainOneReady executes the next ready request, if any, reporting whether
// it ran one.
func (r *Reactor) drainOneReady() bool {
	front := r.queue.Front()
	if front == nil {
		return false
	}
	r.queue.Remove(front)
	req := front.Value.(Request)
	r.run(req)
	return true
}

func (r *Reactor) run(req Request) {
	result, err := r.executor.Execute(req)
	if err == ErrPeerSocket {
		// Peer disconnected or errored mid-transfer; terminate the job with
		// no response, matching the Download job's own error contract.
		return
	}
	if err != nil {
		r.onResp(ErrorResponse{
			TID:   firstTID(req),
			HasID: hasTID(req),
			Kind:  kindOf(err),
			Err:   err,
		})
		return
	}
	if resp, ok := result.Response(); ok {
		r.onResp(resp)
	}
	if reactorID, blocked := result.IsBlocked(); blocked {
		next, _ := result.Next()
		r.registerBlocked(reactorID, next)
		return
	}
	if next, ok := result.Next(); ok {
		r.enqueue(next)
	}
}

func (r *Reactor) registerBlocked(reactorID int, req Request) {
	dl, ok := req.(*DownloadRequest)
	if !ok {
		// Shouldn't happen: only Download jobs ever return Blocked.
		r.queue.PushBack(req)
		return
	}
	fd, err := socketFD(dl.Client)
	if err != nil {
		return
	}
	r.blocked[reactorID] = &blockedJob{fd: fd, req: req}
}

func (r *Reactor) pollBlocked(timeoutMillis int) {
	if len(r.blocked) == 0 {
		return
	}
	fds := make([]unix.PollFd, 0, len(r.blocked))
	ids := make([]int, 0, len(r.blocked))
	for id, job := range r.blocked {
		fds = append(fds, unix.PollFd{Fd: int32(job.fd), Events: unix.POLLOUT})
		ids = append(ids, id)
	}
	n, err := unix.Poll(fds, timeoutMillis)
	if err != nil || n == 0 {
		return
	}
	for i, pfd := range fds {
		if pfd.Revents&(unix.POLLOUT|unix.POLLERR|unix.POLLHUP) == 0 {
			continue
		}
		id := ids[i]
		job := r.blocked[id]
		delete(r.blocked, id)
		r.queue.PushBack(job.req)
	}
}

// registerDownload assigns req a reactor id so a Blocked continuation can be
// looked up by id; its socket's fd is recorded later, by registerBlocked,
// when the job is actually parked. Mirrors the original
// register() call that hands a Download job's socket to the reactor before
// it is first executed.
func (r *Reactor) registerDownload(req *DownloadRequest) {
	r.nextReactorID++
	req.ReactorID = r.nextReactorID
}

func socketFD(sock nbio.Socket) (int, error) {
	raw, err := sock.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	cerr := raw.Control(func(f uintptr) {
		fd = int(f)
	})
	if cerr != nil {
		return 0, cerr
	}
	return fd, nil
}

func firstTID(req Request) uint64 {
	id, _ := tid(req)
	return id
}

func hasTID(req Request) bool {
	_, ok := tid(req)
	return ok
}

func kindOf(err error) ErrKind {
	if de, ok := err.(*Error); ok {
		return de.Kind
	}
	return KindIO
}
