package diskio

// JobResult is the outcome of executing one Request, per §4.3. Which of the
// accessors below are meaningful depends on the constructor that built it.
type JobResult struct {
	done      bool
	resp      Response
	next      Request
	blocked   bool
	reactorID int
}

// Done — work complete, no response emitted.
func doneResult() JobResult {
	return JobResult{done: true}
}

// Resp — work complete, emit r.
func respResult(r Response) JobResult {
	return JobResult{done: true, resp: r}
}

// Update — work incomplete; re-queue next and emit progress for UI.
func updateResult(next Request, progress Response) JobResult {
	return JobResult{next: next, resp: progress}
}

// Paused — time slice exhausted; re-queue next for another slice.
func pausedResult(next Request) JobResult {
	return JobResult{next: next}
}

// Blocked — I/O would block; re-queue next and await reactorID's
// writability notification.
func blockedResult(reactorID int, next Request) JobResult {
	return JobResult{next: next, blocked: true, reactorID: reactorID}
}

// IsDone reports whether this result carries a terminal response (Resp or
// Done), as opposed to a continuation (Update, Paused, Blocked).
func (r JobResult) IsDone() bool { return r.next == nil }

// IsBlocked reports whether the continuation is parked awaiting reactor
// writability, and if so, on which reactor id.
func (r JobResult) IsBlocked() (int, bool) { return r.reactorID, r.blocked }

// Response returns the response to emit, if any.
func (r JobResult) Response() (Response, bool) { return r.resp, r.resp != nil }

// Next returns the request to re-queue, if any.
func (r JobResult) Next() (Request, bool) { return r.next, r.next != nil }
