package diskio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReactorRunsQueuedRequestsBeforeShutdown(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	requests := make(chan Request, 8)
	done := make(chan struct{})
	var got []Response
	reactor := NewReactor(e, requests, done, func(r Response) {
		got = append(got, r)
	})

	requests <- FreeSpaceRequest{}
	requests <- FreeSpaceRequest{}
	requests <- ShutdownRequest{}

	finished := make(chan struct{})
	go func() {
		reactor.Run()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("reactor did not drain and terminate")
	}
	require.Len(t, got, 2)
}

func TestReactorShutdownDrainsAlreadyQueuedWork(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	requests := make(chan Request, 8)
	done := make(chan struct{})
	var got []Response
	reactor := NewReactor(e, requests, done, func(r Response) {
		got = append(got, r)
	})

	// Shutdown is queued behind one real request; it must still run.
	requests <- FreeSpaceRequest{}
	requests <- ShutdownRequest{}
	requests <- FreeSpaceRequest{} // enqueued after Shutdown is read: must NOT run

	finished := make(chan struct{})
	go func() {
		reactor.Run()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("reactor did not terminate")
	}
	require.Len(t, got, 1)
}

func TestReactorClosingDoneTerminatesImmediately(t *testing.T) {
	e, cleanup := newTestExecutor(t)
	defer cleanup()

	requests := make(chan Request)
	done := make(chan struct{})
	reactor := NewReactor(e, requests, done, func(Response) {})

	finished := make(chan struct{})
	go func() {
		reactor.Run()
		close(finished)
	}()

	close(done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("reactor did not terminate on done close")
	}
}
