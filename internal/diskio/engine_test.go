package diskio

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, func()) {
	dir, err := ioutil.TempDir("", "diskio_engine_test")
	require.NoError(t, err)

	e, err := New(Config{
		SessionDir:        dir,
		DownloadDir:       dir,
		RequestBufferSize: 8,
	}, nil, nil, nil)
	require.NoError(t, err)

	return e, func() { os.RemoveAll(dir) }
}

func TestEngineFreeSpaceRoundTrip(t *testing.T) {
	e, cleanup := newTestEngine(t)
	defer cleanup()
	defer e.Stop()

	require.NoError(t, e.Submit(FreeSpaceRequest{}))

	select {
	case resp := <-e.Responses():
		_, ok := resp.(FreeSpaceResponse)
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for FreeSpaceResponse")
	}
}

func TestEngineStopDrainsQueuedWork(t *testing.T) {
	e, cleanup := newTestEngine(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		require.NoError(t, e.Submit(PingRequest{}))
	}

	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestEngineSubmitAfterStopReturnsErr(t *testing.T) {
	e, cleanup := newTestEngine(t)
	defer cleanup()

	e.Stop()
	err := e.Submit(PingRequest{})
	require.Equal(t, ErrEngineStopped, err)
}
