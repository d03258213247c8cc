package diskio

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// ErrEngineStopped is returned by Submit once the engine has been stopped.
var ErrEngineStopped = errors.New("diskio: engine stopped")

// Engine owns the disk I/O worker goroutine and the channels used to submit
// work to it and receive its responses. It is the package's entry point;
// callers never talk to a Reactor or Executor directly.
type Engine struct {
	config    Config
	requests  chan Request
	responses chan Response
	done      chan struct{}
	stopped   int32

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New constructs and starts an Engine. clk, logger, and stats may be nil, in
// which case defaults are installed (a real clock, a no-op logger, and a
// no-op stats scope, respectively).
func New(config Config, clk clock.Clock, logger *zap.SugaredLogger, stats tally.Scope) (*Engine, error) {
	config = config.applyDefaults()

	executor, err := NewExecutor(config, clk, logger, stats)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:    config,
		requests:  make(chan Request, config.RequestBufferSize),
		responses: make(chan Response, config.RequestBufferSize),
		done:      make(chan struct{}),
	}

	reactor := NewReactor(executor, e.requests, e.done, func(r Response) {
		select {
		case e.responses <- r:
		case <-e.done:
		}
	})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		reactor.Run()
	}()

	return e, nil
}

// Submit enqueues req for execution on the engine's single worker goroutine.
// It never blocks on the worker itself, only on the request channel filling
// up, and returns ErrEngineStopped once Stop has been called.
func (e *Engine) Submit(req Request) error {
	if atomic.LoadInt32(&e.stopped) != 0 {
		return ErrEngineStopped
	}
	select {
	case e.requests <- req:
		return nil
	case <-e.done:
		return ErrEngineStopped
	}
}

// Responses returns the channel Submit'd requests' Responses arrive on.
// Callers are expected to range over it from their own goroutine.
func (e *Engine) Responses() <-chan Response {
	return e.responses
}

// Stop rejects any further Submit calls, then lets the worker goroutine
// drain everything already queued (per Shutdown's semantics) before
// returning. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		atomic.StoreInt32(&e.stopped, 1)
		e.requests <- ShutdownRequest{}
		e.wg.Wait()
		close(e.done)
	})
	e.wg.Wait()
}
