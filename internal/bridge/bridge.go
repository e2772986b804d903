// Package bridge lets synchronous call sites submit asynchronous work to a
// single shared background executor and block until a result is available.
//
// Stateful resources (pooled connections, client sessions) must stay bound to
// one execution context for their whole lifetime. Routing every synchronous
// caller through one long-lived executor lets those resources be reused
// across calls instead of being recreated per call.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// shutdownGrace bounds how long Shutdown waits for in-flight units of work
// before abandoning them.
const shutdownGrace = 5 * time.Second

// ErrNilWork is returned when Run is called with a nil unit of work.
var ErrNilWork = errors.New("bridge: unit of work is nil")

// insideKey marks contexts that originate from the shared executor, so a
// nested Run call can detect it is already inside and execute inline instead
// of submitting again (which would risk deadlock on a saturated executor).
type insideKey struct{}

var (
	mu     sync.Mutex
	shared *executor
)

// executor hosts the shared background execution context: a single dispatch
// goroutine that serializes unit-of-work starts. Each unit then runs as its
// own cooperative goroutine under the executor's root context, so callers
// block independently and unrelated work does not queue behind a slow unit.
type executor struct {
	units  chan func(context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

func newExecutor() *executor {
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), insideKey{}, true))
	e := &executor{
		units:  make(chan func(context.Context)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go e.dispatch()
	return e
}

func (e *executor) dispatch() {
	defer close(e.done)
	for {
		select {
		case <-e.ctx.Done():
			return
		case unit := <-e.units:
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				unit(e.ctx)
			}()
		}
	}
}

// submit hands a unit of work to the dispatcher. Returns false when the
// executor has been shut down, in which case the caller should obtain a
// fresh one.
func (e *executor) submit(unit func(context.Context)) bool {
	select {
	case e.units <- unit:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// get returns the shared executor, lazily creating it under the package lock
// so concurrent first callers cannot produce two contexts. After Shutdown the
// next call silently creates a fresh executor.
func get() *executor {
	mu.Lock()
	defer mu.Unlock()
	if shared == nil || shared.ctx.Err() != nil {
		shared = newExecutor()
	}
	return shared
}

// Inside reports whether ctx originates from the shared executor, meaning the
// caller is already running as a unit of asynchronous work.
func Inside(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	on, ok := ctx.Value(insideKey{}).(bool)
	return ok && on
}

// Run executes fn as a unit of asynchronous work and blocks until it
// completes, returning its result or error.
//
// If the calling goroutine is already inside the shared executor (ctx carries
// the executor marker), fn is invoked inline on the caller's own context so
// nested submission cannot deadlock. Otherwise fn is submitted to the shared
// background executor and the caller blocks until the unit finishes or ctx is
// cancelled. On cancellation Run returns ctx.Err(); the submitted unit still
// runs to completion on the executor and its buffered reply is discarded.
//
// Many goroutines may call Run concurrently; each blocks only on its own
// submitted unit.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, ErrNilWork
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if Inside(ctx) {
		return fn(ctx)
	}

	type outcome struct {
		val T
		err error
	}
	reply := make(chan outcome, 1)

	unit := func(execCtx context.Context) {
		v, err := fn(execCtx)
		reply <- outcome{val: v, err: err}
	}

	// A submit can lose the race against a concurrent Shutdown; obtaining a
	// fresh executor and retrying keeps Run's lazy-recreation contract.
	for !get().submit(unit) {
	}

	select {
	case out := <-reply:
		return out.val, out.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Shutdown tears down the shared executor: it signals stop, waits a bounded
// grace period for the dispatcher and in-flight units, and clears the
// singleton so the next Run recreates it. Calling Shutdown when no executor
// exists is a no-op, and repeated calls are safe.
func Shutdown() {
	mu.Lock()
	ex := shared
	shared = nil
	mu.Unlock()

	if ex == nil {
		return
	}

	ex.cancel()
	<-ex.done

	finished := make(chan struct{})
	go func() {
		ex.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(shutdownGrace):
		slog.Warn("bridge shutdown grace period elapsed, abandoning in-flight work")
	}
}
