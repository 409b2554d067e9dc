// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/rs/zerolog"
)

const (
	stateOpen uint32 = iota
	stateClosing
	stateClosed
)

// Handle owns one Executor and the worker goroutine that runs it.
//
// Every method is safe for concurrent use. Requests from any goroutine
// go through a bounded channel to the worker, which executes them one at
// a time in FIFO order. A Handle is invalidated exactly once by Close.
// Afterwards every method fails with ErrInvalidHandle without touching
// the Executor.
type Handle struct {
	exec    Executor
	opts    options
	log     zerolog.Logger
	serial  Serial
	mb      *mailbox
	alloc   Allocator
	pending pendingTable

	state    atomix.Uint32
	halted   atomix.Uint32
	poisoned atomix.Uint32
	stop     chan struct{}
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	admitted  atomix.Uint64
	rejected  atomix.Uint64
	completed atomix.Uint64
	dropped   atomix.Uint64
}

// New starts a worker for exec and returns its Handle.
// Either a running worker is returned, or an error and nothing else.
func New(exec Executor, opts ...Option) (*Handle, error) {
	if exec == nil {
		return nil, fmt.Errorf("%w: nil executor", ErrInvalidParam)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	h := &Handle{
		exec:   exec,
		opts:   o,
		serial: nextSerial(),
		mb:     newMailbox(o.capacity),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	h.log = o.logger.With().Uint32("handle", h.serial).Logger()
	h.pending.init()
	h.ctx, h.cancel = context.WithCancel(context.Background())

	ready := make(chan struct{})
	go h.run(ready)
	<-ready
	h.log.Debug().
		Int("capacity", o.capacity).
		Stringer("shutdown", o.shutdown).
		Msg("handle opened")
	return h, nil
}

// Serial returns the identifier of h.
func (h *Handle) Serial() Serial {
	return h.serial
}

// run is the worker loop. It is the only goroutine that calls exec.
func (h *Handle) run(ready chan<- struct{}) {
	defer close(h.done)
	if h.opts.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	close(ready)

	for h.halted.Load() == 0 {
		e, ok := h.mb.next(h.stop)
		if !ok || e.req.Op == OpShutdown {
			break
		}
		if h.halted.Load() != 0 {
			h.drop(e, ErrClosed)
			break
		}
		if !h.serve(e) {
			break
		}
	}
	h.closeExecutor()
}

// serve executes one request and fires its sink.
// It returns false once the executor has panicked.
func (h *Handle) serve(e envelope) bool {
	s := e.takeSink()
	c, p := h.execute(e.req)
	h.completed.Add(1)
	if p != nil {
		h.poison(e.req, p)
		h.fire(e.req, s, c)
		n := h.mb.drain(func(e envelope) { h.drop(e, ErrPoisoned) })
		h.log.Error().Int("dropped", n).Msg("worker stopped after executor panic")
		return false
	}
	h.fire(e.req, s, c)
	return true
}

// execute runs req on the executor. A panic is recovered and returned.
func (h *Handle) execute(req Request) (c Completion, panicked any) {
	defer func() {
		if r := recover(); r != nil {
			panicked = r
			c = failed(req, ErrPoisoned, CodeInvalidHandle)
		}
	}()
	ctx := h.ctx
	switch req.Op {
	case OpSyncState:
		height, err := h.exec.SyncState(ctx)
		if err != nil {
			return h.fail(req, err), nil
		}
		return Completion{Scalar: height}, nil
	case OpCreateAccount:
		p, err := h.exec.CreateAccount(ctx, req.Seed)
		return h.payload(req, p, err), nil
	case OpListAccounts:
		p, err := h.exec.ListAccounts(ctx)
		return h.payload(req, p, err), nil
	case OpGetBalance:
		p, err := h.exec.GetBalance(ctx, req.AccountID)
		return h.payload(req, p, err), nil
	case OpListConsumableNotes:
		p, err := h.exec.ListConsumableNotes(ctx, req.AccountID)
		return h.payload(req, p, err), nil
	case OpConsumeNotes:
		p, err := h.exec.ConsumeNotes(ctx, req.AccountID, req.NoteIDs)
		return h.payload(req, p, err), nil
	case OpTestConnection:
		if err := h.exec.TestConnection(ctx); err != nil {
			return h.fail(req, err), nil
		}
		return Completion{}, nil
	}
	return failed(req, ErrInvalidParam, CodeInvalidParam), nil
}

func (h *Handle) payload(req Request, p []byte, err error) Completion {
	if err != nil {
		return h.fail(req, err)
	}
	return Completion{Buf: h.alloc.Copy(p)}
}

// fail classifies an executor error by req's operation. A call cut short
// because the handle was closed under it reports ErrClosed.
func (h *Handle) fail(req Request, err error) Completion {
	if h.halted.Load() != 0 && errors.Is(err, context.Canceled) {
		return failed(req, fmt.Errorf("%w: %w", ErrClosed, err), CodeInvalidHandle)
	}
	return failed(req, err, req.Op.failureCode())
}

// fire delivers c. A panicking callback is logged and does not stop
// the worker.
func (h *Handle) fire(req Request, s *sink, c Completion) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Stringer("op", req.Op).
				Str("panic", fmt.Sprint(r)).
				Msg("completion callback panicked")
		}
	}()
	s.fire(c)
}

// drop completes e without executing it.
func (h *Handle) drop(e envelope, err error) {
	h.dropped.Add(1)
	h.fire(e.req, e.takeSink(), Completion{
		Code: CodeInvalidHandle,
		Err:  newError(e.req, CodeInvalidHandle, err),
	})
}

func (h *Handle) poison(req Request, p any) {
	h.poisoned.Store(1)
	h.mb.close()
	h.log.Error().
		Stringer("op", req.Op).
		Str("panic", fmt.Sprint(p)).
		Msg("executor panicked, handle poisoned")
}

func (h *Handle) closeExecutor() {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Str("panic", fmt.Sprint(r)).Msg("executor close panicked")
		}
	}()
	if err := h.exec.Close(); err != nil {
		h.log.Warn().Err(err).Msg("executor close failed")
	}
}

func (h *Handle) halt() {
	if h.halted.CompareAndSwap(0, 1) {
		close(h.stop)
		h.cancel()
	}
}

// Close invalidates h, stops the worker and releases the executor on the
// worker's thread. It blocks until the worker has exited.
//
// Requests still queued when the worker stops are not executed. Their
// completions fire with ErrClosed, and every suspended protocol waiting
// on h is resumed with ErrClosed. The call running at that moment has
// its context cancelled and completes with ErrClosed if it gives up.
// A second Close returns ErrClosed.
//
// Close must not be called from a completion callback, since those run
// on the worker it waits for.
func (h *Handle) Close() error {
	if h == nil {
		return ErrInvalidHandle
	}
	if !h.state.CompareAndSwap(stateOpen, stateClosing) {
		return ErrClosed
	}
	began := time.Now()
	h.mb.close()
	if h.poisoned.Load() == 0 {
		h.mb.push(envelope{req: Request{Op: OpShutdown}})
	}

	if h.opts.shutdown == Graceful {
		t := time.NewTimer(h.opts.drainTimeout)
		select {
		case <-h.done:
		case <-t.C:
			h.log.Warn().
				Dur("timeout", h.opts.drainTimeout).
				Int("queued", h.mb.len()).
				Msg("drain timed out, stopping worker")
		}
		t.Stop()
	}
	h.halt()
	<-h.done

	dropped := h.mb.drain(func(e envelope) { h.drop(e, ErrClosed) })
	swept := h.pending.sweep(func(en *entry) {
		h.log.Debug().Str("account", en.accountID).Msg("resuming pending operation after close")
		en.resume(Completion{Code: CodeInvalidHandle, Err: ErrClosed})
	})
	h.state.Store(stateClosed)
	h.log.Debug().
		Stringer("shutdown", h.opts.shutdown).
		Int("dropped", dropped).
		Int("swept", swept).
		Dur("elapsed", time.Since(began)).
		Msg("handle closed")
	return nil
}

// Submit admits req without blocking. fn is called exactly once with the
// Completion, on the worker goroutine, and must not block. It receives
// ownership of Completion.Buf.
//
// A non-nil error means req was not admitted and fn will never be called.
func (h *Handle) Submit(req Request, fn func(Completion)) error {
	if h == nil {
		return ErrInvalidHandle
	}
	if fn == nil {
		return newError(req, CodeInvalidParam, ErrInvalidParam)
	}
	if err := h.usable(); err != nil {
		return newError(req, CodeInvalidHandle, err)
	}
	if err := req.validate(); err != nil {
		return newError(req, codeOr(err, CodeInvalidParam), err)
	}
	if err := h.mb.enqueue(envelope{req: req, sink: newSink(fn)}); err != nil {
		h.rejected.Add(1)
		return newError(req, CodeOf(err), err)
	}
	h.admitted.Add(1)
	return nil
}

func (h *Handle) usable() error {
	if h.state.Load() != stateOpen {
		return ErrClosed
	}
	if h.poisoned.Load() != 0 {
		return ErrPoisoned
	}
	return nil
}

// Stats is a snapshot of a Handle's counters.
type Stats struct {
	Serial       Serial
	Capacity     int
	Queued       int
	Admitted     uint64
	Rejected     uint64
	Completed    uint64
	Dropped      uint64
	PendingAsync int
	Poisoned     bool
	Closed       bool
	Buffers      BufferStats
}

// Stats returns a snapshot of h's counters. It stays usable after Close.
func (h *Handle) Stats() Stats {
	if h == nil {
		return Stats{Closed: true}
	}
	return Stats{
		Serial:       h.serial,
		Capacity:     h.opts.capacity,
		Queued:       h.mb.len(),
		Admitted:     h.admitted.Load(),
		Rejected:     h.rejected.Load(),
		Completed:    h.completed.Load(),
		Dropped:      h.dropped.Load(),
		PendingAsync: h.pending.len(),
		Poisoned:     h.poisoned.Load() != 0,
		Closed:       h.state.Load() != stateOpen,
		Buffers:      h.alloc.Stats(),
	}
}
