// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// mailbox is the bounded request channel between producers and the worker.
//
// Producers are admitted lock-free into an MPSC queue from lfq. The
// admission counter enforces the exact capacity, independent of the
// queue's power-of-two rounding. The queue holds one extra slot so the
// shutdown envelope pushed by Close always fits.
//
// The worker parks on a one-slot doorbell. Producers ring it after every
// enqueue, so a wakeup is never lost between the worker's last empty
// dequeue and its park.
type mailbox struct {
	q        lfq.Queue[envelope]
	capacity uint32
	count    atomix.Uint32 // admitted, not yet dequeued
	inflight atomix.Uint32 // producers between the closed check and enqueue
	closed   atomix.Uint32
	bell     chan struct{}
}

func newMailbox(capacity int) *mailbox {
	return &mailbox{
		q:        lfq.BuildMPSC[envelope](lfq.New(capacity + 1).SingleConsumer().Compact()),
		capacity: uint32(capacity),
		bell:     make(chan struct{}, 1),
	}
}

// enqueue admits e, or fails with ErrQueueFull or ErrClosed without
// blocking. A nil return means e will be dequeued or drained.
func (m *mailbox) enqueue(e envelope) error {
	m.inflight.Add(1)
	defer m.inflight.Add(^uint32(0))
	if m.closed.Load() != 0 {
		return ErrClosed
	}
	for {
		n := m.count.Load()
		if n >= m.capacity {
			return ErrQueueFull
		}
		if m.count.CompareAndSwap(n, n+1) {
			break
		}
	}
	if err := m.q.Enqueue(&e); err != nil {
		m.count.Add(^uint32(0))
		if lfq.IsWouldBlock(err) {
			return ErrQueueFull
		}
		return err
	}
	m.ring()
	return nil
}

// push enqueues e past the admission limit and the closed flag.
// Close uses it for the shutdown envelope.
func (m *mailbox) push(e envelope) bool {
	if m.q.Enqueue(&e) != nil {
		return false
	}
	m.ring()
	return true
}

func (m *mailbox) ring() {
	select {
	case m.bell <- struct{}{}:
	default:
	}
}

// close stops admission. Once close returns, no enqueue can succeed.
func (m *mailbox) close() bool {
	if !m.closed.CompareAndSwap(0, 1) {
		return false
	}
	var bo iox.Backoff
	for m.inflight.Load() != 0 {
		bo.Wait()
	}
	return true
}

func (m *mailbox) dequeue() (envelope, bool) {
	e, err := m.q.Dequeue()
	if err != nil {
		return envelope{}, false
	}
	if e.req.Op != OpShutdown {
		m.count.Add(^uint32(0))
	}
	return e, true
}

// next returns the next envelope in FIFO order. It parks until one is
// available and returns false when stop is closed, or when the mailbox
// is closed and empty.
func (m *mailbox) next(stop <-chan struct{}) (envelope, bool) {
	var bo iox.Backoff
	for {
		if e, ok := m.dequeue(); ok {
			return e, true
		}
		if m.count.Load() != 0 {
			// admitted but not yet visible
			bo.Wait()
			continue
		}
		bo.Reset()
		if m.closed.Load() != 0 && m.inflight.Load() == 0 {
			if e, ok := m.dequeue(); ok {
				return e, true
			}
			if m.count.Load() == 0 {
				return envelope{}, false
			}
			continue
		}
		select {
		case <-m.bell:
		case <-stop:
			return envelope{}, false
		}
	}
}

// drain removes every remaining envelope and passes it to fn.
// Only call it once admission is closed and the worker has exited.
func (m *mailbox) drain(fn func(envelope)) int {
	if d, ok := m.q.(lfq.Drainer); ok {
		d.Drain()
	}
	n := 0
	for {
		e, ok := m.dequeue()
		if !ok {
			return n
		}
		if e.req.Op == OpShutdown {
			continue
		}
		fn(e)
		n++
	}
}

// len returns the number of admitted requests not yet dequeued.
func (m *mailbox) len() int {
	return int(m.count.Load())
}
