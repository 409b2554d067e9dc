// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatch serializes operations from many goroutines onto a
// single client that is not safe for concurrent use.
//
// A [Handle] owns an [Executor] and one worker goroutine locked to its OS
// thread. Every call becomes a [Request] in a bounded lock-free channel;
// the worker executes requests one at a time in FIFO order and fires the
// request's completion exactly once.
//
// # Architecture
//
//   - Channel: Bounded MPSC queue via [code.hybscloud.com/lfq]. Admission never blocks; a full channel fails with [ErrQueueFull].
//   - Worker: Parks on a doorbell when idle, waits past not-yet-visible entries with [code.hybscloud.com/iox.Backoff].
//   - Buffers: Payloads move to the receiver as a [Buffer] that is released exactly once.
//   - Lifecycle: [Handle.Close] invalidates the handle once, stops the worker ([Fast] or [Graceful]) and closes the executor on the worker's thread.
//
// # Calling Styles
//
//   - Blocking: [Handle.SyncState], [Handle.GetBalance], ... wait for the result, bounded by [WithCallTimeout] and the context.
//   - Callbacks: [Handle.SyncStateAsync], [Handle.GetBalanceAsync], ... never block the caller.
//   - Protocols: Operations are effects on [code.hybscloud.com/kont] ([SyncState], [GetBalance], [ConsumeNotes], ...). Compose them with [SyncStateBind], [GetBalanceBind], [Loop], and run them with [Exec] (blocking) or [Go] (suspended between effects, resumed on completion).
//   - Raw: [Handle.Submit] and [Handle.Do] exchange [Request] and [Completion] values directly; the receiver releases [Completion.Buf].
//
// # Errors
//
// Every failure carries a stable [Code]. [CodeOf] recovers it from any
// error, and [*Error] matches both its cause and the sentinel of its code
// with errors.Is.
//
// # Example
//
//	h, err := dispatch.New(exec)
//	if err != nil {
//		return err
//	}
//	defer h.Close()
//
//	dispatch.Go(h, dispatch.SweepNotes(account, 16), func(txs []string, err error) {
//		// runs on the worker; must not block
//	})
package dispatch
