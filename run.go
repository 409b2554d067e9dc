// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"code.hybscloud.com/kont"
)

// Go runs a protocol on h without blocking the calling goroutine.
//
// Each dispatch effect becomes a pending entry plus a request. When the
// request completes, the worker reclaims the entry, decodes the result
// and resumes the protocol, which then submits its next effect. done is
// called exactly once with the final result or the first error.
//
// If an effect cannot be admitted, done runs on the goroutine that tried
// to admit it. For the first effect that is the caller, before Go
// returns. Otherwise done runs on the worker goroutine and must not
// block or call Close.
func Go[R any](h *Handle, protocol kont.Eff[R], done func(R, error)) {
	start(h, done)(Step(protocol))
}

// GoExpr is Go for frame-form protocols.
func GoExpr[R any](h *Handle, protocol kont.Expr[R], done func(R, error)) {
	start(h, done)(StepExpr(protocol))
}

func start[R any](h *Handle, done func(R, error)) func(R, *kont.Suspension[R]) {
	return func(result R, susp *kont.Suspension[R]) {
		if susp == nil {
			done(result, nil)
			return
		}
		if h == nil {
			susp.Discard()
			var zero R
			done(zero, ErrInvalidHandle)
			return
		}
		drive(h, susp, done)
	}
}

// drive submits the effect susp waits on.
func drive[R any](h *Handle, susp *kont.Suspension[R], done func(R, error)) {
	op := callOf(susp)
	req := op.request()
	en := &entry{accountID: req.AccountID}
	en.resume = func(c Completion) {
		v, err := op.decode(req, c)
		if err != nil {
			susp.Discard()
			var zero R
			done(zero, err)
			return
		}
		result, next := susp.Resume(v)
		if next == nil {
			done(result, nil)
			return
		}
		drive(h, next, done)
	}

	tok := h.pending.put(en)
	err := h.Submit(req, func(c Completion) {
		en := h.pending.take(tok)
		if en == nil {
			if c.Buf != nil {
				c.Buf.discard()
			}
			return
		}
		en.resume(c)
	})
	if err != nil {
		if en := h.pending.take(tok); en != nil {
			en.resume(Completion{Code: CodeOf(err), Err: err})
		}
	}
}
