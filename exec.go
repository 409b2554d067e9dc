// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"context"

	"code.hybscloud.com/kont"
)

// Exec runs a protocol on h, blocking the calling goroutine on each
// dispatch effect. Each effect is one call, bounded by the call timeout
// and ctx. The first failure discards the rest of the protocol.
func Exec[R any](ctx context.Context, h *Handle, protocol kont.Eff[R]) (R, error) {
	return exec[R](ctx, h)(Step(protocol))
}

// ExecExpr is Exec for frame-form protocols.
func ExecExpr[R any](ctx context.Context, h *Handle, protocol kont.Expr[R]) (R, error) {
	return exec[R](ctx, h)(StepExpr(protocol))
}

func exec[R any](ctx context.Context, h *Handle) func(R, *kont.Suspension[R]) (R, error) {
	return func(result R, susp *kont.Suspension[R]) (R, error) {
		for susp != nil {
			v, err := h.perform(ctx, callOf(susp))
			if err != nil {
				susp.Discard()
				var zero R
				return zero, err
			}
			result, susp = susp.Resume(v)
		}
		return result, nil
	}
}

func (h *Handle) perform(ctx context.Context, op call) (kont.Resumed, error) {
	req := op.request()
	c, err := h.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return op.decode(req, c)
}
