// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"code.hybscloud.com/kont"
)

// Step evaluates a protocol until its first dispatch effect.
// Returns (result, nil) if the protocol completed without performing one,
// or (zero, suspension) otherwise. The suspension must be resumed or
// discarded exactly once.
func Step[R any](protocol kont.Eff[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(Reify(protocol))
}

// StepExpr is Step for frame-form protocols.
func StepExpr[R any](protocol kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(protocol)
}

// Pending reports the Request a suspension is waiting on.
// It panics if the suspension is not waiting on a dispatch effect.
func Pending[R any](susp *kont.Suspension[R]) Request {
	return callOf(susp).request()
}
