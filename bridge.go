// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"code.hybscloud.com/kont"
)

// Reify converts a closure-built protocol into its frame form, which
// [StepExpr], [ExecExpr] and [GoExpr] evaluate.
func Reify[A any](m kont.Eff[A]) kont.Expr[A] {
	return kont.Reify(m)
}

// Reflect converts a frame-form protocol back into a closure-built one,
// so it can be composed with [Loop] and the *Bind helpers.
func Reflect[A any](m kont.Expr[A]) kont.Eff[A] {
	return kont.Reflect(m)
}
