// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"code.hybscloud.com/kont"
)

// Loop runs a recursive protocol.
// step returns Left(nextState) to continue or Right(result) to finish.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if left, ok := e.GetLeft(); ok {
			return Loop(left, step)
		}
		right, _ := e.GetRight()
		return kont.Pure(right)
	})
}

// SweepNotes synchronizes and consumes every consumable note of
// accountID, at most batch notes per transaction, until none is left.
// It returns the submitted transaction ids in order. With batch <= 0
// each round consumes every listed note in one transaction.
func SweepNotes(accountID string, batch int) kont.Eff[[]string] {
	type sweep = kont.Either[[]string, []string]
	return Loop([]string(nil), func(txs []string) kont.Eff[sweep] {
		return SyncStateBind(func(uint32) kont.Eff[sweep] {
			return ListConsumableNotesBind(accountID, func(l NoteList) kont.Eff[sweep] {
				if len(l.Notes) == 0 {
					if txs == nil {
						txs = []string{}
					}
					return kont.Pure(kont.Right[[]string, []string](txs))
				}
				ids := l.IDs()
				if batch > 0 && len(ids) > batch {
					ids = ids[:batch]
				}
				return ConsumeNotesBind(accountID, ids, func(tx string) kont.Eff[sweep] {
					return kont.Pure(kont.Left[[]string, []string](append(txs, tx)))
				})
			})
		})
	})
}
