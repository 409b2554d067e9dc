// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"code.hybscloud.com/kont"
)

// Pre-boxed operations and frames for effects without fields.
var (
	exprReturnFrame    kont.Frame  = kont.ReturnFrame{}
	exprSyncState      kont.Erased = SyncState{}
	exprListAccounts   kont.Erased = ListAccounts{}
	exprTestConnection kont.Erased = TestConnection{}
)

func identityResume(v kont.Erased) kont.Erased { return v }

func bindUnwind[T, B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(T) kont.Expr[B])
	result := f(current.(T))
	return kont.Erased(result.Value), result.Frame
}

// exprBind suspends on op and passes its result to f.
func exprBind[T, B any](op kont.Erased, f func(T) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = bindUnwind[T, B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = op
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

// ExprSyncStateBind synchronizes and passes the block height to f.
// Fuses ExprPerform(SyncState{}) + ExprBind.
func ExprSyncStateBind[B any](f func(uint32) kont.Expr[B]) kont.Expr[B] {
	return exprBind(exprSyncState, f)
}

// ExprCreateAccountBind creates an account and passes its id to f.
func ExprCreateAccountBind[B any](seed []byte, f func(string) kont.Expr[B]) kont.Expr[B] {
	return exprBind(CreateAccount{Seed: seed}, f)
}

// ExprListAccountsBind lists account ids and passes them to f.
func ExprListAccountsBind[B any](f func([]string) kont.Expr[B]) kont.Expr[B] {
	return exprBind(exprListAccounts, f)
}

// ExprGetBalanceBind reads a balance and passes it to f.
func ExprGetBalanceBind[B any](accountID string, f func(Balance) kont.Expr[B]) kont.Expr[B] {
	return exprBind(GetBalance{AccountID: accountID}, f)
}

// ExprListConsumableNotesBind lists consumable notes and passes them to f.
func ExprListConsumableNotesBind[B any](accountID string, f func(NoteList) kont.Expr[B]) kont.Expr[B] {
	return exprBind(ListConsumableNotes{AccountID: accountID}, f)
}

// ExprConsumeNotesBind consumes notes and passes the transaction id to f.
func ExprConsumeNotesBind[B any](accountID string, noteIDs []string, f func(string) kont.Expr[B]) kont.Expr[B] {
	return exprBind(ConsumeNotes{AccountID: accountID, NoteIDs: noteIDs}, f)
}

// ExprTestConnectionThen checks the connection and then continues with next.
// Fuses ExprPerform(TestConnection{}) + ExprThen.
func ExprTestConnectionThen[B any](next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = exprTestConnection
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}
