// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"code.hybscloud.com/kont"
)

// SyncStateBind synchronizes and passes the block height to f.
// Fuses Perform(SyncState{}) + Bind.
func SyncStateBind[B any](f func(uint32) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(SyncState{}), f)
}

// CreateAccountBind creates an account and passes its id to f.
// Fuses Perform(CreateAccount{Seed: seed}) + Bind.
func CreateAccountBind[B any](seed []byte, f func(string) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(CreateAccount{Seed: seed}), f)
}

// ListAccountsBind lists account ids and passes them to f.
// Fuses Perform(ListAccounts{}) + Bind.
func ListAccountsBind[B any](f func([]string) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(ListAccounts{}), f)
}

// GetBalanceBind reads a balance and passes it to f.
// Fuses Perform(GetBalance{AccountID: id}) + Bind.
func GetBalanceBind[B any](accountID string, f func(Balance) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(GetBalance{AccountID: accountID}), f)
}

// ListConsumableNotesBind lists consumable notes and passes them to f.
// Fuses Perform(ListConsumableNotes{AccountID: id}) + Bind.
func ListConsumableNotesBind[B any](accountID string, f func(NoteList) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(ListConsumableNotes{AccountID: accountID}), f)
}

// ConsumeNotesBind consumes notes and passes the transaction id to f.
// Fuses Perform(ConsumeNotes{...}) + Bind.
func ConsumeNotesBind[B any](accountID string, noteIDs []string, f func(string) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(ConsumeNotes{AccountID: accountID, NoteIDs: noteIDs}), f)
}

// TestConnectionThen checks the connection and then continues with next.
// Fuses Perform(TestConnection{}) + Then.
func TestConnectionThen[B any](next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(TestConnection{}), next)
}
