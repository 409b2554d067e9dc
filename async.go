// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"code.hybscloud.com/kont"
)

// The *Async methods are the callback forms of the blocking calls.
// Each one runs on Go, so cb is called exactly once: on the caller's
// goroutine if the request is not admitted, otherwise on the worker.

func (h *Handle) SyncStateAsync(cb func(height uint32, err error)) {
	Go(h, kont.Perform(SyncState{}), cb)
}

func (h *Handle) CreateAccountAsync(seed []byte, cb func(accountID string, err error)) {
	Go(h, kont.Perform(CreateAccount{Seed: seed}), cb)
}

func (h *Handle) ListAccountsAsync(cb func(ids []string, err error)) {
	Go(h, kont.Perform(ListAccounts{}), cb)
}

func (h *Handle) GetBalanceAsync(accountID string, cb func(Balance, error)) {
	Go(h, kont.Perform(GetBalance{AccountID: accountID}), cb)
}

func (h *Handle) ListConsumableNotesAsync(accountID string, cb func(NoteList, error)) {
	Go(h, kont.Perform(ListConsumableNotes{AccountID: accountID}), cb)
}

func (h *Handle) ConsumeNotesAsync(accountID string, noteIDs []string, cb func(txID string, err error)) {
	Go(h, kont.Perform(ConsumeNotes{AccountID: accountID, NoteIDs: noteIDs}), cb)
}

func (h *Handle) TestConnectionAsync(cb func(error)) {
	Go(h, kont.Perform(TestConnection{}), func(_ struct{}, err error) {
		cb(err)
	})
}
