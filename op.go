// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"code.hybscloud.com/kont"
)

// call is the structural interface of every dispatch effect.
// request builds the Request the worker executes. decode turns its
// Completion into the value the suspended protocol resumes with, and
// releases any buffer.
type call interface {
	request() Request
	decode(req Request, c Completion) (kont.Resumed, error)
}

func resumed[T any](v T, err error) (kont.Resumed, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SyncState is the effect operation for synchronizing client state.
// Perform(SyncState{}) resumes with the block height.
type SyncState struct {
	kont.Phantom[uint32]
}

func (SyncState) request() Request { return Request{Op: OpSyncState} }

func (SyncState) decode(req Request, c Completion) (kont.Resumed, error) {
	if c.Code != CodeOK {
		return nil, enrich(req, c)
	}
	return c.Scalar, nil
}

// CreateAccount is the effect operation for creating an account.
// Perform(CreateAccount{Seed: s}) resumes with the new account id.
// An empty Seed lets the executor pick one.
type CreateAccount struct {
	kont.Phantom[string]
	Seed []byte
}

func (o CreateAccount) request() Request { return Request{Op: OpCreateAccount, Seed: o.Seed} }

func (CreateAccount) decode(req Request, c Completion) (kont.Resumed, error) {
	return resumed(finish(req, c, decodeText))
}

// ListAccounts is the effect operation for listing account ids.
type ListAccounts struct {
	kont.Phantom[[]string]
}

func (ListAccounts) request() Request { return Request{Op: OpListAccounts} }

func (ListAccounts) decode(req Request, c Completion) (kont.Resumed, error) {
	return resumed(finish(req, c, decodeAccounts))
}

// GetBalance is the effect operation for reading an account's vault.
type GetBalance struct {
	kont.Phantom[Balance]
	AccountID string
}

func (o GetBalance) request() Request { return Request{Op: OpGetBalance, AccountID: o.AccountID} }

func (GetBalance) decode(req Request, c Completion) (kont.Resumed, error) {
	return resumed(finish(req, c, decodeBalance))
}

// ListConsumableNotes is the effect operation for listing the notes an
// account can consume. An empty AccountID lists notes of every account.
type ListConsumableNotes struct {
	kont.Phantom[NoteList]
	AccountID string
}

func (o ListConsumableNotes) request() Request {
	return Request{Op: OpListConsumableNotes, AccountID: o.AccountID}
}

func (ListConsumableNotes) decode(req Request, c Completion) (kont.Resumed, error) {
	return resumed(finish(req, c, decodeNotes))
}

// ConsumeNotes is the effect operation for consuming notes into an
// account. It resumes with the submitted transaction id.
type ConsumeNotes struct {
	kont.Phantom[string]
	AccountID string
	NoteIDs   []string
}

func (o ConsumeNotes) request() Request {
	return Request{Op: OpConsumeNotes, AccountID: o.AccountID, NoteIDs: o.NoteIDs}
}

func (ConsumeNotes) decode(req Request, c Completion) (kont.Resumed, error) {
	return resumed(finish(req, c, decodeText))
}

// TestConnection is the effect operation for checking node reachability.
type TestConnection struct {
	kont.Phantom[struct{}]
}

func (TestConnection) request() Request { return Request{Op: OpTestConnection} }

func (TestConnection) decode(req Request, c Completion) (kont.Resumed, error) {
	if c.Code != CodeOK {
		return nil, enrich(req, c)
	}
	return struct{}{}, nil
}

// callOf returns the dispatch effect a suspension is waiting on.
func callOf[R any](susp *kont.Suspension[R]) call {
	op, ok := susp.Op().(call)
	if !ok {
		panic("dispatch: unhandled effect")
	}
	return op
}
