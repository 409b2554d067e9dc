// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"errors"
	"fmt"

	"code.hybscloud.com/atomix"
)

// Op identifies the kind of a Request.
type Op uint8

const (
	OpSyncState Op = iota + 1
	OpCreateAccount
	OpListAccounts
	OpGetBalance
	OpListConsumableNotes
	OpConsumeNotes
	OpTestConnection
	// OpShutdown asks the worker to exit. Only Close sends it.
	OpShutdown
)

func (op Op) String() string {
	switch op {
	case OpSyncState:
		return "sync_state"
	case OpCreateAccount:
		return "create_account"
	case OpListAccounts:
		return "list_accounts"
	case OpGetBalance:
		return "get_balance"
	case OpListConsumableNotes:
		return "list_consumable_notes"
	case OpConsumeNotes:
		return "consume_notes"
	case OpTestConnection:
		return "test_connection"
	case OpShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

// failureCode is the code reported when the executor fails with an
// error that carries no code of its own.
func (op Op) failureCode() Code {
	switch op {
	case OpCreateAccount, OpListAccounts:
		return CodeAccount
	case OpListConsumableNotes:
		return CodeNote
	case OpConsumeNotes:
		return CodeSubmit
	default:
		return CodeLookup
	}
}

// Request is one unit of work for the executor.
// Only the fields relevant to Op are read.
type Request struct {
	Op        Op
	AccountID string
	NoteIDs   []string
	Seed      []byte
}

// validate rejects requests that cannot be executed before they are admitted.
func (r Request) validate() error {
	switch r.Op {
	case OpSyncState, OpCreateAccount, OpListAccounts, OpListConsumableNotes, OpTestConnection:
		return nil
	case OpGetBalance:
		if r.AccountID == "" {
			return ErrInvalidParam
		}
		return nil
	case OpConsumeNotes:
		if r.AccountID == "" {
			return ErrInvalidParam
		}
		if len(r.NoteIDs) == 0 {
			return ErrNote
		}
		return nil
	default:
		return ErrInvalidParam
	}
}

// Completion is the outcome of one Request.
//
// On success Code is CodeOK and, for operations that produce a payload,
// Buf is non-nil and owned by the receiver. Scalar carries the result of
// OpSyncState. Failure completions carry Err and never a Buf.
type Completion struct {
	Code   Code
	Scalar uint32
	Buf    *Buffer
	Err    error
}

func failed(req Request, err error, fallback Code) Completion {
	code := codeOr(err, fallback)
	var e *Error
	if errors.As(err, &e) {
		return Completion{Code: code, Err: err}
	}
	return Completion{Code: code, Err: newError(req, code, err)}
}

// sink receives exactly one Completion.
type sink struct {
	fired atomix.Uint32
	fn    func(Completion)
}

func newSink(fn func(Completion)) *sink {
	return &sink{fn: fn}
}

// fire delivers c. A second fire is a programming error.
func (s *sink) fire(c Completion) {
	if !s.fired.CompareAndSwap(0, 1) {
		panic("dispatch: completion sink fired twice")
	}
	s.fn(c)
}

// envelope travels through the mailbox and owns the request's sink
// until the worker takes it.
type envelope struct {
	req  Request
	sink *sink
}

func (e *envelope) takeSink() *sink {
	s := e.sink
	e.sink = nil
	return s
}
