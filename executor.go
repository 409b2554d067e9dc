// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import "context"

// Executor performs operations against a client that is NOT safe for
// concurrent use.
//
// A Handle calls every method, Close included, from a single worker
// goroutine locked to its OS thread. Implementations therefore need no
// synchronization of their own. Byte results are copied before the next
// call, so an Executor may reuse the slices it returns.
//
// Errors that match one of the package sentinels (ErrAccount, ErrNote,
// ErrLookup, ErrSubmit, ErrInvalidParam) keep that code at the call
// boundary. Other errors get the default code of the operation.
type Executor interface {
	// SyncState brings local state up to date and returns the block height.
	SyncState(ctx context.Context) (uint32, error)
	// CreateAccount creates an account and returns its id as text.
	CreateAccount(ctx context.Context, seed []byte) ([]byte, error)
	// ListAccounts returns a JSON array of account ids.
	ListAccounts(ctx context.Context) ([]byte, error)
	// GetBalance returns the JSON balance record of one account.
	GetBalance(ctx context.Context, accountID string) ([]byte, error)
	// ListConsumableNotes returns the JSON note list of one account,
	// or of all accounts when accountID is empty.
	ListConsumableNotes(ctx context.Context, accountID string) ([]byte, error)
	// ConsumeNotes submits a transaction consuming the notes and returns
	// its id as text.
	ConsumeNotes(ctx context.Context, accountID string, noteIDs []string) ([]byte, error)
	// TestConnection checks that the remote node is reachable.
	TestConnection(ctx context.Context) error
	// Close releases the client. It is the last call a Handle makes.
	Close() error
}
