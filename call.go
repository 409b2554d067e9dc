// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"context"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/kont"
)

const (
	slotWaiting uint32 = iota
	slotDelivered
	slotAbandoned
)

// waitSlot is the single-use rendezvous of one blocking call.
// Exactly one of deliver and abandon wins the slot.
type waitSlot struct {
	state atomix.Uint32
	ch    chan Completion
}

func newWaitSlot() *waitSlot {
	return &waitSlot{ch: make(chan Completion, 1)}
}

// deliver hands c to the waiter. If the waiter has already given up,
// the buffer is released here.
func (w *waitSlot) deliver(c Completion) {
	if w.state.CompareAndSwap(slotWaiting, slotDelivered) {
		w.ch <- c
		return
	}
	if c.Buf != nil {
		c.Buf.discard()
	}
}

func (w *waitSlot) abandon() bool {
	return w.state.CompareAndSwap(slotWaiting, slotAbandoned)
}

// Do submits req and blocks until its Completion arrives, the call
// timeout elapses, or ctx is done.
//
// A non-nil error means req was not admitted, or the wait ended first
// (CodeTimeout). In the latter case the request still runs and its
// result is discarded. Otherwise the Completion carries the outcome and
// the caller owns Completion.Buf.
func (h *Handle) Do(ctx context.Context, req Request) (Completion, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if h == nil {
		return Completion{}, ErrInvalidHandle
	}
	w := newWaitSlot()
	if err := h.Submit(req, w.deliver); err != nil {
		return Completion{}, err
	}
	t := time.NewTimer(h.opts.callTimeout)
	defer t.Stop()

	var cause error
	select {
	case c := <-w.ch:
		return c, nil
	case <-t.C:
		cause = ErrTimeout
	case <-ctx.Done():
		cause = fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
	if !w.abandon() {
		// delivered while we were giving up
		return <-w.ch, nil
	}
	return Completion{}, newError(req, CodeTimeout, cause)
}

// SyncState synchronizes the client and returns the block height.
func (h *Handle) SyncState(ctx context.Context) (uint32, error) {
	return Exec(ctx, h, kont.Perform(SyncState{}))
}

// CreateAccount creates an account and returns its id.
func (h *Handle) CreateAccount(ctx context.Context, seed []byte) (string, error) {
	return Exec(ctx, h, kont.Perform(CreateAccount{Seed: seed}))
}

// ListAccounts returns the ids of every known account.
func (h *Handle) ListAccounts(ctx context.Context) ([]string, error) {
	return Exec(ctx, h, kont.Perform(ListAccounts{}))
}

// GetBalance returns the vault summary of accountID.
func (h *Handle) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	return Exec(ctx, h, kont.Perform(GetBalance{AccountID: accountID}))
}

// ListConsumableNotes returns the notes accountID can consume.
func (h *Handle) ListConsumableNotes(ctx context.Context, accountID string) (NoteList, error) {
	return Exec(ctx, h, kont.Perform(ListConsumableNotes{AccountID: accountID}))
}

// ConsumeNotes consumes noteIDs into accountID and returns the
// transaction id.
func (h *Handle) ConsumeNotes(ctx context.Context, accountID string, noteIDs []string) (string, error) {
	return Exec(ctx, h, kont.Perform(ConsumeNotes{AccountID: accountID, NoteIDs: noteIDs}))
}

// TestConnection checks that the node is reachable.
func (h *Handle) TestConnection(ctx context.Context) error {
	_, err := Exec(ctx, h, kont.Perform(TestConnection{}))
	return err
}
