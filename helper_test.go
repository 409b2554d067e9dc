// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/dispatch"
)

// fakeExecutor is an in-memory Executor.
// It records the order of executed requests and fails the test run if
// two calls ever overlap.
type fakeExecutor struct {
	mu       sync.Mutex
	height   uint32
	accounts []string
	notes    map[string][]string
	balances map[string]uint64
	order    []string
	fail     map[dispatch.Op]error
	payload  map[dispatch.Op][]byte

	// gateOp blocks on gate until it is closed or the worker context ends.
	gateOp  dispatch.Op
	gate    chan struct{}
	started chan struct{}

	panicOn dispatch.Op

	active     atomic.Int32
	overlapped atomic.Bool
	calls      atomic.Int64
	closes     atomic.Int32
}

func newFake() *fakeExecutor {
	return &fakeExecutor{
		notes:    make(map[string][]string),
		balances: make(map[string]uint64),
		fail:     make(map[dispatch.Op]error),
		payload:  make(map[dispatch.Op][]byte),
		started:  make(chan struct{}, 1),
	}
}

// gated makes op block until release is called.
func (f *fakeExecutor) gated(op dispatch.Op) *fakeExecutor {
	f.gateOp = op
	f.gate = make(chan struct{})
	return f
}

func (f *fakeExecutor) release() {
	close(f.gate)
}

func (f *fakeExecutor) enter(ctx context.Context, op dispatch.Op, tag string) error {
	if f.active.Add(1) != 1 {
		f.overlapped.Store(true)
	}
	f.calls.Add(1)
	f.mu.Lock()
	f.order = append(f.order, tag)
	f.mu.Unlock()
	if op == f.panicOn {
		panic(fmt.Sprintf("fake: %s", op))
	}
	if f.gate != nil && op == f.gateOp {
		select {
		case f.started <- struct{}{}:
		default:
		}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := f.fail[op]; err != nil {
		return err
	}
	return nil
}

func (f *fakeExecutor) leave() {
	f.active.Add(-1)
}

func (f *fakeExecutor) SyncState(ctx context.Context) (uint32, error) {
	defer f.leave()
	if err := f.enter(ctx, dispatch.OpSyncState, "sync"); err != nil {
		return 0, err
	}
	f.height++
	return f.height, nil
}

func (f *fakeExecutor) CreateAccount(ctx context.Context, seed []byte) ([]byte, error) {
	defer f.leave()
	if err := f.enter(ctx, dispatch.OpCreateAccount, "create"); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("0x%030x", len(f.accounts)+1)
	f.accounts = append(f.accounts, id)
	return []byte(id), nil
}

func (f *fakeExecutor) ListAccounts(ctx context.Context) ([]byte, error) {
	defer f.leave()
	if err := f.enter(ctx, dispatch.OpListAccounts, "list"); err != nil {
		return nil, err
	}
	return dispatch.EncodeAccounts(f.accounts)
}

func (f *fakeExecutor) GetBalance(ctx context.Context, accountID string) ([]byte, error) {
	defer f.leave()
	if err := f.enter(ctx, dispatch.OpGetBalance, accountID); err != nil {
		return nil, err
	}
	if p, ok := f.payload[dispatch.OpGetBalance]; ok {
		return p, nil
	}
	b := dispatch.Balance{AccountID: accountID}
	if amt := f.balances[accountID]; amt > 0 {
		b.FungibleAssets = []dispatch.Asset{{FaucetID: "0xfaucet", Amount: amt}}
	}
	return dispatch.EncodeBalance(b)
}

func (f *fakeExecutor) ListConsumableNotes(ctx context.Context, accountID string) ([]byte, error) {
	defer f.leave()
	if err := f.enter(ctx, dispatch.OpListConsumableNotes, "notes"); err != nil {
		return nil, err
	}
	var l dispatch.NoteList
	for _, id := range f.notes[accountID] {
		l.Notes = append(l.Notes, dispatch.Note{
			NoteID:          id,
			Assets:          []dispatch.Asset{{FaucetID: "0xfaucet", Amount: 10}},
			IsAuthenticated: true,
		})
	}
	return dispatch.EncodeNotes(l)
}

func (f *fakeExecutor) ConsumeNotes(ctx context.Context, accountID string, noteIDs []string) ([]byte, error) {
	defer f.leave()
	if err := f.enter(ctx, dispatch.OpConsumeNotes, "consume"); err != nil {
		return nil, err
	}
	left := f.notes[accountID][:0]
	for _, id := range f.notes[accountID] {
		if slices.Contains(noteIDs, id) {
			f.balances[accountID] += 10
			continue
		}
		left = append(left, id)
	}
	f.notes[accountID] = left
	return []byte(fmt.Sprintf("0xtx%d", f.calls.Load())), nil
}

func (f *fakeExecutor) TestConnection(ctx context.Context) error {
	defer f.leave()
	return f.enter(ctx, dispatch.OpTestConnection, "ping")
}

func (f *fakeExecutor) Close() error {
	f.closes.Add(1)
	return nil
}

func (f *fakeExecutor) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.order)
}

// waitStarted blocks until the gated operation is running on the worker.
func (f *fakeExecutor) waitStarted(tb testing.TB) {
	tb.Helper()
	select {
	case <-f.started:
	case <-time.After(5 * time.Second):
		tb.Fatalf("gated operation never started")
	}
}

// newHandle opens a Handle on exec and closes it when the test ends.
func newHandle(tb testing.TB, exec dispatch.Executor, opts ...dispatch.Option) *dispatch.Handle {
	tb.Helper()
	h, err := dispatch.New(exec, opts...)
	if err != nil {
		tb.Fatalf("New: %v", err)
	}
	tb.Cleanup(func() {
		if err := h.Close(); err != nil && !errors.Is(err, dispatch.ErrClosed) {
			tb.Errorf("Close: %v", err)
		}
	})
	return h
}

// eventually polls cond until it holds or the deadline passes.
func eventually(tb testing.TB, what string, cond func() bool) {
	tb.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			tb.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// checkBuffers fails if any buffer is still outstanding.
func checkBuffers(tb testing.TB, h *dispatch.Handle) {
	tb.Helper()
	eventually(tb, "buffers released", func() bool {
		return h.Stats().Buffers.Outstanding() == 0
	})
}
