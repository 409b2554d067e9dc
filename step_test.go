// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch_test

import (
	"context"
	"slices"
	"testing"

	"code.hybscloud.com/dispatch"
	"code.hybscloud.com/kont"
)

func TestStepSuspendsOnEffect(t *testing.T) {
	protocol := dispatch.GetBalanceBind("0xabc", func(b dispatch.Balance) kont.Eff[string] {
		return kont.Pure(b.AccountID)
	})
	_, susp := dispatch.Step(protocol)
	if susp == nil {
		t.Fatalf("expected suspension")
	}
	req := dispatch.Pending(susp)
	if req.Op != dispatch.OpGetBalance || req.AccountID != "0xabc" {
		t.Fatalf("pending request: %+v", req)
	}

	// Resume by hand with a decoded value.
	result, next := susp.Resume(dispatch.Balance{AccountID: "0xabc"})
	if next != nil || result != "0xabc" {
		t.Fatalf("got %q, %v", result, next)
	}
}

func TestStepPendingRequests(t *testing.T) {
	cases := []struct {
		name string
		req  dispatch.Request
		step func() dispatch.Request
	}{
		{"sync", dispatch.Request{Op: dispatch.OpSyncState}, func() dispatch.Request {
			return pendingOf(kont.Perform(dispatch.SyncState{}))
		}},
		{"create", dispatch.Request{Op: dispatch.OpCreateAccount, Seed: []byte("s")}, func() dispatch.Request {
			return pendingOf(kont.Perform(dispatch.CreateAccount{Seed: []byte("s")}))
		}},
		{"list", dispatch.Request{Op: dispatch.OpListAccounts}, func() dispatch.Request {
			return pendingOf(kont.Perform(dispatch.ListAccounts{}))
		}},
		{"notes", dispatch.Request{Op: dispatch.OpListConsumableNotes, AccountID: "0xa"}, func() dispatch.Request {
			return pendingOf(kont.Perform(dispatch.ListConsumableNotes{AccountID: "0xa"}))
		}},
		{"consume", dispatch.Request{Op: dispatch.OpConsumeNotes, AccountID: "0xa", NoteIDs: []string{"0x1"}}, func() dispatch.Request {
			return pendingOf(kont.Perform(dispatch.ConsumeNotes{AccountID: "0xa", NoteIDs: []string{"0x1"}}))
		}},
		{"ping", dispatch.Request{Op: dispatch.OpTestConnection}, func() dispatch.Request {
			return pendingOf(kont.Perform(dispatch.TestConnection{}))
		}},
	}
	for _, tc := range cases {
		got := tc.step()
		if got.Op != tc.req.Op || got.AccountID != tc.req.AccountID ||
			!slices.Equal(got.NoteIDs, tc.req.NoteIDs) || string(got.Seed) != string(tc.req.Seed) {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.req)
		}
	}
}

func pendingOf[R any](protocol kont.Eff[R]) dispatch.Request {
	_, susp := dispatch.Step(protocol)
	defer susp.Discard()
	return dispatch.Pending(susp)
}

func TestExecComposedProtocol(t *testing.T) {
	skipRace(t)
	fake := newFake()
	fake.balances["0xabc"] = 7
	h := newHandle(t, fake)

	protocol := dispatch.TestConnectionThen(
		dispatch.SyncStateBind(func(height uint32) kont.Eff[uint64] {
			return dispatch.GetBalanceBind("0xabc", func(b dispatch.Balance) kont.Eff[uint64] {
				return kont.Pure(uint64(height) + b.Amount("0xfaucet"))
			})
		}),
	)
	got, err := dispatch.Exec(context.Background(), h, protocol)
	if err != nil || got != 8 {
		t.Fatalf("got %d, %v", got, err)
	}
	if order := fake.executed(); !slices.Equal(order, []string{"ping", "sync", "0xabc"}) {
		t.Fatalf("order %v", order)
	}
}

func TestUnhandledEffectPanics(t *testing.T) {
	type foreign struct {
		kont.Phantom[int]
	}
	mustPanic(t, "foreign effect", func() {
		dispatch.Exec(context.Background(), nil, kont.Perform(foreign{}))
	})
}
