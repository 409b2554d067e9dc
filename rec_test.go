// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"code.hybscloud.com/dispatch"
	"code.hybscloud.com/kont"
)

func TestLoopPure(t *testing.T) {
	// Count to 10 without performing any effect.
	protocol := dispatch.Loop(1, func(i int) kont.Eff[kont.Either[int, int]] {
		if i >= 10 {
			return kont.Pure(kont.Right[int, int](i))
		}
		return kont.Pure(kont.Left[int, int](i + 1))
	})
	result, susp := dispatch.Step(protocol)
	if susp != nil {
		t.Fatalf("pure loop suspended")
	}
	if result != 10 {
		t.Fatalf("got %d, want 10", result)
	}
}

func TestLoopPollsUntilHeight(t *testing.T) {
	skipRace(t)
	h := newHandle(t, newFake())

	// Sync until the node reports height 5.
	protocol := dispatch.Loop(0, func(rounds int) kont.Eff[kont.Either[int, int]] {
		return dispatch.SyncStateBind(func(height uint32) kont.Eff[kont.Either[int, int]] {
			if height >= 5 {
				return kont.Pure(kont.Right[int, int](rounds + 1))
			}
			return kont.Pure(kont.Left[int, int](rounds + 1))
		})
	})
	rounds, err := dispatch.Exec(context.Background(), h, protocol)
	if err != nil || rounds != 5 {
		t.Fatalf("got %d, %v", rounds, err)
	}
}

func TestSweepNotes(t *testing.T) {
	skipRace(t)
	fake := newFake()
	for i := range 5 {
		fake.notes["0xabc"] = append(fake.notes["0xabc"], fmt.Sprintf("0x%02x", i))
	}
	h := newHandle(t, fake)

	txs, err := await(t, h, dispatch.SweepNotes("0xabc", 2))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	b, err := h.GetBalance(context.Background(), "0xabc")
	if err != nil || b.Amount("0xfaucet") != 50 {
		t.Fatalf("balance after sweep: %+v, %v", b, err)
	}
	if st := h.Stats(); st.PendingAsync != 0 {
		t.Fatalf("pending entries left: %d", st.PendingAsync)
	}
	checkBuffers(t, h)
}

func TestSweepNotesNothingToConsume(t *testing.T) {
	skipRace(t)
	h := newHandle(t, newFake())

	txs, err := dispatch.Exec(context.Background(), h, dispatch.SweepNotes("0xabc", 0))
	if err != nil || txs == nil || len(txs) != 0 {
		t.Fatalf("got %v, %v", txs, err)
	}
}

func TestSweepNotesStopsOnFailure(t *testing.T) {
	skipRace(t)
	fake := newFake()
	fake.notes["0xabc"] = []string{"0x01"}
	fake.fail[dispatch.OpConsumeNotes] = fmt.Errorf("%w: note already consumed", dispatch.ErrNote)
	h := newHandle(t, fake)

	_, err := await(t, h, dispatch.SweepNotes("0xabc", 0))
	if !errors.Is(err, dispatch.ErrNote) || dispatch.CodeOf(err) != dispatch.CodeNote {
		t.Fatalf("got %v, want note failure", err)
	}
}
