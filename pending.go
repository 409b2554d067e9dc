// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// entry is one suspended protocol waiting for a completion.
type entry struct {
	accountID string
	resume    func(Completion)
}

// pendingTable owns the entries of in-flight asynchronous operations.
// Each entry is reclaimed exactly once, by whichever of take or sweep
// removes it first.
type pendingTable struct {
	seq atomix.Uint64
	mu  sync.Mutex
	m   map[uint64]*entry
}

func (t *pendingTable) init() {
	t.m = make(map[uint64]*entry)
}

// put stores en under a fresh token.
func (t *pendingTable) put(en *entry) uint64 {
	tok := t.seq.Add(1)
	t.mu.Lock()
	t.m[tok] = en
	t.mu.Unlock()
	return tok
}

// take removes and returns the entry for tok, or nil if it is gone.
func (t *pendingTable) take(tok uint64) *entry {
	t.mu.Lock()
	en := t.m[tok]
	delete(t.m, tok)
	t.mu.Unlock()
	return en
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	n := len(t.m)
	t.mu.Unlock()
	return n
}

// sweep removes every entry and passes it to fn outside the lock.
func (t *pendingTable) sweep(fn func(*entry)) int {
	t.mu.Lock()
	all := make([]*entry, 0, len(t.m))
	for tok, en := range t.m {
		all = append(all, en)
		delete(t.m, tok)
	}
	t.mu.Unlock()
	for _, en := range all {
		fn(en)
	}
	return len(all)
}
