// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"code.hybscloud.com/dispatch"
)

// DefaultEndpoint is the network selected by an empty endpoint.
const DefaultEndpoint = "testnet"

var (
	// ErrUnreachable is returned when the node cannot be contacted.
	ErrUnreachable = errors.New("wallet: node unreachable")
	// ErrRejected is returned when the node refuses a transaction.
	ErrRejected = errors.New("wallet: transaction rejected")
)

// InputNote is a note addressed to an account.
type InputNote struct {
	ID     NoteID
	Owner  AccountID
	Assets []dispatch.Asset
	Block  uint32
}

// SyncUpdate is the node state an account set has not seen yet.
type SyncUpdate struct {
	Height uint32
	Notes  []InputNote
}

// Transaction consumes notes into the vault of Account.
type Transaction struct {
	ID      TxID
	Account AccountID
	Notes   []NoteID
}

// Node is the remote side of a wallet.
// Implementations must be safe for concurrent use.
type Node interface {
	Ping(ctx context.Context) error
	// SyncState returns the notes of accounts created after block from.
	SyncState(ctx context.Context, from uint32, accounts []AccountID) (SyncUpdate, error)
	SubmitTransaction(ctx context.Context, tx Transaction) error
}

var networks = struct {
	sync.Mutex
	m map[string]Node
}{m: make(map[string]Node)}

// Register makes n reachable by Dial under endpoint.
func Register(endpoint string, n Node) {
	networks.Lock()
	defer networks.Unlock()
	networks.m[endpoint] = n
}

// Dial returns the node registered under endpoint.
// The default network is created in process on first use.
func Dial(endpoint string) (Node, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	networks.Lock()
	defer networks.Unlock()
	if n, ok := networks.m[endpoint]; ok {
		return n, nil
	}
	if endpoint == DefaultEndpoint {
		n := NewMemNode()
		networks.m[endpoint] = n
		return n, nil
	}
	return nil, fmt.Errorf("%w: unknown endpoint %q", ErrUnreachable, endpoint)
}

// MemNode is an in-process Node.
type MemNode struct {
	mu      sync.Mutex
	height  uint32
	seq     uint64
	notes   []InputNote
	spent   map[NoteID]TxID
	latency time.Duration
	down    bool
	reject  bool
}

// NewMemNode returns a node at height 1 with no notes.
func NewMemNode() *MemNode {
	return &MemNode{height: 1, spent: make(map[NoteID]TxID)}
}

// Mint creates a note for owner carrying amount from faucetID in a new block.
func (n *MemNode) Mint(owner AccountID, faucetID string, amount uint64) NoteID {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.height++
	n.seq++
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], amount)
	binary.BigEndian.PutUint64(buf[8:], n.seq)
	id := NoteID(Keccak256(owner[:], []byte(faucetID), buf[:]))
	n.notes = append(n.notes, InputNote{
		ID:     id,
		Owner:  owner,
		Assets: []dispatch.Asset{{FaucetID: faucetID, Amount: amount}},
		Block:  n.height,
	})
	return id
}

// SetLatency delays every call by d.
func (n *MemNode) SetLatency(d time.Duration) {
	n.mu.Lock()
	n.latency = d
	n.mu.Unlock()
}

// SetDown makes every call fail with ErrUnreachable.
func (n *MemNode) SetDown(down bool) {
	n.mu.Lock()
	n.down = down
	n.mu.Unlock()
}

// Reject makes SubmitTransaction fail with ErrRejected.
func (n *MemNode) Reject(reject bool) {
	n.mu.Lock()
	n.reject = reject
	n.mu.Unlock()
}

// Height returns the current block height.
func (n *MemNode) Height() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// Spent reports the transaction that consumed note id, if any.
func (n *MemNode) Spent(id NoteID) (TxID, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	tx, ok := n.spent[id]
	return tx, ok
}

func (n *MemNode) wait(ctx context.Context) error {
	n.mu.Lock()
	d, down := n.latency, n.down
	n.mu.Unlock()
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if down {
		return ErrUnreachable
	}
	return nil
}

func (n *MemNode) Ping(ctx context.Context) error {
	return n.wait(ctx)
}

func (n *MemNode) SyncState(ctx context.Context, from uint32, accounts []AccountID) (SyncUpdate, error) {
	if err := n.wait(ctx); err != nil {
		return SyncUpdate{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	up := SyncUpdate{Height: n.height}
	for _, note := range n.notes {
		if note.Block <= from || !slices.Contains(accounts, note.Owner) {
			continue
		}
		if _, ok := n.spent[note.ID]; ok {
			continue
		}
		note.Assets = slices.Clone(note.Assets)
		up.Notes = append(up.Notes, note)
	}
	return up, nil
}

func (n *MemNode) SubmitTransaction(ctx context.Context, tx Transaction) error {
	if err := n.wait(ctx); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.reject {
		return ErrRejected
	}
	for _, id := range tx.Notes {
		i := slices.IndexFunc(n.notes, func(note InputNote) bool { return note.ID == id })
		if i < 0 || n.notes[i].Owner != tx.Account {
			return fmt.Errorf("%w: note %s not addressed to %s", ErrRejected, id, tx.Account)
		}
		if _, ok := n.spent[id]; ok {
			return fmt.Errorf("%w: note %s already spent", ErrRejected, id)
		}
	}
	for _, id := range tx.Notes {
		n.spent[id] = tx.ID
	}
	n.height++
	return nil
}
