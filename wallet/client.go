// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wallet is a note-based wallet client that runs behind a
// dispatch.Handle.
//
// A Client owns a leveldb store and a filesystem keystore and talks to a
// Node. It is not safe for concurrent use: share it between goroutines
// by handing it to dispatch.New.
package wallet

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"code.hybscloud.com/dispatch"
)

// Config locates the wallet state.
type Config struct {
	// KeystorePath is the secret key directory. Required.
	KeystorePath string `mapstructure:"keystore"`
	// StorePath is the leveldb directory. Empty keeps the store in memory.
	StorePath string `mapstructure:"store"`
	// Endpoint names the node network. Empty selects DefaultEndpoint.
	Endpoint string `mapstructure:"endpoint"`

	Logger *zerolog.Logger `mapstructure:"-"`
}

// Client implements dispatch.Executor.
type Client struct {
	node  Node
	store *Store
	keys  *Keystore
	log   zerolog.Logger
}

var _ dispatch.Executor = (*Client)(nil)

// Open opens the wallet described by cfg. A nil node is dialed from
// cfg.Endpoint.
func Open(cfg Config, node Node) (*Client, error) {
	if cfg.KeystorePath == "" {
		return nil, fmt.Errorf("%w: empty keystore path", dispatch.ErrInvalidParam)
	}
	if node == nil {
		n, err := Dial(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		node = n
	}
	keys, err := OpenKeystore(cfg.KeystorePath)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "wallet").Logger()
	}
	return &Client{node: node, store: store, keys: keys, log: log}, nil
}

func (c *Client) SyncState(ctx context.Context) (uint32, error) {
	from, err := c.store.Height()
	if err != nil {
		return 0, err
	}
	accounts, err := c.store.Accounts()
	if err != nil {
		return 0, err
	}
	up, err := c.node.SyncState(ctx, from, accounts)
	if err != nil {
		return 0, fmt.Errorf("sync from block %d: %w", from, err)
	}
	if err := c.store.ApplySync(up); err != nil {
		return 0, err
	}
	c.log.Debug().Uint32("from", from).Uint32("height", up.Height).Int("notes", len(up.Notes)).Msg("synced")
	return up.Height, nil
}

func (c *Client) CreateAccount(_ context.Context, seed []byte) ([]byte, error) {
	if len(seed) == 0 {
		seed = make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return nil, err
		}
	}
	pub, err := c.keys.Generate()
	if err != nil {
		return nil, err
	}
	sum := Keccak256(seed, pub)
	var id AccountID
	copy(id[:], sum[:])
	if err := c.store.PutAccount(id, pub); err != nil {
		return nil, err
	}
	c.log.Info().Stringer("account", id).Msg("account created")
	return []byte(id.Hex()), nil
}

func (c *Client) ListAccounts(context.Context) ([]byte, error) {
	ids, err := c.store.Accounts()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return dispatch.EncodeAccounts(out)
}

// lookup resolves a known account.
func (c *Client) lookup(s string) (AccountID, accountRecord, error) {
	id, err := ParseAccountID(s)
	if err != nil {
		return id, accountRecord{}, err
	}
	rec, err := c.store.account(id)
	if errors.Is(err, errNotFound) {
		return id, rec, fmt.Errorf("%w: account %s not found", dispatch.ErrLookup, id)
	}
	return id, rec, err
}

func (c *Client) GetBalance(_ context.Context, accountID string) ([]byte, error) {
	id, rec, err := c.lookup(accountID)
	if err != nil {
		return nil, err
	}
	b := dispatch.Balance{AccountID: id.Hex(), FungibleAssets: make([]dispatch.Asset, 0, len(rec.Vault))}
	for faucet, amount := range rec.Vault {
		b.FungibleAssets = append(b.FungibleAssets, dispatch.Asset{FaucetID: faucet, Amount: amount})
	}
	slices.SortFunc(b.FungibleAssets, func(x, y dispatch.Asset) int { return strings.Compare(x.FaucetID, y.FaucetID) })
	return dispatch.EncodeBalance(b)
}

func (c *Client) ListConsumableNotes(_ context.Context, accountID string) ([]byte, error) {
	var owner *AccountID
	if accountID != "" {
		id, _, err := c.lookup(accountID)
		if err != nil {
			return nil, err
		}
		owner = &id
	}
	stored, err := c.store.Consumable(owner)
	if err != nil {
		return nil, err
	}
	height, err := c.store.Height()
	if err != nil {
		return nil, err
	}
	l := dispatch.NoteList{Notes: make([]dispatch.Note, len(stored))}
	for i, n := range stored {
		l.Notes[i] = dispatch.Note{
			NoteID:          n.ID.Hex(),
			Assets:          n.Assets,
			IsAuthenticated: n.Block <= height,
		}
	}
	return dispatch.EncodeNotes(l)
}

func (c *Client) ConsumeNotes(ctx context.Context, accountID string, noteIDs []string) ([]byte, error) {
	id, rec, err := c.lookup(accountID)
	if err != nil {
		return nil, err
	}
	if len(noteIDs) == 0 {
		return nil, fmt.Errorf("%w: no notes", dispatch.ErrNote)
	}
	notes := make([]NoteID, len(noteIDs))
	msg := [][]byte{id[:]}
	for i, s := range noteIDs {
		nid, err := ParseNoteID(s)
		if err != nil {
			return nil, err
		}
		if slices.Contains(notes[:i], nid) {
			return nil, fmt.Errorf("%w: note %s listed twice", dispatch.ErrNote, nid)
		}
		n, err := c.store.note(nid)
		switch {
		case errors.Is(err, errNotFound):
			return nil, fmt.Errorf("%w: note %s unknown", dispatch.ErrNote, nid)
		case err != nil:
			return nil, err
		case len(n.Consumed) != 0:
			return nil, fmt.Errorf("%w: note %s already consumed", dispatch.ErrNote, nid)
		case string(n.Owner) != string(id[:]):
			return nil, fmt.Errorf("%w: note %s not addressed to %s", dispatch.ErrNote, nid, id)
		}
		notes[i] = nid
		msg = append(msg, nid[:])
	}

	sig, err := c.keys.Sign(rec.Pub, msg...)
	if err != nil {
		return nil, err
	}
	tx := Transaction{ID: TxID(sig), Account: id, Notes: notes}
	if err := c.node.SubmitTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: %w", dispatch.ErrSubmit, err)
	}
	if err := c.store.Consume(id, notes, tx.ID); err != nil {
		return nil, err
	}
	c.log.Info().Stringer("account", id).Stringer("tx", tx.ID).Int("notes", len(notes)).Msg("notes consumed")
	return []byte(tx.ID.Hex()), nil
}

func (c *Client) TestConnection(ctx context.Context) error {
	return c.node.Ping(ctx)
}

func (c *Client) Close() error {
	return c.store.Close()
}
