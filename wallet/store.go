// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"

	"code.hybscloud.com/dispatch"
)

// Key layout:
//
//	acct/<15-byte id>  accountRecord
//	note/<32-byte id>  noteRecord
//	meta/height        big-endian uint32
var (
	prefixAccount = []byte("acct/")
	prefixNote    = []byte("note/")
	keyHeight     = []byte("meta/height")
)

var errNotFound = errors.New("wallet: not found")

type accountRecord struct {
	Pub   []byte            `msgpack:"pub"`
	Vault map[string]uint64 `msgpack:"vault"`
}

type noteRecord struct {
	Owner    []byte           `msgpack:"owner"`
	Assets   []dispatch.Asset `msgpack:"assets"`
	Block    uint32           `msgpack:"block"`
	Consumed []byte           `msgpack:"consumed,omitempty"`
}

type storedNote struct {
	ID NoteID
	noteRecord
}

// Store is the local wallet database.
type Store struct {
	db *leveldb.DB
}

// OpenStore opens the leveldb database at path.
// An empty path opens a database held in memory.
func OpenStore(path string) (*Store, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: open store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func accountKey(id AccountID) []byte {
	return append(bytes.Clone(prefixAccount), id[:]...)
}

func noteKey(id NoteID) []byte {
	return append(bytes.Clone(prefixNote), id[:]...)
}

func (s *Store) get(key []byte, v any) error {
	p, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return errNotFound
	}
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(p, v)
}

func put(b *leveldb.Batch, key []byte, v any) error {
	p, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	b.Put(key, p)
	return nil
}

// Height returns the last synced block height, 0 before the first sync.
func (s *Store) Height() (uint32, error) {
	p, err := s.db.Get(keyHeight, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(p) != 4 {
		return 0, fmt.Errorf("wallet: corrupt height record (%d bytes)", len(p))
	}
	return binary.BigEndian.Uint32(p), nil
}

// PutAccount records a new account with an empty vault.
func (s *Store) PutAccount(id AccountID, pub []byte) error {
	b := new(leveldb.Batch)
	if err := put(b, accountKey(id), accountRecord{Pub: pub, Vault: map[string]uint64{}}); err != nil {
		return err
	}
	return s.db.Write(b, nil)
}

func (s *Store) account(id AccountID) (accountRecord, error) {
	var rec accountRecord
	err := s.get(accountKey(id), &rec)
	if rec.Vault == nil {
		rec.Vault = map[string]uint64{}
	}
	return rec, err
}

// Accounts returns every account id in key order.
func (s *Store) Accounts() ([]AccountID, error) {
	it := s.db.NewIterator(util.BytesPrefix(prefixAccount), nil)
	defer it.Release()
	var ids []AccountID
	for it.Next() {
		var id AccountID
		copy(id[:], it.Key()[len(prefixAccount):])
		ids = append(ids, id)
	}
	return ids, it.Error()
}

// ApplySync stores the new notes of up and advances the height.
// Notes already known are left untouched.
func (s *Store) ApplySync(up SyncUpdate) error {
	b := new(leveldb.Batch)
	for _, n := range up.Notes {
		ok, err := s.db.Has(noteKey(n.ID), nil)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		rec := noteRecord{Owner: n.Owner[:], Assets: n.Assets, Block: n.Block}
		if err := put(b, noteKey(n.ID), rec); err != nil {
			return err
		}
	}
	var h [4]byte
	binary.BigEndian.PutUint32(h[:], up.Height)
	b.Put(keyHeight, h[:])
	return s.db.Write(b, nil)
}

func (s *Store) note(id NoteID) (noteRecord, error) {
	var rec noteRecord
	return rec, s.get(noteKey(id), &rec)
}

// Consumable returns the unconsumed notes of owner, or of every account
// when owner is nil, ordered by block.
func (s *Store) Consumable(owner *AccountID) ([]storedNote, error) {
	it := s.db.NewIterator(util.BytesPrefix(prefixNote), nil)
	defer it.Release()
	var notes []storedNote
	for it.Next() {
		var n storedNote
		if err := msgpack.Unmarshal(it.Value(), &n.noteRecord); err != nil {
			return nil, err
		}
		if len(n.Consumed) != 0 || (owner != nil && !bytes.Equal(n.Owner, owner[:])) {
			continue
		}
		copy(n.ID[:], it.Key()[len(prefixNote):])
		notes = append(notes, n)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	slices.SortFunc(notes, func(a, b storedNote) int {
		return cmp.Or(cmp.Compare(a.Block, b.Block), bytes.Compare(a.ID[:], b.ID[:]))
	})
	return notes, nil
}

// Consume marks notes consumed by tx and credits their assets to the
// vault of account in one batch.
func (s *Store) Consume(account AccountID, notes []NoteID, tx TxID) error {
	acct, err := s.account(account)
	if err != nil {
		return err
	}
	b := new(leveldb.Batch)
	for _, id := range notes {
		rec, err := s.note(id)
		if err != nil {
			return err
		}
		rec.Consumed = tx[:]
		for _, a := range rec.Assets {
			acct.Vault[a.FaucetID] += a.Amount
		}
		if err := put(b, noteKey(id), rec); err != nil {
			return err
		}
	}
	if err := put(b, accountKey(account), acct); err != nil {
		return err
	}
	return s.db.Write(b, nil)
}
