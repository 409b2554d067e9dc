// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Asset is a fungible amount issued by one faucet.
type Asset struct {
	FaucetID string `json:"faucet_id"`
	Amount   uint64 `json:"amount"`
}

// Balance is the vault summary of one account.
type Balance struct {
	AccountID             string  `json:"account_id"`
	FungibleAssets        []Asset `json:"fungible_assets"`
	TotalFungibleCount    int     `json:"total_fungible_count"`
	TotalNonFungibleCount int     `json:"total_non_fungible_count"`
}

// Amount returns the amount held from faucetID.
func (b Balance) Amount(faucetID string) uint64 {
	for _, a := range b.FungibleAssets {
		if a.FaucetID == faucetID {
			return a.Amount
		}
	}
	return 0
}

// Note is a consumable input note.
type Note struct {
	NoteID          string  `json:"note_id"`
	Assets          []Asset `json:"assets"`
	IsAuthenticated bool    `json:"is_authenticated"`
}

// NoteList is the set of notes an account can consume.
type NoteList struct {
	Notes      []Note `json:"notes"`
	TotalCount int    `json:"total_count"`
}

// IDs returns the note ids in list order.
func (l NoteList) IDs() []string {
	ids := make([]string, len(l.Notes))
	for i, n := range l.Notes {
		ids[i] = n.NoteID
	}
	return ids
}

// decoder turns a successful completion payload into a value.
type decoder[T any] func(p []byte) (T, error)

// finish converts c into a result. The buffer, if any, is released
// before finish returns.
func finish[T any](req Request, c Completion, dec decoder[T]) (T, error) {
	var zero T
	if c.Code != CodeOK {
		if c.Buf != nil {
			c.Buf.Release()
		}
		return zero, enrich(req, c)
	}
	if c.Buf == nil {
		return zero, newError(req, CodeLookup, fmt.Errorf("%w: missing payload", ErrDecode))
	}
	v, err := dec(c.Buf.Bytes())
	c.Buf.Release()
	if err != nil {
		return zero, newError(req, CodeLookup, fmt.Errorf("%w: %w", ErrDecode, err))
	}
	return v, nil
}

// enrich returns the error of a failed completion with req's context.
func enrich(req Request, c Completion) error {
	var e *Error
	if errors.As(c.Err, &e) {
		if e.AccountID == "" && req.AccountID != "" {
			cp := *e
			cp.AccountID = req.AccountID
			return &cp
		}
		return e
	}
	err := c.Err
	if err == nil {
		err = c.Code.Err()
	}
	return newError(req, c.Code, err)
}

func decodeText(p []byte) (string, error) {
	if len(p) == 0 {
		return "", errors.New("empty text")
	}
	return string(p), nil
}

func decodeAccounts(p []byte) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(p, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func decodeBalance(p []byte) (Balance, error) {
	var b Balance
	if err := json.Unmarshal(p, &b); err != nil {
		return Balance{}, err
	}
	if b.AccountID == "" {
		return Balance{}, errors.New("balance without account_id")
	}
	if b.TotalFungibleCount != len(b.FungibleAssets) {
		return Balance{}, fmt.Errorf("total_fungible_count %d, have %d assets",
			b.TotalFungibleCount, len(b.FungibleAssets))
	}
	return b, nil
}

func decodeNotes(p []byte) (NoteList, error) {
	var l NoteList
	if err := json.Unmarshal(p, &l); err != nil {
		return NoteList{}, err
	}
	if l.TotalCount != len(l.Notes) {
		return NoteList{}, fmt.Errorf("total_count %d, have %d notes", l.TotalCount, len(l.Notes))
	}
	if l.Notes == nil {
		l.Notes = []Note{}
	}
	return l, nil
}

// EncodeAccounts renders account ids the way ListAccounts reports them.
func EncodeAccounts(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

// EncodeBalance renders b the way GetBalance reports it.
func EncodeBalance(b Balance) ([]byte, error) {
	if b.FungibleAssets == nil {
		b.FungibleAssets = []Asset{}
	}
	b.TotalFungibleCount = len(b.FungibleAssets)
	return json.Marshal(b)
}

// EncodeNotes renders l the way ListConsumableNotes reports it.
func EncodeNotes(l NoteList) ([]byte, error) {
	notes := make([]Note, len(l.Notes))
	copy(notes, l.Notes)
	for i := range notes {
		if notes[i].Assets == nil {
			notes[i].Assets = []Asset{}
		}
	}
	l.Notes = notes
	l.TotalCount = len(l.Notes)
	return json.Marshal(l)
}
