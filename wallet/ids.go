// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"code.hybscloud.com/dispatch"
)

// Keccak256 returns the legacy Keccak-256 digest of the concatenated parts.
func Keccak256(parts ...[]byte) (sum [32]byte) {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	h.Sum(sum[:0])
	return sum
}

// AccountID identifies an account. It is the 15-byte prefix of
// keccak(seed ‖ public key).
type AccountID [15]byte

// Hex returns the 0x-prefixed hex form of id.
func (id AccountID) Hex() string { return "0x" + hex.EncodeToString(id[:]) }

func (id AccountID) String() string { return id.Hex() }

// ParseAccountID parses a hex account id with or without the 0x prefix.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	if err := parseHex(id[:], s); err != nil {
		return id, fmt.Errorf("%w: account id %q: %w", dispatch.ErrAccount, s, err)
	}
	return id, nil
}

// NoteID identifies a note.
type NoteID [32]byte

func (id NoteID) Hex() string { return "0x" + hex.EncodeToString(id[:]) }

func (id NoteID) String() string { return id.Hex() }

// ParseNoteID parses a hex note id with or without the 0x prefix.
func ParseNoteID(s string) (NoteID, error) {
	var id NoteID
	if err := parseHex(id[:], s); err != nil {
		return id, fmt.Errorf("%w: note id %q: %w", dispatch.ErrNote, s, err)
	}
	return id, nil
}

// TxID identifies a submitted transaction.
type TxID [32]byte

func (id TxID) Hex() string { return "0x" + hex.EncodeToString(id[:]) }

func (id TxID) String() string { return id.Hex() }

func parseHex(dst []byte, s string) error {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*len(dst) {
		return fmt.Errorf("want %d hex digits, have %d", 2*len(dst), len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}
