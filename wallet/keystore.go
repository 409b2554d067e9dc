// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const secretSize = 32

// Keystore keeps one secret per file, named by the hex public key.
type Keystore struct {
	dir string
}

// OpenKeystore creates dir if needed.
func OpenKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("wallet: open keystore: %w", err)
	}
	return &Keystore{dir: dir}, nil
}

func (k *Keystore) path(pub []byte) string {
	return filepath.Join(k.dir, hex.EncodeToString(pub))
}

// Generate stores a fresh secret and returns its public key.
func (k *Keystore) Generate() ([]byte, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	pub := Keccak256(secret)
	if err := os.WriteFile(k.path(pub[:]), secret, 0o600); err != nil {
		return nil, fmt.Errorf("wallet: store key: %w", err)
	}
	return pub[:], nil
}

// Sign authenticates msg with the secret behind pub.
func (k *Keystore) Sign(pub []byte, msg ...[]byte) ([32]byte, error) {
	secret, err := os.ReadFile(k.path(pub))
	if errors.Is(err, fs.ErrNotExist) {
		return [32]byte{}, fmt.Errorf("wallet: no key for %x", pub)
	}
	if err != nil {
		return [32]byte{}, err
	}
	if len(secret) != secretSize {
		return [32]byte{}, fmt.Errorf("wallet: corrupt key %x", pub)
	}
	return Keccak256(append([][]byte{secret}, msg...)...), nil
}
