// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package boundary exposes wallet handles in the shape of a foreign
// function interface.
//
// Every function returns a Code. Handles are plain integers. Blocking
// forms copy their result into a caller-owned buffer; when the buffer is
// too small they return CodeInvalidParam and report the size needed.
// Non-blocking forms return the admission Code at once and, only when it
// is CodeOK, invoke the callback exactly once from the worker goroutine.
// A Buffer passed to a callback belongs to the callee until BytesFree.
package boundary

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"code.hybscloud.com/dispatch"
	"code.hybscloud.com/dispatch/wallet"
)

// Code aliases dispatch.Code so values cross unchanged.
type Code = dispatch.Code

const (
	CodeOK            = dispatch.CodeOK
	CodeInvalidParam  = dispatch.CodeInvalidParam
	CodeInvalidHandle = dispatch.CodeInvalidHandle
	CodeAccount       = dispatch.CodeAccount
	CodeNote          = dispatch.CodeNote
	CodeLookup        = dispatch.CodeLookup
	CodeSubmit        = dispatch.CodeSubmit
	CodeQueueFull     = dispatch.CodeQueueFull
	CodeTimeout       = dispatch.CodeTimeout
)

// Callback shapes.
type (
	SyncCallback   func(userData unsafe.Pointer, code Code, height uint32)
	BytesCallback  func(userData unsafe.Pointer, code Code, buf *dispatch.Buffer)
	StatusCallback func(userData unsafe.Pointer, code Code)
)

var (
	logMu sync.RWMutex
	log   = zerolog.Nop()
)

// SetLogger sets the logger handed to handles created afterwards.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	log = l
	logMu.Unlock()
}

func logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}

// Create opens a wallet and returns its handle in out.
func Create(keystorePath, storePath, rpcEndpoint string, out *Handle) Code {
	if out == nil || keystorePath == "" || storePath == "" {
		return CodeInvalidParam
	}
	l := logger()
	c, err := wallet.Open(wallet.Config{
		KeystorePath: keystorePath,
		StorePath:    storePath,
		Endpoint:     rpcEndpoint,
		Logger:       &l,
	}, nil)
	if err != nil {
		l.Warn().Err(err).Str("keystore", keystorePath).Msg("wallet open failed")
		return CodeInvalidHandle
	}
	code := CreateWith(c, out)
	if code != CodeOK {
		if err := c.Close(); err != nil {
			l.Warn().Err(err).Str("keystore", keystorePath).Msg("wallet close failed")
		}
	}
	return code
}

// CreateWith starts a handle over exec.
func CreateWith(exec dispatch.Executor, out *Handle, opts ...dispatch.Option) Code {
	if out == nil || exec == nil {
		return CodeInvalidParam
	}
	d, err := dispatch.New(exec, append([]dispatch.Option{dispatch.WithLogger(logger())}, opts...)...)
	if err != nil {
		return CodeInvalidHandle
	}
	*out = register(d)
	return CodeOK
}

// Destroy closes h. Destroying an unknown or destroyed handle does nothing.
func Destroy(h Handle) {
	d := take(h)
	if d == nil {
		return
	}
	if err := d.Close(); err != nil {
		l := logger()
		l.Debug().Err(err).Uint64("handle", uint64(h)).Msg("destroy")
	}
}

// Stats reports the counters of h.
func Stats(h Handle) (dispatch.Stats, Code) {
	d := lookup(h)
	if d == nil {
		return dispatch.Stats{}, CodeInvalidHandle
	}
	return d.Stats(), CodeOK
}

// BytesFree returns a callback buffer. A nil buffer is ignored.
func BytesFree(buf *dispatch.Buffer) {
	if buf != nil {
		buf.Release()
	}
}

// call runs req to completion and copies its payload into out.
func call(h Handle, req dispatch.Request, out []byte, outLen *int) Code {
	d := lookup(h)
	if d == nil {
		return CodeInvalidHandle
	}
	if outLen == nil {
		return CodeInvalidParam
	}
	c, err := d.Do(context.Background(), req)
	if err != nil {
		return dispatch.CodeOf(err)
	}
	if c.Code != CodeOK {
		if c.Buf != nil {
			c.Buf.Release()
		}
		*outLen = 0
		return c.Code
	}
	if c.Buf == nil {
		*outLen = 0
		return CodeOK
	}
	defer c.Buf.Release()
	return copyOut(c.Buf.Bytes(), out, outLen)
}

func copyOut(p, out []byte, outLen *int) Code {
	*outLen = len(p)
	if len(p) > len(out) {
		return CodeInvalidParam
	}
	copy(out, p)
	return CodeOK
}

// submit admits req and forwards its completion to cb.
func submit(h Handle, req dispatch.Request, fn func(dispatch.Completion)) Code {
	d := lookup(h)
	if d == nil {
		return CodeInvalidHandle
	}
	if err := d.Submit(req, fn); err != nil {
		return dispatch.CodeOf(err)
	}
	return CodeOK
}

func bytesTo(cb BytesCallback, userData unsafe.Pointer) func(dispatch.Completion) {
	return func(c dispatch.Completion) { cb(userData, c.Code, c.Buf) }
}

func SyncState(h Handle, height *uint32) Code {
	d := lookup(h)
	if d == nil {
		return CodeInvalidHandle
	}
	if height == nil {
		return CodeInvalidParam
	}
	n, err := d.SyncState(context.Background())
	if err != nil {
		return dispatch.CodeOf(err)
	}
	*height = n
	return CodeOK
}

func SyncStateAsync(h Handle, cb SyncCallback, userData unsafe.Pointer) Code {
	if cb == nil {
		return CodeInvalidParam
	}
	return submit(h, dispatch.Request{Op: dispatch.OpSyncState}, func(c dispatch.Completion) {
		cb(userData, c.Code, c.Scalar)
	})
}

// CreateWallet creates an account from seed and writes its hex id to out.
func CreateWallet(h Handle, seed, out []byte, outLen *int) Code {
	return call(h, dispatch.Request{Op: dispatch.OpCreateAccount, Seed: seed}, out, outLen)
}

func CreateWalletAsync(h Handle, seed []byte, cb BytesCallback, userData unsafe.Pointer) Code {
	if cb == nil {
		return CodeInvalidParam
	}
	return submit(h, dispatch.Request{Op: dispatch.OpCreateAccount, Seed: seed}, bytesTo(cb, userData))
}

// GetAccounts writes the JSON array of account ids to out.
func GetAccounts(h Handle, out []byte, outLen *int) Code {
	return call(h, dispatch.Request{Op: dispatch.OpListAccounts}, out, outLen)
}

func GetAccountsAsync(h Handle, cb BytesCallback, userData unsafe.Pointer) Code {
	if cb == nil {
		return CodeInvalidParam
	}
	return submit(h, dispatch.Request{Op: dispatch.OpListAccounts}, bytesTo(cb, userData))
}

// GetBalance writes the JSON balance of accountID to out.
func GetBalance(h Handle, accountID string, out []byte, outLen *int) Code {
	if accountID == "" {
		return CodeInvalidParam
	}
	return call(h, dispatch.Request{Op: dispatch.OpGetBalance, AccountID: accountID}, out, outLen)
}

func GetBalanceAsync(h Handle, accountID string, cb BytesCallback, userData unsafe.Pointer) Code {
	if cb == nil || accountID == "" {
		return CodeInvalidParam
	}
	return submit(h, dispatch.Request{Op: dispatch.OpGetBalance, AccountID: accountID}, bytesTo(cb, userData))
}

// GetInputNotes writes the JSON consumable note list to out. An empty
// accountID lists the notes of every account.
func GetInputNotes(h Handle, accountID string, out []byte, outLen *int) Code {
	return call(h, dispatch.Request{Op: dispatch.OpListConsumableNotes, AccountID: accountID}, out, outLen)
}

func GetInputNotesAsync(h Handle, accountID string, cb BytesCallback, userData unsafe.Pointer) Code {
	if cb == nil {
		return CodeInvalidParam
	}
	return submit(h, dispatch.Request{Op: dispatch.OpListConsumableNotes, AccountID: accountID}, bytesTo(cb, userData))
}

// noteIDs parses a JSON array of note ids.
func noteIDs(s string) ([]string, Code) {
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil || len(ids) == 0 {
		return nil, CodeNote
	}
	return ids, CodeOK
}

// ConsumeNotes consumes the notes named by the JSON array noteIDsJSON and
// writes the transaction id to out.
func ConsumeNotes(h Handle, accountID, noteIDsJSON string, out []byte, outLen *int) Code {
	if accountID == "" {
		return CodeInvalidParam
	}
	ids, code := noteIDs(noteIDsJSON)
	if code != CodeOK {
		return code
	}
	return call(h, dispatch.Request{Op: dispatch.OpConsumeNotes, AccountID: accountID, NoteIDs: ids}, out, outLen)
}

func ConsumeNotesAsync(h Handle, accountID, noteIDsJSON string, cb BytesCallback, userData unsafe.Pointer) Code {
	if cb == nil || accountID == "" {
		return CodeInvalidParam
	}
	ids, code := noteIDs(noteIDsJSON)
	if code != CodeOK {
		return code
	}
	return submit(h, dispatch.Request{Op: dispatch.OpConsumeNotes, AccountID: accountID, NoteIDs: ids}, bytesTo(cb, userData))
}

func TestConnection(h Handle) Code {
	d := lookup(h)
	if d == nil {
		return CodeInvalidHandle
	}
	return dispatch.CodeOf(d.TestConnection(context.Background()))
}

func TestConnectionAsync(h Handle, cb StatusCallback, userData unsafe.Pointer) Code {
	if cb == nil {
		return CodeInvalidParam
	}
	return submit(h, dispatch.Request{Op: dispatch.OpTestConnection}, func(c dispatch.Completion) {
		cb(userData, c.Code)
	})
}

// Keccak256 writes the 32-byte digest of data to out.
func Keccak256(data, out []byte, outLen *int) Code {
	if outLen == nil {
		return CodeInvalidParam
	}
	sum := wallet.Keccak256(data)
	return copyOut(sum[:], out, outLen)
}

// AccountIDToHex writes the hex form of a raw account id, without prefix.
func AccountIDToHex(id, out []byte, outLen *int) Code {
	if outLen == nil || len(id) == 0 {
		return CodeInvalidParam
	}
	return copyOut([]byte(hex.EncodeToString(id)), out, outLen)
}
