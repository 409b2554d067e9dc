// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package boundary_test

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/dispatch"
	"code.hybscloud.com/dispatch/boundary"
	"code.hybscloud.com/dispatch/wallet"
)

func create(t *testing.T) (boundary.Handle, *wallet.MemNode) {
	t.Helper()
	skipRace(t)
	node := wallet.NewMemNode()
	endpoint := "boundary/" + t.Name()
	wallet.Register(endpoint, node)

	dir := t.TempDir()
	var h boundary.Handle
	code := boundary.Create(filepath.Join(dir, "keys"), filepath.Join(dir, "store"), endpoint, &h)
	require.Equal(t, boundary.CodeOK, code)
	require.NotZero(t, h)
	t.Cleanup(func() { boundary.Destroy(h) })
	return h, node
}

func TestCreateInvalidParams(t *testing.T) {
	var h boundary.Handle
	require.Equal(t, boundary.CodeInvalidParam, boundary.Create("", "store", "", &h))
	require.Equal(t, boundary.CodeInvalidParam, boundary.Create("keys", "", "", &h))
	require.Equal(t, boundary.CodeInvalidParam, boundary.Create("keys", "store", "", nil))
	require.Equal(t, boundary.CodeInvalidParam, boundary.CreateWith(nil, &h))
}

func TestCreateUnknownEndpoint(t *testing.T) {
	dir := t.TempDir()
	var h boundary.Handle
	code := boundary.Create(filepath.Join(dir, "keys"), filepath.Join(dir, "store"), "nowhere", &h)
	require.Equal(t, boundary.CodeInvalidHandle, code)
	require.Zero(t, h)
}

func TestSetLoggerConcurrentWithCreate(t *testing.T) {
	t.Cleanup(func() { boundary.SetLogger(zerolog.Nop()) })
	dir := t.TempDir()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			for range 50 {
				if i%2 == 0 {
					boundary.SetLogger(zerolog.New(io.Discard))
					continue
				}
				var h boundary.Handle
				boundary.Create(filepath.Join(dir, "keys"), filepath.Join(dir, "store"), "nowhere", &h)
			}
		})
	}
	wg.Wait()

	var buf bytes.Buffer
	boundary.SetLogger(zerolog.New(&buf))
	var h boundary.Handle
	require.Equal(t, boundary.CodeInvalidHandle, boundary.Create(filepath.Join(dir, "keys"), filepath.Join(dir, "store"), "nowhere", &h))
	require.Contains(t, buf.String(), "wallet open failed")
}

func TestDestroyTwice(t *testing.T) {
	h, _ := create(t)
	live := boundary.Live()
	boundary.Destroy(h)
	boundary.Destroy(h)
	require.Equal(t, live-1, boundary.Live())

	var height uint32
	require.Equal(t, boundary.CodeInvalidHandle, boundary.SyncState(h, &height))
	require.Equal(t, boundary.CodeInvalidHandle, boundary.TestConnection(h))
	_, code := boundary.Stats(h)
	require.Equal(t, boundary.CodeInvalidHandle, code)
}

func TestBlockingForms(t *testing.T) {
	h, node := create(t)

	out := make([]byte, 256)
	n := 0
	require.Equal(t, boundary.CodeOK, boundary.CreateWallet(h, []byte("seed"), out, &n))
	accountID := string(out[:n])
	id, err := wallet.ParseAccountID(accountID)
	require.NoError(t, err)

	require.Equal(t, boundary.CodeOK, boundary.GetAccounts(h, out, &n))
	require.JSONEq(t, `["`+accountID+`"]`, string(out[:n]))

	note := node.Mint(id, "0xfaucet", 25)
	var height uint32
	require.Equal(t, boundary.CodeOK, boundary.SyncState(h, &height))
	require.Equal(t, node.Height(), height)

	require.Equal(t, boundary.CodeOK, boundary.GetInputNotes(h, accountID, out, &n))
	var notes dispatch.NoteList
	require.NoError(t, json.Unmarshal(out[:n], &notes))
	require.Equal(t, []string{note.Hex()}, notes.IDs())

	ids, err := json.Marshal(notes.IDs())
	require.NoError(t, err)
	require.Equal(t, boundary.CodeOK, boundary.ConsumeNotes(h, accountID, string(ids), out, &n))
	require.True(t, strings.HasPrefix(string(out[:n]), "0x"))

	require.Equal(t, boundary.CodeOK, boundary.GetBalance(h, accountID, out, &n))
	var b dispatch.Balance
	require.NoError(t, json.Unmarshal(out[:n], &b))
	require.Equal(t, uint64(25), b.Amount("0xfaucet"))

	require.Equal(t, boundary.CodeOK, boundary.TestConnection(h))
	node.SetDown(true)
	require.Equal(t, boundary.CodeLookup, boundary.TestConnection(h))

	st, code := boundary.Stats(h)
	require.Equal(t, boundary.CodeOK, code)
	require.Zero(t, st.Buffers.Outstanding())
}

func TestOutputTooSmall(t *testing.T) {
	h, _ := create(t)

	n := 0
	require.Equal(t, boundary.CodeInvalidParam, boundary.CreateWallet(h, nil, make([]byte, 4), &n))
	require.Equal(t, 32, n, "needed size reported")

	out := make([]byte, n)
	require.Equal(t, boundary.CodeOK, boundary.GetAccounts(h, make([]byte, 64), &n))
	require.Equal(t, boundary.CodeInvalidParam, boundary.GetAccounts(h, out[:2], &n))
	require.Equal(t, boundary.CodeInvalidParam, boundary.GetAccounts(h, out, nil))

	st, _ := boundary.Stats(h)
	require.Zero(t, st.Buffers.Outstanding())
}

func TestParameterCodes(t *testing.T) {
	h, _ := create(t)
	out := make([]byte, 256)
	n := 0

	require.Equal(t, boundary.CodeInvalidParam, boundary.GetBalance(h, "", out, &n))
	require.Equal(t, boundary.CodeAccount, boundary.GetBalance(h, "0xnothex", out, &n))
	require.Equal(t, boundary.CodeLookup, boundary.GetBalance(h, "0x0102030405060708090a0b0c0d0e0f", out, &n))

	require.Equal(t, boundary.CodeInvalidParam, boundary.ConsumeNotes(h, "", `["0x01"]`, out, &n))
	require.Equal(t, boundary.CodeNote, boundary.ConsumeNotes(h, "0xabc", `not json`, out, &n))
	require.Equal(t, boundary.CodeNote, boundary.ConsumeNotes(h, "0xabc", `[]`, out, &n))
	require.Equal(t, boundary.CodeInvalidParam, boundary.SyncState(h, nil))
}

type asyncResult struct {
	user unsafe.Pointer
	code boundary.Code
	body string
}

func TestBlockingFailureCodes(t *testing.T) {
	h, node := create(t)
	out := make([]byte, 256)
	n := 0
	require.Equal(t, boundary.CodeOK, boundary.CreateWallet(h, nil, out, &n))
	accountID := string(out[:n])
	id, err := wallet.ParseAccountID(accountID)
	require.NoError(t, err)
	note := node.Mint(id, "0xfaucet", 7)
	var height uint32
	require.Equal(t, boundary.CodeOK, boundary.SyncState(h, &height))

	unknown := `["0x` + strings.Repeat("ab", 32) + `"]`
	n = -1
	require.Equal(t, boundary.CodeNote, boundary.ConsumeNotes(h, accountID, unknown, out, &n))
	require.Zero(t, n)
	require.Equal(t, boundary.CodeAccount, boundary.ConsumeNotes(h, "0xnothex", `["`+note.Hex()+`"]`, out, &n))
	require.Equal(t, boundary.CodeLookup, boundary.GetInputNotes(h, "0x0102030405060708090a0b0c0d0e0f", out, &n))

	node.SetDown(true)
	require.Equal(t, boundary.CodeSubmit, boundary.ConsumeNotes(h, accountID, `["`+note.Hex()+`"]`, out, &n))
	require.Zero(t, n)
	require.Equal(t, boundary.CodeLookup, boundary.SyncState(h, &height))

	// The note survives the failed submission.
	node.SetDown(false)
	require.Equal(t, boundary.CodeOK, boundary.ConsumeNotes(h, accountID, `["`+note.Hex()+`"]`, out, &n))
	require.True(t, strings.HasPrefix(string(out[:n]), "0x"))

	st, code := boundary.Stats(h)
	require.Equal(t, boundary.CodeOK, code)
	require.Zero(t, st.Buffers.Outstanding())
}

func TestAsyncForms(t *testing.T) {
	h, node := create(t)
	results := make(chan asyncResult, 8)
	tag := new(int)
	ud := unsafe.Pointer(tag)

	bytesCB := func(userData unsafe.Pointer, code boundary.Code, buf *dispatch.Buffer) {
		r := asyncResult{user: userData, code: code}
		if buf != nil {
			r.body = string(buf.Bytes())
			boundary.BytesFree(buf)
		}
		results <- r
	}
	next := func() asyncResult {
		t.Helper()
		select {
		case r := <-results:
			require.Equal(t, ud, r.user)
			return r
		case <-time.After(5 * time.Second):
			t.Fatal("callback not invoked")
		}
		return asyncResult{}
	}

	require.Equal(t, boundary.CodeOK, boundary.CreateWalletAsync(h, nil, bytesCB, ud))
	r := next()
	require.Equal(t, boundary.CodeOK, r.code)
	accountID := r.body
	id, err := wallet.ParseAccountID(accountID)
	require.NoError(t, err)
	note := node.Mint(id, "0xfaucet", 3)

	require.Equal(t, boundary.CodeOK, boundary.SyncStateAsync(h, func(userData unsafe.Pointer, code boundary.Code, height uint32) {
		results <- asyncResult{user: userData, code: code}
	}, ud))
	require.Equal(t, boundary.CodeOK, next().code)

	require.Equal(t, boundary.CodeOK, boundary.GetAccountsAsync(h, bytesCB, ud))
	require.JSONEq(t, `["`+accountID+`"]`, next().body)

	require.Equal(t, boundary.CodeOK, boundary.GetInputNotesAsync(h, "", bytesCB, ud))
	require.Contains(t, next().body, note.Hex())

	require.Equal(t, boundary.CodeOK, boundary.ConsumeNotesAsync(h, accountID, `["`+note.Hex()+`"]`, bytesCB, ud))
	require.Equal(t, boundary.CodeOK, next().code)

	require.Equal(t, boundary.CodeOK, boundary.GetBalanceAsync(h, accountID, bytesCB, ud))
	require.Contains(t, next().body, `"amount":3`)

	// A failure is delivered through the callback with no buffer.
	require.Equal(t, boundary.CodeOK, boundary.GetBalanceAsync(h, "0xzz", bytesCB, ud))
	r = next()
	require.Equal(t, boundary.CodeAccount, r.code)
	require.Empty(t, r.body)

	require.Equal(t, boundary.CodeOK, boundary.TestConnectionAsync(h, func(userData unsafe.Pointer, code boundary.Code) {
		results <- asyncResult{user: userData, code: code}
	}, ud))
	require.Equal(t, boundary.CodeOK, next().code)

	st, _ := boundary.Stats(h)
	require.Zero(t, st.Buffers.Outstanding())
}

func TestAsyncAdmissionFailure(t *testing.T) {
	h, _ := create(t)
	called := false
	cb := func(unsafe.Pointer, boundary.Code, *dispatch.Buffer) { called = true }

	require.Equal(t, boundary.CodeInvalidParam, boundary.GetBalanceAsync(h, "", cb, nil))
	require.Equal(t, boundary.CodeNote, boundary.ConsumeNotesAsync(h, "0xabc", `[]`, cb, nil))
	require.Equal(t, boundary.CodeInvalidParam, boundary.GetAccountsAsync(h, nil, nil))

	boundary.Destroy(h)
	require.Equal(t, boundary.CodeInvalidHandle, boundary.GetAccountsAsync(h, cb, nil))
	require.False(t, called)
}

func TestKeccak256(t *testing.T) {
	out := make([]byte, 32)
	n := 0
	require.Equal(t, boundary.CodeOK, boundary.Keccak256([]byte("abc"), out, &n))
	require.Equal(t, 32, n)
	sum := wallet.Keccak256([]byte("abc"))
	require.Equal(t, sum[:], out)

	require.Equal(t, boundary.CodeInvalidParam, boundary.Keccak256([]byte("abc"), out[:31], &n))
	require.Equal(t, boundary.CodeInvalidParam, boundary.Keccak256([]byte("abc"), out, nil))
}

func TestAccountIDToHex(t *testing.T) {
	out := make([]byte, 30)
	n := 0
	id := []byte{0x01, 0x02, 0xab, 0xcd, 0xef}
	require.Equal(t, boundary.CodeOK, boundary.AccountIDToHex(id, out, &n))
	require.Equal(t, "0102abcdef", string(out[:n]))

	require.Equal(t, boundary.CodeInvalidParam, boundary.AccountIDToHex(id, out[:4], &n))
	require.Equal(t, 10, n)
	require.Equal(t, boundary.CodeInvalidParam, boundary.AccountIDToHex(nil, out, &n))
}

func TestBytesFreeNil(t *testing.T) {
	require.NotPanics(t, func() { boundary.BytesFree(nil) })
}
