// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Code is a call-boundary status code.
// Values are stable across the blocking and non-blocking form of every operation.
type Code int32

const (
	CodeOK            Code = 0
	CodeInvalidParam  Code = -1
	CodeInvalidHandle Code = -2
	CodeAccount       Code = -3
	CodeNote          Code = -4
	CodeLookup        Code = -5
	CodeSubmit        Code = -6
	CodeQueueFull     Code = -8
	CodeTimeout       Code = -99
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidParam:
		return "invalid parameter"
	case CodeInvalidHandle:
		return "invalid handle"
	case CodeAccount:
		return "account operation failed"
	case CodeNote:
		return "note operation failed"
	case CodeLookup:
		return "lookup failed"
	case CodeSubmit:
		return "transaction submission failed"
	case CodeQueueFull:
		return "request queue full"
	case CodeTimeout:
		return "wait timed out"
	default:
		return "Code(" + strconv.Itoa(int(c)) + ")"
	}
}

// Err returns the sentinel error for c, or nil for CodeOK.
func (c Code) Err() error {
	switch c {
	case CodeOK:
		return nil
	case CodeInvalidParam:
		return ErrInvalidParam
	case CodeInvalidHandle:
		return ErrInvalidHandle
	case CodeAccount:
		return ErrAccount
	case CodeNote:
		return ErrNote
	case CodeLookup:
		return ErrLookup
	case CodeSubmit:
		return ErrSubmit
	case CodeQueueFull:
		return ErrQueueFull
	case CodeTimeout:
		return ErrTimeout
	default:
		return fmt.Errorf("dispatch: unknown code %d", int32(c))
	}
}

// Sentinel errors, one per Code.
var (
	ErrInvalidParam  = errors.New("dispatch: invalid parameter")
	ErrInvalidHandle = errors.New("dispatch: invalid handle")
	ErrAccount       = errors.New("dispatch: account operation failed")
	ErrNote          = errors.New("dispatch: note operation failed")
	ErrLookup        = errors.New("dispatch: lookup failed")
	ErrSubmit        = errors.New("dispatch: transaction submission failed")
	ErrQueueFull     = errors.New("dispatch: request queue full")
	ErrTimeout       = errors.New("dispatch: wait timed out")
)

var (
	// ErrClosed is reported for requests dropped by Close and for a
	// second Close. It matches ErrInvalidHandle.
	ErrClosed = fmt.Errorf("%w: closed", ErrInvalidHandle)

	// ErrPoisoned is reported once the executor panicked on the worker.
	// It matches ErrInvalidHandle.
	ErrPoisoned = fmt.Errorf("%w: worker poisoned", ErrInvalidHandle)

	// ErrDecode is reported when a result payload cannot be decoded.
	ErrDecode = errors.New("dispatch: malformed result payload")
)

// Error describes a failed operation.
// It matches both its wrapped cause and the sentinel of its Code.
type Error struct {
	Op        Op
	Code      Code
	AccountID string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op.String())
	if e.AccountID != "" {
		b.WriteByte(' ')
		b.WriteString(e.AccountID)
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Code.String())
	}
	b.WriteString(" (code ")
	b.WriteString(strconv.Itoa(int(e.Code)))
	b.WriteByte(')')
	return b.String()
}

// Unwrap returns the cause and the Code sentinel.
func (e *Error) Unwrap() []error {
	sentinel := e.Code.Err()
	switch {
	case e.Err == nil && sentinel == nil:
		return nil
	case e.Err == nil:
		return []error{sentinel}
	case sentinel == nil || errors.Is(e.Err, sentinel):
		return []error{e.Err}
	default:
		return []error{e.Err, sentinel}
	}
}

// CodeOf maps err to its call-boundary Code.
// Unclassified errors map to CodeLookup.
func CodeOf(err error) Code {
	return codeOr(err, CodeLookup)
}

func codeOr(err error, fallback Code) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, ErrInvalidParam):
		return CodeInvalidParam
	case errors.Is(err, ErrInvalidHandle):
		return CodeInvalidHandle
	case errors.Is(err, ErrAccount):
		return CodeAccount
	case errors.Is(err, ErrNote):
		return CodeNote
	case errors.Is(err, ErrLookup):
		return CodeLookup
	case errors.Is(err, ErrSubmit):
		return CodeSubmit
	case errors.Is(err, ErrQueueFull):
		return CodeQueueFull
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	}
	return fallback
}

// newError wraps err with the request it failed for.
func newError(req Request, code Code, err error) *Error {
	return &Error{Op: req.Op, Code: code, AccountID: req.AccountID, Err: err}
}
