// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package boundary

import (
	"sync"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/dispatch"
)

// Handle is an opaque integer naming a live dispatch.Handle.
// The zero Handle is never issued.
type Handle uintptr

var (
	handleSeq atomix.Uint64
	handles   = struct {
		sync.RWMutex
		m map[Handle]*dispatch.Handle
	}{m: make(map[Handle]*dispatch.Handle)}
)

func register(d *dispatch.Handle) Handle {
	h := Handle(handleSeq.Add(1))
	handles.Lock()
	handles.m[h] = d
	handles.Unlock()
	return h
}

func lookup(h Handle) *dispatch.Handle {
	handles.RLock()
	defer handles.RUnlock()
	return handles.m[h]
}

// take removes h so that exactly one caller gets its dispatch.Handle.
func take(h Handle) *dispatch.Handle {
	handles.Lock()
	defer handles.Unlock()
	d := handles.m[h]
	delete(handles.m, h)
	return d
}

// Live returns the number of handles not yet destroyed.
func Live() int {
	handles.RLock()
	defer handles.RUnlock()
	return len(handles.m)
}
