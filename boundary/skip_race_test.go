// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package boundary_test

import "testing"

// skipRace skips tests that run requests through a dispatch handle. Its
// MPSC channel orders memory across variables, which the race detector
// cannot follow.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: MPSC channel uses cross-variable memory ordering")
}
