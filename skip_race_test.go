// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package dispatch_test

import "testing"

// skipRace skips tests that push requests through the lfq MPSC channel.
// The race detector tracks per-variable happens-before and cannot
// see the queue's cross-variable memory ordering (store-release on the
// slot, load-acquire on the sequence), producing false positives.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: MPSC channel uses cross-variable memory ordering")
}
