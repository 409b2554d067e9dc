// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

import "code.hybscloud.com/atomix"

// Buffer is a byte sequence allocated on the worker side whose ownership
// moves to the receiver of a successful completion.
//
// The receiver owns the Buffer exclusively and releases it exactly once,
// after it has copied or decoded the contents. Failure completions never
// carry a Buffer. Release twice, or Bytes after Release, panics.
type Buffer struct {
	b        []byte
	released atomix.Uint32
	alloc    *Allocator
}

// Len returns the payload length in bytes.
func (b *Buffer) Len() int {
	return len(b.b)
}

// Bytes returns the payload. The slice is only valid until Release.
func (b *Buffer) Bytes() []byte {
	if b.released.Load() != 0 {
		panic("dispatch: buffer used after release")
	}
	return b.b
}

// Release returns the Buffer to its allocator.
func (b *Buffer) Release() {
	b.release(false)
}

// discard releases a Buffer nobody is going to read.
func (b *Buffer) discard() {
	b.release(true)
}

func (b *Buffer) release(discarded bool) {
	if !b.released.CompareAndSwap(0, 1) {
		panic("dispatch: buffer released twice")
	}
	b.b = nil
	if b.alloc == nil {
		return
	}
	b.alloc.released.Add(1)
	if discarded {
		b.alloc.discarded.Add(1)
	}
}

// BufferStats reports Buffer accounting.
// Released includes Discarded. Once every receiver has finished,
// Allocated equals Released.
type BufferStats struct {
	Allocated uint64
	Released  uint64
	Discarded uint64
}

// Outstanding returns the number of Buffers not yet released.
func (s BufferStats) Outstanding() uint64 {
	return s.Allocated - s.Released
}

// Allocator produces Buffers of exactly the requested size and counts
// their allocation and release.
type Allocator struct {
	allocated atomix.Uint64
	released  atomix.Uint64
	discarded atomix.Uint64
}

// Copy allocates a Buffer holding a private copy of p.
func (a *Allocator) Copy(p []byte) *Buffer {
	b := make([]byte, len(p))
	copy(b, p)
	a.allocated.Add(1)
	return &Buffer{b: b, alloc: a}
}

// Stats returns a snapshot of the counters.
func (a *Allocator) Stats() BufferStats {
	return BufferStats{
		Allocated: a.allocated.Load(),
		Released:  a.released.Load(),
		Discarded: a.discarded.Load(),
	}
}
