// Package memtest provides an instrumented foreign heap for tests.
package memtest

import (
	"fmt"

	"github.com/wippyai/wasm-ebox/internal/linear"
	"github.com/wippyai/wasm-ebox/layout"
)

// Call records one allocator call.
type Call struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// Heap is a bump allocator over a byte slice that records every Alloc and
// Free. Freed blocks are never reused, so a double free is always visible.
type Heap struct {
	linear.Memory
	FailAlloc error
	live      map[uint32]Call
	Allocs    []Call
	Frees     []Call
	next      uint32
}

// New returns a heap of size bytes. Address 0..15 is never handed out.
func New(size uint32) *Heap {
	return &Heap{
		Memory: linear.Memory{Buf: make([]byte, size)},
		live:   make(map[uint32]Call),
		next:   16,
	}
}

func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	if h.FailAlloc != nil {
		return 0, h.FailAlloc
	}
	ptr := layout.AlignTo(h.next, max(align, 1))
	if uint64(ptr)+uint64(size) > uint64(len(h.Buf)) {
		return 0, fmt.Errorf("memtest: out of memory allocating %d bytes", size)
	}
	h.next = ptr + max(size, 1)
	c := Call{Ptr: ptr, Size: size, Align: align}
	h.live[ptr] = c
	h.Allocs = append(h.Allocs, c)
	return ptr, nil
}

func (h *Heap) Free(ptr, size, align uint32) {
	h.Frees = append(h.Frees, Call{Ptr: ptr, Size: size, Align: align})
	delete(h.live, ptr)
}

// Live returns the number of allocated, not yet freed blocks.
func (h *Heap) Live() int {
	return len(h.live)
}

// FreeCount returns how many times ptr was freed.
func (h *Heap) FreeCount(ptr uint32) int {
	n := 0
	for _, c := range h.Frees {
		if c.Ptr == ptr {
			n++
		}
	}
	return n
}
