// Package hostheap provides a foreign heap that lives in the host process
// but outside the Go heap: an anonymous memory mapping managed by a
// first-fit free-list allocator.
//
// Addresses are offsets into the mapping. The first bytes of the mapping are
// reserved so that address 0 is never handed out.
package hostheap

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/errors"
	"github.com/wippyai/wasm-ebox/internal/linear"
)

// reserved is the size of the never-allocated prefix.
const reserved = 8

// Stats describes arena usage.
type Stats struct {
	Allocs       uint64
	Frees        uint64
	InvalidFrees uint64
	InUse        uint32 // bytes in live blocks
	Live         int    // number of live blocks
}

type span struct {
	off  uint32
	size uint32
}

// Arena is a fixed-size foreign heap. Allocation is safe for concurrent
// use; memory access is not synchronized.
type Arena struct {
	linear.Memory
	mu     sync.Mutex
	free   []span // sorted by offset, never adjacent
	live   map[uint32]uint32
	stats  Stats
	closed bool
}

var (
	_ wasmebox.Heap        = (*Arena)(nil)
	_ wasmebox.MemorySizer = (*Arena)(nil)
)

// New maps an arena of size bytes.
func New(size uint32) (*Arena, error) {
	if size <= reserved {
		return nil, errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("arena size %d too small", size))
	}
	buf, err := mapRegion(size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, fmt.Sprintf("map %d bytes", size))
	}

	Logger().Debug("arena mapped", zap.Uint32("size", size), zap.Bool("mmap", mapped))

	return &Arena{
		Memory: linear.Memory{Buf: buf},
		free:   []span{{off: reserved, size: size - reserved}},
		live:   make(map[uint32]uint32),
	}, nil
}

// Alloc returns the lowest address with room for size bytes at align.
// Zero-size requests get a one-byte block so every address is unique.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("alignment %d is not a power of two", align))
	}
	if size == 0 {
		size = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, errors.AllocationFailed(size, align, fmt.Errorf("arena closed"))
	}

	for i, s := range a.free {
		start := (uint64(s.off) + uint64(align) - 1) &^ (uint64(align) - 1)
		end := uint64(s.off) + uint64(s.size)
		if start+uint64(size) > end {
			continue
		}

		ptr := uint32(start)
		var rest []span
		if ptr > s.off {
			rest = append(rest, span{off: s.off, size: ptr - s.off})
		}
		if tail := uint32(end - start - uint64(size)); tail > 0 {
			rest = append(rest, span{off: ptr + size, size: tail})
		}
		a.free = slices.Replace(a.free, i, i+1, rest...)

		a.live[ptr] = size
		a.stats.Allocs++
		a.stats.InUse += size
		a.stats.Live++
		return ptr, nil
	}

	return 0, errors.AllocationFailed(size, align, fmt.Errorf("arena exhausted (%d bytes in use)", a.stats.InUse))
}

// Free returns a block. Unknown addresses and double frees are logged and
// counted; they never touch the free list.
func (a *Arena) Free(ptr, size, align uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	got, ok := a.live[ptr]
	if !ok {
		a.stats.InvalidFrees++
		Logger().Warn("free of unallocated address",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size))
		return
	}
	if size != got && !(size == 0 && got == 1) {
		Logger().Warn("free size mismatch",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Uint32("allocated", got))
	}

	delete(a.live, ptr)
	a.stats.Frees++
	a.stats.InUse -= got
	a.stats.Live--
	a.release(span{off: ptr, size: got})
}

// release inserts s into the free list, merging with its neighbours.
func (a *Arena) release(s span) {
	i, _ := slices.BinarySearchFunc(a.free, s.off, func(f span, off uint32) int {
		switch {
		case f.off < off:
			return -1
		case f.off > off:
			return 1
		}
		return 0
	})

	if i < len(a.free) && s.off+s.size == a.free[i].off {
		s.size += a.free[i].size
		a.free = slices.Delete(a.free, i, i+1)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == s.off {
		a.free[i-1].size += s.size
		return
	}
	a.free = slices.Insert(a.free, i, s)
}

// Stats returns a snapshot of the allocator counters.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Largest returns the size of the largest free span.
func (a *Arena) Largest() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n uint32
	for _, s := range a.free {
		n = max(n, s.size)
	}
	return n
}

// Close unmaps the arena. Live blocks are reported and abandoned.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.stats.Live > 0 {
		Logger().Warn("arena closed with live blocks",
			zap.Int("live", a.stats.Live),
			zap.Uint32("in_use", a.stats.InUse))
	}

	buf := a.Buf
	a.Buf = nil
	a.free = nil
	return unmapRegion(buf)
}
