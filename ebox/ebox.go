package ebox

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/codec"
	"github.com/wippyai/wasm-ebox/errors"
	"github.com/wippyai/wasm-ebox/layout"
)

// noCopy makes go vet's copylocks check flag copies of a Box.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Box exclusively owns one value of type T stored in a block of foreign
// memory. The block is destructed and freed exactly once, by Close, unless
// ownership is handed back with IntoRaw.
//
// A Box is not safe for concurrent use.
type Box[T any] struct {
	_        noCopy
	heap     wasmebox.Heap
	codec    codec.Codec[T]
	cleanup  runtime.Cleanup
	cell     cell
	ptr      uint32
	consumed bool
}

type leakInfo struct {
	goType string
	ptr    uint32
	size   uint32
}

func reportLeak(l leakInfo) {
	Logger().Warn("box collected without Close; foreign block leaked",
		zap.String("type", l.goType),
		zap.Uint32("ptr", l.ptr),
		zap.Uint32("size", l.size))
}

// Adopt takes ownership of the value at ptr. ptr must have come from heap's
// allocator (directly or through IntoRaw) and must not be owned by anything
// else; that cannot be checked. A zero address is rejected.
func Adopt[T any](heap wasmebox.Heap, c codec.Codec[T], ptr uint32) (*Box[T], error) {
	if heap == nil {
		return nil, errors.InvalidInput(errors.PhaseRaw, "nil heap")
	}
	if c == nil {
		return nil, errors.InvalidInput(errors.PhaseRaw, "nil codec")
	}
	if ptr == 0 {
		return nil, errors.NullPointer(errors.PhaseRaw, codec.GoType[T]())
	}

	b := &Box[T]{heap: heap, codec: c, ptr: ptr}
	b.cleanup = runtime.AddCleanup(b, reportLeak, leakInfo{
		goType: codec.GoType[T](),
		ptr:    ptr,
		size:   c.Layout().Size,
	})

	Logger().Debug("adopted",
		zap.String("type", codec.Name(c)),
		zap.Uint32("ptr", ptr))
	return b, nil
}

// New allocates a block from heap, stores v in it and returns the owning
// Box. If the store fails the block is freed again.
func New[T any](heap wasmebox.Heap, c codec.Codec[T], v T) (*Box[T], error) {
	if heap == nil {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "nil heap")
	}
	if c == nil {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "nil codec")
	}

	info := c.Layout()
	ptr, err := heap.Alloc(info.Size, info.Align)
	if err != nil {
		return nil, err
	}
	if ptr == 0 {
		return nil, errors.AllocationFailed(info.Size, info.Align, nil)
	}
	if err := c.Store(heap, ptr, v); err != nil {
		heap.Free(ptr, info.Size, info.Align)
		return nil, err
	}
	return Adopt(heap, c, ptr)
}

// IntoRaw consumes b and returns its address without destructing or
// freeing anything. The caller becomes responsible for the block, usually
// by handing it to Adopt later. It fails while guards are live.
func IntoRaw[T any](b *Box[T]) (uint32, error) {
	if b.consumed {
		return 0, errors.Released(errors.PhaseRaw, "box", b.ptr)
	}
	if !b.cell.state.Free() {
		return 0, errors.OutstandingBorrow(errors.PhaseRaw, b.ptr, b.cell.state.String())
	}
	b.consume()
	Logger().Debug("released to raw", zap.Uint32("ptr", b.ptr))
	return b.ptr, nil
}

func (b *Box[T]) consume() {
	b.consumed = true
	b.cleanup.Stop()
}

// Close destructs the value in place and frees its block. It is a no-op on
// a box that was already closed or passed to IntoRaw, and fails without
// side effects while guards are live. If the destructor fails the block is
// still freed and the error returned.
func (b *Box[T]) Close() error {
	if b.consumed {
		return nil
	}
	if !b.cell.state.Free() {
		return errors.OutstandingBorrow(errors.PhaseDrop, b.ptr, b.cell.state.String())
	}
	b.consume()

	info := b.codec.Layout()
	dropErr := b.codec.Drop(b.heap, b.ptr)
	b.heap.Free(b.ptr, info.Size, info.Align)

	Logger().Debug("dropped",
		zap.String("type", codec.Name(b.codec)),
		zap.Uint32("ptr", b.ptr),
		zap.Error(dropErr))

	if dropErr != nil {
		return fmt.Errorf("drop value at 0x%x: %w", b.ptr, dropErr)
	}
	return nil
}

// TryBorrow returns a shared guard. It fails with ErrAlreadyMutablyBorrowed
// while an exclusive guard is live, and with an overflow error once
// math.MaxInt32 shared guards are live.
func (b *Box[T]) TryBorrow() (*Ref[T], error) {
	if b.consumed {
		return nil, errors.Released(errors.PhaseBorrow, "box", b.ptr)
	}
	if !b.cell.tryShared() {
		if b.cell.state.Exclusive() {
			return nil, errors.AlreadyMutablyBorrowed(b.ptr)
		}
		return nil, errors.New(errors.PhaseBorrow, errors.KindOverflow).
			Detail("value at 0x%x has too many shared borrows", b.ptr).
			Value(b.ptr).
			Build()
	}
	return &Ref[T]{box: b}, nil
}

// Borrow is TryBorrow that panics with the *errors.Error on failure.
func (b *Box[T]) Borrow() *Ref[T] {
	r, err := b.TryBorrow()
	if err != nil {
		panic(err)
	}
	return r
}

// TryBorrowMut returns an exclusive guard. It fails with ErrAlreadyBorrowed
// while any other guard is live.
func (b *Box[T]) TryBorrowMut() (*RefMut[T], error) {
	if b.consumed {
		return nil, errors.Released(errors.PhaseBorrow, "box", b.ptr)
	}
	holder := b.cell.state.String()
	if !b.cell.tryExclusive() {
		return nil, errors.AlreadyBorrowed(b.ptr, holder)
	}
	return &RefMut[T]{box: b}, nil
}

// BorrowMut is TryBorrowMut that panics with the *errors.Error on failure.
func (b *Box[T]) BorrowMut() *RefMut[T] {
	r, err := b.TryBorrowMut()
	if err != nil {
		panic(err)
	}
	return r
}

// Ptr returns the owned address. It stays readable after the box is
// consumed, for diagnostics.
func (b *Box[T]) Ptr() uint32 { return b.ptr }

// Layout returns the size and alignment of the owned block.
func (b *Box[T]) Layout() layout.Info { return b.codec.Layout() }

// Codec returns the codec the box loads and stores with.
func (b *Box[T]) Codec() codec.Codec[T] { return b.codec }

// State returns the current borrow state.
func (b *Box[T]) State() BorrowState { return b.cell.state }

// Released reports whether the box was closed or passed to IntoRaw.
func (b *Box[T]) Released() bool { return b.consumed }
