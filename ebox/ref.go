package ebox

import (
	"fmt"
	"io"

	"github.com/wippyai/wasm-ebox/errors"
)

// Ref is a shared guard on a Box. Any number of Refs may be live at once.
// Release it when done; until then the box cannot be mutably borrowed,
// closed or passed to IntoRaw.
type Ref[T any] struct {
	box      *Box[T]
	released bool
}

// Get loads the current value.
func (r *Ref[T]) Get() (T, error) {
	if r.released {
		var zero T
		return zero, errors.Released(errors.PhaseLoad, "shared guard", r.box.ptr)
	}
	return r.box.codec.Load(r.box.heap, r.box.ptr)
}

// Bytes returns a copy of the block's raw bytes.
func (r *Ref[T]) Bytes() ([]byte, error) {
	if r.released {
		return nil, errors.Released(errors.PhaseLoad, "shared guard", r.box.ptr)
	}
	view, err := r.box.heap.Read(r.box.ptr, r.box.codec.Layout().Size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// Ptr returns the guarded address.
func (r *Ref[T]) Ptr() uint32 { return r.box.ptr }

// Release gives the claim back to the box. Calling it again is a no-op.
func (r *Ref[T]) Release() {
	if r.released {
		return
	}
	r.released = true
	r.box.cell.releaseShared()
}

// Format renders the pointee.
func (r *Ref[T]) Format(f fmt.State, verb rune) {
	if r.released {
		io.WriteString(f, "<released>")
		return
	}
	formatValue(f, verb, r.box)
}

func (r *Ref[T]) String() string { return fmt.Sprintf("%v", r) }

// RefMut is the exclusive guard on a Box. While it is live no other guard
// can be taken.
type RefMut[T any] struct {
	box      *Box[T]
	released bool
}

// Get loads the current value.
func (m *RefMut[T]) Get() (T, error) {
	if m.released {
		var zero T
		return zero, errors.Released(errors.PhaseLoad, "exclusive guard", m.box.ptr)
	}
	return m.box.codec.Load(m.box.heap, m.box.ptr)
}

// Set destructs the current value in place and stores v. If the store
// fails the block is zeroed, which every codec in package codec reads as an
// empty value owning nothing, so a later Close frees only the block.
func (m *RefMut[T]) Set(v T) error {
	if m.released {
		return errors.Released(errors.PhaseStore, "exclusive guard", m.box.ptr)
	}
	if err := m.box.codec.Drop(m.box.heap, m.box.ptr); err != nil {
		return err
	}
	if err := m.box.codec.Store(m.box.heap, m.box.ptr, v); err != nil {
		if zerr := m.box.heap.Write(m.box.ptr, make([]byte, m.box.codec.Layout().Size)); zerr != nil {
			return fmt.Errorf("%w (clearing block: %v)", err, zerr)
		}
		return err
	}
	return nil
}

// Update replaces the value with fn applied to it.
func (m *RefMut[T]) Update(fn func(T) T) error {
	v, err := m.Get()
	if err != nil {
		return err
	}
	return m.Set(fn(v))
}

// Bytes returns a writable view of the block's raw bytes. The view is only
// valid until Release and until the next allocation on the heap.
func (m *RefMut[T]) Bytes() ([]byte, error) {
	if m.released {
		return nil, errors.Released(errors.PhaseLoad, "exclusive guard", m.box.ptr)
	}
	return m.box.heap.Read(m.box.ptr, m.box.codec.Layout().Size)
}

// Ptr returns the guarded address.
func (m *RefMut[T]) Ptr() uint32 { return m.box.ptr }

// Release gives the claim back to the box. Calling it again is a no-op.
func (m *RefMut[T]) Release() {
	if m.released {
		return
	}
	m.released = true
	m.box.cell.releaseExclusive()
}

// Format renders the pointee.
func (m *RefMut[T]) Format(f fmt.State, verb rune) {
	if m.released {
		io.WriteString(f, "<released>")
		return
	}
	formatValue(f, verb, m.box)
}

func (m *RefMut[T]) String() string { return fmt.Sprintf("%v", m) }
