package codec

import (
	"fmt"

	"go.bytecodealliance.org/wit"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/errors"
	"github.com/wippyai/wasm-ebox/layout"
)

type option[T any] struct {
	inner   Codec[T]
	typ     wit.Type
	info    layout.Info
	payload uint32
}

// Option stores option<T>: a one-byte discriminant followed by the payload
// at T's alignment. A nil *T is none.
func Option[T any](inner Codec[T]) Codec[*T] {
	typ := &wit.TypeDef{Kind: &wit.Option{Type: inner.Type()}}
	info := layout.Of(typ)
	return &option[T]{
		inner:   inner,
		typ:     typ,
		info:    info,
		payload: info.FieldOffs["some"],
	}
}

func (o *option[T]) Type() wit.Type      { return o.typ }
func (o *option[T]) Layout() layout.Info { return o.info }

func (o *option[T]) disc(mem wasmebox.Memory, ptr uint32) (bool, error) {
	d, err := mem.ReadU8(ptr)
	if err != nil {
		return false, err
	}
	switch d {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	e := errors.InvalidData(errors.PhaseLoad, nil, fmt.Sprintf("discriminant %d out of range (max 1)", d))
	e.WitType = layout.TypeName(o.typ)
	return false, e
}

func (o *option[T]) Load(mem wasmebox.Memory, ptr uint32) (*T, error) {
	some, err := o.disc(mem, ptr)
	if err != nil || !some {
		return nil, err
	}
	v, err := o.inner.Load(mem, ptr+o.payload)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (o *option[T]) Store(heap wasmebox.Heap, ptr uint32, v *T) error {
	if v == nil {
		return heap.WriteU8(ptr, 0)
	}
	// the discriminant is set last so a failed inner store reads as none
	if err := o.inner.Store(heap, ptr+o.payload, *v); err != nil {
		_ = heap.WriteU8(ptr, 0)
		return err
	}
	if err := heap.WriteU8(ptr, 1); err != nil {
		_ = o.inner.Drop(heap, ptr+o.payload)
		return err
	}
	return nil
}

func (o *option[T]) Drop(heap wasmebox.Heap, ptr uint32) error {
	some, err := o.disc(heap, ptr)
	if err != nil || !some {
		return err
	}
	if err := o.inner.Drop(heap, ptr+o.payload); err != nil {
		return err
	}
	return heap.WriteU8(ptr, 0)
}

// Pair is a two-element tuple.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (p Pair[A, B]) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}

type pair[A, B any] struct {
	first  Codec[A]
	second Codec[B]
	typ    wit.Type
	info   layout.Info
	offB   uint32
}

// PairOf stores tuple<A, B> with the Canonical ABI field layout.
func PairOf[A, B any](first Codec[A], second Codec[B]) Codec[Pair[A, B]] {
	typ := &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{first.Type(), second.Type()}}}
	info := layout.Of(typ)
	return &pair[A, B]{
		first:  first,
		second: second,
		typ:    typ,
		info:   info,
		offB:   info.FieldOffs["1"],
	}
}

func (p *pair[A, B]) Type() wit.Type      { return p.typ }
func (p *pair[A, B]) Layout() layout.Info { return p.info }

func (p *pair[A, B]) Load(mem wasmebox.Memory, ptr uint32) (Pair[A, B], error) {
	var out Pair[A, B]
	a, err := p.first.Load(mem, ptr)
	if err != nil {
		return out, err
	}
	b, err := p.second.Load(mem, ptr+p.offB)
	if err != nil {
		return out, err
	}
	out.First, out.Second = a, b
	return out, nil
}

func (p *pair[A, B]) Store(heap wasmebox.Heap, ptr uint32, v Pair[A, B]) error {
	if err := p.first.Store(heap, ptr, v.First); err != nil {
		return err
	}
	if err := p.second.Store(heap, ptr+p.offB, v.Second); err != nil {
		// undo the first element so a failed store owns nothing
		_ = p.first.Drop(heap, ptr)
		return err
	}
	return nil
}

func (p *pair[A, B]) Drop(heap wasmebox.Heap, ptr uint32) error {
	errA := p.first.Drop(heap, ptr)
	errB := p.second.Drop(heap, ptr+p.offB)
	if errA != nil {
		return errA
	}
	return errB
}
