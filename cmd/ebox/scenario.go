package main

import (
	"fmt"
	"io"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/codec"
	"github.com/wippyai/wasm-ebox/ebox"
)

// runScenario walks one box through its lifecycle on heap and reports each
// step to w: create 42, increment through the exclusive guard, read it back
// through a shared guard, show the refused exclusive borrow, round-trip the
// address through IntoRaw/Adopt and drop.
func runScenario(w io.Writer, heap wasmebox.Heap) error {
	b, err := ebox.New(heap, codec.U32(), 42)
	if err != nil {
		return fmt.Errorf("new: %w", err)
	}
	fmt.Fprintf(w, "new       %v at 0x%x\n", b, b.Ptr())

	m, err := b.TryBorrowMut()
	if err != nil {
		return err
	}
	if err := m.Update(func(v uint32) uint32 { return v + 1 }); err != nil {
		m.Release()
		return fmt.Errorf("update: %w", err)
	}
	fmt.Fprintf(w, "borrowmut %v (box shows %v)\n", m, b)
	m.Release()

	r, err := b.TryBorrow()
	if err != nil {
		return err
	}
	v, err := r.Get()
	if err != nil {
		r.Release()
		return fmt.Errorf("get: %w", err)
	}
	fmt.Fprintf(w, "borrow    %d\n", v)

	if _, err := b.TryBorrowMut(); err != nil {
		fmt.Fprintf(w, "refused   %v\n", err)
	} else {
		r.Release()
		return fmt.Errorf("exclusive borrow granted while shared guard live")
	}
	r.Release()

	ptr, err := ebox.IntoRaw(b)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "raw       0x%x, old box %v\n", ptr, b)

	b, err = ebox.Adopt(heap, codec.U32(), ptr)
	if err != nil {
		return fmt.Errorf("adopt: %w", err)
	}
	fmt.Fprintf(w, "adopt     %v\n", b)

	if err := b.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	fmt.Fprintf(w, "drop      %v\n", b)

	s, err := ebox.New(heap, codec.String(), "hello, foreign heap")
	if err != nil {
		return fmt.Errorf("new string: %w", err)
	}
	fmt.Fprintf(w, "string    %q\n", s)
	return s.Close()
}
