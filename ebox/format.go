package ebox

import (
	"fmt"
	"io"
	"reflect"
)

// Format renders the box for diagnostics without disturbing its guards:
//
//	EBox{value: 42}
//	EBox{value: <borrowed>}        exclusive guard live
//	EBox{value: <error: ...>}      load failed
//	EBox{<released>}               closed or passed to IntoRaw
func (b *Box[T]) Format(f fmt.State, verb rune) {
	if b.consumed {
		io.WriteString(f, "EBox{<released>}")
		return
	}
	r, err := b.TryBorrow()
	if err != nil {
		io.WriteString(f, "EBox{value: <borrowed>}")
		return
	}
	defer r.Release()

	io.WriteString(f, "EBox{value: ")
	formatValue(f, verb, b)
	io.WriteString(f, "}")
}

func (b *Box[T]) String() string { return fmt.Sprintf("%v", b) }

// formatValue loads the pointee and writes it with the caller's verb and
// flags. Pointer values (option codecs) render as none or as their target.
// The caller holds a guard.
func formatValue[T any](f fmt.State, verb rune, b *Box[T]) {
	v, err := b.codec.Load(b.heap, b.ptr)
	if err != nil {
		fmt.Fprintf(f, "<error: %v>", err)
		return
	}
	var out any = v
	if rv := reflect.ValueOf(out); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			io.WriteString(f, "none")
			return
		}
		out = rv.Elem().Interface()
	}
	fmt.Fprintf(f, fmt.FormatString(f, verb), out)
}
