package codec

import (
	"fmt"

	"go.bytecodealliance.org/wit"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/layout"
)

// MaxPayloadSize caps string and list payloads read from foreign memory.
const MaxPayloadSize = 1 << 30

// Codec stores values of type T in foreign memory.
type Codec[T any] interface {
	// Type returns the WIT type of the in-block representation.
	Type() wit.Type

	// Layout returns the size and alignment of the in-block representation.
	Layout() layout.Info

	// Load reads the value stored at ptr.
	Load(mem wasmebox.Memory, ptr uint32) (T, error)

	// Store writes v at ptr, allocating payload blocks from heap as needed.
	Store(heap wasmebox.Heap, ptr uint32, v T) error

	// Drop destructs the value at ptr in place, releasing payload blocks.
	Drop(heap wasmebox.Heap, ptr uint32) error
}

// Name returns the WIT spelling of c's type.
func Name[T any](c Codec[T]) string {
	return layout.TypeName(c.Type())
}

// GoType returns the Go spelling of T for error messages.
func GoType[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}
