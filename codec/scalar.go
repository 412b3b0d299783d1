package codec

import (
	"math"

	"go.bytecodealliance.org/wit"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/layout"
)

// scalar is a fixed-size value with no payload; Drop is a no-op.
type scalar[T any] struct {
	typ   wit.Type
	load  func(wasmebox.Memory, uint32) (T, error)
	store func(wasmebox.Memory, uint32, T) error
	info  layout.Info
}

func newScalar[T any](typ wit.Type, load func(wasmebox.Memory, uint32) (T, error), store func(wasmebox.Memory, uint32, T) error) Codec[T] {
	return &scalar[T]{
		typ:   typ,
		info:  layout.Of(typ),
		load:  load,
		store: store,
	}
}

func (s *scalar[T]) Type() wit.Type      { return s.typ }
func (s *scalar[T]) Layout() layout.Info { return s.info }

func (s *scalar[T]) Load(mem wasmebox.Memory, ptr uint32) (T, error) {
	return s.load(mem, ptr)
}

func (s *scalar[T]) Store(heap wasmebox.Heap, ptr uint32, v T) error {
	return s.store(heap, ptr, v)
}

func (s *scalar[T]) Drop(wasmebox.Heap, uint32) error {
	return nil
}

var (
	boolCodec = newScalar(wit.Bool{},
		func(m wasmebox.Memory, p uint32) (bool, error) {
			v, err := m.ReadU8(p)
			return v != 0, err
		},
		func(m wasmebox.Memory, p uint32, v bool) error {
			var b uint8
			if v {
				b = 1
			}
			return m.WriteU8(p, b)
		})

	u8Codec = newScalar(wit.U8{},
		func(m wasmebox.Memory, p uint32) (uint8, error) { return m.ReadU8(p) },
		func(m wasmebox.Memory, p uint32, v uint8) error { return m.WriteU8(p, v) })

	u16Codec = newScalar(wit.U16{},
		func(m wasmebox.Memory, p uint32) (uint16, error) { return m.ReadU16(p) },
		func(m wasmebox.Memory, p uint32, v uint16) error { return m.WriteU16(p, v) })

	u32Codec = newScalar(wit.U32{},
		func(m wasmebox.Memory, p uint32) (uint32, error) { return m.ReadU32(p) },
		func(m wasmebox.Memory, p uint32, v uint32) error { return m.WriteU32(p, v) })

	u64Codec = newScalar(wit.U64{},
		func(m wasmebox.Memory, p uint32) (uint64, error) { return m.ReadU64(p) },
		func(m wasmebox.Memory, p uint32, v uint64) error { return m.WriteU64(p, v) })

	s32Codec = newScalar(wit.S32{},
		func(m wasmebox.Memory, p uint32) (int32, error) {
			v, err := m.ReadU32(p)
			return int32(v), err
		},
		func(m wasmebox.Memory, p uint32, v int32) error { return m.WriteU32(p, uint32(v)) })

	s64Codec = newScalar(wit.S64{},
		func(m wasmebox.Memory, p uint32) (int64, error) {
			v, err := m.ReadU64(p)
			return int64(v), err
		},
		func(m wasmebox.Memory, p uint32, v int64) error { return m.WriteU64(p, uint64(v)) })

	f32Codec = newScalar(wit.F32{},
		func(m wasmebox.Memory, p uint32) (float32, error) {
			v, err := m.ReadU32(p)
			return math.Float32frombits(v), err
		},
		func(m wasmebox.Memory, p uint32, v float32) error { return m.WriteU32(p, math.Float32bits(v)) })

	f64Codec = newScalar(wit.F64{},
		func(m wasmebox.Memory, p uint32) (float64, error) {
			v, err := m.ReadU64(p)
			return math.Float64frombits(v), err
		},
		func(m wasmebox.Memory, p uint32, v float64) error { return m.WriteU64(p, math.Float64bits(v)) })
)

// Bool stores a bool as one byte; any non-zero byte loads as true.
func Bool() Codec[bool] { return boolCodec }

func U8() Codec[uint8]   { return u8Codec }
func U16() Codec[uint16] { return u16Codec }

// U32 stores a little-endian u32, the i32-equivalent most guests hand out.
func U32() Codec[uint32] { return u32Codec }

func U64() Codec[uint64]  { return u64Codec }
func S32() Codec[int32]   { return s32Codec }
func S64() Codec[int64]   { return s64Codec }
func F32() Codec[float32] { return f32Codec }
func F64() Codec[float64] { return f64Codec }
