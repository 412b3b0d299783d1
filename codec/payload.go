package codec

import (
	"unicode/utf8"

	"go.bytecodealliance.org/wit"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/errors"
	"github.com/wippyai/wasm-ebox/layout"
)

// payload is a (ptr, len) header pointing at a separately allocated run of
// bytes. The value owns that run: Drop frees it and clears the header.
type payload struct {
	typ  wit.Type
	info layout.Info
	utf8 bool
}

var (
	stringPayload = newPayload(wit.String{}, true)
	bytesPayload  = newPayload(&wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, false)

	stringCodec = &stringOf{p: stringPayload}
	bytesCodec  = &bytesOf{p: bytesPayload}
)

func newPayload(typ wit.Type, validate bool) *payload {
	return &payload{typ: typ, info: layout.Of(typ), utf8: validate}
}

// String stores a UTF-8 string as (ptr, len) with the bytes in a payload
// block of alignment 1.
func String() Codec[string] { return stringCodec }

// Bytes stores a list<u8> as (ptr, len).
func Bytes() Codec[[]byte] { return bytesCodec }

func (p *payload) header(mem wasmebox.Memory, ptr uint32) (uint32, uint32, error) {
	dataAddr, err := mem.ReadU32(ptr)
	if err != nil {
		return 0, 0, err
	}
	dataLen, err := mem.ReadU32(ptr + 4)
	if err != nil {
		return 0, 0, err
	}
	return dataAddr, dataLen, nil
}

func (p *payload) load(mem wasmebox.Memory, ptr uint32) ([]byte, error) {
	dataAddr, dataLen, err := p.header(mem, ptr)
	if err != nil {
		return nil, err
	}
	if dataLen == 0 {
		return nil, nil
	}
	if dataLen > MaxPayloadSize {
		return nil, errors.New(errors.PhaseLoad, errors.KindOverflow).
			WitType(layout.TypeName(p.typ)).
			Detail("payload size %d exceeds maximum %d", dataLen, MaxPayloadSize).
			Build()
	}

	data, err := mem.Read(dataAddr, dataLen)
	if err != nil {
		return nil, err
	}
	if p.utf8 && !utf8.Valid(data) {
		return nil, errors.InvalidUTF8(errors.PhaseLoad, nil, data)
	}

	// Read may return a view into memory that the guest can mutate or grow.
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (p *payload) store(heap wasmebox.Heap, ptr uint32, data []byte) error {
	dataLen := uint32(len(data))
	if len(data) > MaxPayloadSize {
		return errors.New(errors.PhaseStore, errors.KindOverflow).
			WitType(layout.TypeName(p.typ)).
			Detail("payload size %d exceeds maximum %d", len(data), MaxPayloadSize).
			Build()
	}

	if dataLen == 0 {
		if err := heap.WriteU32(ptr, 0); err != nil {
			return err
		}
		return heap.WriteU32(ptr+4, 0)
	}

	dataAddr, err := heap.Alloc(dataLen, 1)
	if err != nil {
		return errors.AllocationFailed(dataLen, 1, err)
	}
	if err := heap.Write(dataAddr, data); err != nil {
		heap.Free(dataAddr, dataLen, 1)
		return err
	}
	if err := heap.WriteU32(ptr, dataAddr); err != nil {
		heap.Free(dataAddr, dataLen, 1)
		return err
	}
	return heap.WriteU32(ptr+4, dataLen)
}

func (p *payload) drop(heap wasmebox.Heap, ptr uint32) error {
	dataAddr, dataLen, err := p.header(heap, ptr)
	if err != nil {
		return err
	}
	if dataAddr != 0 && dataLen != 0 {
		heap.Free(dataAddr, dataLen, 1)
	}
	// cleared so a second drop finds nothing to free
	if err := heap.WriteU32(ptr, 0); err != nil {
		return err
	}
	return heap.WriteU32(ptr+4, 0)
}

type stringOf struct{ p *payload }

func (s *stringOf) Type() wit.Type      { return s.p.typ }
func (s *stringOf) Layout() layout.Info { return s.p.info }

func (s *stringOf) Load(mem wasmebox.Memory, ptr uint32) (string, error) {
	data, err := s.p.load(mem, ptr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *stringOf) Store(heap wasmebox.Heap, ptr uint32, v string) error {
	if !utf8.ValidString(v) {
		return errors.InvalidUTF8(errors.PhaseStore, nil, []byte(v))
	}
	return s.p.store(heap, ptr, []byte(v))
}

func (s *stringOf) Drop(heap wasmebox.Heap, ptr uint32) error {
	return s.p.drop(heap, ptr)
}

type bytesOf struct{ p *payload }

func (b *bytesOf) Type() wit.Type      { return b.p.typ }
func (b *bytesOf) Layout() layout.Info { return b.p.info }

func (b *bytesOf) Load(mem wasmebox.Memory, ptr uint32) ([]byte, error) {
	return b.p.load(mem, ptr)
}

func (b *bytesOf) Store(heap wasmebox.Heap, ptr uint32, v []byte) error {
	return b.p.store(heap, ptr, v)
}

func (b *bytesOf) Drop(heap wasmebox.Heap, ptr uint32) error {
	return b.p.drop(heap, ptr)
}
