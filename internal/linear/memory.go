// Package linear implements wasmebox.Memory over a plain byte slice.
package linear

import (
	"encoding/binary"

	"github.com/wippyai/wasm-ebox/errors"
)

// Memory adapts a byte slice to wasmebox.Memory. The slice may live outside
// the Go heap (mmap); Memory never grows or reallocates it.
type Memory struct {
	Buf []byte
}

func (m *Memory) span(phase errors.Phase, offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.Buf)) {
		return nil, errors.OutOfBounds(phase, offset, length)
	}
	return m.Buf[offset:end:end], nil
}

// Size returns the region size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.Buf))
}

// Read returns a view of length bytes at offset.
func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	return m.span(errors.PhaseLoad, offset, length)
}

// Write copies data to offset.
func (m *Memory) Write(offset uint32, data []byte) error {
	b, err := m.span(errors.PhaseStore, offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	b, err := m.span(errors.PhaseLoad, offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *Memory) ReadU16(offset uint32) (uint16, error) {
	b, err := m.span(errors.PhaseLoad, offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.span(errors.PhaseLoad, offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	b, err := m.span(errors.PhaseLoad, offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *Memory) WriteU8(offset uint32, value uint8) error {
	b, err := m.span(errors.PhaseStore, offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (m *Memory) WriteU16(offset uint32, value uint16) error {
	b, err := m.span(errors.PhaseStore, offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

func (m *Memory) WriteU32(offset uint32, value uint32) error {
	b, err := m.span(errors.PhaseStore, offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

func (m *Memory) WriteU64(offset uint32, value uint64) error {
	b, err := m.span(errors.PhaseStore, offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
