package guest

import (
	"github.com/wippyai/wasm-ebox/errors"
)

// Read returns a view of guest memory. The view aliases the guest's buffer
// and is invalidated when the guest grows its memory.
func (h *Heap) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := h.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseLoad, offset, length)
	}
	return data, nil
}

func (h *Heap) Write(offset uint32, data []byte) error {
	if !h.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseStore, offset, uint32(len(data)))
	}
	return nil
}

func (h *Heap) ReadU8(offset uint32) (uint8, error) {
	v, ok := h.mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseLoad, offset, 1)
	}
	return v, nil
}

func (h *Heap) ReadU16(offset uint32) (uint16, error) {
	v, ok := h.mem.ReadUint16Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseLoad, offset, 2)
	}
	return v, nil
}

func (h *Heap) ReadU32(offset uint32) (uint32, error) {
	v, ok := h.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseLoad, offset, 4)
	}
	return v, nil
}

func (h *Heap) ReadU64(offset uint32) (uint64, error) {
	v, ok := h.mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseLoad, offset, 8)
	}
	return v, nil
}

func (h *Heap) WriteU8(offset uint32, value uint8) error {
	if !h.mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseStore, offset, 1)
	}
	return nil
}

func (h *Heap) WriteU16(offset uint32, value uint16) error {
	if !h.mem.WriteUint16Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseStore, offset, 2)
	}
	return nil
}

func (h *Heap) WriteU32(offset uint32, value uint32) error {
	if !h.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseStore, offset, 4)
	}
	return nil
}

func (h *Heap) WriteU64(offset uint32, value uint64) error {
	if !h.mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseStore, offset, 8)
	}
	return nil
}

// Size returns the current size of guest memory in bytes.
func (h *Heap) Size() uint32 {
	return h.mem.Size()
}
