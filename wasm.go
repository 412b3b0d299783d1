package wasmebox

// Memory represents a foreign linear memory region (a WASM guest's memory or
// an off-heap arena). Addresses are offsets into that region.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of the memory region in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates blocks inside a Memory. Alloc never returns 0 on
// success. Free has no error result; implementations log failures.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// Heap is a memory region paired with the allocator that owns its blocks.
type Heap interface {
	Memory
	Allocator
}
