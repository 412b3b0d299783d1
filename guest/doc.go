// Package guest binds a wazero module instance as a foreign heap.
//
// Bind resolves the instance's exported linear memory and its allocator
// exports. The canonical ABI names are tried first (cabi_realloc, cabi_free),
// then the names used by older toolchains:
//
//	alloc: cabi_realloc, canonical_abi_realloc, allocate, alloc
//	free:  cabi_free, deallocate, free
//
// A four-parameter realloc export is called as realloc(0, 0, align, size)
// to allocate; when no free export exists, blocks are returned with
// realloc(ptr, size, align, 0). Allocators taking one or two parameters are
// called with (size) or (size, align).
//
//	heap, err := guest.Bind(ctx, mod, nil)
//	if err != nil {
//		return err
//	}
//	b, err := ebox.New(heap, codec.String(), "hello")
//
// A Heap serializes its allocator calls and may be shared between
// goroutines; the memory views it returns are invalidated by any guest call
// that grows memory.
package guest
