// Package wasmebox provides owned, borrow-checked boxes over memory blocks
// that live outside the Go heap.
//
// Blocks handed out by a WebAssembly guest's allocator (cabi_realloc, alloc,
// malloc) or by an mmap'd arena are invisible to the Go garbage collector.
// Nothing frees them unless the host does, and nothing stops two host call
// paths from reading and writing the same block at once. This module pairs
// every such block with exactly one owner and a runtime reader/writer borrow
// state.
//
// # Architecture Overview
//
//	wasmebox/            Root package with core Memory, Allocator and Heap interfaces
//	├── ebox/            Box[T] owner with Ref/RefMut borrow guards
//	├── codec/           How a Go value is laid out inside a foreign block
//	├── layout/          Canonical ABI size and alignment of WIT types
//	├── guest/           Heap backed by a wazero module's memory and allocator exports
//	├── hostheap/        Heap backed by an mmap'd arena outside the Go heap
//	├── table/           Handle table of owned boxes for crossing call boundaries
//	├── errors/          Structured error types
//	└── cmd/ebox/        Demo and interactive inspector
//
// # Quick Start
//
//	heap, err := guest.Bind(ctx, mod, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	b, err := ebox.New(heap, codec.U32(), 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	w := b.BorrowMut()
//	_ = w.Set(43)
//	w.Release()
//
//	r := b.Borrow()
//	v, _ := r.Get() // 43
//	r.Release()
//
// # Ownership
//
// A Box owns its block from Adopt (or New) until Close, which destructs the
// value in place and returns the block to the allocator, or until IntoRaw,
// which hands the address back out without freeing it:
//
//	ptr, _ := ebox.IntoRaw(b) // b is inert now
//	b2, _ := ebox.Adopt(heap, codec.U32(), ptr)
//
// # Borrowing
//
// Any number of Ref guards may be live at once; a RefMut excludes every
// other guard. The Try variants return errors matching
// ebox.ErrAlreadyBorrowed / ebox.ErrAlreadyMutablyBorrowed; the plain
// variants panic with the same error.
//
// # Thread Safety
//
// A Box and its guards are NOT safe for concurrent use. The host runtime is
// expected to dispatch one unit of work at a time through a given box.
package wasmebox
