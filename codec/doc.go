// Package codec describes how a Go value is laid out inside a foreign block.
//
// A Codec[T] knows the WIT type of the in-block representation, its
// Canonical ABI size and alignment, how to load and store a T at an address,
// and how to destruct a stored value in place. Destruction releases payload
// blocks the value owns (string bytes, list elements) but never the block
// holding the value itself; that belongs to whoever owns the address.
//
//	c := codec.String()
//	ptr, _ := heap.Alloc(c.Layout().Size, c.Layout().Align)
//	_ = c.Store(heap, ptr, "hello")   // allocates 5 payload bytes
//	s, _ := c.Load(heap, ptr)         // "hello"
//	_ = c.Drop(heap, ptr)             // frees the 5 payload bytes
//	heap.Free(ptr, c.Layout().Size, c.Layout().Align)
//
// Store does not destruct a previous value first; callers replacing a value
// call Drop before Store.
package codec
