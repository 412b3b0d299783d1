// Package ebox provides Box, an owning handle to a single value stored in
// memory managed by a foreign allocator, and the Ref/RefMut guards that
// borrow it.
//
// # Ownership
//
// A Box is created by New (allocate, store) or Adopt (take over an existing
// block). Close destructs the value in place through its codec and frees the
// block exactly once. IntoRaw gives the address back without freeing;
// passing that address to Adopt again restores ownership.
//
//	b, err := ebox.New(heap, codec.U32(), 42)
//	if err != nil {
//		return err
//	}
//	defer b.Close()
//
// # Borrowing
//
// The borrow rules are enforced at run time: any number of shared guards,
// or exactly one exclusive guard. The Try variants return ErrAlreadyBorrowed
// or ErrAlreadyMutablyBorrowed on conflict; Borrow and BorrowMut panic.
//
//	m := b.BorrowMut()
//	m.Update(func(v uint32) uint32 { return v + 1 })
//	m.Release()
//
// Guards must be released before the box is closed; Close and IntoRaw
// refuse with ErrOutstandingBorrow while any guard is live.
//
// # Thread Safety
//
// Box and its guards are not safe for concurrent use. The heap a box lives
// on is shared with its other users, so synchronize at that level.
package ebox
