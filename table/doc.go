// Package table maps integer handles to owned boxes.
//
// Code that crosses a boundary where only integers travel, such as a guest
// call or a command line, keeps its boxes in a Table and passes handles
// around instead:
//
//	tbl := table.New[uint32]()
//	h := tbl.Insert(b)
//	...
//	if err := tbl.Drop(h); err != nil {
//		// still borrowed
//	}
//
// Observers subscribed to a table are notified after every insert, take and
// drop, outside the table's lock.
package table
