package table

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/wippyai/wasm-ebox/ebox"
	"github.com/wippyai/wasm-ebox/errors"
)

// Table owns boxes on behalf of callers that can only hold integers, and
// hands out a Handle for each. Handles of dropped boxes are reused.
//
// The table itself is safe for concurrent use; the boxes it returns are not.
type Table[T any] struct {
	entries   []*ebox.Box[T]
	freeList  []Handle
	mu        sync.RWMutex
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
}

// New creates an empty table.
func New[T any]() *Table[T] {
	return &Table[T]{
		entries:  make([]*ebox.Box[T], 0, 16),
		freeList: make([]Handle, 0, 8),
	}
}

// Insert takes ownership of b and returns its handle. It returns 0 if the
// table is closed or b is nil or already released.
func (t *Table[T]) Insert(b *ebox.Box[T]) Handle {
	if b == nil || b.Released() {
		return 0
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}
	var h Handle
	if n := len(t.freeList); n > 0 {
		h = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[h-1] = b
	} else {
		t.entries = append(t.entries, b)
		h = Handle(len(t.entries))
	}
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Ptr: b.Ptr()})
	return h
}

// Get returns the box for h without transferring ownership.
func (t *Table[T]) Get(h Handle) (*ebox.Box[T], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b := t.lookup(h)
	return b, b != nil
}

func (t *Table[T]) lookup(h Handle) *ebox.Box[T] {
	if h == 0 || int(h) > len(t.entries) {
		return nil
	}
	return t.entries[h-1]
}

func (t *Table[T]) remove(h Handle) {
	t.entries[h-1] = nil
	t.freeList = append(t.freeList, h)
}

// Take removes h from the table and transfers ownership of its box to the
// caller.
func (t *Table[T]) Take(h Handle) (*ebox.Box[T], bool) {
	t.mu.Lock()
	b := t.lookup(h)
	if b == nil {
		t.mu.Unlock()
		return nil, false
	}
	t.remove(h)
	t.mu.Unlock()

	t.notify(Event{Type: EventTaken, Handle: h, Ptr: b.Ptr()})
	return b, true
}

// Drop closes the box for h and frees its handle. A box with live guards
// stays in the table and the outstanding_borrow error is returned.
func (t *Table[T]) Drop(h Handle) error {
	t.mu.Lock()
	b := t.lookup(h)
	if b == nil {
		t.mu.Unlock()
		return errors.NotFound(errors.PhaseDrop, "handle", h.String())
	}
	err := b.Close()
	if err != nil && !b.Released() {
		t.mu.Unlock()
		return err
	}
	t.remove(h)
	t.mu.Unlock()

	t.notify(Event{Type: EventDropped, Handle: h, Ptr: b.Ptr()})
	return err
}

// Len returns the number of boxes in the table.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.freeList)
}

// Each calls fn for every box in handle order until fn returns false.
// fn may call back into the table.
func (t *Table[T]) Each(fn func(Handle, *ebox.Box[T]) bool) {
	type item struct {
		h Handle
		b *ebox.Box[T]
	}
	t.mu.RLock()
	items := make([]item, 0, len(t.entries))
	for i, b := range t.entries {
		if b != nil {
			items = append(items, item{Handle(i + 1), b})
		}
	}
	t.mu.RUnlock()

	for _, it := range items {
		if !fn(it.h, it.b) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Close drops every box and stops accepting inserts. Boxes that cannot be
// dropped because they are still borrowed stay in the table; their errors
// are combined in the result and Close may be called again.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	var handles []Handle
	t.Each(func(h Handle, _ *ebox.Box[T]) bool {
		handles = append(handles, h)
		return true
	})

	var err error
	for _, h := range handles {
		err = multierr.Append(err, t.Drop(h))
	}
	return err
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnBoxEvent(e)
	}
}
