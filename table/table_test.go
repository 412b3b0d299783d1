package table

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-ebox/codec"
	"github.com/wippyai/wasm-ebox/ebox"
	"github.com/wippyai/wasm-ebox/errors"
	"github.com/wippyai/wasm-ebox/internal/memtest"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnBoxEvent(e Event) {
	o.events = append(o.events, e)
}

func newBox(t *testing.T, h *memtest.Heap, v uint32) *ebox.Box[uint32] {
	t.Helper()
	b, err := ebox.New(h, codec.U32(), v)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestTable_Basic(t *testing.T) {
	heap := memtest.New(256)
	tbl := New[uint32]()

	b := newBox(t, heap, 42)
	h := tbl.Insert(b)
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	got, ok := tbl.Get(h)
	if !ok || got != b {
		t.Fatalf("Get(%v) = %v, %v", h, got, ok)
	}
	if _, ok := tbl.Get(0); ok {
		t.Error("Get(0) should fail")
	}
	if _, ok := tbl.Get(h + 1); ok {
		t.Error("Get of unknown handle should fail")
	}

	if err := tbl.Drop(h); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if tbl.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Drop")
	}
	if heap.FreeCount(b.Ptr()) != 1 {
		t.Error("Drop should free the box's block")
	}

	err := tbl.Drop(h)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindNotFound {
		t.Errorf("second Drop = %v, want not_found", err)
	}
}

func TestTable_HandleReuse(t *testing.T) {
	heap := memtest.New(256)
	tbl := New[uint32]()

	h1 := tbl.Insert(newBox(t, heap, 1))
	h2 := tbl.Insert(newBox(t, heap, 2))
	if err := tbl.Drop(h1); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	h3 := tbl.Insert(newBox(t, heap, 3))
	if h3 != h1 {
		t.Errorf("handle not reused: got %v, want %v", h3, h1)
	}

	var seen []Handle
	tbl.Each(func(h Handle, _ *ebox.Box[uint32]) bool {
		seen = append(seen, h)
		return true
	})
	if diff := cmp.Diff([]Handle{h1, h2}, seen); diff != "" {
		t.Errorf("Each mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_DropWhileBorrowed(t *testing.T) {
	heap := memtest.New(256)
	tbl := New[uint32]()
	b := newBox(t, heap, 9)
	h := tbl.Insert(b)

	r := b.Borrow()
	if err := tbl.Drop(h); !stderrors.Is(err, ebox.ErrOutstandingBorrow) {
		t.Fatalf("Drop while borrowed = %v, want ErrOutstandingBorrow", err)
	}
	if _, ok := tbl.Get(h); !ok {
		t.Fatal("refused Drop removed the handle")
	}
	r.Release()

	if err := tbl.Drop(h); err != nil {
		t.Fatalf("Drop: %v", err)
	}
}

func TestTable_Take(t *testing.T) {
	heap := memtest.New(256)
	tbl := New[uint32]()
	b := newBox(t, heap, 5)
	h := tbl.Insert(b)

	got, ok := tbl.Take(h)
	if !ok || got != b {
		t.Fatalf("Take = %v, %v", got, ok)
	}
	if tbl.Len() != 0 {
		t.Error("Take should remove the handle")
	}
	if len(heap.Frees) != 0 {
		t.Error("Take must not free the block")
	}
	if err := got.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestTable_Observer(t *testing.T) {
	heap := memtest.New(256)
	tbl := New[uint32]()
	obs := &testObserver{}
	tbl.Subscribe(obs)

	var count int
	tbl.Subscribe(ObserverFunc(func(Event) { count++ }))

	b1 := newBox(t, heap, 1)
	b2 := newBox(t, heap, 2)
	h1 := tbl.Insert(b1)
	h2 := tbl.Insert(b2)
	tbl.Drop(h1)
	taken, _ := tbl.Take(h2)
	defer taken.Close()

	want := []Event{
		{Type: EventCreated, Handle: h1, Ptr: b1.Ptr()},
		{Type: EventCreated, Handle: h2, Ptr: b2.Ptr()},
		{Type: EventDropped, Handle: h1, Ptr: b1.Ptr()},
		{Type: EventTaken, Handle: h2, Ptr: b2.Ptr()},
	}
	if diff := cmp.Diff(want, obs.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if count != 4 {
		t.Errorf("ObserverFunc calls = %d, want 4", count)
	}
}

func TestTable_Close(t *testing.T) {
	heap := memtest.New(256)
	tbl := New[uint32]()
	b1 := newBox(t, heap, 1)
	b2 := newBox(t, heap, 2)
	tbl.Insert(b1)
	tbl.Insert(b2)

	r := b2.Borrow()
	err := tbl.Close()
	if !stderrors.Is(err, ebox.ErrOutstandingBorrow) {
		t.Fatalf("Close = %v, want ErrOutstandingBorrow", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len = %d, want 1 (borrowed box kept)", tbl.Len())
	}
	if h := tbl.Insert(newBox(t, heap, 3)); h != 0 {
		t.Error("Insert after Close should return 0")
	}

	r.Release()
	if err := tbl.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len = %d, want 0", tbl.Len())
	}
}

func TestTable_InsertRejectsReleased(t *testing.T) {
	heap := memtest.New(256)
	tbl := New[uint32]()
	b := newBox(t, heap, 1)
	b.Close()

	if h := tbl.Insert(b); h != 0 {
		t.Errorf("Insert of released box = %v, want 0", h)
	}
	if h := tbl.Insert(nil); h != 0 {
		t.Errorf("Insert(nil) = %v, want 0", h)
	}
}
