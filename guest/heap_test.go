package guest

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-ebox/codec"
	"github.com/wippyai/wasm-ebox/ebox"
	"github.com/wippyai/wasm-ebox/errors"
)

// memoryWASM is a minimal WASM module with 1 page of memory exported as "memory"
var memoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

// bumpWASM exports memory, alloc(size) -> ptr bumping from 1024 in 8-byte
// steps, free(ptr) which only counts calls, and the counter as global
// "frees".
var bumpWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// types: (i32)->i32, (i32)->()
	0x01, 0x0a, 0x02, 0x60, 0x01, 0x7f, 0x01, 0x7f, 0x60, 0x01, 0x7f, 0x00,
	// functions
	0x03, 0x03, 0x02, 0x00, 0x01,
	// memory: 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// globals: heap = 1024, frees = 0
	0x06, 0x0c, 0x02, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b, 0x7f, 0x01, 0x41, 0x00, 0x0b,
	// exports: memory, alloc, free, frees
	0x07, 0x21, 0x04,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	0x05, 0x61, 0x6c, 0x6c, 0x6f, 0x63, 0x00, 0x00,
	0x04, 0x66, 0x72, 0x65, 0x65, 0x00, 0x01,
	0x05, 0x66, 0x72, 0x65, 0x65, 0x73, 0x03, 0x01,
	// code
	0x0a, 0x23, 0x02,
	0x17, 0x01, 0x01, 0x7f,
	0x23, 0x00, 0x21, 0x01, // old = heap
	0x23, 0x00, 0x20, 0x00, 0x41, 0x07, 0x6a, 0x41, 0x78, 0x71, 0x6a, 0x24, 0x00, // heap += (size+7)&^7
	0x20, 0x01, 0x0b,
	0x09, 0x00,
	0x23, 0x01, 0x41, 0x01, 0x6a, 0x24, 0x01, 0x0b, // frees++
}

// reallocWASM exports memory and cabi_realloc(old, old_size, align,
// new_size) which bumps like bumpWASM and counts new_size == 0 calls in
// global "frees".
var reallocWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// types: (i32 i32 i32 i32)->i32
	0x01, 0x09, 0x01, 0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
	// functions
	0x03, 0x02, 0x01, 0x00,
	// memory: 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// globals: heap = 1024, frees = 0
	0x06, 0x0c, 0x02, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b, 0x7f, 0x01, 0x41, 0x00, 0x0b,
	// exports: memory, cabi_realloc, frees
	0x07, 0x21, 0x03,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	0x0c, 0x63, 0x61, 0x62, 0x69, 0x5f, 0x72, 0x65, 0x61, 0x6c, 0x6c, 0x6f, 0x63, 0x00, 0x00,
	0x05, 0x66, 0x72, 0x65, 0x65, 0x73, 0x03, 0x01,
	// code
	0x0a, 0x29, 0x01,
	0x27, 0x01, 0x01, 0x7f,
	0x20, 0x03, 0x45, 0x04, 0x40, // if new_size == 0
	0x23, 0x01, 0x41, 0x01, 0x6a, 0x24, 0x01, // frees++
	0x41, 0x00, 0x0f, // return 0
	0x0b,
	0x23, 0x00, 0x21, 0x04, // old = heap
	0x23, 0x00, 0x20, 0x03, 0x41, 0x07, 0x6a, 0x41, 0x78, 0x71, 0x6a, 0x24, 0x00, // heap += (new_size+7)&^7
	0x20, 0x04, 0x0b,
}

func instantiate(t *testing.T, wasm []byte) api.Module {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	mod, err := rt.Instantiate(ctx, wasm)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	return mod
}

func frees(mod api.Module) uint32 {
	return uint32(mod.ExportedGlobal("frees").Get())
}

func TestBind_MissingExports(t *testing.T) {
	mod := instantiate(t, memoryWASM)

	_, err := Bind(context.Background(), mod, nil)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindNotFound {
		t.Fatalf("Bind without allocator = %v, want not_found", err)
	}

	_, err = Bind(context.Background(), mod, &Config{MemoryExport: "mem"})
	if !stderrors.As(err, &e) || e.Kind != errors.KindNotFound {
		t.Fatalf("Bind with unknown memory = %v, want not_found", err)
	}
}

func TestBind_NamedExportMissing(t *testing.T) {
	mod := instantiate(t, bumpWASM)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"alloc", Config{AllocExport: "malloc"}},
		{"free", Config{FreeExport: "release"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(context.Background(), mod, &tt.cfg)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindNotFound {
				t.Errorf("err = %v, want not_found", err)
			}
		})
	}
}

func TestHeap_SimpleAllocator(t *testing.T) {
	mod := instantiate(t, bumpWASM)
	h, err := Bind(context.Background(), mod, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	alloc, free := h.Exports()
	if alloc != "alloc" || free != "free" {
		t.Errorf("Exports = %q, %q", alloc, free)
	}
	if h.Size() != 65536 {
		t.Errorf("Size = %d, want 65536", h.Size())
	}

	p1, err := h.Alloc(4, 4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	p2, err := h.Alloc(4, 4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if p1 != 1024 || p2 != 1032 {
		t.Errorf("Alloc = %d, %d, want 1024, 1032", p1, p2)
	}

	h.Free(p1, 4, 4)
	h.Free(0, 4, 4)
	if got := frees(mod); got != 1 {
		t.Errorf("guest frees = %d, want 1", got)
	}

	want := Stats{Allocs: 2, Frees: 1}
	if diff := cmp.Diff(want, h.Stats()); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

func TestHeap_ReallocFallbackFree(t *testing.T) {
	mod := instantiate(t, reallocWASM)
	h, err := Bind(context.Background(), mod, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if alloc, free := h.Exports(); alloc != CabiRealloc || free != CabiRealloc {
		t.Errorf("Exports = %q, %q", alloc, free)
	}

	ptr, err := h.Alloc(16, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if ptr != 1024 {
		t.Errorf("Alloc = %d, want 1024", ptr)
	}
	h.Free(ptr, 16, 8)
	if got := frees(mod); got != 1 {
		t.Errorf("guest frees = %d, want 1", got)
	}
}

func TestHeap_MemoryAccess(t *testing.T) {
	mod := instantiate(t, bumpWASM)
	h, err := Bind(context.Background(), mod, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if err := h.WriteU32(64, 0xdeadbeef); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
	if v, err := h.ReadU32(64); err != nil || v != 0xdeadbeef {
		t.Errorf("ReadU32 = 0x%x, %v", v, err)
	}
	if v, err := h.ReadU8(64); err != nil || v != 0xef {
		t.Errorf("ReadU8 = 0x%x, %v", v, err)
	}
	if err := h.WriteU64(128, 1<<40); err != nil {
		t.Fatalf("WriteU64: %v", err)
	}
	if v, _ := h.ReadU64(128); v != 1<<40 {
		t.Errorf("ReadU64 = %d", v)
	}

	_, err = h.Read(65530, 16)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindOutOfBounds {
		t.Errorf("Read past end = %v, want out_of_bounds", err)
	}
	if err := h.WriteU16(65535, 1); err == nil {
		t.Error("WriteU16 past end should fail")
	}
}

func TestHeap_WithContextSharesStats(t *testing.T) {
	mod := instantiate(t, bumpWASM)
	h, err := Bind(context.Background(), mod, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	h2 := h.WithContext(ctx)
	if h2.Context() != ctx {
		t.Error("WithContext did not set context")
	}
	if _, err := h2.Alloc(8, 8); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if h.Stats().Allocs != 1 {
		t.Errorf("stats not shared: %+v", h.Stats())
	}
}

func TestHeap_CanceledContext(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer rt.Close(ctx)
	mod, err := rt.Instantiate(ctx, bumpWASM)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}

	h, err := Bind(ctx, mod, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = h.WithContext(canceled).Alloc(8, 8)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindAllocation {
		t.Fatalf("Alloc with canceled context = %v, want allocation error", err)
	}
	if h.Stats().FailedAllocs != 1 {
		t.Errorf("FailedAllocs = %d, want 1", h.Stats().FailedAllocs)
	}
}

func TestHeap_BoxLifecycle(t *testing.T) {
	mod := instantiate(t, bumpWASM)
	h, err := Bind(context.Background(), mod, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	b, err := ebox.New(h, codec.String(), "hello guest")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := b.Borrow()
	if v, err := r.Get(); err != nil || v != "hello guest" {
		t.Errorf("Get = %q, %v", v, err)
	}
	r.Release()

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// header and payload
	if got := frees(mod); got != 2 {
		t.Errorf("guest frees = %d, want 2", got)
	}
}
