package guest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/errors"
)

const (
	CabiRealloc = "cabi_realloc"
	CabiFree    = "cabi_free"

	// Legacy names from pre-standardization component model implementations
	legacyRealloc = "canonical_abi_realloc"
	legacyAlloc   = "allocate"
	simpleAlloc   = "alloc"
	legacyDealloc = "deallocate"
	simpleFree    = "free"

	defaultMemory = "memory"
)

var (
	allocExports = []string{CabiRealloc, legacyRealloc, legacyAlloc, simpleAlloc}
	freeExports  = []string{CabiFree, legacyDealloc, simpleFree}
)

// Config overrides export resolution. The zero value uses the defaults.
type Config struct {
	MemoryExport string `yaml:"memory_export"`
	AllocExport  string `yaml:"alloc_export"`
	FreeExport   string `yaml:"free_export"`
}

// Stats counts allocator calls made through a Heap.
type Stats struct {
	Allocs       uint64
	FailedAllocs uint64
	Frees        uint64
	FailedFrees  uint64
	// Unfreed counts Free calls dropped because the guest exports no way
	// to release memory.
	Unfreed uint64
}

type allocKind int

const (
	allocSize      allocKind = iota // alloc(size)
	allocSizeAlign                  // alloc(size, align)
	allocRealloc                    // realloc(old, old_size, align, new_size)
)

// binding is the state shared by a Heap and the views made by WithContext.
type binding struct {
	mem        api.Memory
	allocFn    api.Function
	freeFn     api.Function
	allocName  string
	freeName   string
	allocKind  allocKind
	freeParams int
	stackMutex sync.Mutex
	stackBuf   [4]uint64
	stats      Stats
}

// Heap is a foreign heap backed by a wazero module instance: its exported
// linear memory and its allocator exports.
type Heap struct {
	*binding
	ctx context.Context
}

var (
	_ wasmebox.Heap        = (*Heap)(nil)
	_ wasmebox.MemorySizer = (*Heap)(nil)
)

// Bind resolves memory and allocator exports of mod. ctx is used for guest
// calls until replaced with WithContext. cfg may be nil.
func Bind(ctx context.Context, mod api.Module, cfg *Config) (*Heap, error) {
	if mod == nil {
		return nil, errors.InvalidInput(errors.PhaseBind, "nil module")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	b := &binding{}

	memName := cfg.MemoryExport
	if memName == "" {
		memName = defaultMemory
	}
	b.mem = mod.ExportedMemory(memName)
	if b.mem == nil && cfg.MemoryExport == "" {
		b.mem = mod.Memory()
	}
	if b.mem == nil {
		return nil, errors.NotFound(errors.PhaseBind, "memory export", memName)
	}

	defs := mod.ExportedFunctionDefinitions()

	allocDef, err := lookup(defs, cfg.AllocExport, allocExports, "allocator export")
	if err != nil {
		return nil, err
	}
	switch n := len(allocDef.ParamTypes()); {
	case n == 1:
		b.allocKind = allocSize
	case n == 2:
		b.allocKind = allocSizeAlign
	case n == 4:
		b.allocKind = allocRealloc
	default:
		return nil, errors.InvalidInput(errors.PhaseBind,
			fmt.Sprintf("allocator %q takes %d parameters, want 1, 2 or 4", allocDef.Name(), n))
	}
	if len(allocDef.ResultTypes()) != 1 {
		return nil, errors.InvalidInput(errors.PhaseBind,
			fmt.Sprintf("allocator %q must return one pointer", allocDef.Name()))
	}
	b.allocName = allocDef.Name()
	b.allocFn = mod.ExportedFunction(b.allocName)

	freeDef, err := lookup(defs, cfg.FreeExport, freeExports, "free export")
	switch {
	case err == nil:
		n := len(freeDef.ParamTypes())
		if n < 1 || n > 3 {
			return nil, errors.InvalidInput(errors.PhaseBind,
				fmt.Sprintf("free %q takes %d parameters, want 1 to 3", freeDef.Name(), n))
		}
		b.freeName = freeDef.Name()
		b.freeFn = mod.ExportedFunction(b.freeName)
		b.freeParams = n
	case cfg.FreeExport != "":
		return nil, err
	case b.allocKind == allocRealloc:
		b.freeName = b.allocName
	default:
		Logger().Warn("guest exports no free function; blocks will not be returned",
			zap.String("module", mod.Name()),
			zap.String("alloc", b.allocName))
	}

	Logger().Debug("bound guest heap",
		zap.String("module", mod.Name()),
		zap.String("alloc", b.allocName),
		zap.String("free", b.freeName),
		zap.Uint32("memory_size", b.mem.Size()))

	return &Heap{binding: b, ctx: ctx}, nil
}

// lookup returns the definition of name, or of the first candidate present
// when name is empty.
func lookup(defs map[string]api.FunctionDefinition, name string, candidates []string, what string) (api.FunctionDefinition, error) {
	if name != "" {
		if def, ok := defs[name]; ok {
			return def, nil
		}
		return nil, errors.NotFound(errors.PhaseBind, what, name)
	}
	for _, c := range candidates {
		if def, ok := defs[c]; ok {
			return def, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseBind, what, candidates[0])
}

// WithContext returns a Heap that makes guest calls with ctx. It shares
// exports and statistics with h.
func (h *Heap) WithContext(ctx context.Context) *Heap {
	if ctx == nil {
		panic("nil context")
	}
	return &Heap{binding: h.binding, ctx: ctx}
}

// Context returns the context used for guest calls.
func (h *Heap) Context() context.Context { return h.ctx }

// Exports returns the names of the resolved allocator and free exports.
// free is empty when the guest cannot release memory.
func (h *Heap) Exports() (alloc, free string) {
	return h.allocName, h.freeName
}

// Stats returns a snapshot of the call counters.
func (h *Heap) Stats() Stats {
	h.stackMutex.Lock()
	defer h.stackMutex.Unlock()
	return h.stats
}

// Alloc calls the guest allocator. A zero result is reported as an
// allocation failure.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	h.stackMutex.Lock()
	defer h.stackMutex.Unlock()

	var stack []uint64
	switch h.allocKind {
	case allocSize:
		h.stackBuf[0] = uint64(size)
		stack = h.stackBuf[:1]
	case allocSizeAlign:
		h.stackBuf[0] = uint64(size)
		h.stackBuf[1] = uint64(align)
		stack = h.stackBuf[:2]
	default:
		h.stackBuf[0] = 0
		h.stackBuf[1] = 0
		h.stackBuf[2] = uint64(align)
		h.stackBuf[3] = uint64(size)
		stack = h.stackBuf[:4]
	}

	if err := h.allocFn.CallWithStack(h.ctx, stack); err != nil {
		h.stats.FailedAllocs++
		return 0, errors.AllocationFailed(size, align, err)
	}
	ptr := uint32(stack[0])
	if ptr == 0 {
		h.stats.FailedAllocs++
		return 0, errors.AllocationFailed(size, align, fmt.Errorf("%s returned null", h.allocName))
	}
	h.stats.Allocs++
	return ptr, nil
}

// Free returns a block to the guest. Failures are logged, not returned.
func (h *Heap) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}

	h.stackMutex.Lock()
	defer h.stackMutex.Unlock()

	var (
		fn    api.Function
		stack []uint64
	)
	switch {
	case h.freeFn != nil:
		fn = h.freeFn
		h.stackBuf[0] = uint64(ptr)
		h.stackBuf[1] = uint64(size)
		h.stackBuf[2] = uint64(align)
		stack = h.stackBuf[:h.freeParams]
	case h.allocKind == allocRealloc:
		fn = h.allocFn
		h.stackBuf[0] = uint64(ptr)
		h.stackBuf[1] = uint64(size)
		h.stackBuf[2] = uint64(align)
		h.stackBuf[3] = 0
		stack = h.stackBuf[:4]
	default:
		h.stats.Unfreed++
		return
	}

	if err := fn.CallWithStack(h.ctx, stack); err != nil {
		h.stats.FailedFrees++
		Logger().Warn("Free: guest call failed",
			zap.String("export", h.freeName),
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
		return
	}
	h.stats.Frees++
}
