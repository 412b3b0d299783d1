package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/cmd/ebox/internal/config"
	"github.com/wippyai/wasm-ebox/guest"
	"github.com/wippyai/wasm-ebox/hostheap"
)

// openedHeap is a heap plus whatever must be torn down after it.
type openedHeap struct {
	wasmebox.Heap
	describe string
	close    func() error
}

func (h *openedHeap) Close() error { return h.close() }

func openHeap(ctx context.Context, r *config.Resolved) (*openedHeap, error) {
	switch r.HeapKind {
	case config.HeapGuest:
		return openGuest(ctx, r)
	default:
		a, err := hostheap.New(r.ArenaSize)
		if err != nil {
			return nil, fmt.Errorf("create arena: %w", err)
		}
		return &openedHeap{
			Heap:     a,
			describe: fmt.Sprintf("host arena (%d bytes)", r.ArenaSize),
			close:    a.Close,
		}, nil
	}
}

func openGuest(ctx context.Context, r *config.Resolved) (*openedHeap, error) {
	data, err := os.ReadFile(r.Wasm)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	mod, err := rt.InstantiateWithConfig(ctx, data,
		wazero.NewModuleConfig().WithName("guest").WithStartFunctions("_initialize"))
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate: %w", err)
	}

	h, err := guest.Bind(ctx, mod, &r.Guest)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	alloc, free := h.Exports()
	if free == "" {
		free = "none"
	}
	return &openedHeap{
		Heap:     h,
		describe: fmt.Sprintf("guest %s (alloc=%s free=%s, %d bytes)", r.Wasm, alloc, free, h.Size()),
		close:    func() error { return rt.Close(ctx) },
	}, nil
}
