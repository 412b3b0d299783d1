package ebox

import (
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-ebox/codec"
	"github.com/wippyai/wasm-ebox/internal/memtest"
)

func TestBoxFormat(t *testing.T) {
	h := memtest.New(256)

	t.Run("value", func(t *testing.T) {
		b := newU32(t, h, 42)
		defer b.Close()
		if got := fmt.Sprint(b); got != "EBox{value: 42}" {
			t.Errorf("got %q", got)
		}
		if got := fmt.Sprintf("%x", b); got != "EBox{value: 2a}" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("shared guard live", func(t *testing.T) {
		b := newU32(t, h, 42)
		defer b.Close()
		r := b.Borrow()
		defer r.Release()
		if got := b.String(); got != "EBox{value: 42}" {
			t.Errorf("got %q", got)
		}
		if n := b.State().Shared(); n != 1 {
			t.Errorf("formatting leaked a guard: shared = %d", n)
		}
		if got := r.String(); got != "42" {
			t.Errorf("Ref.String = %q", got)
		}
	})

	t.Run("exclusive guard live", func(t *testing.T) {
		b := newU32(t, h, 42)
		defer b.Close()
		m := b.BorrowMut()
		defer m.Release()
		if got := b.String(); got != "EBox{value: <borrowed>}" {
			t.Errorf("got %q", got)
		}
		if got := m.String(); got != "42" {
			t.Errorf("RefMut.String = %q", got)
		}
	})

	t.Run("option", func(t *testing.T) {
		c := codec.Option(codec.U32())
		b, err := New(h, c, nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer b.Close()
		if got := b.String(); got != "EBox{value: none}" {
			t.Errorf("none: got %q", got)
		}
		v := uint32(7)
		m := b.BorrowMut()
		if err := m.Set(&v); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if got := m.String(); got != "7" {
			t.Errorf("RefMut.String = %q", got)
		}
		m.Release()
		if got := fmt.Sprintf("%03d", b); got != "EBox{value: 007}" {
			t.Errorf("some: got %q", got)
		}
	})

	t.Run("released", func(t *testing.T) {
		b := newU32(t, h, 42)
		b.Close()
		if got := b.String(); got != "EBox{<released>}" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("load error", func(t *testing.T) {
		b, err := Adopt(h, codec.U32(), 4096)
		if err != nil {
			t.Fatalf("Adopt: %v", err)
		}
		defer IntoRaw(b)
		got := b.String()
		if !strings.HasPrefix(got, "EBox{value: <error: ") || !strings.Contains(got, "out_of_bounds") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("string", func(t *testing.T) {
		b, err := New(h, codec.String(), "hi")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer b.Close()
		if got := fmt.Sprintf("%q", b); got != `EBox{value: "hi"}` {
			t.Errorf("got %q", got)
		}
	})
}

func TestBorrowStateString(t *testing.T) {
	tests := []struct {
		state BorrowState
		want  string
	}{
		{0, "free"},
		{2, "2 shared"},
		{stateExclusive, "exclusive"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("BorrowState(%d).String() = %q, want %q", int32(tt.state), got, tt.want)
		}
	}
}

//go:noinline
func leakBox(h *memtest.Heap) uint32 {
	b, _ := New(h, codec.U32(), 1)
	return b.Ptr()
}

func TestLeakedBoxIsReported(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	h := memtest.New(256)
	ptr := leakBox(h)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		if logs.FilterField(zap.Uint32("ptr", ptr)).Len() > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	entries := logs.FilterField(zap.Uint32("ptr", ptr)).All()
	if len(entries) == 0 {
		t.Fatal("no leak warning for collected box")
	}
	if len(h.Frees) != 0 {
		t.Error("leak cleanup must not free the block")
	}
}
