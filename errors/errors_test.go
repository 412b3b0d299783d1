package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseStore,
				Kind:    KindInvalidData,
				Path:    []string{"pair", "second"},
				GoType:  "string",
				WitType: "u32",
				Detail:  "cannot convert",
			},
			contains: []string{"[store]", "invalid_data", "pair.second", "string", "u32", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLoad,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[load]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseAlloc,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[alloc]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseStore,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := AlreadyMutablyBorrowed(0x40)

	if !err.Is(&Error{Phase: PhaseBorrow, Kind: KindAlreadyMutablyBorrowed}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDrop, Kind: KindAlreadyMutablyBorrowed}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseBorrow, Kind: KindAlreadyBorrowed}) {
		t.Error("Is should not match different kind")
	}
	if !err.Is(&Error{Kind: KindAlreadyMutablyBorrowed}) {
		t.Error("Is should match any phase when target phase is empty")
	}

	wrapped := Wrap(PhaseDrop, KindInvalidData, err, "close")
	if !errors.Is(wrapped, &Error{Phase: PhaseBorrow, Kind: KindAlreadyMutablyBorrowed}) {
		t.Error("errors.Is should see through Cause")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseStore, KindInvalidData).
		Path("pair", "first").
		GoType("string").
		WitType("u32").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseStore {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseStore)
	}
	if err.Kind != KindInvalidData {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidData)
	}
	if len(err.Path) != 2 || err.Path[0] != "pair" || err.Path[1] != "first" {
		t.Errorf("Path = %v, want [pair first]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %v, want 'expected string, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("AlreadyBorrowed", func(t *testing.T) {
		err := AlreadyBorrowed(0x10, "2 shared")
		if err.Kind != KindAlreadyBorrowed || err.Phase != PhaseBorrow {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "2 shared") {
			t.Errorf("Detail = %q, should name the holder", err.Detail)
		}
		if err.Value != uint32(0x10) {
			t.Errorf("Value = %v, want 0x10", err.Value)
		}
	})

	t.Run("OutstandingBorrow", func(t *testing.T) {
		err := OutstandingBorrow(PhaseDrop, 8, "exclusive")
		if err.Kind != KindOutstandingBorrow || err.Phase != PhaseDrop {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("Released", func(t *testing.T) {
		err := Released(PhaseLoad, "shared guard", 8)
		if err.Kind != KindReleased {
			t.Errorf("Kind = %v, want %v", err.Kind, KindReleased)
		}
		if !strings.Contains(err.Error(), "shared guard") {
			t.Errorf("message %q should name the guard", err.Error())
		}
	})

	t.Run("NullPointer", func(t *testing.T) {
		err := NullPointer(PhaseRaw, "uint32")
		if err.Kind != KindNullPointer || err.GoType != "uint32" {
			t.Errorf("got %v GoType=%v", err.Kind, err.GoType)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		cause := errors.New("oom")
		err := AllocationFailed(1024, 8, cause)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
		if !errors.Is(err, cause) {
			t.Error("cause should be reachable")
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseLoad, 65536, 4)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != uint32(65536) {
			t.Errorf("Value = %v, want 65536", err.Value)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseLoad, []string{"str"}, []byte{0xff, 0xfe})
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseBind, "export", "cabi_realloc")
		if err.Kind != KindNotFound || !strings.Contains(err.Detail, "cabi_realloc") {
			t.Errorf("got %v %q", err.Kind, err.Detail)
		}
	})
}
