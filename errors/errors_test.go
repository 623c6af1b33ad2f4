package errors

import (
	"errors"
	"fmt"
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
				Phase:    PhaseFree,
				Kind:     KindLayoutMismatch,
				Addr:     0xc0ffee,
				TypeName: "box[int]",
				Size:     24,
				Align:    8,
				Detail:   "allocated with size 32",
			},
			contains: []string{"[free]", "layout_mismatch", "0xc0ffee", "box[int]", "size 24 align 8", "allocated with size 32"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseCount,
				Kind:  KindOverflow,
			},
			contains: []string{"[count]", "overflow"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseAlloc,
				Kind:   KindAllocation,
				Detail: "arena full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[alloc]", "allocation", "arena full", "caused by", "underlying error"},
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
		Phase: PhaseAlloc,
		Kind:  KindAllocation,
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
	err := &Error{
		Phase: PhaseFree,
		Kind:  KindDoubleFree,
		Addr:  0x1000,
	}

	if !err.Is(&Error{Phase: PhaseFree, Kind: KindDoubleFree}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseAlloc, Kind: KindDoubleFree}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseFree, Kind: KindForeignFree}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseFree, Kind: KindDoubleFree}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseFree, KindLayoutMismatch).
		Addr(0x2000).
		Layout(16, 8).
		TypeName("box[string]").
		Value(42).
		Cause(cause).
		Detail("expected %d, got %d", 16, 24).
		Build()

	if err.Phase != PhaseFree {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseFree)
	}
	if err.Kind != KindLayoutMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindLayoutMismatch)
	}
	if err.Addr != 0x2000 {
		t.Errorf("Addr = %#x, want 0x2000", err.Addr)
	}
	if err.Size != 16 || err.Align != 8 {
		t.Errorf("Layout = %d/%d, want 16/8", err.Size, err.Align)
	}
	if err.TypeName != "box[string]" {
		t.Errorf("TypeName = %v, want 'box[string]'", err.TypeName)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected 16, got 24" {
		t.Errorf("Detail = %v, want 'expected 16, got 24'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseAlloc, 1024, 8)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("CountOverflow", func(t *testing.T) {
		err := CountOverflow("strong")
		if err.Kind != KindOverflow || err.Phase != PhaseCount {
			t.Errorf("got %v/%v, want count/overflow", err.Phase, err.Kind)
		}
		if err.Value != "strong" {
			t.Errorf("Value = %v, want strong", err.Value)
		}
	})

	t.Run("LayoutMismatch", func(t *testing.T) {
		err := LayoutMismatch(0x10, 32, 8, 16, 8)
		if err.Kind != KindLayoutMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindLayoutMismatch)
		}
		if err.Size != 16 {
			t.Errorf("Size = %d, want the size passed to free", err.Size)
		}
		if !strings.Contains(err.Detail, "32") {
			t.Errorf("Detail = %v, should contain allocated size", err.Detail)
		}
	})

	t.Run("DoubleFree", func(t *testing.T) {
		err := DoubleFree(0x20)
		if err.Kind != KindDoubleFree || err.Addr != 0x20 {
			t.Errorf("got %v at %#x", err.Kind, err.Addr)
		}
	})

	t.Run("ForeignFree", func(t *testing.T) {
		err := ForeignFree(0x30)
		if err.Kind != KindForeignFree {
			t.Errorf("Kind = %v, want %v", err.Kind, KindForeignFree)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseAlloc, "*int", "pointerful layout")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
		if err.TypeName != "*int" {
			t.Errorf("TypeName = %v, want '*int'", err.TypeName)
		}
	})

	t.Run("Consumed", func(t *testing.T) {
		err := Consumed("Clone")
		if err.Kind != KindConsumed || err.Phase != PhaseAccess {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), "Clone on a consumed handle") {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("WrongGoroutine", func(t *testing.T) {
		err := WrongGoroutine(0x40, 1, 7)
		if err.Kind != KindConfinement {
			t.Errorf("Kind = %v, want %v", err.Kind, KindConfinement)
		}
		if err.Value != int64(7) {
			t.Errorf("Value = %v, want 7", err.Value)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		err := Closed(PhaseAlloc, "arena")
		if err.Kind != KindClosed {
			t.Errorf("Kind = %v, want %v", err.Kind, KindClosed)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseParse, "handle", "p0")
		if err.Kind != KindNotFound || err.Value != "p0" {
			t.Errorf("got %v value %v", err.Kind, err.Value)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("mmap failed")
		err := Wrap(PhaseAlloc, KindAllocation, cause, "reserve arena")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep the cause reachable")
		}
	})
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", DoubleFree(0x10))
	if k, ok := KindOf(wrapped); !ok || k != KindDoubleFree {
		t.Fatalf("Expected double_free, got %q, %v", k, ok)
	}
	if _, ok := KindOf(fmt.Errorf("plain")); ok {
		t.Fatal("Expected no kind for a plain error")
	}
}
