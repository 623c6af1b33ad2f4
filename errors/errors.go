package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAlloc   Phase = "alloc"   // block allocation
	PhaseFree    Phase = "free"    // block deallocation
	PhaseCount   Phase = "count"   // strong/weak count arithmetic
	PhaseAccess  Phase = "access"  // dereferencing a handle
	PhaseConfine Phase = "confine" // goroutine confinement
	PhaseParse   Phase = "parse"   // inspector script parsing
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation     Kind = "allocation"
	KindOverflow       Kind = "overflow"
	KindLayoutMismatch Kind = "layout_mismatch"
	KindDoubleFree     Kind = "double_free"
	KindForeignFree    Kind = "foreign_free"
	KindUnsupported    Kind = "unsupported"
	KindConsumed       Kind = "consumed"
	KindConfinement    Kind = "confinement"
	KindClosed         Kind = "closed"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	TypeName string
	Detail   string
	Addr     uintptr
	Size     uintptr
	Align    uintptr
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Addr != 0 {
		b.WriteString(" at 0x")
		b.WriteString(strconv.FormatUint(uint64(e.Addr), 16))
	}

	if e.TypeName != "" || e.Size != 0 {
		b.WriteString(": ")
		if e.TypeName != "" {
			b.WriteString("type ")
			b.WriteString(e.TypeName)
		}
		if e.Size != 0 {
			if e.TypeName != "" {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "size %d align %d", e.Size, e.Align)
		}
	}

	if e.Detail != "" {
		if e.TypeName != "" || e.Size != 0 {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Addr sets the block address
func (b *Builder) Addr(addr uintptr) *Builder {
	b.err.Addr = addr
	return b
}

// Layout sets the block size and alignment
func (b *Builder) Layout(size, align uintptr) *Builder {
	b.err.Size = size
	b.err.Align = align
	return b
}

// TypeName sets the Go type name
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Size:   size,
		Align:  align,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// CountOverflow creates an overflow error for the named reference count
func CountOverflow(counter string) *Error {
	return &Error{
		Phase:  PhaseCount,
		Kind:   KindOverflow,
		Detail: counter + " count overflow",
		Value:  counter,
	}
}

// LayoutMismatch creates an error for a free whose layout differs from the allocation
func LayoutMismatch(addr, wantSize, wantAlign, gotSize, gotAlign uintptr) *Error {
	return &Error{
		Phase:  PhaseFree,
		Kind:   KindLayoutMismatch,
		Addr:   addr,
		Size:   gotSize,
		Align:  gotAlign,
		Detail: fmt.Sprintf("allocated with size %d align %d", wantSize, wantAlign),
	}
}

// DoubleFree creates an error for a block freed twice
func DoubleFree(addr uintptr) *Error {
	return &Error{
		Phase:  PhaseFree,
		Kind:   KindDoubleFree,
		Addr:   addr,
		Detail: "block already freed",
	}
}

// ForeignFree creates an error for a free of memory this allocator never handed out
func ForeignFree(addr uintptr) *Error {
	return &Error{
		Phase:  PhaseFree,
		Kind:   KindForeignFree,
		Addr:   addr,
		Detail: "block not owned by this allocator",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, typeName, what string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindUnsupported,
		TypeName: typeName,
		Detail:   what,
	}
}

// Consumed creates an error for use of a dropped or unwrapped handle
func Consumed(op string) *Error {
	return &Error{
		Phase:  PhaseAccess,
		Kind:   KindConsumed,
		Detail: op + " on a consumed handle",
		Value:  op,
	}
}

// WrongGoroutine creates a confinement violation error
func WrongGoroutine(addr uintptr, owner, current int64) *Error {
	return &Error{
		Phase:  PhaseConfine,
		Kind:   KindConfinement,
		Addr:   addr,
		Detail: fmt.Sprintf("block owned by goroutine %d used from goroutine %d", owner, current),
		Value:  current,
	}
}

// Closed creates an error for use of a closed allocator
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: what + " is closed",
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Value:  name,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
