// Package errors provides structured error types for the rc module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the block address, layout and type name involved, plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseFree, errors.KindLayoutMismatch).
//		Addr(addr).
//		Layout(16, 8).
//		TypeName("box[int]").
//		Detail("freed with size %d", 24).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AllocationFailed(errors.PhaseAlloc, 64, 8)
//	err := errors.CountOverflow("strong")
//
// All errors implement the standard error interface and support errors.Is/As.
// KindOf extracts the Kind from a wrapped chain.
//
// Most of these errors describe conditions the shared package treats as fatal:
// they are logged and the process terminates. Allocators still return them as
// ordinary values so that callers other than shared can decide for themselves.
package errors
