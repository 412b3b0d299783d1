// Package errors provides structured error types for wasm-ebox.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the offending address, the Go/WIT type
// names involved, a detail message, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseStore, errors.KindOutOfBounds).
//		Path("pair", "second").
//		WitType("u64").
//		Detail("write at 0x%x past end of memory", ptr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AlreadyMutablyBorrowed(ptr)
//	err := errors.NullPointer(errors.PhaseRaw, "uint32")
//
// Error.Is compares Phase and Kind only, so a bare &Error{Phase, Kind} value
// works as a sentinel with the standard errors.Is.
package errors
