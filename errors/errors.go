package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBorrow Phase = "borrow" // guard acquisition
	PhaseAlloc  Phase = "alloc"  // foreign allocator calls
	PhaseLoad   Phase = "load"   // foreign memory to Go
	PhaseStore  Phase = "store"  // Go to foreign memory
	PhaseDrop   Phase = "drop"   // in-place destruction and free
	PhaseRaw    Phase = "raw"    // adopt / into-raw ownership transfer
	PhaseBind   Phase = "bind"   // attaching to a guest module
	PhaseConfig Phase = "config" // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindAlreadyBorrowed        Kind = "already_borrowed"
	KindAlreadyMutablyBorrowed Kind = "already_mutably_borrowed"
	KindOutstandingBorrow      Kind = "outstanding_borrow"
	KindReleased               Kind = "released"
	KindNullPointer            Kind = "null_pointer"
	KindAllocation             Kind = "allocation"
	KindOutOfBounds            Kind = "out_of_bounds"
	KindInvalidData            Kind = "invalid_data"
	KindInvalidUTF8            Kind = "invalid_utf8"
	KindOverflow               Kind = "overflow"
	KindInvalidInput           Kind = "invalid_input"
	KindNotFound               Kind = "not_found"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	WitType string
	Detail  string
	Path    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.WitType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.WitType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", WIT type ")
			b.WriteString(e.WitType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.WitType != "" {
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

// Is reports whether target matches this error. A target with an empty
// Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
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

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WitType sets the WIT type name
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
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

// Borrow state constructors

// AlreadyBorrowed reports an exclusive borrow refused because other guards
// are live. holder describes them ("2 shared", "exclusive").
func AlreadyBorrowed(ptr uint32, holder string) *Error {
	return &Error{
		Phase:  PhaseBorrow,
		Kind:   KindAlreadyBorrowed,
		Detail: fmt.Sprintf("value at 0x%x already borrowed (%s)", ptr, holder),
		Value:  ptr,
	}
}

// AlreadyMutablyBorrowed reports a shared borrow refused because an
// exclusive guard is live.
func AlreadyMutablyBorrowed(ptr uint32) *Error {
	return &Error{
		Phase:  PhaseBorrow,
		Kind:   KindAlreadyMutablyBorrowed,
		Detail: fmt.Sprintf("value at 0x%x already mutably borrowed", ptr),
		Value:  ptr,
	}
}

// OutstandingBorrow reports an ownership operation refused because guards
// derived from the owner are still live.
func OutstandingBorrow(phase Phase, ptr uint32, holder string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutstandingBorrow,
		Detail: fmt.Sprintf("value at 0x%x has outstanding borrows (%s)", ptr, holder),
		Value:  ptr,
	}
}

// Released reports use of an owner or guard after it gave up its claim.
func Released(phase Phase, what string, ptr uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("%s for 0x%x already released", what, ptr),
		Value:  ptr,
	}
}

// Memory constructors

// NullPointer creates a null address error
func NullPointer(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullPointer,
		GoType: goType,
		Detail: "null address",
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(size, align uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access out of bounds: offset=%d, length=%d", offset, length),
		Value:  offset,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
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

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
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
