package ebox

import (
	stderrors "errors"

	"github.com/wippyai/wasm-ebox/errors"
)

// Sentinels for errors.Is.
var (
	// ErrAlreadyBorrowed: an exclusive borrow was refused because another
	// guard (shared or exclusive) is live.
	ErrAlreadyBorrowed = &errors.Error{Phase: errors.PhaseBorrow, Kind: errors.KindAlreadyBorrowed}

	// ErrAlreadyMutablyBorrowed: a shared borrow was refused because an
	// exclusive guard is live.
	ErrAlreadyMutablyBorrowed = &errors.Error{Phase: errors.PhaseBorrow, Kind: errors.KindAlreadyMutablyBorrowed}

	// ErrOutstandingBorrow: Close or IntoRaw was refused because guards are
	// still live. Matches any phase.
	ErrOutstandingBorrow = &errors.Error{Kind: errors.KindOutstandingBorrow}

	// ErrReleased: use of a consumed box or a released guard. Matches any
	// phase.
	ErrReleased = &errors.Error{Kind: errors.KindReleased}
)

// IsBorrowConflict reports whether err is a refused borrow of either kind.
func IsBorrowConflict(err error) bool {
	return stderrors.Is(err, ErrAlreadyBorrowed) || stderrors.Is(err, ErrAlreadyMutablyBorrowed)
}
