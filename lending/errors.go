package lending

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so the transport layer can map them to
// status codes without string matching.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidArgument
	KindUnavailable
)

// Error is a terminal engine error. No operation retries internally;
// Unavailable errors are safe to retry whole because nothing was committed.
type Error struct {
	Kind   Kind
	Entity string
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.cause)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.cause }

var (
	ErrBorrowerNotFound = &Error{Kind: KindNotFound, Entity: "borrower", Reason: "borrower not found"}
	ErrCopyNotFound     = &Error{Kind: KindNotFound, Entity: "copy", Reason: "book copy not found"}
	ErrLoanNotFound     = &Error{Kind: KindNotFound, Entity: "loan", Reason: "loan not found"}
	ErrBookNotFound     = &Error{Kind: KindNotFound, Entity: "book", Reason: "book not found"}

	ErrCannotBorrow = &Error{Kind: KindForbidden, Entity: "borrower", Reason: "borrowing privilege required"}

	ErrCopyNotAvailable     = &Error{Kind: KindConflict, Entity: "copy", Reason: "copy not available"}
	ErrAlreadyReturned      = &Error{Kind: KindConflict, Entity: "loan", Reason: "loan already returned"}
	ErrBookBorrowed         = &Error{Kind: KindConflict, Entity: "book", Reason: "book currently borrowed"}
	ErrBorrowerHasOpenLoans = &Error{Kind: KindConflict, Entity: "borrower", Reason: "borrower has active loans"}

	ErrDueDateInPast = &Error{Kind: KindInvalidArgument, Entity: "dueDate", Reason: "due date before borrow time"}
)

// ErrNotFound is the sentinel a Store returns for a missing row. The
// engine translates it into the entity-specific NotFound error above.
var ErrNotFound = errors.New("record not found")

// unavailable wraps a store failure (lock timeout, lost connection) so
// callers can distinguish it from a business rejection and retry.
func unavailable(err error) error {
	return &Error{Kind: KindUnavailable, Entity: "store", Reason: "storage unavailable", cause: err}
}

// KindOf extracts the error kind, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
