package lending

import (
	"context"
	"time"

	"library-lending/models"
)

// LoanDetail is a loan joined with its book and borrower, as the
// reporting queries hand it back. Book fields may be empty for
// historical loans whose copy was removed from the catalog.
type LoanDetail struct {
	Loan models.Loan

	BookID    string
	BookTitle string

	BorrowerID    string
	BorrowerName  string
	BorrowerEmail string
}

// Store is the persistence contract the engine and reporter run against.
//
// Find*/Lock* return ErrNotFound for a missing row. Lock* methods are
// only meaningful inside Transact: the implementation must hold an
// exclusive row lock (or equivalent) on the returned record until the
// transaction ends, so the check-then-act sequences in the engine are
// serialized per copy. Reads outside Transact see committed state.
type Store interface {
	// Transact runs fn in a single all-or-nothing transaction. Any
	// error from fn rolls back every write made through tx.
	Transact(ctx context.Context, fn func(tx Store) error) error

	FindBorrower(ctx context.Context, id string) (*models.User, error) // role preloaded
	FindBook(ctx context.Context, id string) (*models.Book, error)

	LockCopy(ctx context.Context, id string) (*models.Copy, error)
	LockLoan(ctx context.Context, id string) (*models.Loan, error)
	// LockBookCopies locks every copy of the book, blocking concurrent
	// checkouts on any of them until the caller's transaction decides.
	LockBookCopies(ctx context.Context, bookID string) ([]models.Copy, error)

	CreateLoan(ctx context.Context, loan *models.Loan) error
	SaveLoan(ctx context.Context, loan *models.Loan) error
	SetCopyStatus(ctx context.Context, copyID, status string) error

	CountOpenLoansByUser(ctx context.Context, userID string) (int64, error)
	DeleteBookWithCopies(ctx context.Context, bookID string) error
	DeleteBorrower(ctx context.Context, userID string) error

	// Reporting reads; consistent snapshot, no locks.
	OpenLoansDueBefore(ctx context.Context, asOf time.Time) ([]LoanDetail, error)
	LoansBorrowedWithin(ctx context.Context, from, until *time.Time) ([]LoanDetail, error)
}
