package lending

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"library-lending/models"
)

// DefaultLoanPeriod is applied when checkout gets no explicit due date.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// Engine owns every state change of the lending ledger: it is the only
// code that creates or closes loans and flips copy status. Each
// operation is one transaction; preconditions are re-checked under the
// row lock, so two concurrent checkouts of the same copy cannot both
// pass the availability check.
type Engine struct {
	store Store
	clock Clock
}

func NewEngine(store Store, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{store: store, clock: clock}
}

// Receipt is what a return hands back. IsLate and DaysOverdue are
// derived at return time, not persisted.
type Receipt struct {
	Loan        models.Loan `json:"loan"`
	IsLate      bool        `json:"isLate"`
	DaysOverdue int         `json:"daysOverdue"`
}

// Checkout lends the copy to the borrower. Precondition order is fixed:
// borrower exists, borrower may borrow, copy exists, copy available.
// A caller-supplied due date before the borrow instant is rejected, not
// silently corrected.
func (e *Engine) Checkout(ctx context.Context, borrowerID, copyID string, dueDate *time.Time) (*models.Loan, error) {
	now := e.clock.Now().UTC()

	due := now.Add(DefaultLoanPeriod)
	if dueDate != nil {
		if dueDate.Before(now) {
			return nil, ErrDueDateInPast
		}
		due = dueDate.UTC()
	}

	var loan *models.Loan
	err := e.store.Transact(ctx, func(tx Store) error {
		borrower, err := tx.FindBorrower(ctx, borrowerID)
		if err != nil {
			return orNotFound(err, ErrBorrowerNotFound)
		}
		if !borrower.Role.CanBorrow {
			return ErrCannotBorrow
		}

		cp, err := tx.LockCopy(ctx, copyID)
		if err != nil {
			return orNotFound(err, ErrCopyNotFound)
		}
		if cp.Status != models.CopyAvailable {
			return ErrCopyNotAvailable
		}

		loan = &models.Loan{
			ID:         uuid.NewString(),
			UserID:     borrower.ID,
			CopyID:     cp.ID,
			BorrowedAt: now,
			DueDate:    due,
		}
		if err := tx.CreateLoan(ctx, loan); err != nil {
			return unavailable(err)
		}
		if err := tx.SetCopyStatus(ctx, cp.ID, models.CopyBorrowed); err != nil {
			return unavailable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Return closes the loan and frees its copy. Closing twice is a
// conflict; the first close wins and nothing changes afterwards.
func (e *Engine) Return(ctx context.Context, loanID string) (*Receipt, error) {
	now := e.clock.Now().UTC()

	var receipt *Receipt
	err := e.store.Transact(ctx, func(tx Store) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return orNotFound(err, ErrLoanNotFound)
		}
		if loan.ReturnedAt != nil {
			return ErrAlreadyReturned
		}

		loan.ReturnedAt = &now
		if err := tx.SaveLoan(ctx, loan); err != nil {
			return unavailable(err)
		}
		if err := tx.SetCopyStatus(ctx, loan.CopyID, models.CopyAvailable); err != nil {
			return unavailable(err)
		}

		receipt = &Receipt{
			Loan:        *loan,
			IsLate:      now.After(loan.DueDate),
			DaysOverdue: DaysOverdue(loan.DueDate, now),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// DeleteBook removes the book and all its copies, refusing while any
// copy is out. The copies are locked first so a checkout cannot slip in
// between the check and the delete. Loans are never touched: closed
// loans stay as audit history even when their copy goes away.
func (e *Engine) DeleteBook(ctx context.Context, bookID string) error {
	return e.store.Transact(ctx, func(tx Store) error {
		if _, err := tx.FindBook(ctx, bookID); err != nil {
			return orNotFound(err, ErrBookNotFound)
		}
		copies, err := tx.LockBookCopies(ctx, bookID)
		if err != nil {
			return unavailable(err)
		}
		for _, cp := range copies {
			if cp.Status == models.CopyBorrowed {
				return ErrBookBorrowed
			}
		}
		if err := tx.DeleteBookWithCopies(ctx, bookID); err != nil {
			return unavailable(err)
		}
		return nil
	})
}

// DeleteBorrower removes the borrower unless an open loan still points
// at them. Their closed loans remain in the ledger.
func (e *Engine) DeleteBorrower(ctx context.Context, borrowerID string) error {
	return e.store.Transact(ctx, func(tx Store) error {
		if _, err := tx.FindBorrower(ctx, borrowerID); err != nil {
			return orNotFound(err, ErrBorrowerNotFound)
		}
		open, err := tx.CountOpenLoansByUser(ctx, borrowerID)
		if err != nil {
			return unavailable(err)
		}
		if open > 0 {
			return ErrBorrowerHasOpenLoans
		}
		if err := tx.DeleteBorrower(ctx, borrowerID); err != nil {
			return unavailable(err)
		}
		return nil
	})
}

// DaysOverdue counts full late days with a ceiling: any partial day past
// the due date counts as one, and a return exactly on the due date is
// zero.
func DaysOverdue(dueDate, at time.Time) int {
	if !at.After(dueDate) {
		return 0
	}
	const day = 24 * time.Hour
	late := at.Sub(dueDate)
	days := int(late / day)
	if late%day != 0 {
		days++
	}
	return days
}

func orNotFound(err error, notFound *Error) error {
	if errors.Is(err, ErrNotFound) {
		return notFound
	}
	return unavailable(err)
}
