package lending_test

import (
	"context"
	"sync"
	"time"

	"library-lending/lending"
	"library-lending/models"
)

// memStore is an in-memory lending.Store for the engine and reporter
// tests. Transact takes the store-wide mutex for the whole callback,
// which is a coarse version of the per-copy serialization the contract
// asks for, and snapshots the data so an error rolls everything back.
type memStore struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	users  map[string]models.User
	books  map[string]models.Book
	copies map[string]models.Copy
	loans  map[string]models.Loan
}

func newMemStore() *memStore {
	return &memStore{data: &memData{
		users:  make(map[string]models.User),
		books:  make(map[string]models.Book),
		copies: make(map[string]models.Copy),
		loans:  make(map[string]models.Loan),
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		users:  make(map[string]models.User, len(d.users)),
		books:  make(map[string]models.Book, len(d.books)),
		copies: make(map[string]models.Copy, len(d.copies)),
		loans:  make(map[string]models.Loan, len(d.loans)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.books {
		c.books[k] = v
	}
	for k, v := range d.copies {
		c.copies[k] = v
	}
	for k, v := range d.loans {
		c.loans[k] = v
	}
	return c
}

func (s *memStore) Transact(_ context.Context, fn func(tx lending.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(&memTx{data: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *memStore) locked(fn func(tx *memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{data: s.data})
}

// Reads outside a transaction still lock briefly for a consistent view.

func (s *memStore) FindBorrower(ctx context.Context, id string) (u *models.User, err error) {
	err = s.locked(func(tx *memTx) error { u, err = tx.FindBorrower(ctx, id); return err })
	return
}

func (s *memStore) FindBook(ctx context.Context, id string) (b *models.Book, err error) {
	err = s.locked(func(tx *memTx) error { b, err = tx.FindBook(ctx, id); return err })
	return
}

func (s *memStore) LockCopy(ctx context.Context, id string) (cp *models.Copy, err error) {
	err = s.locked(func(tx *memTx) error { cp, err = tx.LockCopy(ctx, id); return err })
	return
}

func (s *memStore) LockLoan(ctx context.Context, id string) (l *models.Loan, err error) {
	err = s.locked(func(tx *memTx) error { l, err = tx.LockLoan(ctx, id); return err })
	return
}

func (s *memStore) LockBookCopies(ctx context.Context, bookID string) (cs []models.Copy, err error) {
	err = s.locked(func(tx *memTx) error { cs, err = tx.LockBookCopies(ctx, bookID); return err })
	return
}

func (s *memStore) CreateLoan(ctx context.Context, loan *models.Loan) error {
	return s.locked(func(tx *memTx) error { return tx.CreateLoan(ctx, loan) })
}

func (s *memStore) SaveLoan(ctx context.Context, loan *models.Loan) error {
	return s.locked(func(tx *memTx) error { return tx.SaveLoan(ctx, loan) })
}

func (s *memStore) SetCopyStatus(ctx context.Context, copyID, status string) error {
	return s.locked(func(tx *memTx) error { return tx.SetCopyStatus(ctx, copyID, status) })
}

func (s *memStore) CountOpenLoansByUser(ctx context.Context, userID string) (n int64, err error) {
	err = s.locked(func(tx *memTx) error { n, err = tx.CountOpenLoansByUser(ctx, userID); return err })
	return
}

func (s *memStore) DeleteBookWithCopies(ctx context.Context, bookID string) error {
	return s.locked(func(tx *memTx) error { return tx.DeleteBookWithCopies(ctx, bookID) })
}

func (s *memStore) DeleteBorrower(ctx context.Context, userID string) error {
	return s.locked(func(tx *memTx) error { return tx.DeleteBorrower(ctx, userID) })
}

func (s *memStore) OpenLoansDueBefore(ctx context.Context, asOf time.Time) (ds []lending.LoanDetail, err error) {
	err = s.locked(func(tx *memTx) error { ds, err = tx.OpenLoansDueBefore(ctx, asOf); return err })
	return
}

func (s *memStore) LoansBorrowedWithin(ctx context.Context, from, until *time.Time) (ds []lending.LoanDetail, err error) {
	err = s.locked(func(tx *memTx) error { ds, err = tx.LoansBorrowedWithin(ctx, from, until); return err })
	return
}

// faultyStore fails the loan insert inside the transaction, for
// exercising the storage-unavailable path.
type faultyStore struct {
	*memStore
	createLoanErr error
}

func (s *faultyStore) Transact(ctx context.Context, fn func(tx lending.Store) error) error {
	return s.memStore.Transact(ctx, func(tx lending.Store) error {
		return fn(&faultyTx{Store: tx, createLoanErr: s.createLoanErr})
	})
}

type faultyTx struct {
	lending.Store
	createLoanErr error
}

func (t *faultyTx) CreateLoan(ctx context.Context, loan *models.Loan) error {
	if t.createLoanErr != nil {
		return t.createLoanErr
	}
	return t.Store.CreateLoan(ctx, loan)
}

// memTx operates on the data while the store mutex is held.
type memTx struct{ data *memData }

func (t *memTx) Transact(_ context.Context, fn func(tx lending.Store) error) error {
	return fn(t)
}

func (t *memTx) FindBorrower(_ context.Context, id string) (*models.User, error) {
	u, ok := t.data.users[id]
	if !ok {
		return nil, lending.ErrNotFound
	}
	return &u, nil
}

func (t *memTx) FindBook(_ context.Context, id string) (*models.Book, error) {
	b, ok := t.data.books[id]
	if !ok {
		return nil, lending.ErrNotFound
	}
	return &b, nil
}

func (t *memTx) LockCopy(_ context.Context, id string) (*models.Copy, error) {
	cp, ok := t.data.copies[id]
	if !ok {
		return nil, lending.ErrNotFound
	}
	return &cp, nil
}

func (t *memTx) LockLoan(_ context.Context, id string) (*models.Loan, error) {
	l, ok := t.data.loans[id]
	if !ok {
		return nil, lending.ErrNotFound
	}
	return &l, nil
}

func (t *memTx) LockBookCopies(_ context.Context, bookID string) ([]models.Copy, error) {
	var copies []models.Copy
	for _, cp := range t.data.copies {
		if cp.BookID == bookID {
			copies = append(copies, cp)
		}
	}
	return copies, nil
}

func (t *memTx) CreateLoan(_ context.Context, loan *models.Loan) error {
	t.data.loans[loan.ID] = *loan
	return nil
}

func (t *memTx) SaveLoan(_ context.Context, loan *models.Loan) error {
	t.data.loans[loan.ID] = *loan
	return nil
}

func (t *memTx) SetCopyStatus(_ context.Context, copyID, status string) error {
	cp, ok := t.data.copies[copyID]
	if !ok {
		return lending.ErrNotFound
	}
	cp.Status = status
	t.data.copies[copyID] = cp
	return nil
}

func (t *memTx) CountOpenLoansByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, l := range t.data.loans {
		if l.UserID == userID && l.ReturnedAt == nil {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteBookWithCopies(_ context.Context, bookID string) error {
	for id, cp := range t.data.copies {
		if cp.BookID == bookID {
			delete(t.data.copies, id)
		}
	}
	delete(t.data.books, bookID)
	return nil
}

func (t *memTx) DeleteBorrower(_ context.Context, userID string) error {
	delete(t.data.users, userID)
	return nil
}

func (t *memTx) detail(l models.Loan) lending.LoanDetail {
	d := lending.LoanDetail{Loan: l, BorrowerID: l.UserID}
	if u, ok := t.data.users[l.UserID]; ok {
		d.BorrowerName = u.Name
		d.BorrowerEmail = u.Email
	}
	if cp, ok := t.data.copies[l.CopyID]; ok {
		if b, ok := t.data.books[cp.BookID]; ok {
			d.BookID = b.ID
			d.BookTitle = b.Title
		}
	}
	return d
}

func (t *memTx) OpenLoansDueBefore(_ context.Context, asOf time.Time) ([]lending.LoanDetail, error) {
	var details []lending.LoanDetail
	for _, l := range t.data.loans {
		if l.ReturnedAt == nil && l.DueDate.Before(asOf) {
			details = append(details, t.detail(l))
		}
	}
	return details, nil
}

func (t *memTx) LoansBorrowedWithin(_ context.Context, from, until *time.Time) ([]lending.LoanDetail, error) {
	var details []lending.LoanDetail
	for _, l := range t.data.loans {
		if from != nil && l.BorrowedAt.Before(*from) {
			continue
		}
		if until != nil && l.BorrowedAt.After(*until) {
			continue
		}
		details = append(details, t.detail(l))
	}
	return details, nil
}
