package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"library-lending/lending"
	"library-lending/models"
)

// LendingStore implements lending.Store on GORM/Postgres. Inside
// Transact the Lock* methods take SELECT ... FOR UPDATE row locks, so
// the engine's check-then-act on a copy is serialized per copy while
// other copies proceed concurrently.
type LendingStore struct{ db *gorm.DB }

func NewLendingStore(db *gorm.DB) *LendingStore { return &LendingStore{db: db} }

func (s *LendingStore) Transact(ctx context.Context, fn func(tx lending.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LendingStore{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return lending.ErrNotFound
	}
	return err
}

func (s *LendingStore) FindBorrower(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *LendingStore) FindBook(ctx context.Context, id string) (*models.Book, error) {
	var b models.Book
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// 锁住该册，直到事务结束
func (s *LendingStore) LockCopy(ctx context.Context, id string) (*models.Copy, error) {
	var cp models.Copy
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cp, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &cp, nil
}

func (s *LendingStore) LockLoan(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (s *LendingStore) LockBookCopies(ctx context.Context, bookID string) ([]models.Copy, error) {
	var copies []models.Copy
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("book_id = ?", bookID).
		Order("id").
		Find(&copies).Error; err != nil {
		return nil, err
	}
	return copies, nil
}

func (s *LendingStore) CreateLoan(ctx context.Context, loan *models.Loan) error {
	return s.db.WithContext(ctx).Create(loan).Error
}

func (s *LendingStore) SaveLoan(ctx context.Context, loan *models.Loan) error {
	return s.db.WithContext(ctx).Save(loan).Error
}

func (s *LendingStore) SetCopyStatus(ctx context.Context, copyID, status string) error {
	return s.db.WithContext(ctx).Model(&models.Copy{}).
		Where("id = ?", copyID).
		Update("status", status).Error
}

func (s *LendingStore) CountOpenLoansByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Loan{}).
		Where("user_id = ? AND returned_at IS NULL", userID).
		Count(&n).Error
	return n, err
}

// DeleteBookWithCopies removes the copies, the author links and the
// book row. Loans are left alone: the ledger is append-only history.
func (s *LendingStore) DeleteBookWithCopies(ctx context.Context, bookID string) error {
	tx := s.db.WithContext(ctx)
	if err := tx.Where("book_id = ?", bookID).Delete(&models.Copy{}).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM lib_book_authors WHERE book_id = ?", bookID).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Book{ID: bookID}).Error
}

func (s *LendingStore) DeleteBorrower(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Delete(&models.User{ID: userID}).Error
}

type loanJoinRow struct {
	ID         string
	UserID     string
	CopyID     string
	BorrowedAt time.Time
	DueDate    time.Time
	ReturnedAt *time.Time

	BookID        *string
	BookTitle     *string
	BorrowerName  *string
	BorrowerEmail *string
}

const loanJoinSelect = `
	l.id, l.user_id, l.copy_id, l.borrowed_at, l.due_date, l.returned_at,
	b.id AS book_id, b.title AS book_title,
	u.name AS borrower_name, u.email AS borrower_email`

func (s *LendingStore) loanJoin(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table(models.LoanTable+" l").
		Select(loanJoinSelect).
		Joins("LEFT JOIN "+models.CopyTable+" c ON c.id = l.copy_id").
		Joins("LEFT JOIN "+models.BookTable+" b ON b.id = c.book_id").
		Joins("LEFT JOIN "+models.UserTable+" u ON u.id = l.user_id")
}

func (s *LendingStore) OpenLoansDueBefore(ctx context.Context, asOf time.Time) ([]lending.LoanDetail, error) {
	var rows []loanJoinRow
	if err := s.loanJoin(ctx).
		Where("l.returned_at IS NULL AND l.due_date < ?", asOf).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toDetails(rows), nil
}

func (s *LendingStore) LoansBorrowedWithin(ctx context.Context, from, until *time.Time) ([]lending.LoanDetail, error) {
	q := s.loanJoin(ctx)
	if from != nil {
		q = q.Where("l.borrowed_at >= ?", *from)
	}
	if until != nil {
		q = q.Where("l.borrowed_at <= ?", *until)
	}
	var rows []loanJoinRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toDetails(rows), nil
}

func toDetails(rows []loanJoinRow) []lending.LoanDetail {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	details := make([]lending.LoanDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, lending.LoanDetail{
			Loan: models.Loan{
				ID:         row.ID,
				UserID:     row.UserID,
				CopyID:     row.CopyID,
				BorrowedAt: row.BorrowedAt,
				DueDate:    row.DueDate,
				ReturnedAt: row.ReturnedAt,
			},
			BookID:        deref(row.BookID),
			BookTitle:     deref(row.BookTitle),
			BorrowerID:    row.UserID,
			BorrowerName:  deref(row.BorrowerName),
			BorrowerEmail: deref(row.BorrowerEmail),
		})
	}
	return details
}
