package db

import (
	"context"
	"time"

	"library-lending/models"
)

// Loan history reads for the HTTP layer. State changes go through the
// lending engine, never through these.

type LoanRow struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	CopyID     string     `json:"copyId"`
	BorrowedAt time.Time  `json:"borrowedAt"`
	DueDate    time.Time  `json:"dueDate"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`

	InventoryTag *string `json:"inventoryTag,omitempty"`
	BookID       *string `json:"bookId,omitempty"`
	BookTitle    *string `json:"bookTitle,omitempty"`
	BorrowerName *string `json:"borrowerName,omitempty"`
}

const loanRowSelect = `
	l.id, l.user_id, l.copy_id, l.borrowed_at, l.due_date, l.returned_at,
	c.inventory_tag, b.id AS book_id, b.title AS book_title,
	u.name AS borrower_name`

// ListLoansByUser returns the full borrow history of one user, newest
// first. Copy/book columns are null for loans whose copy was removed
// from the catalog since.
func (r *Repo) ListLoansByUser(ctx context.Context, userID string) ([]LoanRow, error) {
	var rows []LoanRow
	err := r.DB.WithContext(ctx).
		Table(models.LoanTable+" l").
		Select(loanRowSelect).
		Joins("LEFT JOIN "+models.CopyTable+" c ON c.id = l.copy_id").
		Joins("LEFT JOIN "+models.BookTable+" b ON b.id = c.book_id").
		Joins("LEFT JOIN "+models.UserTable+" u ON u.id = l.user_id").
		Where("l.user_id = ?", userID).
		Order("l.borrowed_at DESC").
		Scan(&rows).Error
	return rows, err
}

// ListActiveLoans returns every open loan, newest first.
func (r *Repo) ListActiveLoans(ctx context.Context) ([]LoanRow, error) {
	var rows []LoanRow
	err := r.DB.WithContext(ctx).
		Table(models.LoanTable+" l").
		Select(loanRowSelect).
		Joins("LEFT JOIN "+models.CopyTable+" c ON c.id = l.copy_id").
		Joins("LEFT JOIN "+models.BookTable+" b ON b.id = c.book_id").
		Joins("LEFT JOIN "+models.UserTable+" u ON u.id = l.user_id").
		Where("l.returned_at IS NULL").
		Order("l.borrowed_at DESC").
		Scan(&rows).Error
	return rows, err
}
