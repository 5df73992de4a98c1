package models

import "time"

const LoanTable = "lib_loans"

// Loan is one borrow-to-return record. Rows are append-only: a return
// sets ReturnedAt, nothing ever deletes a loan. Closed loans survive
// even when the copy they reference is later removed from the catalog.
type Loan struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;index;not null" json:"userId"`
	CopyID string `gorm:"type:uuid;index;not null" json:"copyId"`

	BorrowedAt time.Time  `gorm:"index;not null" json:"borrowedAt"`
	DueDate    time.Time  `gorm:"index;not null" json:"dueDate"`
	ReturnedAt *time.Time `gorm:"index" json:"returnedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Loan) TableName() string { return LoanTable }

// Open reports whether the loan has not been returned yet.
func (l *Loan) Open() bool { return l.ReturnedAt == nil }
