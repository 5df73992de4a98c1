package lending

import (
	"context"
	"sort"
	"time"
)

// Reporter is a read-only projection over the loan ledger. It never
// locks anything; results reflect a committed snapshot and may be stale
// the moment they are produced.
type Reporter struct {
	store Store
	clock Clock
}

func NewReporter(store Store, clock Clock) *Reporter {
	if clock == nil {
		clock = SystemClock()
	}
	return &Reporter{store: store, clock: clock}
}

// OverdueEntry is one strictly overdue open loan with its context.
type OverdueEntry struct {
	Loan        LoanDetail `json:"loan"`
	DaysOverdue int        `json:"daysOverdue"`
}

// Statistics aggregates the loans borrowed inside an optional window.
type Statistics struct {
	Total       int     `json:"totalBorrowings"`
	Returned    int     `json:"returnedBorrowings"`
	Overdue     int     `json:"overdueBorrowings"`
	ReturnRate  float64 `json:"returnRate"`
	OverdueRate float64 `json:"overdueRate"`

	TopBorrowedBooks []BookCount `json:"mostBorrowedBooks"`
}

type BookCount struct {
	BookID string `json:"bookId"`
	Title  string `json:"title"`
	Count  int    `json:"count"`
}

// ListOverdue returns every open loan whose due date is strictly before
// asOf (zero means now), oldest due date first, ties broken by loan id.
// The order is total, so identical data yields identical output.
func (r *Reporter) ListOverdue(ctx context.Context, asOf time.Time) ([]OverdueEntry, error) {
	if asOf.IsZero() {
		asOf = r.clock.Now()
	}
	asOf = asOf.UTC()

	rows, err := r.store.OpenLoansDueBefore(ctx, asOf)
	if err != nil {
		return nil, unavailable(err)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Loan.DueDate.Equal(rows[j].Loan.DueDate) {
			return rows[i].Loan.DueDate.Before(rows[j].Loan.DueDate)
		}
		return rows[i].Loan.ID < rows[j].Loan.ID
	})

	entries := make([]OverdueEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, OverdueEntry{
			Loan:        row,
			DaysOverdue: DaysOverdue(row.Loan.DueDate, asOf),
		})
	}
	return entries, nil
}

// Statistics aggregates loans with BorrowedAt inside [from, until]
// (either bound optional, both inclusive). A loan counts as overdue if
// it is open and past due now, or if it was returned late, even when
// long closed. Rates are percentages and zero when the window is empty.
func (r *Reporter) Statistics(ctx context.Context, from, until *time.Time) (*Statistics, error) {
	now := r.clock.Now().UTC()

	rows, err := r.store.LoansBorrowedWithin(ctx, from, until)
	if err != nil {
		return nil, unavailable(err)
	}

	stats := &Statistics{TopBorrowedBooks: []BookCount{}}
	counts := make(map[string]*BookCount)

	for _, row := range rows {
		stats.Total++
		if row.Loan.ReturnedAt != nil {
			stats.Returned++
			if row.Loan.ReturnedAt.After(row.Loan.DueDate) {
				stats.Overdue++
			}
		} else if now.After(row.Loan.DueDate) {
			stats.Overdue++
		}

		if row.BookID == "" {
			continue // historical loan, copy gone from the catalog
		}
		bc, ok := counts[row.BookID]
		if !ok {
			bc = &BookCount{BookID: row.BookID, Title: row.BookTitle}
			counts[row.BookID] = bc
		}
		bc.Count++
	}

	if stats.Total > 0 {
		stats.ReturnRate = float64(stats.Returned) / float64(stats.Total) * 100
		stats.OverdueRate = float64(stats.Overdue) / float64(stats.Total) * 100
	}

	for _, bc := range counts {
		stats.TopBorrowedBooks = append(stats.TopBorrowedBooks, *bc)
	}
	sort.Slice(stats.TopBorrowedBooks, func(i, j int) bool {
		a, b := stats.TopBorrowedBooks[i], stats.TopBorrowedBooks[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.BookID < b.BookID
	})
	if len(stats.TopBorrowedBooks) > 5 {
		stats.TopBorrowedBooks = stats.TopBorrowedBooks[:5]
	}
	return stats, nil
}
