package lending_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/lending"
	"library-lending/models"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCheckout_DefaultLoanPeriod(t *testing.T) {
	s, _, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "The Go Programming Language", 1)

	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.NoError(t, err)

	assert.Equal(t, jan1, loan.BorrowedAt)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), loan.DueDate)
	assert.Nil(t, loan.ReturnedAt)
	requireLedgerInvariant(t, s)
}

func TestCheckout_ExplicitDueDate(t *testing.T) {
	s, _, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "Clean Code", 1)

	due := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, &due)
	require.NoError(t, err)
	assert.Equal(t, due, loan.DueDate)
}

func TestCheckout_DueDateInPastRejected(t *testing.T) {
	s, _, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "Clean Code", 1)

	past := jan1.Add(-time.Hour)
	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, &past)
	require.ErrorIs(t, err, lending.ErrDueDateInPast)
	assert.Equal(t, lending.KindInvalidArgument, lending.KindOf(err))
	assert.Nil(t, loan)

	// 前置失败不留任何痕迹
	cp, err := s.LockCopy(context.Background(), copies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.CopyAvailable, cp.Status)
	requireLedgerInvariant(t, s)
}

func TestCheckout_PreconditionOrder(t *testing.T) {
	s, _, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	librarian := addUser(s, "bob", librarianRole)
	_, copies := addBook(s, "Refactoring", 2)

	// 先借走一本制造 Conflict
	_, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.NoError(t, err)

	tests := []struct {
		name       string
		borrowerID string
		copyID     string
		want       error
		wantKind   lending.Kind
	}{
		{
			// 借阅人不存在时优先报 NotFound(Borrower)，即使 copy 也不存在
			name:       "unknown_borrower_wins_over_unknown_copy",
			borrowerID: "no-such-user",
			copyID:     "no-such-copy",
			want:       lending.ErrBorrowerNotFound,
			wantKind:   lending.KindNotFound,
		},
		{
			name:       "librarian_cannot_borrow",
			borrowerID: librarian.ID,
			copyID:     copies[1].ID,
			want:       lending.ErrCannotBorrow,
			wantKind:   lending.KindForbidden,
		},
		{
			name:       "unknown_copy",
			borrowerID: member.ID,
			copyID:     "no-such-copy",
			want:       lending.ErrCopyNotFound,
			wantKind:   lending.KindNotFound,
		},
		{
			name:       "copy_already_borrowed",
			borrowerID: member.ID,
			copyID:     copies[0].ID,
			want:       lending.ErrCopyNotAvailable,
			wantKind:   lending.KindConflict,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Checkout(context.Background(), tc.borrowerID, tc.copyID, nil)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.wantKind, lending.KindOf(err))
		})
	}
	requireLedgerInvariant(t, s)
}

func TestCheckout_SecondCheckoutConflicts(t *testing.T) {
	s, _, engine, _ := fixture(t, jan1)
	alice := addUser(s, "alice", memberRole)
	carol := addUser(s, "carol", memberRole)
	_, copies := addBook(s, "Database Internals", 1)

	first, err := engine.Checkout(context.Background(), alice.ID, copies[0].ID, nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = engine.Checkout(context.Background(), carol.ID, copies[0].ID, nil)
	require.ErrorIs(t, err, lending.ErrCopyNotAvailable)
	requireLedgerInvariant(t, s)
}

func TestCheckout_ConcurrentSameCopy(t *testing.T) {
	s, _, engine, _ := fixture(t, jan1)
	_, copies := addBook(s, "SICP", 1)

	const workers = 8
	members := make([]models.User, workers)
	for i := range members {
		members[i] = addUser(s, "member", memberRole)
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Checkout(context.Background(), members[i].ID, copies[0].ID, nil)
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case lending.KindOf(err) == lending.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one concurrent checkout must win")
	assert.Equal(t, workers-1, conflicts)
	requireLedgerInvariant(t, s)
}

func TestCheckout_ConcurrentDistinctCopies(t *testing.T) {
	s, _, engine, _ := fixture(t, jan1)
	_, copies := addBook(s, "The Mythical Man-Month", 4)

	var wg sync.WaitGroup
	errs := make([]error, len(copies))
	for i := range copies {
		member := addUser(s, "member", memberRole)
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			_, errs[i] = engine.Checkout(context.Background(), uid, copies[i].ID, nil)
		}(i, member.ID)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	requireLedgerInvariant(t, s)
}

func TestCheckout_StoreFailureIsUnavailable(t *testing.T) {
	s, clock, _, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "Clean Code", 1)

	cause := errors.New("connection reset by peer")
	engine := lending.NewEngine(&faultyStore{memStore: s, createLoanErr: cause}, clock)

	_, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.Error(t, err)
	assert.Equal(t, lending.KindUnavailable, lending.KindOf(err))
	require.ErrorIs(t, err, cause)

	// 整体回滚，调用方可以安全地整次重试
	cp, err := s.LockCopy(context.Background(), copies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.CopyAvailable, cp.Status)
	n, err := s.CountOpenLoansByUser(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	requireLedgerInvariant(t, s)
}

func TestReturn_OnTime(t *testing.T) {
	s, clock, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "Clean Code", 1)

	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.NoError(t, err)

	clock.Advance(7 * 24 * time.Hour)
	receipt, err := engine.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	assert.False(t, receipt.IsLate)
	assert.Zero(t, receipt.DaysOverdue)
	require.NotNil(t, receipt.Loan.ReturnedAt)
	assert.Equal(t, clock.Now(), *receipt.Loan.ReturnedAt)

	cp, err := s.LockCopy(context.Background(), copies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.CopyAvailable, cp.Status)
	requireLedgerInvariant(t, s)
}

func TestReturn_ExactlyOnDueDateIsNotLate(t *testing.T) {
	s, clock, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "Clean Code", 1)

	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.NoError(t, err)

	clock.Set(loan.DueDate)
	receipt, err := engine.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.False(t, receipt.IsLate)
	assert.Zero(t, receipt.DaysOverdue)
}

func TestReturn_FiveDaysLate(t *testing.T) {
	s, clock, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "Clean Code", 1)

	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), loan.DueDate)

	clock.Set(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	receipt, err := engine.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.True(t, receipt.IsLate)
	assert.Equal(t, 5, receipt.DaysOverdue)
}

func TestReturn_PartialDayCountsAsFullDay(t *testing.T) {
	s, clock, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "Clean Code", 1)

	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.NoError(t, err)

	clock.Set(loan.DueDate.Add(time.Hour))
	receipt, err := engine.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.True(t, receipt.IsLate)
	assert.Equal(t, 1, receipt.DaysOverdue)
}

func TestReturn_TwiceConflicts(t *testing.T) {
	s, clock, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "Clean Code", 1)

	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	first, err := engine.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	_, err = engine.Return(context.Background(), loan.ID)
	require.ErrorIs(t, err, lending.ErrAlreadyReturned)
	assert.Equal(t, lending.KindConflict, lending.KindOf(err))

	// 第二次失败不得改动任何状态
	stored, err := s.LockLoan(context.Background(), loan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReturnedAt)
	assert.Equal(t, *first.Loan.ReturnedAt, *stored.ReturnedAt)

	cp, err := s.LockCopy(context.Background(), copies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.CopyAvailable, cp.Status)
	requireLedgerInvariant(t, s)
}

func TestReturn_UnknownLoan(t *testing.T) {
	_, _, engine, _ := fixture(t, jan1)
	_, err := engine.Return(context.Background(), "no-such-loan")
	require.ErrorIs(t, err, lending.ErrLoanNotFound)
}

func TestDeleteBook_RefusedWhileBorrowed(t *testing.T) {
	s, _, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	book, copies := addBook(s, "Refactoring", 3)

	// 三本中只借走一本，也必须拒绝
	_, err := engine.Checkout(context.Background(), member.ID, copies[1].ID, nil)
	require.NoError(t, err)

	err = engine.DeleteBook(context.Background(), book.ID)
	require.ErrorIs(t, err, lending.ErrBookBorrowed)
	assert.Equal(t, lending.KindConflict, lending.KindOf(err))

	// 书和副本原样保留
	_, err = s.FindBook(context.Background(), book.ID)
	require.NoError(t, err)
	requireLedgerInvariant(t, s)
}

func TestDeleteBook_RemovesCopiesKeepsLoans(t *testing.T) {
	s, clock, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	book, copies := addBook(s, "Refactoring", 2)

	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = engine.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	require.NoError(t, engine.DeleteBook(context.Background(), book.ID))

	_, err = s.FindBook(context.Background(), book.ID)
	require.ErrorIs(t, err, lending.ErrNotFound)
	for _, cp := range copies {
		_, err := s.LockCopy(context.Background(), cp.ID)
		require.ErrorIs(t, err, lending.ErrNotFound)
	}
	// 账本是只追加的：历史 loan 不随书删除
	stored, err := s.LockLoan(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ReturnedAt)
}

func TestDeleteBook_NotFound(t *testing.T) {
	_, _, engine, _ := fixture(t, jan1)
	err := engine.DeleteBook(context.Background(), "no-such-book")
	require.ErrorIs(t, err, lending.ErrBookNotFound)
}

func TestDeleteBorrower_RefusedWithOpenLoan(t *testing.T) {
	s, clock, engine, _ := fixture(t, jan1)
	member := addUser(s, "alice", memberRole)
	_, copies := addBook(s, "Clean Code", 1)

	loan, err := engine.Checkout(context.Background(), member.ID, copies[0].ID, nil)
	require.NoError(t, err)

	err = engine.DeleteBorrower(context.Background(), member.ID)
	require.ErrorIs(t, err, lending.ErrBorrowerHasOpenLoans)

	// 还书之后可以删，历史记录保留
	clock.Advance(time.Hour)
	_, err = engine.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	require.NoError(t, engine.DeleteBorrower(context.Background(), member.ID))

	_, err = s.FindBorrower(context.Background(), member.ID)
	require.ErrorIs(t, err, lending.ErrNotFound)
	_, err = s.LockLoan(context.Background(), loan.ID)
	require.NoError(t, err)
}

func TestDeleteBorrower_NotFound(t *testing.T) {
	_, _, engine, _ := fixture(t, jan1)
	err := engine.DeleteBorrower(context.Background(), "no-such-user")
	require.ErrorIs(t, err, lending.ErrBorrowerNotFound)
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"before_due", due.Add(-time.Hour), 0},
		{"exactly_due", due, 0},
		{"one_minute_late", due.Add(time.Minute), 1},
		{"exactly_one_day", due.Add(24 * time.Hour), 1},
		{"one_day_and_a_bit", due.Add(25 * time.Hour), 2},
		{"five_days", due.AddDate(0, 0, 5), 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, lending.DaysOverdue(due, tc.at))
		})
	}
}
