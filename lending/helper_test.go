package lending_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"library-lending/lending"
	"library-lending/models"
)

// testClock is a settable clock shared by the engine and reporter under
// test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock { return &testClock{now: now} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var memberRole = models.Role{
	ID: uuid.NewString(), Name: models.RoleMember,
	CanBorrow: true, CanManage: false, IsAdmin: false,
}

var librarianRole = models.Role{
	ID: uuid.NewString(), Name: models.RoleLibrarian,
	CanBorrow: false, CanManage: true, IsAdmin: false,
}

func addUser(s *memStore, name string, role models.Role) models.User {
	u := models.User{
		ID:     uuid.NewString(),
		Name:   name,
		Email:  name + "@example.com",
		RoleID: role.ID,
		Role:   role,
	}
	s.data.users[u.ID] = u
	return u
}

func addBook(s *memStore, title string, copies int) (models.Book, []models.Copy) {
	b := models.Book{
		ID:          uuid.NewString(),
		Title:       title,
		ISBN:        uuid.NewString()[:13],
		CopiesCount: copies,
	}
	s.data.books[b.ID] = b

	created := make([]models.Copy, 0, copies)
	for i := 0; i < copies; i++ {
		cp := models.Copy{
			ID:        uuid.NewString(),
			BookID:    b.ID,
			Condition: models.ConditionGood,
			Status:    models.CopyAvailable,
		}
		s.data.copies[cp.ID] = cp
		created = append(created, cp)
	}
	return b, created
}

// requireLedgerInvariant asserts that every copy is Borrowed exactly
// when one open loan references it.
func requireLedgerInvariant(t *testing.T, s *memStore) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	openByCopy := make(map[string]int)
	for _, l := range s.data.loans {
		if l.ReturnedAt == nil {
			openByCopy[l.CopyID]++
		}
	}
	for id, cp := range s.data.copies {
		switch cp.Status {
		case models.CopyBorrowed:
			require.Equal(t, 1, openByCopy[id], "borrowed copy %s must have exactly one open loan", id)
		case models.CopyAvailable:
			require.Zero(t, openByCopy[id], "available copy %s must have no open loan", id)
		default:
			t.Fatalf("copy %s has unexpected status %q", id, cp.Status)
		}
	}
	for copyID, n := range openByCopy {
		require.LessOrEqual(t, n, 1, "copy %s has %d open loans", copyID, n)
		if _, ok := s.data.copies[copyID]; ok {
			require.Equal(t, models.CopyBorrowed, s.data.copies[copyID].Status)
		}
	}
}

func fixture(t *testing.T, at time.Time) (*memStore, *testClock, *lending.Engine, *lending.Reporter) {
	t.Helper()
	s := newMemStore()
	clock := newTestClock(at)
	return s, clock, lending.NewEngine(s, clock), lending.NewReporter(s, clock)
}
