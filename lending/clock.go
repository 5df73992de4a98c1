package lending

import "time"

// Clock is the injected time source. Due-date and overdue math never
// calls time.Now directly so tests can pin the instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }
