package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. Injected wherever elapsed time,
// overdue days or week windows are computed.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real returns the wall clock
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

// Fixed is a manually driven clock for tests
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
