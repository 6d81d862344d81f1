// Package clock abstracts the wall clock so that timestamps written by the
// realtime layer (message createdAt, presence lastSeen) can be controlled in
// tests.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Real returns the system clock, normalized to UTC.
func Real() Clock { return realClock{} }

// Fake is a manually advanced clock. Every call to Now returns the current
// value and then advances it by Step, so sequential events get strictly
// increasing timestamps.
type Fake struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start.UTC(), Step: time.Millisecond}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.now
	f.now = f.now.Add(f.Step)
	return t
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
