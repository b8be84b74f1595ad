package testfixtures

import (
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// Clock is a settable time source. Event services compare calendar days, so
// the clock also answers in YYYY-MM-DD form.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now for injection; a nil clock falls back to time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t.UTC()
	c.mu.Unlock()
}

// Advance moves the clock forward and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Today is the clock's calendar day.
func (c *Clock) Today() string {
	return c.Now().Format(dateLayout)
}

// DaysFromToday returns the calendar day n days away; negative n is in the past.
func (c *Clock) DaysFromToday(n int) string {
	return c.Now().AddDate(0, 0, n).Format(dateLayout)
}
