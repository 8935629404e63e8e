package clock

import (
	"sync"
	"time"
)

// Clock supplies the current instant in the configured location.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// RealClock reads the wall clock.
type RealClock struct {
	loc *time.Location
}

// New returns a wall clock that reports time in loc. A nil loc means UTC.
func New(loc *time.Location) *RealClock {
	if loc == nil {
		loc = time.UTC
	}
	return &RealClock{loc: loc}
}

func (c *RealClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *RealClock) Location() *time.Location {
	return c.loc
}

// MockClock is a settable clock for tests.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

func NewMock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

func (c *MockClock) Location() *time.Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime.Location()
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
}

func (c *MockClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)
}
