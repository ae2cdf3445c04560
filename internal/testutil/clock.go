package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock is a settable dp.Clock. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock reading t.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock at 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator hands out "snap-1", "snap-2", ... and remembers the roots
// it was asked about.
type StubIDGenerator struct {
	mu    sync.Mutex
	roots []string
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) NewID(root string, _ time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roots = append(g.roots, root)
	return fmt.Sprintf("snap-%d", len(g.roots))
}

// Roots returns the scan roots seen so far, in call order.
func (g *StubIDGenerator) Roots() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.roots...)
}
