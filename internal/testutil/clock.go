package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *StubClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// StubIDGenerator returns sequential IDs: "id-1", "id-2", etc.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}

// StubTokenGenerator hands out scripted tokens, then sequential ones
// ("token-1", "token-2", ...) once the script runs out. Scripting the same
// token twice forces a collision.
type StubTokenGenerator struct {
	mu      sync.Mutex
	script  []string
	counter int
	calls   int
}

// NewStubTokenGenerator creates a generator that first returns script in order.
func NewStubTokenGenerator(script ...string) *StubTokenGenerator {
	return &StubTokenGenerator{script: script}
}

func (g *StubTokenGenerator) NewToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.script) > 0 {
		tok := g.script[0]
		g.script = g.script[1:]
		return tok, nil
	}
	g.counter++
	return fmt.Sprintf("token-%d", g.counter), nil
}

// Calls returns how many tokens have been requested.
func (g *StubTokenGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
