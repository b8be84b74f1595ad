package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out predictable document ids such as "evt-1", "evt-2".
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
	last    string
}

// NewIDGenerator uses prefix, or "id" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	g.last = fmt.Sprintf("%s-%d", g.prefix, g.counter)
	return g.last
}

// NextFunc returns Next for injection into services.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Last is the most recently issued id, or "" before the first call. Tests use
// it to address the event a service just created.
func (g *IDGenerator) Last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Issued reports how many ids were handed out, which equals the number of
// documents a service attempted to create.
func (g *IDGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.counter)
}
