package common

import "sync"

// Gate serializes destructive maintenance (restore) against sync cycles.
// Any number of cycles may run concurrently; an exclusive holder blocks new
// cycles from starting and waits for in-flight ones to drain.
type Gate struct {
	mu sync.RWMutex
}

func NewGate() *Gate {
	return &Gate{}
}

// EnterCycle marks the start of a sync cycle. Blocks while an exclusive
// operation is in progress.
func (g *Gate) EnterCycle() {
	g.mu.RLock()
}

// LeaveCycle marks the end of a sync cycle.
func (g *Gate) LeaveCycle() {
	g.mu.RUnlock()
}

// Exclusive runs fn with exclusive ownership of the gate. Release is
// guaranteed even if fn panics.
func (g *Gate) Exclusive(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}
