package handler

import "sync"

// ActionGuard rejects an action while the same action is already in flight,
// so a double-click on Start cannot issue two concurrent backend calls.
type ActionGuard struct {
	mu      sync.Mutex
	pending map[string]bool
}

func NewActionGuard() *ActionGuard {
	return &ActionGuard{pending: make(map[string]bool)}
}

// Begin marks the action pending. It reports false when the action is
// already running.
func (g *ActionGuard) Begin(action string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending[action] {
		return false
	}
	g.pending[action] = true
	return true
}

// End clears the pending mark.
func (g *ActionGuard) End(action string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, action)
}

// guarded wraps fn with the begin/end bookkeeping; the bool reports whether
// fn ran.
func (g *ActionGuard) guarded(action string, fn func()) bool {
	if !g.Begin(action) {
		return false
	}
	defer g.End(action)
	fn()
	return true
}
