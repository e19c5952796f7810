package arbitrage

import (
	"fmt"
	"sync"
)

// LockToken is a scoped exclusive token returned by a successful
// acquire. Release is idempotent and must be called on every exit
// path, including error paths — Go has no destructors, so callers are
// expected to `defer token.Release()` immediately after acquiring
// (a scoped lock token).
type LockToken struct {
	release func()
	once    sync.Once
}

// Release frees the underlying slot. Safe to call more than once or
// with a nil receiver.
func (t *LockToken) Release() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
	})
}

// RaceGuard owns two independent per-symbol exclusive-lock namespaces:
// hedge locks and cleanup locks. A symbol may hold a live token in both
// namespaces simultaneously; at most one live token per symbol per
// namespace.
type RaceGuard struct {
	mu      sync.Mutex
	hedge   map[string]struct{}
	cleanup map[string]struct{}
}

// NewRaceGuard returns an empty guard.
func NewRaceGuard() *RaceGuard {
	return &RaceGuard{
		hedge:   make(map[string]struct{}),
		cleanup: make(map[string]struct{}),
	}
}

// TryAcquireHedgeLock attempts to take the hedge lock for symbol. On
// contention it returns an error containing "already in progress" and
// the symbol name.
func (g *RaceGuard) TryAcquireHedgeLock(symbol string) (*LockToken, error) {
	return g.tryAcquire(symbol, g.hedge, "hedge")
}

// TryAcquireCleanupLock attempts to take the cleanup lock for symbol,
// independent of any held hedge lock.
func (g *RaceGuard) TryAcquireCleanupLock(symbol string) (*LockToken, error) {
	return g.tryAcquire(symbol, g.cleanup, "cleanup")
}

func (g *RaceGuard) tryAcquire(symbol string, table map[string]struct{}, kind string) (*LockToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := table[symbol]; held {
		return nil, fmt.Errorf("%s already in progress for %s", kind, symbol)
	}
	table[symbol] = struct{}{}

	return &LockToken{release: func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(table, symbol)
	}}, nil
}

// IsHedgeLocked reports whether symbol currently holds a live hedge token.
func (g *RaceGuard) IsHedgeLocked(symbol string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.hedge[symbol]
	return held
}

// IsCleanupLocked reports whether symbol currently holds a live cleanup token.
func (g *RaceGuard) IsCleanupLocked(symbol string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.cleanup[symbol]
	return held
}
