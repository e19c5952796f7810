// Package arbitrage implements the core of a cross-exchange arbitrage
// execution engine: symbol interning, a lock-free market data plane,
// opportunity detection, and an atomic paired-order execution protocol.
package arbitrage

import (
	"fmt"
	"sync"
)

// SymbolKey identifies a (venue, symbol) pair, e.g. ("bybit", "BTCUSDT").
type SymbolKey struct {
	Venue  string
	Symbol string
}

// SymbolRegistry interns (venue, symbol) pairs into dense uint32 ids.
// Lookups take the read lock and run in parallel with each other;
// GetOrInsert takes the write lock only on the insert path, and
// lookups wait while an insert holds it. IDs are never reused or
// reassigned once handed out.
type SymbolRegistry struct {
	mu       sync.RWMutex
	byKey    map[SymbolKey]uint32
	byID     []SymbolKey
	bySymbol map[string][]uint32 // symbol name -> ids across venues, for cross-venue iteration
	nextID   uint32
}

// NewSymbolRegistry returns an empty registry.
func NewSymbolRegistry() *SymbolRegistry {
	return &SymbolRegistry{
		byKey:    make(map[SymbolKey]uint32),
		bySymbol: make(map[string][]uint32),
	}
}

// GetOrInsert returns the existing id for (venue, symbol), or
// atomically allocates and returns the next dense id. Deterministic
// across instances only when callers seed pairs in the same canonical
// order before any dynamic insert; within a single process, repeated
// calls always return the same id.
func (r *SymbolRegistry) GetOrInsert(venue, symbol string) uint32 {
	key := SymbolKey{Venue: venue, Symbol: symbol}

	r.mu.RLock()
	if id, ok := r.byKey[key]; ok {
		r.mu.RUnlock()
		return id
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check: another writer may have inserted while we waited for the lock.
	if id, ok := r.byKey[key]; ok {
		return id
	}

	id := r.nextID
	r.nextID++
	r.byKey[key] = id
	r.byID = append(r.byID, key)
	r.bySymbol[symbol] = append(r.bySymbol[symbol], id)
	return id
}

// VenueIDsForSymbol returns every id registered under the given symbol
// name across all venues, in insertion order. Used by the Detector to
// iterate every directed venue pair sharing a symbol.
func (r *SymbolRegistry) VenueIDsForSymbol(symbol string) []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.bySymbol[symbol]
	out := make([]uint32, len(ids))
	copy(out, ids)
	return out
}

// Get returns the (venue, symbol) pair for an id, and whether it exists.
func (r *SymbolRegistry) Get(id uint32) (SymbolKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(id) >= len(r.byID) {
		return SymbolKey{}, false
	}
	return r.byID[id], true
}

// Len returns the number of interned symbols.
func (r *SymbolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// SeedCanonical inserts a fixed ordered list of (venue, symbol) pairs
// before any dynamic traffic, which is the only way ids stay
// deterministic across instances. Returns the assigned ids in input
// order.
func (r *SymbolRegistry) SeedCanonical(pairs []SymbolKey) []uint32 {
	ids := make([]uint32, len(pairs))
	for i, p := range pairs {
		ids[i] = r.GetOrInsert(p.Venue, p.Symbol)
	}
	return ids
}

// String renders a SymbolKey for error messages and logging.
func (k SymbolKey) String() string {
	return fmt.Sprintf("%s:%s", k.Venue, k.Symbol)
}
