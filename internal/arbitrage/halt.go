package arbitrage

import "sync"

// haltState is the single process-global trading-halt interlock: a
// single shared flag, deliberately not replicated into per-component
// state. Package-level functions, not a constructed type, because
// centralization is the point — every execution path in the process
// must consult the same flag.
var haltState struct {
	mu     sync.Mutex
	halted bool
	reason string
}

// IsTradingHalted reports whether the interlock is currently set.
// Every order-submission path must consult this before any external
// side effect.
func IsTradingHalted() bool {
	haltState.mu.Lock()
	defer haltState.mu.Unlock()
	return haltState.halted
}

// HaltTrading sets the interlock. Idempotent: only the first call's
// reason is retained; subsequent calls while already halted are
// no-ops with respect to the recorded reason.
func HaltTrading(reason string) {
	haltState.mu.Lock()
	defer haltState.mu.Unlock()
	if haltState.halted {
		return
	}
	haltState.halted = true
	haltState.reason = reason
}

// HaltReason returns the reason recorded by the first HaltTrading
// call, or "" if not halted.
func HaltReason() string {
	haltState.mu.Lock()
	defer haltState.mu.Unlock()
	return haltState.reason
}

// ResumeTrading clears the interlock. Intended for explicit operator
// use only.
func ResumeTrading() {
	haltState.mu.Lock()
	defer haltState.mu.Unlock()
	haltState.halted = false
	haltState.reason = ""
}
