package arbitrage

import "runtime"

// TryPinCurrentThread locks the calling goroutine to its current OS
// thread, the closest Go gets to pinning one strategy thread on its own
// core while ingestion threads share the rest. Go exposes no portable
// core-affinity syscall in the
// standard library or in any dependency carried by this module, so
// pinning here is "stick to one OS thread" rather than "stick to one
// core" — best-effort, never a hard failure. Callers running on fewer
// than 8 logical CPUs should treat this as a no-op rather than an
// error — that decision belongs to the caller since only it knows
// whether to log.
func TryPinCurrentThread() {
	runtime.LockOSThread()
}

// NumCPU reports the number of logical CPUs available, for callers
// deciding whether to warn about falling back from the canonical
// 8-core assignment.
func NumCPU() int {
	return runtime.NumCPU()
}
