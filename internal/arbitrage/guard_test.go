package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaceGuard_HedgeLockExclusiveAndReleasable(t *testing.T) {
	g := NewRaceGuard()

	token, err := g.TryAcquireHedgeLock("BTCUSDT")
	require.NoError(t, err)
	assert.True(t, g.IsHedgeLocked("BTCUSDT"))

	_, err = g.TryAcquireHedgeLock("BTCUSDT")
	assert.ErrorContains(t, err, "already in progress")
	assert.ErrorContains(t, err, "BTCUSDT")

	token.Release()
	assert.False(t, g.IsHedgeLocked("BTCUSDT"))

	token2, err := g.TryAcquireHedgeLock("BTCUSDT")
	require.NoError(t, err)
	token2.Release()
}

func TestRaceGuard_HedgeAndCleanupAreIndependentNamespaces(t *testing.T) {
	g := NewRaceGuard()

	hedge, err := g.TryAcquireHedgeLock("ETHUSDT")
	require.NoError(t, err)
	defer hedge.Release()

	cleanup, err := g.TryAcquireCleanupLock("ETHUSDT")
	require.NoError(t, err, "cleanup lock must be independent of a held hedge lock on the same symbol")
	defer cleanup.Release()

	assert.True(t, g.IsHedgeLocked("ETHUSDT"))
	assert.True(t, g.IsCleanupLocked("ETHUSDT"))
}

func TestRaceGuard_ReleaseIsIdempotent(t *testing.T) {
	g := NewRaceGuard()
	token, err := g.TryAcquireHedgeLock("SOLUSDT")
	require.NoError(t, err)

	token.Release()
	assert.NotPanics(t, func() { token.Release() })
	assert.False(t, g.IsHedgeLocked("SOLUSDT"))
}

func TestRaceGuard_NilTokenReleaseIsSafe(t *testing.T) {
	var token *LockToken
	assert.NotPanics(t, func() { token.Release() })
}
