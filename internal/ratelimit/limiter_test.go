package ratelimit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsBurstThenRejects(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.001, Burst: 2})
	require.True(t, l.Allow("alice"))
	require.True(t, l.Allow("alice"))
	require.False(t, l.Allow("alice"))

	// Buckets are independent per client.
	require.True(t, l.Allow("bob"))
	require.Equal(t, 2, l.Clients())
}

func TestLimiterUnlimited(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("alice"))
	}
	require.Zero(t, l.Clients())
}

func TestLimiterBoundsTrackedClients(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 1, Burst: 1, MaxClients: 3})
	for i := 0; i < 10; i++ {
		require.True(t, l.Allow(fmt.Sprintf("client-%d", i)))
	}
	require.Equal(t, 3, l.Clients())
	require.True(t, l.Allow(""))
}
