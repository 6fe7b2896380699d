package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagtools/diag/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDNSMonitor(lookup func(ctx context.Context, host string) ([]string, error)) (*DNSMonitor, *fakeClock) {
	m := NewDNSMonitor(logger.Noop(), 0)
	clock := newFakeClock()
	m.now = clock.now
	m.lookup = lookup
	return m, clock
}

func TestResolveCachesWithinTTL(t *testing.T) {
	calls := 0
	m, clock := testDNSMonitor(func(ctx context.Context, host string) ([]string, error) {
		calls++
		if calls > 1 {
			t.Fatalf("resolver invoked %d times; cached result should have been reused", calls)
		}
		return []string{"93.184.216.34"}, nil
	})

	first, err := m.Resolve(context.Background(), "example.com")
	require.NoError(t, err)

	clock.advance(4 * time.Minute)
	second, err := m.Resolve(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestResolveRefreshesAfterTTL(t *testing.T) {
	calls := 0
	m, clock := testDNSMonitor(func(ctx context.Context, host string) ([]string, error) {
		calls++
		return []string{"93.184.216.34"}, nil
	})

	_, err := m.Resolve(context.Background(), "example.com")
	require.NoError(t, err)

	clock.advance(5 * time.Minute)
	_, err = m.Resolve(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestResolveDistinctHostsResolvedSeparately(t *testing.T) {
	m, _ := testDNSMonitor(func(ctx context.Context, host string) ([]string, error) {
		return []string{"addr-for-" + host}, nil
	})

	a, err := m.Resolve(context.Background(), "a.example")
	require.NoError(t, err)
	b, err := m.Resolve(context.Background(), "b.example")
	require.NoError(t, err)

	assert.Equal(t, []string{"addr-for-a.example"}, a)
	assert.Equal(t, []string{"addr-for-b.example"}, b)
	assert.Equal(t, 2, m.CacheStats().Size)
}

func TestResolveFailureNotCached(t *testing.T) {
	log := logger.NewBufferLogger()
	m := NewDNSMonitor(log, 0)
	clock := newFakeClock()
	m.now = clock.now
	boom := errors.New("no such host")
	m.lookup = func(ctx context.Context, host string) ([]string, error) {
		return nil, boom
	}

	before := m.CacheStats()
	addrs, err := m.Resolve(context.Background(), "missing.example")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, addrs)

	after := m.CacheStats()
	assert.Equal(t, before.Size, after.Size, "failed lookups must not be cached")

	require.NotEmpty(t, log.Messages)
	assert.Equal(t, "error", log.Messages[len(log.Messages)-1].Level)
}

func TestDNSCacheStatsCountsFreshEntries(t *testing.T) {
	m, clock := testDNSMonitor(func(ctx context.Context, host string) ([]string, error) {
		return []string{"10.0.0.1"}, nil
	})

	_, err := m.Resolve(context.Background(), "old.example")
	require.NoError(t, err)

	clock.advance(4 * time.Minute)
	_, err = m.Resolve(context.Background(), "new.example")
	require.NoError(t, err)

	// Two minutes later the first entry has aged out, the second has not.
	clock.advance(2 * time.Minute)
	stats := m.CacheStats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 1, stats.Entries)
}
