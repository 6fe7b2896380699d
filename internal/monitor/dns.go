package monitor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/diagtools/diag/internal/logger"
	"github.com/diagtools/diag/pkg/types"
)

// DefaultDNSCacheTTL is how long a successful resolution is reused.
const DefaultDNSCacheTTL = 5 * time.Minute

// DNSMonitor resolves hostnames, reusing a cached result within the TTL.
// Failed lookups are never cached.
type DNSMonitor struct {
	mu    sync.Mutex
	log   logger.Logger
	cache *ttlCache[string, []string]

	now    func() time.Time
	lookup func(ctx context.Context, host string) ([]string, error)
}

// NewDNSMonitor creates a monitor with the given cache TTL; ttl <= 0
// selects DefaultDNSCacheTTL.
func NewDNSMonitor(log logger.Logger, ttl time.Duration) *DNSMonitor {
	if ttl <= 0 {
		ttl = DefaultDNSCacheTTL
	}
	return &DNSMonitor{
		log:   log,
		cache: newTTLCache[string, []string](ttl),
		now:   time.Now,
		lookup: func(ctx context.Context, host string) ([]string, error) {
			return net.DefaultResolver.LookupHost(ctx, host)
		},
	}
}

// Resolve returns the addresses for hostname. A fresh cache entry is
// returned without touching the resolver. A resolution failure is logged
// and returned as an error; the cache is left unmodified.
func (m *DNSMonitor) Resolve(ctx context.Context, hostname string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if addrs, ok := m.cache.get(hostname, now); ok {
		m.log.Debug("dns cache hit for %s", hostname)
		return addrs, nil
	}

	addrs, err := m.lookup(ctx, hostname)
	if err != nil {
		m.log.Error("dns resolution failed for %s: %v", hostname, err)
		return nil, fmt.Errorf("resolving %s: %w", hostname, err)
	}
	m.cache.put(hostname, addrs, now)
	return addrs, nil
}

// CacheStats reports total and still-fresh cache entries.
func (m *DNSMonitor) CacheStats() types.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.stats(m.now())
}
