package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/diagtools/diag/internal/collector"
	"github.com/diagtools/diag/internal/logger"
	"github.com/diagtools/diag/pkg/types"
)

// DefaultRefreshInterval is the minimum time between two connection
// table enumerations.
const DefaultRefreshInterval = time.Second

// ConnectionMonitor serves grouped views of the connection table,
// re-enumerating at most once per refresh interval. Within the interval
// it intentionally serves the previous snapshot: the interval is a rate
// limit on the expensive OS query, not a freshness guarantee.
type ConnectionMonitor struct {
	mu          sync.Mutex
	log         logger.Logger
	interval    time.Duration
	groups      map[string][]types.ConnectionRecord
	lastRefresh time.Time

	now  func() time.Time
	list func() ([]types.RawConnection, error)
}

// NewConnectionMonitor creates a monitor with the given refresh interval;
// interval <= 0 selects DefaultRefreshInterval.
func NewConnectionMonitor(log logger.Logger, interval time.Duration) *ConnectionMonitor {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &ConnectionMonitor{
		log:      log,
		interval: interval,
		groups:   make(map[string][]types.ConnectionRecord),
		now:      time.Now,
		list:     collector.Connections,
	}
}

// refresh re-queries the connection table unless one was taken within the
// interval, then replaces the snapshot atomically. Enumeration failures
// propagate: on a healthy host the connection table is always readable.
// Callers hold mu.
func (m *ConnectionMonitor) refresh() error {
	now := m.now()
	if now.Sub(m.lastRefresh) < m.interval {
		return nil
	}

	conns, err := m.list()
	if err != nil {
		return fmt.Errorf("connection enumeration failed: %w", err)
	}

	groups := make(map[string][]types.ConnectionRecord)
	for _, conn := range conns {
		groups[conn.Status] = append(groups[conn.Status], types.ConnectionRecord{
			LocalAddr:  conn.LocalAddr,
			RemoteAddr: conn.RemoteAddr,
			Status:     conn.Status,
			PID:        conn.PID,
		})
	}
	m.groups = groups
	m.lastRefresh = now
	m.log.Debug("connection snapshot refreshed: %d sockets in %d states", len(conns), len(groups))
	return nil
}

// Summary returns the number of connections per status.
func (m *ConnectionMonitor) Summary() (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refresh(); err != nil {
		return nil, err
	}
	summary := make(map[string]int, len(m.groups))
	for status, conns := range m.groups {
		summary[status] = len(conns)
	}
	return summary, nil
}

// ByStatus returns the connections in the given state. An unknown status
// yields an empty slice, not an error. The result is a copy; mutating it
// cannot corrupt the cached snapshot.
func (m *ConnectionMonitor) ByStatus(status string) ([]types.ConnectionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.refresh(); err != nil {
		return nil, err
	}
	conns := make([]types.ConnectionRecord, len(m.groups[status]))
	copy(conns, m.groups[status])
	return conns, nil
}
