package monitor

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/diagtools/diag/internal/logger"
	"github.com/diagtools/diag/pkg/types"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	// DefaultTrackInterval is the minimum time between two Track probes,
	// shared across all hosts.
	DefaultTrackInterval = 5 * time.Second

	// DefaultProbeTimeout bounds a single TCP connect attempt.
	DefaultProbeTimeout = time.Second

	// maxSamples caps the per-host rolling history; the oldest sample is
	// evicted first.
	maxSamples = 100
)

// LatencyMonitor measures TCP connect latency and keeps a bounded rolling
// history per host. The Track rate limiter is keyed on one shared
// timestamp, so a recent Track of any host suppresses the next one
// regardless of target. That global throttle is intentional.
type LatencyMonitor struct {
	mu        sync.Mutex
	log       logger.Logger
	interval  time.Duration
	samples   map[string][]float64
	lastTrack time.Time

	now  func() time.Time
	dial func(addr string, timeout time.Duration) (net.Conn, error)
}

// NewLatencyMonitor creates a monitor with the given track interval;
// interval <= 0 selects DefaultTrackInterval.
func NewLatencyMonitor(log logger.Logger, interval time.Duration) *LatencyMonitor {
	if interval <= 0 {
		interval = DefaultTrackInterval
	}
	return &LatencyMonitor{
		log:      log,
		interval: interval,
		samples:  make(map[string][]float64),
		now:      time.Now,
		dial: func(addr string, timeout time.Duration) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, timeout)
		},
	}
}

// Measure times a TCP connect to host:port and returns the elapsed
// seconds. A refused or timed-out connect is an expected outcome: it is
// logged as a warning and returned as an error, never a panic.
func (m *LatencyMonitor) Measure(host string, port int, timeout time.Duration) (float64, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	start := time.Now()
	conn, err := m.dial(addr, timeout)
	if err != nil {
		m.log.Warn("failed to measure latency to %s: %v", host, err)
		return 0, fmt.Errorf("latency probe to %s failed: %w", addr, err)
	}
	elapsed := time.Since(start).Seconds()
	conn.Close()
	return elapsed, nil
}

// Track appends one probe result to the host's rolling history, unless a
// Track of any host ran within the interval. It reports whether a sample
// was recorded; a rate-limited call is a no-op, not a failure.
func (m *LatencyMonitor) Track(host string, port int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastTrack) < m.interval {
		m.log.Debug("skipping latency track for %s: within %s interval", host, m.interval)
		return false
	}

	recorded := false
	if latency, err := m.Measure(host, port, DefaultProbeTimeout); err == nil {
		m.append(host, latency)
		recorded = true
	}
	// A failed probe still advances the shared timestamp.
	m.lastTrack = now
	return recorded
}

// append adds one sample, evicting the oldest beyond maxSamples.
// Callers hold mu.
func (m *LatencyMonitor) append(host string, latency float64) {
	history := append(m.samples[host], latency)
	if len(history) > maxSamples {
		history = history[len(history)-maxSamples:]
	}
	m.samples[host] = history
}

// History returns a copy of the retained samples for host.
func (m *LatencyMonitor) History(host string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.samples[host]...)
}

// Stats summarizes the full retained history for host. ok is false when
// no samples have been recorded.
func (m *LatencyMonitor) Stats(host string) (types.LatencyStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := m.samples[host]
	if len(samples) == 0 {
		return types.LatencyStats{}, false
	}
	return Summarize(samples), true
}

// Summarize computes min, max and arithmetic mean over samples.
// It panics on an empty slice; callers check first.
func Summarize(samples []float64) types.LatencyStats {
	stats := types.LatencyStats{Min: samples[0], Max: samples[0]}
	var total float64
	for _, s := range samples {
		total += s
		if s < stats.Min {
			stats.Min = s
		}
		if s > stats.Max {
			stats.Max = s
		}
	}
	stats.Avg = total / float64(len(samples))
	return stats
}

// Ping sends a single ICMP echo request and times the reply. It needs
// raw-socket privileges on most systems, so it lives behind its own
// command rather than backing Measure.
func (m *LatencyMonitor) Ping(host string, timeout time.Duration) (time.Duration, error) {
	dst, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		m.log.Error("ping resolve failed for %s: %v", host, err)
		return 0, fmt.Errorf("resolving %s: %w", host, err)
	}

	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		m.log.Error("ping socket failed: %v", err)
		return 0, fmt.Errorf("opening icmp socket: %w", err)
	}
	defer conn.Close()

	message := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   1,
			Seq:  1,
			Data: []byte("diag"),
		},
	}
	data, err := message.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("marshaling echo request: %w", err)
	}

	start := time.Now()
	if _, err := conn.WriteTo(data, dst); err != nil {
		m.log.Warn("ping send to %s failed: %v", host, err)
		return 0, fmt.Errorf("sending echo to %s: %w", host, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	reply := make([]byte, 1500)
	n, _, err := conn.ReadFrom(reply)
	if err != nil {
		m.log.Warn("ping reply from %s not received: %v", host, err)
		return 0, fmt.Errorf("awaiting echo reply from %s: %w", host, err)
	}
	elapsed := time.Since(start)

	parsed, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), reply[:n])
	if err != nil {
		return 0, fmt.Errorf("parsing echo reply: %w", err)
	}
	if parsed.Type != ipv4.ICMPTypeEchoReply {
		return 0, fmt.Errorf("expected echo reply from %s, got %v", host, parsed.Type)
	}
	return elapsed, nil
}
