package monitor

import (
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/diagtools/diag/internal/logger"
	"github.com/diagtools/diag/pkg/types"
)

const (
	// DefaultCertCacheTTL is how long a fetched certificate is reused.
	DefaultCertCacheTTL = time.Hour

	// tlsDialTimeout bounds the connect plus handshake so a dead host
	// cannot hang the caller on the platform default.
	tlsDialTimeout = 10 * time.Second

	// unknownAttribute stands in for name attributes the certificate
	// does not carry.
	unknownAttribute = "Unknown"
)

// CertMonitor fetches and caches TLS peer certificates. The parsed
// certificate is cached, not the derived info: DaysUntilExpiry is
// recomputed on every read so cache hits report current values.
type CertMonitor struct {
	mu    sync.Mutex
	log   logger.Logger
	cache *ttlCache[string, *x509.Certificate]

	now   func() time.Time
	fetch func(hostname string, port int) (*x509.Certificate, error)
}

// NewCertMonitor creates a monitor with the given cache TTL; ttl <= 0
// selects DefaultCertCacheTTL.
func NewCertMonitor(log logger.Logger, ttl time.Duration) *CertMonitor {
	if ttl <= 0 {
		ttl = DefaultCertCacheTTL
	}
	return &CertMonitor{
		log:   log,
		cache: newTTLCache[string, *x509.Certificate](ttl),
		now:   time.Now,
		fetch: fetchCertificate,
	}
}

// Check returns certificate info for hostname:port. A fresh cache entry
// never reopens a connection. Connection, handshake and parse failures
// are logged and returned as errors; nothing panics past this boundary.
func (m *CertMonitor) Check(hostname string, port int) (*types.CertificateInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cert, ok := m.cache.get(hostname, now); ok {
		m.log.Debug("certificate cache hit for %s", hostname)
		return certInfo(cert, now), nil
	}

	cert, err := m.fetch(hostname, port)
	if err != nil {
		m.log.Error("certificate check failed for %s: %v", hostname, err)
		return nil, fmt.Errorf("checking certificate for %s: %w", hostname, err)
	}
	m.cache.put(hostname, cert, now)
	return certInfo(cert, now), nil
}

// CacheStats reports total and still-fresh cache entries.
func (m *CertMonitor) CacheStats() types.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.stats(m.now())
}

// fetchCertificate performs a TLS handshake and returns the leaf peer
// certificate.
func fetchCertificate(hostname string, port int) (*x509.Certificate, error) {
	addr := net.JoinHostPort(hostname, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: tlsDialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: hostname})
	if err != nil {
		return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("no peer certificate presented by %s", addr)
	}
	return certs[0], nil
}

// certInfo extracts display fields from a certificate, deriving
// DaysUntilExpiry from now. Negative values mean the certificate has
// already expired.
func certInfo(cert *x509.Certificate, now time.Time) *types.CertificateInfo {
	return &types.CertificateInfo{
		Subject:         certName(cert.Subject),
		Issuer:          certName(cert.Issuer),
		NotBefore:       cert.NotBefore,
		NotAfter:        cert.NotAfter,
		DaysUntilExpiry: int(cert.NotAfter.Sub(now).Hours() / 24),
		SerialNumber:    cert.SerialNumber.String(),
		Version:         cert.Version,
	}
}

// certName maps a distinguished name onto the reported fields, filling
// absent attributes with a placeholder instead of failing the lookup.
func certName(name pkix.Name) types.CertName {
	n := types.CertName{
		CommonName:   unknownAttribute,
		Organization: unknownAttribute,
	}
	if name.CommonName != "" {
		n.CommonName = name.CommonName
	}
	if len(name.Organization) > 0 && name.Organization[0] != "" {
		n.Organization = name.Organization[0]
	}
	return n
}
