package monitor

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/diagtools/diag/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCert(notAfter time.Time) *x509.Certificate {
	return &x509.Certificate{
		Subject: pkix.Name{
			CommonName:   "example.com",
			Organization: []string{"Example Corp"},
		},
		Issuer: pkix.Name{
			CommonName:   "Example CA",
			Organization: []string{"Example Trust"},
		},
		NotBefore:    notAfter.Add(-90 * 24 * time.Hour),
		NotAfter:     notAfter,
		SerialNumber: big.NewInt(123456789),
		Version:      3,
	}
}

func testCertMonitor(fetch func(hostname string, port int) (*x509.Certificate, error)) (*CertMonitor, *fakeClock) {
	m := NewCertMonitor(logger.Noop(), 0)
	clock := newFakeClock()
	m.now = clock.now
	m.fetch = fetch
	return m, clock
}

func TestCheckExtractsCertificateInfo(t *testing.T) {
	m, clock := testCertMonitor(nil)
	cert := testCert(clock.now().Add(365 * 24 * time.Hour))
	m.fetch = func(hostname string, port int) (*x509.Certificate, error) {
		return cert, nil
	}

	info, err := m.Check("example.com", 443)
	require.NoError(t, err)
	assert.Equal(t, "example.com", info.Subject.CommonName)
	assert.Equal(t, "Example Corp", info.Subject.Organization)
	assert.Equal(t, "Example CA", info.Issuer.CommonName)
	assert.Equal(t, "Example Trust", info.Issuer.Organization)
	assert.Equal(t, "123456789", info.SerialNumber)
	assert.Equal(t, 3, info.Version)
	assert.Equal(t, cert.NotAfter, info.NotAfter)
	assert.GreaterOrEqual(t, info.DaysUntilExpiry, 364)
	assert.LessOrEqual(t, info.DaysUntilExpiry, 365)
}

func TestCheckExpiredCertificateNegativeDays(t *testing.T) {
	m, clock := testCertMonitor(nil)
	cert := testCert(clock.now().Add(-35 * 24 * time.Hour))
	m.fetch = func(hostname string, port int) (*x509.Certificate, error) {
		return cert, nil
	}

	info, err := m.Check("expired.example", 443)
	require.NoError(t, err)
	assert.Equal(t, -35, info.DaysUntilExpiry)
}

func TestCheckCacheHitDoesNotReconnect(t *testing.T) {
	fetches := 0
	m, clock := testCertMonitor(nil)
	m.fetch = func(hostname string, port int) (*x509.Certificate, error) {
		fetches++
		if fetches > 1 {
			t.Fatal("certificate fetched twice within the TTL")
		}
		return testCert(clock.now().Add(365 * 24 * time.Hour)), nil
	}

	_, err := m.Check("example.com", 443)
	require.NoError(t, err)

	clock.advance(30 * time.Minute)
	_, err = m.Check("example.com", 443)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
}

func TestCheckDerivedExpiryRecomputedOnCacheHit(t *testing.T) {
	m, clock := testCertMonitor(nil)
	cert := testCert(clock.now().Add(100 * 24 * time.Hour))
	m.fetch = func(hostname string, port int) (*x509.Certificate, error) {
		return cert, nil
	}

	info, err := m.Check("example.com", 443)
	require.NoError(t, err)
	assert.Equal(t, 100, info.DaysUntilExpiry)

	// Two days pass within the TTL window... the cached certificate must
	// report the current countdown, not the value at fetch time.
	m.cache.ttl = 72 * time.Hour
	clock.advance(48 * time.Hour)
	info, err = m.Check("example.com", 443)
	require.NoError(t, err)
	assert.Equal(t, 98, info.DaysUntilExpiry)
}

func TestCheckMissingAttributesUsePlaceholder(t *testing.T) {
	m, clock := testCertMonitor(nil)
	m.fetch = func(hostname string, port int) (*x509.Certificate, error) {
		return &x509.Certificate{
			Subject:      pkix.Name{CommonName: "bare.example"},
			NotAfter:     clock.now().Add(24 * time.Hour),
			SerialNumber: big.NewInt(7),
			Version:      3,
		}, nil
	}

	info, err := m.Check("bare.example", 443)
	require.NoError(t, err)
	assert.Equal(t, "bare.example", info.Subject.CommonName)
	assert.Equal(t, "Unknown", info.Subject.Organization)
	assert.Equal(t, "Unknown", info.Issuer.CommonName)
	assert.Equal(t, "Unknown", info.Issuer.Organization)
}

func TestCheckFailureNotCached(t *testing.T) {
	log := logger.NewBufferLogger()
	m := NewCertMonitor(log, 0)
	clock := newFakeClock()
	m.now = clock.now
	boom := errors.New("handshake failure")
	m.fetch = func(hostname string, port int) (*x509.Certificate, error) {
		return nil, boom
	}

	info, err := m.Check("bad.example", 443)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, info)
	assert.Equal(t, 0, m.CacheStats().Size)

	require.NotEmpty(t, log.Messages)
	assert.Equal(t, "error", log.Messages[len(log.Messages)-1].Level)
}

func TestCertCacheStats(t *testing.T) {
	m, clock := testCertMonitor(nil)
	m.fetch = func(hostname string, port int) (*x509.Certificate, error) {
		return testCert(clock.now().Add(24 * time.Hour)), nil
	}

	_, err := m.Check("a.example", 443)
	require.NoError(t, err)
	clock.advance(59 * time.Minute)
	_, err = m.Check("b.example", 443)
	require.NoError(t, err)

	clock.advance(30 * time.Minute)
	stats := m.CacheStats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 1, stats.Entries)
}
