package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/diagtools/diag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONLatencySchema(t *testing.T) {
	var buf bytes.Buffer
	out := LatencyOutput{
		Host:         "example.com",
		Port:         80,
		Measurements: []float64{0.1, 0.2, 0.3},
		Stats:        types.LatencyStats{Min: 0.1, Max: 0.3, Avg: 0.2},
	}
	require.NoError(t, writeJSON(&buf, out))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "example.com", decoded["host"])
	assert.Equal(t, float64(80), decoded["port"])
	assert.Len(t, decoded["measurements"], 3)

	stats, ok := decoded["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0.1, stats["min"])
	assert.Equal(t, 0.3, stats["max"])
	assert.Equal(t, 0.2, stats["avg"])
}

func TestWriteJSONSSLSchema(t *testing.T) {
	var buf bytes.Buffer
	out := SSLOutput{
		Hostname: "example.com",
		Port:     443,
		Certificate: &types.CertificateInfo{
			Subject:         types.CertName{CommonName: "example.com", Organization: "Example Corp"},
			Issuer:          types.CertName{CommonName: "Example CA", Organization: "Unknown"},
			NotBefore:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			NotAfter:        time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			DaysUntilExpiry: 128,
			SerialNumber:    "123456789",
			Version:         3,
		},
		CacheStats: types.CacheStats{Size: 1, Entries: 1},
	}
	require.NoError(t, writeJSON(&buf, out))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	cert, ok := decoded["certificate"].(map[string]interface{})
	require.True(t, ok)
	subject, ok := cert["subject"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "example.com", subject["common_name"])
	assert.Equal(t, float64(128), cert["days_until_expiry"])

	cacheStats, ok := decoded["cache_stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), cacheStats["size"])
	assert.Equal(t, float64(1), cacheStats["entries"])
}

func TestRenderLatencyText(t *testing.T) {
	var buf bytes.Buffer
	renderLatencyText(&buf, LatencyOutput{
		Host:         "example.com",
		Port:         80,
		Measurements: []float64{0.1, 0.2, 0.3},
		Stats:        types.LatencyStats{Min: 0.1, Max: 0.3, Avg: 0.2},
	})

	out := buf.String()
	assert.Contains(t, out, "Latency to example.com:80:")
	assert.Contains(t, out, "Min: 0.100s")
	assert.Contains(t, out, "Max: 0.300s")
	assert.Contains(t, out, "Avg: 0.200s")
	assert.Contains(t, out, "1: 0.100s")
	assert.Contains(t, out, "3: 0.300s")
}

func TestRenderConnectionSummarySorted(t *testing.T) {
	var buf bytes.Buffer
	renderConnectionSummary(&buf, map[string]int{
		"TIME_WAIT":   3,
		"ESTABLISHED": 12,
		"LISTEN":      5,
	})

	out := buf.String()
	assert.Contains(t, out, "ESTABLISHED: 12")
	assert.Contains(t, out, "LISTEN: 5")
	assert.Contains(t, out, "TIME_WAIT: 3")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("ESTABLISHED")), bytes.Index(buf.Bytes(), []byte("LISTEN")))
}

func TestRenderConnectionsByStatusEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderConnectionsByStatus(&buf, "SYN_SENT", nil)

	out := buf.String()
	assert.Contains(t, out, `Connections with status "SYN_SENT":`)
	assert.Contains(t, out, "none")
}

func TestFormatConnection(t *testing.T) {
	tests := []struct {
		name   string
		local  string
		remote string
		status string
		pid    int32
		want   string
	}{
		{
			name: "full record", local: "127.0.0.1:5000", remote: "10.0.0.1:443",
			status: "ESTABLISHED", pid: 123,
			want: "127.0.0.1:5000 -> 10.0.0.1:443 (ESTABLISHED) pid=123",
		},
		{
			name: "listener without remote", local: "0.0.0.0:22", remote: "",
			status: "LISTEN", pid: 0,
			want: "0.0.0.0:22 -> * (LISTEN)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatConnection(tt.local, tt.remote, tt.status, tt.pid))
		})
	}
}

func TestRenderDNSText(t *testing.T) {
	var buf bytes.Buffer
	renderDNSText(&buf, DNSOutput{
		Hostname:    "example.com",
		IPAddresses: []string{"93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946"},
		CacheStats:  types.CacheStats{Size: 1, Entries: 1},
	})

	out := buf.String()
	assert.Contains(t, out, "DNS Resolution for example.com:")
	assert.Contains(t, out, "93.184.216.34")
	assert.Contains(t, out, "size: 1")
	assert.Contains(t, out, "entries: 1")
}

func TestRenderSSLText(t *testing.T) {
	var buf bytes.Buffer
	renderSSLText(&buf, SSLOutput{
		Hostname: "expired.example",
		Port:     443,
		Certificate: &types.CertificateInfo{
			Subject:         types.CertName{CommonName: "expired.example", Organization: "Unknown"},
			Issuer:          types.CertName{CommonName: "Example CA", Organization: "Example Trust"},
			NotBefore:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			NotAfter:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			DaysUntilExpiry: -35,
			SerialNumber:    "42",
			Version:         3,
		},
		CacheStats: types.CacheStats{Size: 2, Entries: 1},
	})

	out := buf.String()
	assert.Contains(t, out, "SSL Certificate for expired.example:443:")
	assert.Contains(t, out, "common_name: expired.example")
	assert.Contains(t, out, "organization: Unknown")
	assert.Contains(t, out, "-35")
	assert.Contains(t, out, "Serial Number: 42")
	assert.Contains(t, out, "size: 2")
}

func TestRenderMetricsTextSortsInterfaces(t *testing.T) {
	var buf bytes.Buffer
	renderMetricsText(&buf, MetricsOutput{
		Interfaces: map[string]types.InterfaceStats{
			"lo":   {BytesSent: 1},
			"eth0": {BytesSent: 100, BytesRecv: 200},
		},
		Connections: []types.RawConnection{
			{LocalAddr: "127.0.0.1:80", Status: "LISTEN"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Network Interfaces:")
	assert.Contains(t, out, "bytes_sent: 100")
	assert.Contains(t, out, "Active Connections:")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("eth0")), bytes.Index(buf.Bytes(), []byte("lo:")))
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "v1.2.3", formatVersion("v1.2.3"))
	assert.Equal(t, "", formatVersion(""))
}
