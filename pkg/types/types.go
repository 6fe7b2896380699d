package types

import "time"

// InterfaceStats holds cumulative counters for a single network interface.
// Counters the platform does not report stay at zero.
type InterfaceStats struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
	ErrIn       uint64 `json:"errin"`
	ErrOut      uint64 `json:"errout"`
	DropIn      uint64 `json:"dropin"`
	DropOut     uint64 `json:"dropout"`
}

// RawConnection is a single socket as reported by the OS, including the
// low-level descriptor and family fields.
type RawConnection struct {
	FD         uint32 `json:"fd"`
	Family     uint32 `json:"family"`
	Type       uint32 `json:"type"`
	LocalAddr  string `json:"local_addr"`
	RemoteAddr string `json:"remote_addr"`
	Status     string `json:"status"`
	PID        int32  `json:"pid"`
}

// ConnectionRecord is a connection as tracked by the connection monitor.
type ConnectionRecord struct {
	LocalAddr  string `json:"local_addr"`
	RemoteAddr string `json:"remote_addr"`
	Status     string `json:"status"`
	PID        int32  `json:"pid"`
}

// LatencyStats summarizes retained latency samples for one host, in seconds.
type LatencyStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// CacheStats reports the state of a monitor's cache. Size counts every
// entry, Entries only those still within the TTL.
type CacheStats struct {
	Size    int `json:"size"`
	Entries int `json:"entries"`
}

// CertName is the subset of an X.509 distinguished name the ssl command
// reports. Absent attributes are filled with a placeholder, never empty.
type CertName struct {
	CommonName   string `json:"common_name"`
	Organization string `json:"organization"`
}

// CertificateInfo describes a peer certificate. DaysUntilExpiry is derived
// from NotAfter at read time and is negative for expired certificates.
type CertificateInfo struct {
	Subject         CertName  `json:"subject"`
	Issuer          CertName  `json:"issuer"`
	NotBefore       time.Time `json:"not_before"`
	NotAfter        time.Time `json:"not_after"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
	SerialNumber    string    `json:"serial_number"`
	Version         int       `json:"version"`
}

// SystemStats is a point-in-time host snapshot shown by the watch view.
type SystemStats struct {
	CPUPercent  float64
	MemoryUsed  uint64
	MemoryTotal uint64
	MemoryPerc  float64
	Connections int
	Goroutines  int
	Timestamp   time.Time
}

// ProcessConnStats counts established connections per process.
type ProcessConnStats struct {
	PID         int32
	Name        string
	Connections int
}
