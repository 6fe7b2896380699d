// Package collector provides stateless snapshots of OS-reported network
// and system state. There is no cache or retry logic here; the monitors
// layer their policies on top.
package collector

import (
	"fmt"

	"github.com/diagtools/diag/pkg/types"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// InterfaceStats returns cumulative counters for every interface, keyed by
// name. Counters a platform does not support are reported as zero for that
// interface; they never fail the whole call.
func InterfaceStats() (map[string]types.InterfaceStats, error) {
	counters, err := psnet.IOCounters(true)
	if err != nil {
		return nil, fmt.Errorf("failed to get interface counters: %w", err)
	}

	stats := make(map[string]types.InterfaceStats, len(counters))
	for _, counter := range counters {
		stats[counter.Name] = fromIOCounters(counter)
	}
	return stats, nil
}

func fromIOCounters(counter psnet.IOCountersStat) types.InterfaceStats {
	return types.InterfaceStats{
		BytesSent:   counter.BytesSent,
		BytesRecv:   counter.BytesRecv,
		PacketsSent: counter.PacketsSent,
		PacketsRecv: counter.PacketsRecv,
		ErrIn:       counter.Errin,
		ErrOut:      counter.Errout,
		DropIn:      counter.Dropin,
		DropOut:     counter.Dropout,
	}
}

// Connections returns every socket the OS reports, regardless of family,
// including the raw descriptor and family fields.
func Connections() ([]types.RawConnection, error) {
	conns, err := psnet.Connections("all")
	if err != nil {
		return nil, fmt.Errorf("failed to get connections: %w", err)
	}

	records := make([]types.RawConnection, 0, len(conns))
	for _, conn := range conns {
		records = append(records, types.RawConnection{
			FD:         conn.Fd,
			Family:     conn.Family,
			Type:       conn.Type,
			LocalAddr:  FormatAddr(conn.Laddr),
			RemoteAddr: FormatAddr(conn.Raddr),
			Status:     conn.Status,
			PID:        conn.Pid,
		})
	}
	return records, nil
}

// FormatAddr renders a socket address as host:port. Unix sockets and
// unbound endpoints come back as the bare IP field, possibly empty.
func FormatAddr(addr psnet.Addr) string {
	if addr.Port == 0 {
		return addr.IP
	}
	return fmt.Sprintf("%s:%d", addr.IP, addr.Port)
}
