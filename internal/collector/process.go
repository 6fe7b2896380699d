package collector

import (
	"fmt"
	"sort"

	"github.com/diagtools/diag/pkg/types"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessConnections counts established TCP connections per process,
// sorted by count descending. Sockets without an owning PID are skipped.
func ProcessConnections() ([]types.ProcessConnStats, error) {
	connections, err := psnet.ConnectionsPid("tcp", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get connections: %w", err)
	}

	byPID := make(map[int32]*types.ProcessConnStats)
	for _, conn := range connections {
		if conn.Pid == 0 || conn.Status != "ESTABLISHED" {
			continue
		}
		stats, ok := byPID[conn.Pid]
		if !ok {
			proc, err := process.NewProcess(conn.Pid)
			if err != nil {
				continue
			}
			name, _ := proc.Name()
			if name == "" {
				name = fmt.Sprintf("PID %d", conn.Pid)
			}
			stats = &types.ProcessConnStats{PID: conn.Pid, Name: name}
			byPID[conn.Pid] = stats
		}
		stats.Connections++
	}

	result := make([]types.ProcessConnStats, 0, len(byPID))
	for _, stats := range byPID {
		result = append(result, *stats)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Connections != result[j].Connections {
			return result[i].Connections > result[j].Connections
		}
		return result[i].PID < result[j].PID
	})
	return result, nil
}
