package collector

import (
	"fmt"
	"runtime"
	"time"

	"github.com/diagtools/diag/pkg/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// SystemStats samples cpu, memory and connection counts for the watch
// view. The cpu sample blocks for the sampling window, so callers run it
// off the UI goroutine.
func SystemStats() (*types.SystemStats, error) {
	cpuPercent, err := cpu.Percent(time.Second, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU usage: %w", err)
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to get memory info: %w", err)
	}

	conns, err := psnet.Connections("all")
	if err != nil {
		conns = []psnet.ConnectionStat{}
	}

	return &types.SystemStats{
		CPUPercent:  cpuPercent[0],
		MemoryUsed:  memInfo.Used,
		MemoryTotal: memInfo.Total,
		MemoryPerc:  memInfo.UsedPercent,
		Connections: len(conns),
		Goroutines:  runtime.NumGoroutine(),
		Timestamp:   time.Now(),
	}, nil
}
