// Package ui implements the live watch dashboard. It periodically samples
// the collectors and monitors and renders them in a tview layout.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/diagtools/diag/internal/collector"
	"github.com/diagtools/diag/internal/monitor"
	"github.com/diagtools/diag/pkg/types"
)

// Options configures the dashboard. Monitors are passed in so the watch
// view shares the same cache and throttle semantics as the one-shot
// commands.
type Options struct {
	Interval    time.Duration
	Targets     []string
	Connections *monitor.ConnectionMonitor
	Latency     *monitor.LatencyMonitor
}

type ifaceRate struct {
	sentBps float64
	recvBps float64
}

type Dashboard struct {
	app  *tview.Application
	opts Options

	systemView      *tview.TextView
	interfacesView  *tview.TextView
	connectionsView *tview.TextView
	latencyView     *tview.TextView
	processView     *tview.TextView

	mu         sync.RWMutex
	system     *types.SystemStats
	interfaces map[string]types.InterfaceStats
	rates      map[string]ifaceRate
	prevAt     time.Time
	summary    map[string]int
	processes  []types.ProcessConnStats

	collectingSystem  bool
	collectingNetwork bool
	collectingProcess bool
}

func NewDashboard(opts Options) *Dashboard {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if len(opts.Targets) == 0 {
		opts.Targets = []string{"1.1.1.1", "8.8.8.8"}
	}
	return &Dashboard{
		app:        tview.NewApplication(),
		opts:       opts,
		interfaces: make(map[string]types.InterfaceStats),
		rates:      make(map[string]ifaceRate),
		summary:    make(map[string]int),
	}
}

func (d *Dashboard) Run() error {
	d.setupUI()

	go d.updateLoop()
	go d.collectionLoop()

	return d.app.Run()
}

func (d *Dashboard) setupUI() {
	d.systemView = tview.NewTextView().
		SetDynamicColors(true)
	d.systemView.SetBorder(true).
		SetTitle(" System ")

	d.interfacesView = tview.NewTextView().
		SetDynamicColors(true)
	d.interfacesView.SetBorder(true).
		SetTitle(" Interfaces ")

	d.connectionsView = tview.NewTextView().
		SetDynamicColors(true)
	d.connectionsView.SetBorder(true).
		SetTitle(" Connections ")

	d.latencyView = tview.NewTextView().
		SetDynamicColors(true)
	d.latencyView.SetBorder(true).
		SetTitle(" Latency ")

	d.processView = tview.NewTextView().
		SetDynamicColors(true)
	d.processView.SetBorder(true).
		SetTitle(" Processes ")

	leftColumn := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(d.systemView, 8, 1, false).
		AddItem(d.latencyView, 0, 1, false)

	middleColumn := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(d.interfacesView, 0, 1, false).
		AddItem(d.connectionsView, 0, 1, false)

	mainFlex := tview.NewFlex().
		AddItem(leftColumn, 35, 1, false).
		AddItem(middleColumn, 0, 2, false).
		AddItem(d.processView, 0, 1, false)

	d.app.SetRoot(mainFlex, true).
		SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			switch event.Key() {
			case tcell.KeyEsc:
				d.app.Stop()
			case tcell.KeyRune:
				if event.Rune() == 'q' {
					d.app.Stop()
				}
			}
			return event
		})
}

func (d *Dashboard) updateLoop() {
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	for range ticker.C {
		d.app.QueueUpdateDraw(func() {
			d.updateSystemView()
			d.updateInterfacesView()
			d.updateConnectionsView()
			d.updateLatencyView()
			d.updateProcessView()
		})
	}
}

// collectionLoop runs off the UI goroutine; each collector is guarded so a
// slow sample never stacks up behind itself.
func (d *Dashboard) collectionLoop() {
	d.collectOnce()

	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	for range ticker.C {
		d.collectOnce()
	}
}

func (d *Dashboard) collectOnce() {
	d.mu.Lock()
	startSystem := !d.collectingSystem
	if startSystem {
		d.collectingSystem = true
	}
	startNetwork := !d.collectingNetwork
	if startNetwork {
		d.collectingNetwork = true
	}
	startProcess := !d.collectingProcess
	if startProcess {
		d.collectingProcess = true
	}
	d.mu.Unlock()

	if startSystem {
		go d.collectSystem()
	}
	if startNetwork {
		go d.collectNetwork()
	}
	if startProcess {
		go d.collectProcesses()
	}
	go d.collectLatency()
}

func (d *Dashboard) collectSystem() {
	stats, err := collector.SystemStats()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.collectingSystem = false
	if err == nil {
		d.system = stats
	}
}

func (d *Dashboard) collectNetwork() {
	now := time.Now()
	interfaces, ifErr := collector.InterfaceStats()
	summary, connErr := d.opts.Connections.Summary()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.collectingNetwork = false

	if ifErr == nil {
		if !d.prevAt.IsZero() {
			elapsed := now.Sub(d.prevAt).Seconds()
			for name, curr := range interfaces {
				last, ok := d.interfaces[name]
				if !ok || elapsed <= 0 ||
					curr.BytesSent < last.BytesSent || curr.BytesRecv < last.BytesRecv {
					continue
				}
				d.rates[name] = ifaceRate{
					sentBps: float64(curr.BytesSent-last.BytesSent) / elapsed,
					recvBps: float64(curr.BytesRecv-last.BytesRecv) / elapsed,
				}
			}
		}
		d.prevAt = now
		d.interfaces = interfaces
	}
	if connErr == nil {
		d.summary = summary
	}
}

func (d *Dashboard) collectProcesses() {
	processes, err := collector.ProcessConnections()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.collectingProcess = false
	if err == nil {
		d.processes = processes
	}
}

// collectLatency leans on the monitor's own throttle: only one target gets
// probed per track interval, rotating naturally across refreshes.
func (d *Dashboard) collectLatency() {
	for _, target := range d.opts.Targets {
		if d.opts.Latency.Track(target, 443) {
			return
		}
	}
}

func (d *Dashboard) updateSystemView() {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.system == nil {
		d.systemView.SetText("[gray]collecting...")
		return
	}
	s := d.system
	d.systemView.SetText(fmt.Sprintf(
		"[yellow]CPU:[white] %.1f%%\n"+
			"[yellow]Memory:[white] %s / %s (%.1f%%)\n"+
			"[yellow]Connections:[white] %d\n"+
			"[yellow]Goroutines:[white] %d\n"+
			"[yellow]Updated:[white] %s",
		s.CPUPercent,
		formatBytes(s.MemoryUsed),
		formatBytes(s.MemoryTotal),
		s.MemoryPerc,
		s.Connections,
		s.Goroutines,
		s.Timestamp.Format("15:04:05"),
	))
}

func (d *Dashboard) updateInterfacesView() {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.interfaces))
	for name := range d.interfaces {
		names = append(names, name)
	}
	sort.Strings(names)

	var builder strings.Builder
	for _, name := range names {
		stats := d.interfaces[name]
		rate := d.rates[name]
		builder.WriteString(fmt.Sprintf(
			"[yellow]%s[white]\n"+
				"  [green]▼[white] %s (%s/s)  [red]▲[white] %s (%s/s)\n"+
				"  err %d/%d  drop %d/%d\n",
			name,
			formatBytes(stats.BytesRecv), formatBytes(uint64(rate.recvBps)),
			formatBytes(stats.BytesSent), formatBytes(uint64(rate.sentBps)),
			stats.ErrIn, stats.ErrOut,
			stats.DropIn, stats.DropOut,
		))
	}
	if builder.Len() == 0 {
		d.interfacesView.SetText("[gray]collecting...")
		return
	}
	d.interfacesView.SetText(builder.String())
}

func (d *Dashboard) updateConnectionsView() {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.summary) == 0 {
		d.connectionsView.SetText("[gray]no connections")
		return
	}

	statuses := make([]string, 0, len(d.summary))
	for status := range d.summary {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	var builder strings.Builder
	for _, status := range statuses {
		color := "[white]"
		switch status {
		case "ESTABLISHED":
			color = "[green]"
		case "TIME_WAIT":
			color = "[yellow]"
		case "CLOSE_WAIT":
			color = "[red]"
		}
		builder.WriteString(fmt.Sprintf("%s%-15s[white] %d\n", color, status, d.summary[status]))
	}
	d.connectionsView.SetText(builder.String())
}

func (d *Dashboard) updateLatencyView() {
	var builder strings.Builder
	for _, target := range d.opts.Targets {
		stats, ok := d.opts.Latency.Stats(target)
		if !ok {
			builder.WriteString(fmt.Sprintf("[yellow]%s[white]  [gray]no samples[white]\n", target))
			continue
		}
		history := d.opts.Latency.History(target)
		builder.WriteString(fmt.Sprintf(
			"[yellow]%s[white]\n  min %.0fms  avg %.0fms  max %.0fms  (%d samples)\n",
			target,
			stats.Min*1000, stats.Avg*1000, stats.Max*1000,
			len(history),
		))
	}
	d.latencyView.SetText(builder.String())
}

func (d *Dashboard) updateProcessView() {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.processes) == 0 {
		d.processView.SetText("[gray]no established connections")
		return
	}

	var builder strings.Builder
	builder.WriteString("[yellow]Process (connections)[white]\n")
	for i, proc := range d.processes {
		if i >= 20 {
			builder.WriteString(fmt.Sprintf("[gray]... and %d more\n", len(d.processes)-20))
			break
		}
		builder.WriteString(fmt.Sprintf("%-20s %d\n", proc.Name, proc.Connections))
	}
	d.processView.SetText(builder.String())
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
