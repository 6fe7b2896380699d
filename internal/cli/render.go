package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/diagtools/diag/pkg/types"
)

// Output shapes for --json mode. The latency schema is the reference:
// {"host": str, "port": int, "measurements": [float...], "stats": {...}}.

type MetricsOutput struct {
	Interfaces  map[string]types.InterfaceStats `json:"interfaces"`
	Connections []types.RawConnection           `json:"connections"`
}

type LatencyOutput struct {
	Host         string             `json:"host"`
	Port         int                `json:"port"`
	Measurements []float64          `json:"measurements"`
	Stats        types.LatencyStats `json:"stats"`
}

type DNSOutput struct {
	Hostname    string           `json:"hostname"`
	IPAddresses []string         `json:"ip_addresses"`
	CacheStats  types.CacheStats `json:"cache_stats"`
}

type SSLOutput struct {
	Hostname    string                 `json:"hostname"`
	Port        int                    `json:"port"`
	Certificate *types.CertificateInfo `json:"certificate"`
	CacheStats  types.CacheStats       `json:"cache_stats"`
}

// PingOutput mirrors LatencyOutput with values in milliseconds.
type PingOutput struct {
	Host         string             `json:"host"`
	Measurements []float64          `json:"measurements_ms"`
	Stats        types.LatencyStats `json:"stats_ms"`
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// writeJSON emits v with two-space indentation.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderMetricsText(w io.Writer, out MetricsOutput) {
	fmt.Fprintln(w, headerStyle.Render("Network Interfaces:"))

	names := make([]string, 0, len(out.Interfaces))
	for name := range out.Interfaces {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stats := out.Interfaces[name]
		fmt.Fprintf(w, "\n%s:\n", name)
		fmt.Fprintf(w, "  bytes_sent: %d\n", stats.BytesSent)
		fmt.Fprintf(w, "  bytes_recv: %d\n", stats.BytesRecv)
		fmt.Fprintf(w, "  packets_sent: %d\n", stats.PacketsSent)
		fmt.Fprintf(w, "  packets_recv: %d\n", stats.PacketsRecv)
		fmt.Fprintf(w, "  errin: %d\n", stats.ErrIn)
		fmt.Fprintf(w, "  errout: %d\n", stats.ErrOut)
		fmt.Fprintf(w, "  dropin: %d\n", stats.DropIn)
		fmt.Fprintf(w, "  dropout: %d\n", stats.DropOut)
	}

	fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Active Connections:"))
	if len(out.Connections) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  none"))
		return
	}
	for _, conn := range out.Connections {
		fmt.Fprintf(w, "  %s\n", formatConnection(conn.LocalAddr, conn.RemoteAddr, conn.Status, conn.PID))
	}
}

func renderConnectionSummary(w io.Writer, summary map[string]int) {
	fmt.Fprintln(w, headerStyle.Render("Connection Summary:"))

	statuses := make([]string, 0, len(summary))
	for status := range summary {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	for _, status := range statuses {
		fmt.Fprintf(w, "  %s: %d\n", status, summary[status])
	}
}

func renderConnectionsByStatus(w io.Writer, status string, conns []types.ConnectionRecord) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Connections with status %q:", status)))
	if len(conns) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  none"))
		return
	}
	for _, conn := range conns {
		fmt.Fprintf(w, "  %s\n", formatConnection(conn.LocalAddr, conn.RemoteAddr, conn.Status, conn.PID))
	}
}

func formatConnection(local, remote, status string, pid int32) string {
	if remote == "" {
		remote = "*"
	}
	if local == "" {
		local = "*"
	}
	s := fmt.Sprintf("%s -> %s (%s)", local, remote, status)
	if pid != 0 {
		s += fmt.Sprintf(" pid=%d", pid)
	}
	return s
}

func renderLatencyText(w io.Writer, out LatencyOutput) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Latency to %s:%d:", out.Host, out.Port)))
	fmt.Fprintf(w, "  Min: %.3fs\n", out.Stats.Min)
	fmt.Fprintf(w, "  Max: %.3fs\n", out.Stats.Max)
	fmt.Fprintf(w, "  Avg: %.3fs\n", out.Stats.Avg)

	fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Measurements:"))
	for i, latency := range out.Measurements {
		fmt.Fprintf(w, "  %d: %.3fs\n", i+1, latency)
	}
}

func renderPingText(w io.Writer, out PingOutput) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Ping %s:", out.Host)))
	for i, ms := range out.Measurements {
		fmt.Fprintf(w, "  %d: %.2fms\n", i+1, ms)
	}
	fmt.Fprintf(w, "\n  min %.2fms / max %.2fms / avg %.2fms\n",
		out.Stats.Min, out.Stats.Max, out.Stats.Avg)
}

func renderDNSText(w io.Writer, out DNSOutput) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("DNS Resolution for %s:", out.Hostname)))
	fmt.Fprintln(w, "IP Addresses:")
	for _, addr := range out.IPAddresses {
		fmt.Fprintf(w, "  %s\n", addr)
	}
	renderCacheStats(w, out.CacheStats)
}

func renderSSLText(w io.Writer, out SSLOutput) {
	cert := out.Certificate
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("SSL Certificate for %s:%d:", out.Hostname, out.Port)))

	fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Subject:"))
	fmt.Fprintf(w, "  common_name: %s\n", cert.Subject.CommonName)
	fmt.Fprintf(w, "  organization: %s\n", cert.Subject.Organization)

	fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Issuer:"))
	fmt.Fprintf(w, "  common_name: %s\n", cert.Issuer.CommonName)
	fmt.Fprintf(w, "  organization: %s\n", cert.Issuer.Organization)

	fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Validity:"))
	fmt.Fprintf(w, "  Not Before: %s\n", cert.NotBefore.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(w, "  Not After: %s\n", cert.NotAfter.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(w, "  Days Until Expiry: %s\n", expiryStyle(cert.DaysUntilExpiry).Render(fmt.Sprintf("%d", cert.DaysUntilExpiry)))
	fmt.Fprintf(w, "  Serial Number: %s\n", cert.SerialNumber)
	fmt.Fprintf(w, "  Version: %d\n", cert.Version)

	renderCacheStats(w, out.CacheStats)
}

// expiryStyle colors the expiry countdown: red once expired, yellow
// inside 30 days, green otherwise.
func expiryStyle(days int) lipgloss.Style {
	switch {
	case days < 0:
		return badStyle
	case days <= 30:
		return warnStyle
	default:
		return okStyle
	}
}

func renderCacheStats(w io.Writer, stats types.CacheStats) {
	fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Cache Statistics:"))
	fmt.Fprintf(w, "  size: %d\n", stats.Size)
	fmt.Fprintf(w, "  entries: %d\n", stats.Entries)
}
