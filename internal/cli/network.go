package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/diagtools/diag/internal/collector"
	"github.com/diagtools/diag/internal/logger"
	"github.com/diagtools/diag/internal/monitor"
	"github.com/diagtools/diag/internal/ui"
	"github.com/diagtools/diag/pkg/types"
	"github.com/spf13/cobra"
)

// The probing commands depend on these narrow views of the monitors so
// failure paths can be exercised without touching the network.
type latencyProber interface {
	Measure(host string, port int, timeout time.Duration) (float64, error)
}

type hostResolver interface {
	Resolve(ctx context.Context, hostname string) ([]string, error)
	CacheStats() types.CacheStats
}

type certChecker interface {
	Check(hostname string, port int) (*types.CertificateInfo, error)
	CacheStats() types.CacheStats
}

// Command-specific flags
var (
	metricsJSON      bool
	connectionsJSON  bool
	connectionsState string
	latencyJSON      bool
	latencyPort      int
	latencyCount     int
	latencyTimeout   time.Duration
	dnsJSON          bool
	sslJSON          bool
	sslPort          int
	pingJSON         bool
	pingCount        int
	pingTimeout      time.Duration
	watchInterval    time.Duration
	watchTargets     []string
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Network diagnostics commands",
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show network interface metrics",
	Long: `Report cumulative counters for every network interface plus the raw
connection table. Interfaces without full counter support report zeros.

Examples:
  diag network metrics
  diag network metrics --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return metricsCommand(os.Stdout, metricsJSON)
	},
}

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "Show network connections",
	Long: `Summarize connections by state, or list the connections in one state.

Examples:
  diag network connections
  diag network connections --status ESTABLISHED
  diag network connections --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return connectionsCommand(os.Stdout, connectionsState, connectionsJSON)
	},
}

var latencyCmd = &cobra.Command{
	Use:   "latency HOST",
	Short: "Measure TCP connect latency",
	Long: `Time a series of TCP connects to a host and report min/max/avg.

Examples:
  diag network latency example.com
  diag network latency example.com --port 443 --count 10
  diag network latency example.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mon := monitor.NewLatencyMonitor(
			logger.NewEnvLogger("[latency]"), cfg.Latency.TrackInterval)
		return latencyCommand(os.Stdout, os.Stderr, mon, args[0], latencyPort, latencyCount, latencyTimeout, latencyJSON)
	},
}

var dnsCmd = &cobra.Command{
	Use:   "dns HOSTNAME",
	Short: "Resolve a hostname",
	Long: `Resolve a hostname to its addresses and show resolver cache state.

Examples:
  diag network dns example.com
  diag network dns example.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mon := monitor.NewDNSMonitor(
			logger.NewEnvLogger("[dns]"), cfg.DNS.CacheTTL)
		return dnsCommand(os.Stdout, os.Stderr, mon, args[0], dnsJSON)
	},
}

var sslCmd = &cobra.Command{
	Use:   "ssl HOSTNAME",
	Short: "Inspect a TLS certificate",
	Long: `Fetch the peer certificate for a host and report subject, issuer,
validity window and days until expiry.

Examples:
  diag network ssl example.com
  diag network ssl example.com --port 8443 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mon := monitor.NewCertMonitor(
			logger.NewEnvLogger("[ssl]"), cfg.SSL.CacheTTL)
		return sslCommand(os.Stdout, os.Stderr, mon, args[0], sslPort, sslJSON)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping HOST",
	Short: "ICMP echo round-trip time",
	Long: `Send ICMP echo requests and report round-trip times in milliseconds.
Raw ICMP sockets usually require elevated privileges.

Examples:
  sudo diag network ping 1.1.1.1
  sudo diag network ping example.com --count 5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pingCommand(os.Stdout, args[0], pingCount, pingTimeout, pingJSON)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live network dashboard",
	Long: `Open a terminal dashboard with interface throughput, connection
summary, latency tracking of configured targets and system load.

Keyboard: q or Esc quits.

Examples:
  diag network watch
  diag network watch --interval 5s --targets example.com,1.1.1.1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := watchTargets
		if len(targets) == 0 {
			targets = cfg.Watch.Targets
		}
		interval := watchInterval
		if !cmd.Flags().Changed("interval") && cfg.Watch.Interval > 0 {
			interval = cfg.Watch.Interval
		}
		dashboard := ui.NewDashboard(ui.Options{
			Interval: interval,
			Targets:  targets,
			Connections: monitor.NewConnectionMonitor(
				logger.NewEnvLogger("[connections]"), cfg.Connections.RefreshInterval),
			Latency: monitor.NewLatencyMonitor(
				logger.NewEnvLogger("[latency]"), cfg.Latency.TrackInterval),
		})
		return dashboard.Run()
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "output in JSON format")

	connectionsCmd.Flags().StringVar(&connectionsState, "status", "", "filter connections by status")
	connectionsCmd.Flags().BoolVar(&connectionsJSON, "json", false, "output in JSON format")

	latencyCmd.Flags().IntVar(&latencyPort, "port", 80, "port to connect to")
	latencyCmd.Flags().IntVar(&latencyCount, "count", 5, "number of measurements")
	latencyCmd.Flags().DurationVar(&latencyTimeout, "timeout", 0, "connect timeout (default 1s)")
	latencyCmd.Flags().BoolVar(&latencyJSON, "json", false, "output in JSON format")

	dnsCmd.Flags().BoolVar(&dnsJSON, "json", false, "output in JSON format")

	sslCmd.Flags().IntVar(&sslPort, "port", 443, "port to connect to")
	sslCmd.Flags().BoolVar(&sslJSON, "json", false, "output in JSON format")

	pingCmd.Flags().IntVar(&pingCount, "count", 3, "number of echo requests")
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 2*time.Second, "reply timeout")
	pingCmd.Flags().BoolVar(&pingJSON, "json", false, "output in JSON format")

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "refresh interval")
	watchCmd.Flags().StringSliceVar(&watchTargets, "targets", nil, "latency targets (comma-separated)")

	networkCmd.AddCommand(metricsCmd)
	networkCmd.AddCommand(connectionsCmd)
	networkCmd.AddCommand(latencyCmd)
	networkCmd.AddCommand(dnsCmd)
	networkCmd.AddCommand(sslCmd)
	networkCmd.AddCommand(pingCmd)
	networkCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(networkCmd)
}

func metricsCommand(w io.Writer, asJSON bool) error {
	log := logger.NewEnvLogger("[metrics]")

	interfaces, err := logger.Timed(log, "interface stats", collector.InterfaceStats)
	if err != nil {
		return err
	}
	connections, err := logger.Timed(log, "connection snapshot", collector.Connections)
	if err != nil {
		return err
	}

	out := MetricsOutput{Interfaces: interfaces, Connections: connections}
	if asJSON {
		return writeJSON(w, out)
	}
	renderMetricsText(w, out)
	return nil
}

func connectionsCommand(w io.Writer, status string, asJSON bool) error {
	mon := monitor.NewConnectionMonitor(
		logger.NewEnvLogger("[connections]"), cfg.Connections.RefreshInterval)

	if status != "" {
		conns, err := mon.ByStatus(status)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(w, conns)
		}
		renderConnectionsByStatus(w, status, conns)
		return nil
	}

	summary, err := mon.Summary()
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, summary)
	}
	renderConnectionSummary(w, summary)
	return nil
}

func latencyCommand(w, errW io.Writer, mon latencyProber, host string, port, count int, timeout time.Duration, asJSON bool) error {
	if timeout <= 0 {
		timeout = cfg.Latency.ProbeTimeout
	}
	if timeout <= 0 {
		timeout = monitor.DefaultProbeTimeout
	}
	if count < 0 {
		count = 0
	}

	measurements := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		latency, err := mon.Measure(host, port, timeout)
		if err != nil {
			fmt.Fprintf(errW, "Failed to measure latency to %s\n", host)
			return errReported
		}
		measurements = append(measurements, latency)
	}

	out := LatencyOutput{
		Host:         host,
		Port:         port,
		Measurements: measurements,
	}
	// A non-positive count is an empty result, not a crash.
	if len(measurements) > 0 {
		out.Stats = monitor.Summarize(measurements)
	}
	if asJSON {
		return writeJSON(w, out)
	}
	renderLatencyText(w, out)
	return nil
}

func dnsCommand(w, errW io.Writer, mon hostResolver, hostname string, asJSON bool) error {
	log := logger.NewEnvLogger("[dns]")

	addrs, err := logger.Timed(log, "resolve "+hostname, func() ([]string, error) {
		return mon.Resolve(context.Background(), hostname)
	})
	if err != nil {
		fmt.Fprintf(errW, "Failed to resolve %s\n", hostname)
		return errReported
	}

	out := DNSOutput{
		Hostname:    hostname,
		IPAddresses: addrs,
		CacheStats:  mon.CacheStats(),
	}
	if asJSON {
		return writeJSON(w, out)
	}
	renderDNSText(w, out)
	return nil
}

func sslCommand(w, errW io.Writer, mon certChecker, hostname string, port int, asJSON bool) error {
	log := logger.NewEnvLogger("[ssl]")

	info, err := logger.Timed(log, "certificate check "+hostname, func() (*types.CertificateInfo, error) {
		return mon.Check(hostname, port)
	})
	if err != nil {
		fmt.Fprintf(errW, "Failed to check certificate for %s\n", hostname)
		return errReported
	}

	out := SSLOutput{
		Hostname:    hostname,
		Port:        port,
		Certificate: info,
		CacheStats:  mon.CacheStats(),
	}
	if asJSON {
		return writeJSON(w, out)
	}
	renderSSLText(w, out)
	return nil
}

func pingCommand(w io.Writer, host string, count int, timeout time.Duration, asJSON bool) error {
	mon := monitor.NewLatencyMonitor(
		logger.NewEnvLogger("[ping]"), cfg.Latency.TrackInterval)

	if count < 0 {
		count = 0
	}
	measurements := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		rtt, err := mon.Ping(host, timeout)
		if err != nil {
			return fmt.Errorf("failed to ping %s: %w", host, err)
		}
		measurements = append(measurements, float64(rtt)/float64(time.Millisecond))
	}

	out := PingOutput{
		Host:         host,
		Measurements: measurements,
	}
	if len(measurements) > 0 {
		out.Stats = monitor.Summarize(measurements)
	}
	if asJSON {
		return writeJSON(w, out)
	}
	renderPingText(w, out)
	return nil
}
