// Package cli implements the diag command-line interface.
//
// The package is organized around Cobra commands: each command parses its
// flags, constructs the monitors it needs, and delegates rendering to the
// helpers in render.go. Monitors own all cache and rate-limit state; the
// CLI is only a consumer.
package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/diagtools/diag/internal/config"
	"github.com/spf13/cobra"
)

// errReported marks failures whose targeted message was already printed
// to stderr. Execute exits 1 without adding the generic Error: prefix.
var errReported = errors.New("failure already reported")

var (
	cfgFile string
	cfg     = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "diag",
	Short: "Network diagnostics toolkit",
	Long: `diag inspects the local network stack: interface counters, active
connections, TCP connect latency, DNS resolution and TLS certificates.

Each subcommand is a one-shot query; the stateful monitors cache expensive
lookups for the lifetime of the process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Find(cfgFile)
		if err != nil {
			return err
		}
		if path == "" {
			return nil
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default "+config.ConfigFileName+", then ~/"+config.GlobalConfigDir+"/"+config.GlobalConfigFile+")")
}

// Execute runs the root command. Failures print to stderr and exit 1;
// an interrupt exits 130.
func Execute() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
		os.Exit(130)
	}()

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
