// Command avrsctl is the operator-facing CLI for the adaptive vector
// routing engine: construct a network, run one route, drive a concurrent
// simulation, or expose the observability sink's Prometheus collectors for
// local inspection.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "avrsctl",
	Short: "Operate an adaptive vector routing network",
	Long: `avrsctl builds, routes against, and simulates load on an adaptive
vector routing network: services are points in a fixed-dimensional vector
space, connected by a neighbor topology, routed by a local greedy selector
with trust- and load-aware scoring.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (defaults built in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	cobra.OnInitialize(initLogger)

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(serveMetricsCmd)
}

func initLogger() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(level)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
