package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/engine"
	"github.com/vectormesh/avrs/internal/observability"
	"github.com/vectormesh/avrs/internal/routing"
	"github.com/vectormesh/avrs/internal/simulation"
)

var (
	metricsAddr    string
	metricsNodes   int
	metricsDim     int
	metricsSeed    int64
	metricsBgLoad  bool
	metricsBgEvery time.Duration
)

// serveMetricsCmd is a debug convenience: it builds a network, wires a Sink
// to a real Prometheus registry, and exposes /metrics read-only. This is
// NOT the HTTP dashboard/REST surface (out of scope) — there are no
// control endpoints here, only the existing observability aggregates.
var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Build a network and expose its Prometheus metrics on /metrics for local inspection",
	RunE:  runServeMetrics,
}

func init() {
	serveMetricsCmd.Flags().StringVar(&metricsAddr, "addr", ":9090", "listen address for the debug /metrics endpoint")
	serveMetricsCmd.Flags().IntVar(&metricsNodes, "nodes", 30, "number of nodes to generate")
	serveMetricsCmd.Flags().IntVar(&metricsDim, "dimensions", 4, "vector space dimensionality")
	serveMetricsCmd.Flags().Int64Var(&metricsSeed, "seed", 42, "seed for deterministic node generation")
	serveMetricsCmd.Flags().BoolVar(&metricsBgLoad, "background-load", true, "continuously fire randomized requests so the metrics move")
	serveMetricsCmd.Flags().DurationVar(&metricsBgEvery, "background-interval", 200*time.Millisecond, "delay between background requests")
}

func runServeMetrics(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg.Topology.Dimensions = metricsDim
	if err := cfg.Validate(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewPromMetrics(reg)
	sink := observability.NewSink(metrics)

	sublog := log.With().Str("command", "serve-metrics").Logger()
	e := engine.New(cfg, nil, sink, sublog)

	specs := simulation.GenerateSpecs(simulation.NetworkSpec{
		Count: metricsNodes, Dimensions: metricsDim, Seed: metricsSeed, Low: -1, High: 1,
	})
	if err := e.BuildNetwork(specs); err != nil {
		return fmt.Errorf("build network: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.StartHealthMonitor(ctx)
	defer e.Health.Stop()

	if metricsBgLoad {
		go runBackgroundLoad(ctx, e, specs, metricsSeed+1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sublog.Info().Str("addr", metricsAddr).Msg("serving /metrics")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sublog.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// runBackgroundLoad keeps the debug /metrics endpoint's counters moving by
// firing randomized requests against random start nodes until ctx is
// cancelled. Not part of the routing core — purely a CLI demo convenience.
func runBackgroundLoad(ctx context.Context, e *engine.Engine, specs []engine.NodeSpec, seed int64) {
	targets := simulation.GenerateSpecs(simulation.NetworkSpec{
		Count: 1024, Dimensions: specs[0].Position.Dim(), Seed: seed, Low: -1, High: 1,
	})
	i := 0
	ticker := time.NewTicker(metricsBgEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := specs[i%len(specs)].ID
			target := targets[i%len(targets)].Position
			_, _ = e.Route(ctx, start, routing.Request{Target: target})
			i++
		}
	}
}
