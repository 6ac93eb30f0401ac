package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/engine"
	"github.com/vectormesh/avrs/internal/observability"
	"github.com/vectormesh/avrs/internal/routing"
	"github.com/vectormesh/avrs/internal/simulation"
)

var (
	simNodes       int
	simDim         int
	simSeed        int64
	simRequests    int
	simConcurrency int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the concurrent driver against a generated network and print a summary",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simNodes, "nodes", 30, "number of nodes to generate")
	simulateCmd.Flags().IntVar(&simDim, "dimensions", 4, "vector space dimensionality")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 42, "seed for deterministic node generation")
	simulateCmd.Flags().IntVar(&simRequests, "requests", 100, "number of requests to fire")
	simulateCmd.Flags().IntVar(&simConcurrency, "concurrency", 8, "worker pool size")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg.Topology.Dimensions = simDim
	if err := cfg.Validate(); err != nil {
		return err
	}

	sink := observability.NewSink(nil)
	e := engine.New(cfg, nil, sink, log.With().Str("command", "simulate").Logger())

	specs := simulation.GenerateSpecs(simulation.NetworkSpec{
		Count: simNodes, Dimensions: simDim, Seed: simSeed, Low: -1, High: 1,
	})
	if err := e.BuildNetwork(specs); err != nil {
		return fmt.Errorf("build network: %w", err)
	}

	targets := simulation.GenerateSpecs(simulation.NetworkSpec{
		Count: simRequests, Dimensions: simDim, Seed: simSeed + 1, Low: -1, High: 1,
	})

	jobs := make([]simulation.Job, simRequests)
	for i := 0; i < simRequests; i++ {
		jobs[i] = simulation.Job{
			StartID: specs[i%len(specs)].ID,
			Request: routing.Request{Target: targets[i].Position},
		}
	}

	driver := simulation.NewDriver(e, log.With().Str("component", "simulation").Logger())
	results := driver.RunConcurrent(context.Background(), jobs, simConcurrency)

	var succeeded, failed int
	for _, r := range results {
		if r.Err != nil || r.Result.Status != routing.StatusSucceeded {
			failed++
			continue
		}
		succeeded++
	}

	summary := e.Observe()
	fmt.Printf("requests fired:  %d\n", len(results))
	fmt.Printf("succeeded:       %d\n", succeeded)
	fmt.Printf("failed:          %d\n", failed)
	fmt.Printf("total hops:      %d\n", summary.TotalHops)
	fmt.Printf("average hops:    %.2f\n", summary.AverageHops)
	fmt.Printf("total reroutes:  %d\n", summary.TotalReroutes)
	fmt.Printf("success rate:    %.2f%%\n", summary.SuccessRate*100)
	return nil
}
