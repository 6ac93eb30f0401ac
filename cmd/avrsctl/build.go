package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/engine"
	"github.com/vectormesh/avrs/internal/simulation"
	"github.com/vectormesh/avrs/internal/topology"
	"github.com/vectormesh/avrs/internal/vector"
)

var (
	buildCount int
	buildDim   int
	buildSeed  int64
	buildMode  string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Construct a network from a seed and print topology stats",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().IntVar(&buildCount, "nodes", 20, "number of nodes to generate")
	buildCmd.Flags().IntVar(&buildDim, "dimensions", 4, "vector space dimensionality")
	buildCmd.Flags().Int64Var(&buildSeed, "seed", 42, "seed for deterministic node generation")
	buildCmd.Flags().StringVar(&buildMode, "mode", "", "topology mode override: knn, delaunay, hybrid")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if buildMode != "" {
		cfg.Topology.Mode = config.TopologyMode(buildMode)
	}
	cfg.Topology.Dimensions = buildDim
	if err := cfg.Validate(); err != nil {
		return err
	}

	e := engine.New(cfg, nil, nil, log.With().Str("command", "build").Logger())
	specs := simulation.GenerateSpecs(simulation.NetworkSpec{
		Count: buildCount, Dimensions: buildDim, Seed: buildSeed, Low: -1, High: 1,
	})
	if err := e.BuildNetwork(specs); err != nil {
		return fmt.Errorf("build network: %w", err)
	}

	fmt.Println(topology.Describe(e.Network))

	violations, err := topology.CheckGreedyGuarantee(e.Network, sampleTargets(specs))
	if err != nil {
		return fmt.Errorf("greedy guarantee check: %w", err)
	}
	if len(violations) == 0 {
		fmt.Println("greedy guarantee: OK, zero violations")
	} else {
		fmt.Printf("greedy guarantee: %d violation(s)\n", len(violations))
		for _, v := range violations {
			fmt.Printf("  %+v\n", v)
		}
	}
	return nil
}

// sampleTargets picks up to 10 node positions to use as greedy-guarantee
// probe targets, evenly spaced through the generated set.
func sampleTargets(specs []engine.NodeSpec) []vector.Vector {
	const maxTargets = 10
	if len(specs) <= maxTargets {
		out := make([]vector.Vector, len(specs))
		for i, s := range specs {
			out[i] = s.Position
		}
		return out
	}
	stride := len(specs) / maxTargets
	out := make([]vector.Vector, 0, maxTargets)
	for i := 0; i < len(specs) && len(out) < maxTargets; i += stride {
		out = append(out, specs[i].Position)
	}
	return out
}
