package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/engine"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/routing"
	"github.com/vectormesh/avrs/internal/simulation"
	"github.com/vectormesh/avrs/internal/vector"
)

var (
	routeCount  int
	routeDim    int
	routeSeed   int64
	routeStart  string
	routeTarget string
	routeRole   string
	routeText   string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Build a network and run one routing request, printing the result",
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().IntVar(&routeCount, "nodes", 20, "number of nodes to generate")
	routeCmd.Flags().IntVar(&routeDim, "dimensions", 4, "vector space dimensionality")
	routeCmd.Flags().Int64Var(&routeSeed, "seed", 42, "seed for deterministic node generation")
	routeCmd.Flags().StringVar(&routeStart, "start", "N000", "starting node id")
	routeCmd.Flags().StringVar(&routeTarget, "target", "", "comma-separated target vector, e.g. 0.8,0.8,0.8,0.8")
	routeCmd.Flags().StringVar(&routeRole, "role", "", "required role for the request")
	routeCmd.Flags().StringVar(&routeText, "text", "", "free-text request used to derive a role when --role is empty")
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg.Topology.Dimensions = routeDim
	if err := cfg.Validate(); err != nil {
		return err
	}

	target, err := parseVector(routeTarget, routeDim)
	if err != nil {
		return err
	}

	e := engine.New(cfg, nil, nil, log.With().Str("command", "route").Logger())
	specs := simulation.GenerateSpecs(simulation.NetworkSpec{
		Count: routeCount, Dimensions: routeDim, Seed: routeSeed, Low: -1, High: 1,
	})
	if err := e.BuildNetwork(specs); err != nil {
		return fmt.Errorf("build network: %w", err)
	}

	res, err := e.Route(context.Background(), routeStart, routing.Request{
		Target:       target,
		RequiredRole: node.Role(routeRole),
		RequestText:  routeText,
	})
	if err != nil {
		return err
	}

	fmt.Printf("status:      %s\n", res.Status)
	if res.FailureCode != "" {
		fmt.Printf("failure:     %s (%s)\n", res.FailureCode, res.TerminalReason)
	}
	fmt.Printf("path:        %s\n", strings.Join(res.Path, " -> "))
	fmt.Printf("total hops:  %d\n", res.TotalHops)
	fmt.Printf("reroutes:    %d\n", res.Reroutes)
	fmt.Printf("elapsed:     %s\n", res.Elapsed)
	return nil
}

// parseVector parses a comma-separated list of floats, defaulting every
// unspecified component to 0.5 if raw is empty so `route` is usable
// without any flags for a quick smoke test.
func parseVector(raw string, dimensions int) (vector.Vector, error) {
	if raw == "" {
		components := make([]float64, dimensions)
		for i := range components {
			components[i] = 0.5
		}
		return vector.New(components...), nil
	}
	parts := strings.Split(raw, ",")
	components := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse target component %q: %w", p, err)
		}
		components[i] = v
	}
	return vector.New(components...), nil
}
