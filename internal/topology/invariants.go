package topology

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/vector"
)

// asUndirected builds a gonum simple.UndirectedGraph mirroring the alive
// subgraph of net, with each node id assigned a stable int64 via index
// into net.AliveNodes(). Returned alongside the id<->int64 mapping so
// callers can translate gonum's results back to node ids.
func asUndirected(net *node.Network) (*simple.UndirectedGraph, map[string]int64, map[int64]string) {
	alive := net.AliveNodes()
	idToInt := make(map[string]int64, len(alive))
	intToID := make(map[int64]string, len(alive))
	g := simple.NewUndirectedGraph()

	for i, n := range alive {
		id := int64(i)
		idToInt[n.ID()] = id
		intToID[id] = n.ID()
		g.AddNode(simple.Node(id))
	}
	for _, n := range alive {
		u := idToInt[n.ID()]
		for _, nb := range n.AliveNeighbors() {
			v, ok := idToInt[nb.ID()]
			if !ok {
				continue
			}
			if !g.HasEdgeBetween(u, v) {
				g.SetEdge(g.NewEdge(simple.Node(u), simple.Node(v)))
			}
		}
	}
	return g, idToInt, intToID
}

// CheckConnected reports whether the alive subgraph of net is a single
// connected component (spec §4.2 structural invariant). A network with
// zero or one alive node is trivially connected.
func CheckConnected(net *node.Network) bool {
	g, _, _ := asUndirected(net)
	if g.Nodes().Len() <= 1 {
		return true
	}
	components := topo.ConnectedComponents(g)
	return len(components) <= 1
}

// CheckNoIsolated returns the ids of every alive node with zero alive
// neighbors. An empty slice means the invariant holds.
func CheckNoIsolated(net *node.Network) []string {
	var isolated []string
	for _, n := range net.AliveNodes() {
		if len(n.AliveNeighbors()) == 0 {
			isolated = append(isolated, n.ID())
		}
	}
	return isolated
}

// CheckAverageDegree reports whether the alive subgraph's average degree
// is strictly less than its vertex count — a sanity bound ruling out an
// accidental complete graph (spec §4.2: "average degree < |V|").
func CheckAverageDegree(net *node.Network) (avg float64, ok bool) {
	alive := net.AliveNodes()
	if len(alive) == 0 {
		return 0, true
	}
	total := 0
	for _, n := range alive {
		total += len(n.AliveNeighbors())
	}
	avg = float64(total) / float64(len(alive))
	return avg, avg < float64(len(alive))
}

// GreedyGuaranteeViolation describes one sampled target for which a
// non-globally-closest alive node had no alive neighbor strictly closer
// to that target than itself — a failure of invariant 10.
type GreedyGuaranteeViolation struct {
	Target vector.Vector
	NodeID string
}

// CheckGreedyGuarantee verifies invariant 10 from spec §8 against the
// given sample of targets: for every alive node that is not the globally
// closest to a target, at least one alive neighbor must be strictly
// closer. Returns every violation found (empty means the guarantee holds
// for every sampled target).
func CheckGreedyGuarantee(net *node.Network, targets []vector.Vector) ([]GreedyGuaranteeViolation, error) {
	alive := net.AliveNodes()
	var violations []GreedyGuaranteeViolation

	for _, target := range targets {
		closestID := ""
		closestDist := 0.0
		distByID := make(map[string]float64, len(alive))
		for i, n := range alive {
			d, err := vector.EuclideanDistance(n.Position(), target)
			if err != nil {
				return nil, err
			}
			distByID[n.ID()] = d
			if i == 0 || d < closestDist {
				closestDist = d
				closestID = n.ID()
			}
		}

		for _, n := range alive {
			if n.ID() == closestID {
				continue
			}
			myDist := distByID[n.ID()]
			hasCloser := false
			for _, nb := range n.AliveNeighbors() {
				if distByID[nb.ID()] < myDist {
					hasCloser = true
					break
				}
			}
			if !hasCloser {
				violations = append(violations, GreedyGuaranteeViolation{Target: target, NodeID: n.ID()})
			}
		}
	}
	return violations, nil
}

// Describe renders a human-readable summary of net's structural health,
// suitable for CLI output or logging.
func Describe(net *node.Network) string {
	connected := CheckConnected(net)
	isolated := CheckNoIsolated(net)
	avgDegree, degreeOK := CheckAverageDegree(net)
	violations := node.CheckSymmetry(net)
	return fmt.Sprintf(
		"connected=%t isolated=%d avg_degree=%.2f degree_ok=%t symmetry_violations=%d",
		connected, len(isolated), avgDegree, degreeOK, len(violations),
	)
}

var _ graph.Undirected = (*simple.UndirectedGraph)(nil)
