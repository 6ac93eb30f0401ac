package topology

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/vector"
)

// Builder constructs and maintains a Network's neighbor graph according to
// a configured mode. Structural state still lives entirely on the Network
// and its Nodes, but mu serializes Builder's own entry points against each
// other so a Rebuild can never interleave with a concurrent Insert or
// HealAround and leave the graph half-mutated.
type Builder struct {
	Topology config.Topology
	Log      zerolog.Logger

	mu sync.Mutex
}

// NewBuilder returns a Builder for the given topology configuration,
// logging to the provided logger (or a disabled one if zero-valued).
func NewBuilder(cfg config.Topology, log zerolog.Logger) *Builder {
	return &Builder{Topology: cfg, Log: log}
}

// Rebuild clears every node's adjacency set and reconstructs the graph
// from scratch over currently-alive nodes, per spec §4.2's rebuild
// mutation.
func (b *Builder) Rebuild(net *node.Network) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	alive := net.AliveNodes()
	for _, n := range alive {
		for _, nb := range n.Neighbors() {
			node.Unlink(n, nb)
		}
	}
	return b.build(net, alive)
}

// build links nodes according to b.Topology.Mode, falling back to KNN
// when Delaunay's prerequisites are not met (spec §4.2 fallback rule).
func (b *Builder) build(net *node.Network, alive []*node.Node) error {
	mode := b.Topology.Mode

	var pairs [][2]string
	switch mode {
	case config.TopologyKNN:
		p, err := knnPairs(alive, b.Topology.K)
		if err != nil {
			return err
		}
		pairs = p

	case config.TopologyDelaunay:
		p, err := b.delaunayOrFallback(alive)
		if err != nil {
			return err
		}
		pairs = p

	case config.TopologyHybrid:
		knn, err := knnPairs(alive, b.Topology.K)
		if err != nil {
			return err
		}
		del, err := b.delaunayOrFallback(alive)
		if err != nil {
			return err
		}
		pairs = union(knn, del)

	default:
		p, err := knnPairs(alive, b.Topology.K)
		if err != nil {
			return err
		}
		pairs = p
	}

	byID := make(map[string]*node.Node, len(alive))
	for _, n := range alive {
		byID[n.ID()] = n
	}
	for _, pair := range pairs {
		a, aok := byID[pair[0]]
		c, cok := byID[pair[1]]
		if aok && cok {
			node.Link(a, c)
		}
	}
	return nil
}

// delaunayOrFallback runs Delaunay tessellation, falling back to KNN (with
// a logged warning) if the point set is degenerate or too small — spec
// §4.2: "fewer than D+2 non-degenerate points, degenerate configuration,
// tessellator unavailable".
func (b *Builder) delaunayOrFallback(alive []*node.Node) ([][2]string, error) {
	if len(alive) < b.Topology.Dimensions+2 {
		b.Log.Warn().
			Int("alive", len(alive)).
			Int("required", b.Topology.Dimensions+2).
			Msg("topology: too few points for delaunay, falling back to knn")
		return knnPairs(alive, b.Topology.K)
	}

	pairs, err := delaunayEdges(alive)
	if err != nil {
		b.Log.Warn().Err(err).Msg("topology: delaunay degenerate, falling back to knn")
		return knnPairs(alive, b.Topology.K)
	}
	return pairs, nil
}

func union(a, b [][2]string) [][2]string {
	seen := make(map[[2]string]bool, len(a)+len(b))
	out := make([][2]string, 0, len(a)+len(b))
	for _, pairs := range [][][2]string{a, b} {
		for _, p := range pairs {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Insert attaches n to the k nearest alive nodes already in net, adds n to
// net, and links both directions — spec §4.2's insert mutation.
func (b *Builder) Insert(net *node.Network, n *node.Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	existing := net.AliveNodes()
	if err := net.Add(n); err != nil {
		return err
	}

	type dist struct {
		node *node.Node
		d    float64
	}
	dists := make([]dist, 0, len(existing))
	for _, other := range existing {
		d, err := vector.EuclideanDistance(n.Position(), other.Position())
		if err != nil {
			return err
		}
		dists = append(dists, dist{node: other, d: d})
	}
	sort.Slice(dists, func(i, j int) bool { return dists[i].d < dists[j].d })

	limit := b.Topology.K
	if limit > len(dists) {
		limit = len(dists)
	}
	for _, dd := range dists[:limit] {
		node.Link(n, dd.node)
	}
	return nil
}

// HealAround repairs local connectivity after failed's failure: each
// alive neighbor of failed gets edges to up to k other nearest alive
// neighbors-of-failed it is not already linked to — spec §4.2's
// heal_around mutation. Failed is expected to already be marked dead by
// the caller (the health monitor); this function only touches edges.
func (b *Builder) HealAround(failed *node.Node, k int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	neighbors := failed.Neighbors()
	alive := neighbors[:0:0]
	for _, nb := range neighbors {
		if nb.Alive() {
			alive = append(alive, nb)
		}
	}

	for _, n := range alive {
		type dist struct {
			node *node.Node
			d    float64
		}
		var dists []dist
		for _, other := range alive {
			if other.ID() == n.ID() || node.AreLinked(n, other) {
				continue
			}
			d, err := vector.EuclideanDistance(n.Position(), other.Position())
			if err != nil {
				return err
			}
			dists = append(dists, dist{node: other, d: d})
		}
		sort.Slice(dists, func(i, j int) bool { return dists[i].d < dists[j].d })

		limit := k
		if limit > len(dists) {
			limit = len(dists)
		}
		for _, dd := range dists[:limit] {
			node.Link(n, dd.node)
		}
	}
	return nil
}

// Build performs the initial construction over every alive node currently
// in net. Equivalent to Rebuild on a freshly-populated, edge-free network.
func (b *Builder) Build(net *node.Network) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.build(net, net.AliveNodes())
}
