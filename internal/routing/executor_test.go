package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/vector"
)

// chain builds a straight line of n nodes at positions (0,0), (1,0), (2,0)...
// Every node after the first lies on the ray from the origin toward any
// target (k,0), so with the default cosine threshold the direction-match
// rule ends a route from "a" at "b"; tests that need the route to walk the
// whole chain raise the threshold so only the local-minimum rule applies.
func chain(n int) (*node.Network, []*node.Node) {
	net := node.NewNetwork()
	nodes := make([]*node.Node, n)
	for i := 0; i < n; i++ {
		nodes[i] = node.New(node.Config{
			ID:       string(rune('a' + i)),
			Position: vector.New(float64(i), 0),
			Capacity: 10,
			Trust:    1,
		})
		_ = net.Add(nodes[i])
	}
	for i := 0; i < n-1; i++ {
		node.Link(nodes[i], nodes[i+1])
	}
	return net, nodes
}

func TestExecutor_RoutesToTarget(t *testing.T) {
	net, nodes := chain(5)
	cfg := config.Default()
	cfg.MaxHops = 10
	cfg.Termination.CosineThreshold = 1 // see chain: walk to the far end
	ex := NewExecutor(net, cfg)

	res := ex.Route(context.Background(), nodes[0], Request{Target: vector.New(4, 0)})
	require.True(t, res.Success())
	assert.Equal(t, "e", res.Path[len(res.Path)-1])
	assert.NotEmpty(t, res.Hops)
}

func TestExecutor_NeverRevisitsANode(t *testing.T) {
	net, nodes := chain(6)
	cfg := config.Default()
	cfg.MaxHops = 20
	ex := NewExecutor(net, cfg)

	res := ex.Route(context.Background(), nodes[0], Request{Target: vector.New(5, 0)})
	require.True(t, res.Success())
	seen := map[string]bool{}
	for _, id := range res.Path {
		assert.False(t, seen[id], "node %s visited twice", id)
		seen[id] = true
	}
}

func TestExecutor_TerminatesWithinMaxHops(t *testing.T) {
	net, nodes := chain(100)
	cfg := config.Default()
	cfg.MaxHops = 5 // deliberately too small to reach the far end
	cfg.Termination.CosineThreshold = 1 // see chain: walk to the far end
	ex := NewExecutor(net, cfg)

	res := ex.Route(context.Background(), nodes[0], Request{Target: vector.New(99, 0)})
	assert.Equal(t, StatusExhausted, res.Status)
	assert.Equal(t, FailureMaxHopsExceeded, res.FailureCode)
	assert.LessOrEqual(t, res.TotalHops, cfg.MaxHops)
}

func TestExecutor_ExcludesDeadNodeFromPath(t *testing.T) {
	net, nodes := chain(5)
	nodes[2].Fail() // "c" sits directly in the straight-line path
	cfg := config.Default()
	cfg.MaxHops = 10
	ex := NewExecutor(net, cfg)

	res := ex.Route(context.Background(), nodes[0], Request{Target: vector.New(4, 0)})
	for _, id := range res.Path {
		assert.NotEqual(t, "c", id)
	}
}

func TestExecutor_RespectsCapacityExclusion(t *testing.T) {
	net := node.NewNetwork()
	start := node.New(node.Config{ID: "start", Position: vector.New(0, 0), Capacity: 10, Trust: 1})
	saturated := node.New(node.Config{ID: "saturated", Position: vector.New(1, 0), Capacity: 1, Trust: 1})
	saturated.IncrementLoad(1)
	detour := node.New(node.Config{ID: "detour", Position: vector.New(0, 1), Capacity: 10, Trust: 1})
	dest := node.New(node.Config{ID: "dest", Position: vector.New(1, 1), Capacity: 10, Trust: 1})
	for _, n := range []*node.Node{start, saturated, detour, dest} {
		_ = net.Add(n)
	}
	node.Link(start, saturated)
	node.Link(start, detour)
	node.Link(detour, dest)
	node.Link(saturated, dest)

	cfg := config.Default()
	cfg.MaxHops = 10
	ex := NewExecutor(net, cfg)
	res := ex.Route(context.Background(), start, Request{Target: vector.New(1, 1)})
	for _, id := range res.Path {
		assert.NotEqual(t, "saturated", id)
	}
}

func TestExecutor_RequiresRole(t *testing.T) {
	net := node.NewNetwork()
	start := node.New(node.Config{ID: "start", Position: vector.New(0, 0), Capacity: 10, Trust: 1})
	dest := node.New(node.Config{ID: "dest", Position: vector.New(1, 0), Role: node.RoleAuth, Capacity: 10, Trust: 1})
	_ = net.Add(start)
	_ = net.Add(dest)
	node.Link(start, dest)

	cfg := config.Default()
	cfg.MaxHops = 10
	ex := NewExecutor(net, cfg)
	res := ex.Route(context.Background(), start, Request{Target: vector.New(1, 0), RequiredRole: node.RoleAuth})
	require.True(t, res.Success())
	assert.Equal(t, "dest", res.Path[len(res.Path)-1])
}

func TestExecutor_SectionFailureWhenRoleHasNoAliveCarrier(t *testing.T) {
	net := node.NewNetwork()
	start := node.New(node.Config{ID: "start", Position: vector.New(0, 0), Capacity: 10, Trust: 1})
	onlyAuth := node.New(node.Config{ID: "auth", Position: vector.New(1, 0), Role: node.RoleAuth, Capacity: 10, Trust: 1})
	onlyAuth.Fail()
	_ = net.Add(start)
	_ = net.Add(onlyAuth)
	node.Link(start, onlyAuth)

	cfg := config.Default()
	ex := NewExecutor(net, cfg)
	res := ex.Route(context.Background(), start, Request{Target: vector.New(1, 0), RequiredRole: node.RoleAuth})
	assert.Equal(t, StatusSectionFailed, res.Status)
	assert.Equal(t, FailureSectionEmpty, res.FailureCode)
	assert.True(t, res.SectionFailed)
	assert.Equal(t, []string{"start"}, res.Path, "a section failure must be reported at the start node, before any hop is attempted")
}

func TestExecutor_MonotonicGreedyHopsDecreaseDistance(t *testing.T) {
	net, nodes := chain(8)
	cfg := config.Default()
	cfg.MaxHops = 20
	ex := NewExecutor(net, cfg)

	res := ex.Route(context.Background(), nodes[0], Request{Target: vector.New(7, 0)})
	require.True(t, res.Success())
	for _, hop := range res.Hops {
		if hop.Kind == HopGreedy {
			assert.Less(t, hop.DistanceAfter, hop.DistanceBefore)
		}
	}
}

func TestExecutor_SelfHealsOnMidRouteFailure(t *testing.T) {
	net, nodes := chain(5)
	cfg := config.Default()
	cfg.MaxHops = 10
	ex := NewExecutor(net, cfg)
	ex.Probe = func(from, to *node.Node) (Outcome, time.Duration) {
		if to.ID() == "b" {
			return OutcomeFailure, 0
		}
		return OutcomeSuccess, time.Millisecond
	}

	res := ex.Route(context.Background(), nodes[0], Request{Target: vector.New(4, 0)})
	// "b" should have been marked dead by the self-heal path and excluded
	// from the final path. In a chain "a" has no other neighbor, so once
	// "b" is dead "a" has no alive neighbor left and the route ends there.
	assert.False(t, nodes[1].Alive())
	for _, id := range res.Path {
		assert.NotEqual(t, "b", id)
	}
}

func TestExecutor_HealsWhenCurrentDiesOutOfBand(t *testing.T) {
	// A branch node lets current have a second live neighbor to heal onto
	// once it is itself marked dead mid-route.
	net := node.NewNetwork()
	start := node.New(node.Config{ID: "start", Position: vector.New(0, 0), Capacity: 10, Trust: 1})
	mid := node.New(node.Config{ID: "mid", Position: vector.New(1, 0), Capacity: 10, Trust: 1})
	branch := node.New(node.Config{ID: "branch", Position: vector.New(1, 1), Capacity: 10, Trust: 1})
	dest := node.New(node.Config{ID: "dest", Position: vector.New(2, 0), Capacity: 10, Trust: 1})
	for _, n := range []*node.Node{start, mid, branch, dest} {
		_ = net.Add(n)
	}
	node.Link(start, mid)
	node.Link(start, branch)
	node.Link(mid, dest)
	node.Link(branch, dest)

	cfg := config.Default()
	cfg.MaxHops = 10
	ex := NewExecutor(net, cfg)

	firstHop := true
	ex.Probe = func(from, to *node.Node) (Outcome, time.Duration) {
		if firstHop && to.ID() == "mid" {
			firstHop = false
			mid.Fail() // kill "mid" once it has become current, out of band
		}
		return OutcomeSuccess, time.Millisecond
	}

	res := ex.Route(context.Background(), start, Request{Target: vector.New(2, 0)})
	require.True(t, res.Success())
	assert.Equal(t, "dest", res.Path[len(res.Path)-1])

	healed := false
	for _, hop := range res.Hops {
		if hop.Kind == HopHeal {
			healed = true
			assert.Equal(t, "mid", hop.From)
		}
	}
	assert.True(t, healed, "expected a heal hop after mid died out-of-band, got hops: %+v", res.Hops)
}

func TestExecutor_NodeFailureAbortsWhenNoHealCandidateRemains(t *testing.T) {
	net := node.NewNetwork()
	start := node.New(node.Config{ID: "start", Position: vector.New(0, 0), Capacity: 10, Trust: 1})
	dead := node.New(node.Config{ID: "dead", Position: vector.New(1, 0), Capacity: 10, Trust: 1})
	_ = net.Add(start)
	_ = net.Add(dead)
	node.Link(start, dead)

	cfg := config.Default()
	cfg.MaxHops = 10
	ex := NewExecutor(net, cfg)

	firstHop := true
	ex.Probe = func(from, to *node.Node) (Outcome, time.Duration) {
		if firstHop && to.ID() == "dead" {
			firstHop = false
			dead.Fail() // "dead" has no other neighbors to heal onto
		}
		return OutcomeSuccess, time.Millisecond
	}

	res := ex.Route(context.Background(), start, Request{Target: vector.New(2, 0)})
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, FailureNodeFailure, res.FailureCode)
}

func TestExecutor_RespectsContextCancellation(t *testing.T) {
	net, nodes := chain(1000)
	cfg := config.Default()
	cfg.MaxHops = 10000
	ex := NewExecutor(net, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := ex.Route(ctx, nodes[0], Request{Target: vector.New(999, 0)})
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, FailureCancelled, res.FailureCode)
}

type countingNotifier struct {
	outcomes []Outcome
}

func (c *countingNotifier) Notify(_ *node.Node, outcome Outcome) {
	c.outcomes = append(c.outcomes, outcome)
}

func TestExecutor_NotifiesTrustOnEveryHop(t *testing.T) {
	net, nodes := chain(3)
	cfg := config.Default()
	ex := NewExecutor(net, cfg)
	notifier := &countingNotifier{}
	ex.Trust = notifier

	res := ex.Route(context.Background(), nodes[0], Request{Target: vector.New(2, 0)})
	require.True(t, res.Success())
	assert.NotEmpty(t, notifier.outcomes)
}

// TestExecutor_NeverCyclesAndAlwaysTerminates checks the two universal
// invariants every route must satisfy regardless of chain length or target:
// a node never appears twice in a path, and the executor always halts at or
// before MaxHops rather than looping forever.
func TestExecutor_NeverCyclesAndAlwaysTerminates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 40).Draw(rt, "chainLength")
		maxHops := rapid.IntRange(1, 50).Draw(rt, "maxHops")
		targetIdx := rapid.IntRange(1, n-1).Draw(rt, "targetIdx")

		net, nodes := chain(n)
		cfg := config.Default()
		cfg.MaxHops = maxHops
		ex := NewExecutor(net, cfg)

		res := ex.Route(context.Background(), nodes[0], Request{Target: vector.New(float64(targetIdx), 0)})

		seen := map[string]bool{}
		for _, id := range res.Path {
			if seen[id] {
				rt.Fatalf("node %s visited twice in path %v", id, res.Path)
			}
			seen[id] = true
		}
		if res.TotalHops > maxHops {
			rt.Fatalf("route took %d hops, exceeding MaxHops %d", res.TotalHops, maxHops)
		}
	})
}
