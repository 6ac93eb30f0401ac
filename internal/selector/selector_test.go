package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/vector"
)

func mkNode(id string, pos vector.Vector, role node.Role, capacity, trust float64) *node.Node {
	return node.New(node.Config{ID: id, Position: pos, Role: role, Capacity: capacity, Trust: trust})
}

func TestSelect_PicksBestScoringCandidate(t *testing.T) {
	cfg := config.Default()
	current := mkNode("cur", vector.New(0, 0, 0, 0), node.RoleDefault, 10, 1)
	near := mkNode("near", vector.New(1, 0, 0, 0), node.RoleDefault, 10, 1)
	far := mkNode("far", vector.New(-1, 0, 0, 0), node.RoleDefault, 10, 1)
	node.Link(current, near)
	node.Link(current, far)

	got, ok := Select(cfg.Scoring, cfg.Cache, Input{
		Current: current,
		Target:  vector.New(1, 0, 0, 0),
		Visited: map[string]bool{},
		Recent:  map[string]bool{},
	})
	require.True(t, ok)
	assert.Equal(t, "near", got.ID())
}

func TestSelect_ExcludesByRole(t *testing.T) {
	cfg := config.Default()
	current := mkNode("cur", vector.New(0, 0, 0, 0), node.RoleDefault, 10, 1)
	auth := mkNode("auth", vector.New(1, 0, 0, 0), node.RoleAuth, 10, 1)
	compute := mkNode("compute", vector.New(1, 0, 0, 0), node.RoleCompute, 10, 1)
	node.Link(current, auth)
	node.Link(current, compute)

	got, ok := Select(cfg.Scoring, cfg.Cache, Input{
		Current:      current,
		Target:       vector.New(1, 0, 0, 0),
		RequiredRole: node.RoleAuth,
		Visited:      map[string]bool{},
		Recent:       map[string]bool{},
	})
	require.True(t, ok)
	assert.Equal(t, "auth", got.ID())
}

func TestSelect_ExcludesAtCapacity(t *testing.T) {
	cfg := config.Default()
	current := mkNode("cur", vector.New(0, 0, 0, 0), node.RoleDefault, 10, 1)
	saturated := mkNode("saturated", vector.New(1, 0, 0, 0), node.RoleDefault, 1, 1)
	saturated.IncrementLoad(1) // load == capacity -> excluded
	node.Link(current, saturated)

	_, ok := Select(cfg.Scoring, cfg.Cache, Input{
		Current: current,
		Target:  vector.New(1, 0, 0, 0),
		Visited: map[string]bool{},
		Recent:  map[string]bool{},
	})
	assert.False(t, ok)
}

func TestSelect_ExcludesVisited(t *testing.T) {
	cfg := config.Default()
	current := mkNode("cur", vector.New(0, 0, 0, 0), node.RoleDefault, 10, 1)
	onlyOption := mkNode("n1", vector.New(1, 0, 0, 0), node.RoleDefault, 10, 1)
	node.Link(current, onlyOption)

	_, ok := Select(cfg.Scoring, cfg.Cache, Input{
		Current: current,
		Target:  vector.New(1, 0, 0, 0),
		Visited: map[string]bool{"n1": true},
		Recent:  map[string]bool{},
	})
	assert.False(t, ok)
}

func TestSelect_ExcludesDead(t *testing.T) {
	cfg := config.Default()
	current := mkNode("cur", vector.New(0, 0, 0, 0), node.RoleDefault, 10, 1)
	dead := mkNode("dead", vector.New(1, 0, 0, 0), node.RoleDefault, 10, 1)
	dead.Fail()
	node.Link(current, dead)

	_, ok := Select(cfg.Scoring, cfg.Cache, Input{
		Current: current,
		Target:  vector.New(1, 0, 0, 0),
		Visited: map[string]bool{},
		Recent:  map[string]bool{},
	})
	assert.False(t, ok)
}

func TestSelect_TieBreakPrefersNonRecent(t *testing.T) {
	cfg := config.Default()
	current := mkNode("cur", vector.New(0, 0, 0, 0), node.RoleDefault, 10, 1)
	// Two near-identical candidates (same position, same state) tie exactly.
	a := mkNode("a", vector.New(1, 0, 0, 0), node.RoleDefault, 10, 1)
	b := mkNode("b", vector.New(1, 0, 0, 0), node.RoleDefault, 10, 1)
	node.Link(current, a)
	node.Link(current, b)

	got, ok := Select(cfg.Scoring, cfg.Cache, Input{
		Current: current,
		Target:  vector.New(1, 0, 0, 0),
		Visited: map[string]bool{},
		Recent:  map[string]bool{"a": true},
	})
	require.True(t, ok)
	assert.Equal(t, "b", got.ID(), "tie-break should avoid the recently-used candidate")
}

func TestSelect_TieBreakFallsBackToTopWhenAllRecent(t *testing.T) {
	cfg := config.Default()
	current := mkNode("cur", vector.New(0, 0, 0, 0), node.RoleDefault, 10, 1)
	a := mkNode("a", vector.New(1, 0, 0, 0), node.RoleDefault, 10, 1)
	node.Link(current, a)

	got, ok := Select(cfg.Scoring, cfg.Cache, Input{
		Current: current,
		Target:  vector.New(1, 0, 0, 0),
		Visited: map[string]bool{},
		Recent:  map[string]bool{"a": true},
	})
	require.True(t, ok)
	assert.Equal(t, "a", got.ID())
}

func TestSelect_CacheFastPath(t *testing.T) {
	cfg := config.Default()
	current := mkNode("cur", vector.New(0, 0, 0, 0), node.RoleDefault, 10, 1)
	best := mkNode("best", vector.New(1, 0, 0, 0), node.RoleDefault, 10, 1)
	other := mkNode("other", vector.New(0.9, 0, 0, 0), node.RoleDefault, 10, 1)
	node.Link(current, best)
	node.Link(current, other)

	target := vector.New(1, 0, 0, 0)
	key := vector.RoundedKey(target, cfg.Cache.RoundingDecimals)
	current.CacheStore(key, "other") // force a cache hit toward the non-optimal candidate

	got, ok := Select(cfg.Scoring, cfg.Cache, Input{
		Current: current,
		Target:  target,
		Visited: map[string]bool{},
		Recent:  map[string]bool{},
	})
	require.True(t, ok)
	assert.Equal(t, "other", got.ID(), "a valid cache entry should be used even though it is not top-scoring")
}

func TestSelect_CacheFastPathSkipsInvalidEntry(t *testing.T) {
	cfg := config.Default()
	current := mkNode("cur", vector.New(0, 0, 0, 0), node.RoleDefault, 10, 1)
	best := mkNode("best", vector.New(1, 0, 0, 0), node.RoleDefault, 10, 1)
	deadCached := mkNode("deadCached", vector.New(1, 0, 0, 0), node.RoleDefault, 10, 1)
	node.Link(current, best)
	node.Link(current, deadCached)
	deadCached.Fail()

	target := vector.New(1, 0, 0, 0)
	key := vector.RoundedKey(target, cfg.Cache.RoundingDecimals)
	current.CacheStore(key, "deadCached")

	got, ok := Select(cfg.Scoring, cfg.Cache, Input{
		Current: current,
		Target:  target,
		Visited: map[string]bool{},
		Recent:  map[string]bool{},
	})
	require.True(t, ok)
	assert.Equal(t, "best", got.ID(), "a stale cache entry must fall through to normal scoring")
}
