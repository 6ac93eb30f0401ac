package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/routing"
	"github.com/vectormesh/avrs/internal/vector"
)

func gridSpecs(n int) []NodeSpec {
	specs := make([]NodeSpec, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			specs = append(specs, NodeSpec{
				ID:       vectorID(i, j),
				Position: vector.New(float64(i), float64(j)),
				Role:     node.RoleDefault,
				Capacity: 10,
				Trust:    0.8,
				Latency:  5,
			})
		}
	}
	return specs
}

func vectorID(i, j int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return string(letters[i]) + string(letters[j])
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Topology.Mode = config.TopologyKNN
	cfg.Topology.K = 2
	e := New(cfg, nil, nil, zerolog.Nop())
	require.NoError(t, e.BuildNetwork(gridSpecs(4)))
	return e
}

func TestEngine_BuildNetworkConnectsAllNodes(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, 16, e.Network.Len())
	for _, n := range e.Network.All() {
		assert.Greater(t, n.Degree(), 0, "node %s should have neighbors", n.ID())
	}
}

func TestEngine_RouteReachesTarget(t *testing.T) {
	e := newTestEngine(t)
	target := vector.New(3, 3)
	res, err := e.Route(context.Background(), "aa", routing.Request{Target: target})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Path)
	assert.Contains(t, []routing.Status{routing.StatusSucceeded, routing.StatusExhausted, routing.StatusFailed}, res.Status)
}

func TestEngine_RouteUnknownStartErrors(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Route(context.Background(), "zz-does-not-exist", routing.Request{Target: vector.New(0, 0)})
	assert.Error(t, err)
}

func TestEngine_FailMarksNodeDeadAndHeals(t *testing.T) {
	e := newTestEngine(t)
	victim, ok := e.Network.Get("bb")
	require.True(t, ok)

	require.NoError(t, e.Fail("bb"))
	assert.False(t, victim.Alive())
}

func TestEngine_RecoverRestoresAliveness(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Fail("cc"))
	require.NoError(t, e.Recover("cc"))

	n, ok := e.Network.Get("cc")
	require.True(t, ok)
	assert.True(t, n.Alive())
}

func TestEngine_SetTrustClamps(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SetTrust("aa", 5))

	n, ok := e.Network.Get("aa")
	require.True(t, ok)
	assert.Equal(t, 1.0, n.Metrics().Trust)
}

func TestEngine_InsertAttachesNewNode(t *testing.T) {
	e := newTestEngine(t)
	err := e.Insert(NodeSpec{ID: "new1", Position: vector.New(0.5, 0.5), Capacity: 10, Trust: 0.8})
	require.NoError(t, err)

	n, ok := e.Network.Get("new1")
	require.True(t, ok)
	assert.Greater(t, n.Degree(), 0)
}

func TestEngine_RemoveMarksDeadWithoutDeleting(t *testing.T) {
	e := newTestEngine(t)
	before := e.Network.Len()
	require.NoError(t, e.Remove("dd"))

	assert.Equal(t, before, e.Network.Len())
	n, ok := e.Network.Get("dd")
	require.True(t, ok)
	assert.False(t, n.Alive())
}

func TestEngine_RebuildReconnectsGraph(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Rebuild())

	for _, n := range e.Network.AliveNodes() {
		assert.Greater(t, n.Degree(), 0, "node %s should be reconnected", n.ID())
	}
}

func TestEngine_ObserveWithoutSinkReturnsZeroSummary(t *testing.T) {
	e := New(config.Default(), nil, nil, zerolog.Nop())
	require.NoError(t, e.BuildNetwork(gridSpecs(3)))

	_, err := e.Route(context.Background(), "aa", routing.Request{Target: vector.New(2, 2)})
	require.NoError(t, err)

	// No sink wired: Observe must degrade gracefully, never panic.
	assert.Zero(t, e.Observe().TotalRequests)
}

func TestEngine_RouteClassifiesRoleFromRequestText(t *testing.T) {
	e := newTestEngine(t)
	req := routing.Request{Target: vector.New(1, 1), RequestText: "please authenticate this login session"}
	res, err := e.Route(context.Background(), "aa", req)
	require.NoError(t, err)
	// The text classifies as "auth"; every grid node has the default role,
	// so the derived role has no alive carrier and the section rule fires.
	assert.Equal(t, routing.StatusSectionFailed, res.Status)
}

func TestEngine_StartAndStopHealthMonitorIsClean(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	e.StartHealthMonitor(ctx)
	time.Sleep(5 * time.Millisecond)
	cancel()
	e.Health.Stop()
}
