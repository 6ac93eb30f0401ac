package node

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectormesh/avrs/internal/vector"
)

func newTestNode(id string, capacity float64) *Node {
	return New(Config{
		ID:       id,
		Position: vector.New(0, 0, 0, 0),
		Role:     RoleDefault,
		Capacity: capacity,
		Trust:    1.0,
	})
}

func TestNode_TrustClampedOnConstruction(t *testing.T) {
	n := New(Config{ID: "a", Position: vector.New(0, 0), Trust: 5})
	assert.Equal(t, 1.0, n.Metrics().Trust)

	n2 := New(Config{ID: "b", Position: vector.New(0, 0), Trust: -5})
	assert.Equal(t, 0.0, n2.Metrics().Trust)
}

func TestNode_ZeroCapacityDefaultsToOne(t *testing.T) {
	n := New(Config{ID: "a", Position: vector.New(0, 0)})
	assert.Equal(t, 1.0, n.Metrics().Capacity)
}

func TestNode_IncrementLoadAndCapacity(t *testing.T) {
	n := newTestNode("a", 2)
	assert.True(t, n.Metrics().HasCapacity())
	n.IncrementLoad(1)
	assert.True(t, n.Metrics().HasCapacity())
	n.IncrementLoad(1)
	assert.False(t, n.Metrics().HasCapacity(), "load == capacity must exclude the node")
	n.ResetLoad()
	assert.True(t, n.Metrics().HasCapacity())
}

func TestNode_AdjustTrustClamps(t *testing.T) {
	n := newTestNode("a", 1)
	n.SetTrust(0.1)
	n.AdjustTrust(-0.5)
	assert.Equal(t, 0.0, n.Metrics().Trust)
	n.AdjustTrust(5)
	assert.Equal(t, 1.0, n.Metrics().Trust)
}

func TestNode_FailRecover(t *testing.T) {
	n := newTestNode("a", 1)
	assert.True(t, n.Alive())
	n.Fail()
	assert.False(t, n.Alive())
	n.RecordProbeFailure()
	n.Recover()
	assert.True(t, n.Alive())
}

func TestLink_Symmetric(t *testing.T) {
	a, b := newTestNode("a", 1), newTestNode("b", 1)
	Link(a, b)
	assert.True(t, AreLinked(a, b))
	assert.Contains(t, a.Metrics().NeighborIDs, "b")
	assert.Contains(t, b.Metrics().NeighborIDs, "a")
}

func TestLink_NoSelfLoop(t *testing.T) {
	a := newTestNode("a", 1)
	Link(a, a)
	assert.Equal(t, 0, a.Degree())
}

func TestUnlink(t *testing.T) {
	a, b := newTestNode("a", 1), newTestNode("b", 1)
	Link(a, b)
	Unlink(a, b)
	assert.False(t, AreLinked(a, b))
}

func TestAliveNeighbors_ExcludesDead(t *testing.T) {
	a, b, c := newTestNode("a", 1), newTestNode("b", 1), newTestNode("c", 1)
	Link(a, b)
	Link(a, c)
	c.Fail()
	alive := a.AliveNeighbors()
	require.Len(t, alive, 1)
	assert.Equal(t, "b", alive[0].ID())
}

func TestCheckSymmetry_DetectsViolation(t *testing.T) {
	net := NewNetwork()
	a, b := newTestNode("a", 1), newTestNode("b", 1)
	require.NoError(t, net.Add(a))
	require.NoError(t, net.Add(b))
	Link(a, b)
	assert.Empty(t, CheckSymmetry(net))

	// Force an asymmetric edge to prove the checker catches it.
	a.addNeighbor(newTestNode("ghost", 1))
	assert.NotEmpty(t, CheckSymmetry(net))
}

func TestNetwork_HasAliveRole(t *testing.T) {
	net := NewNetwork()
	authNode := New(Config{ID: "auth-1", Position: vector.New(0, 0), Role: RoleAuth, Capacity: 1, Trust: 1})
	require.NoError(t, net.Add(authNode))
	assert.True(t, net.HasAliveRole(RoleAuth))
	authNode.Fail()
	assert.False(t, net.HasAliveRole(RoleAuth))
}

func TestCache_EvictsOldestBeyondCapacity(t *testing.T) {
	n := newTestNode("a", 1)
	n.maxCache = 2
	n.CacheStore("k1", "n1")
	n.CacheStore("k2", "n2")
	n.CacheStore("k3", "n3")
	_, ok := n.CacheLookup("k1")
	assert.False(t, ok, "oldest entry should have been evicted")
	v, ok := n.CacheLookup("k3")
	require.True(t, ok)
	assert.Equal(t, "n3", v)
}

func TestNode_ConcurrentLoadIncrements(t *testing.T) {
	n := newTestNode("a", 1000)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.IncrementLoad(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 100.0, n.Metrics().Load)
}
