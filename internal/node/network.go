package node

import (
	"fmt"
	"sort"
	"sync"
)

// Network is a collection of Nodes plus an id→node index. The graph is
// undirected and edge-symmetric by construction: every mutation goes
// through Link/Unlink below, which update both endpoints together.
//
// Network itself only owns the identity index; adjacency lives on the
// Nodes. Structural mutation (insert/remove/heal/rebuild) is the
// responsibility of package topology, which serializes its structural
// entry points with its own mutex — see topology.Builder. Network's lock
// guards only the identity index.
type Network struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	order []string // insertion order, for deterministic iteration in tests/CLI
}

// NewNetwork returns an empty Network.
func NewNetwork() *Network {
	return &Network{nodes: make(map[string]*Node)}
}

// Add registers n in the network's identity index. Returns an error if a
// node with the same id is already present.
func (net *Network) Add(n *Node) error {
	net.mu.Lock()
	defer net.mu.Unlock()
	if _, exists := net.nodes[n.id]; exists {
		return fmt.Errorf("node: duplicate id %q", n.id)
	}
	net.nodes[n.id] = n
	net.order = append(net.order, n.id)
	return nil
}

// Get returns the node with the given id, or (nil, false) if unknown.
func (net *Network) Get(id string) (*Node, bool) {
	net.mu.RLock()
	defer net.mu.RUnlock()
	n, ok := net.nodes[id]
	return n, ok
}

// MustGet returns the node with the given id, or panics. Reserved for
// callers (tests, CLI) that have already validated the id exists; routing
// code must use Get and handle the unknown-id case explicitly.
func (net *Network) MustGet(id string) *Node {
	n, ok := net.Get(id)
	if !ok {
		panic(fmt.Sprintf("node: unknown id %q", id))
	}
	return n
}

// All returns every node in the network, in insertion order.
func (net *Network) All() []*Node {
	net.mu.RLock()
	defer net.mu.RUnlock()
	out := make([]*Node, 0, len(net.order))
	for _, id := range net.order {
		out = append(out, net.nodes[id])
	}
	return out
}

// AliveNodes returns every currently-alive node, in insertion order.
func (net *Network) AliveNodes() []*Node {
	all := net.All()
	out := all[:0:0]
	for _, n := range all {
		if n.Alive() {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the total number of nodes registered in the network,
// including failed ones (failure never removes a node, per spec: "failure
// does not remove edges, only blocks traversal").
func (net *Network) Len() int {
	net.mu.RLock()
	defer net.mu.RUnlock()
	return len(net.nodes)
}

// NodesByRole returns every node (alive or not) whose role matches the
// given role exactly.
func (net *Network) NodesByRole(role Role) []*Node {
	all := net.All()
	out := all[:0:0]
	for _, n := range all {
		if n.Role() == role {
			out = append(out, n)
		}
	}
	return out
}

// HasAliveRole reports whether at least one alive node carries the given
// role. This is the primitive behind the section-boundary rule (spec §4.7,
// §7 SectionEmpty): a required role with zero alive carriers must fail the
// route before any hop is attempted.
func (net *Network) HasAliveRole(role Role) bool {
	for _, n := range net.NodesByRole(role) {
		if n.Alive() {
			return true
		}
	}
	return false
}

// Link makes a and b mutual neighbors. A no-op if a == b. Idempotent.
func Link(a, b *Node) {
	if a.id == b.id {
		return
	}
	a.addNeighbor(b)
	b.addNeighbor(a)
}

// Unlink removes any edge between a and b. A no-op if no edge existed.
func Unlink(a, b *Node) {
	a.removeNeighbor(b.id)
	b.removeNeighbor(a.id)
}

// AreLinked reports whether a and b are currently adjacent. Symmetric by
// construction, so checking either direction suffices, but this checks
// both as a cheap self-consistency assertion surface for tests.
func AreLinked(a, b *Node) bool {
	return a.hasNeighbor(b.id) && b.hasNeighbor(a.id)
}

// CheckSymmetry verifies invariant 9 from spec §8: after any topology
// mutation, b ∈ neighbors(a) ⇔ a ∈ neighbors(b), for every pair of nodes in
// the network. Returns the list of asymmetric pairs found (empty slice
// means the invariant holds).
func CheckSymmetry(net *Network) []string {
	var violations []string
	all := net.All()
	for _, a := range all {
		for _, b := range a.Neighbors() {
			if !b.hasNeighbor(a.id) {
				violations = append(violations, fmt.Sprintf("%s->%s missing reverse edge", a.id, b.id))
			}
		}
	}
	sort.Strings(violations)
	return violations
}
