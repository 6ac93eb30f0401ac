package node

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/vectormesh/avrs/internal/vector"
)

// DefaultMaxCacheEntries bounds the per-node route cache. The cache is a
// hint, not a source of truth (spec: "validity is re-checked on use"), so a
// small bound keeps eviction cheap and the hint useful for hot targets
// without ever growing unbounded.
const DefaultMaxCacheEntries = 64

// Metrics is an immutable snapshot of a node's routing-visible state,
// returned by Node.Metrics. Selector, scorer, and
// observability code operate only on Metrics values, never on a live Node,
// so that one routing step always sees one consistent view of a node even
// while other goroutines mutate it concurrently.
type Metrics struct {
	Position      vector.Vector
	Role          Role
	NeighborIDs   []string
	ID            string
	Load          float64
	Capacity      float64
	Trust         float64
	LatencyMillis float64
	Alive         bool
}

// HasCapacity reports whether the node can accept one more hop, per the
// mandatory capacity filter: a node with load >= capacity is excluded.
func (m Metrics) HasCapacity() bool {
	return m.Load < m.Capacity
}

// Node is a single point in the routing vector space: a fixed identity and
// position, a semantic role, and mutable runtime state mutated by the
// executor, trust controller, and health monitor.
//
// Thread safety: every exported method is safe for concurrent use. All
// mutable fields are guarded by mu; Metrics takes the lock once and
// returns a copy, so callers never hold Node's lock across an I/O call.
type Node struct {
	id       string
	position vector.Vector
	role     Role

	mu          sync.RWMutex
	neighbors   map[string]*Node
	load        float64
	capacity    float64
	trust       float64
	latencyMs   float64
	alive       bool
	cache       map[string]string // rounded target key -> neighbor id
	cacheOrder  []string          // FIFO eviction order
	maxCache    int
	failStreak  int // consecutive health-probe failures; owned by health monitor
}

// Config carries the immutable construction parameters for a Node.
type Config struct {
	ID       string
	Position vector.Vector
	Role     Role
	Capacity float64
	Trust    float64
	Latency  float64
}

// New constructs a Node, alive by default, with an empty adjacency set and
// route cache. Trust is clamped into [0, 1]; a zero Capacity is replaced
// with +Inf-free default of 1 to avoid an immediately-saturated node
// (capacity <= 0 would make HasCapacity always false).
func New(cfg Config) *Node {
	trust := cfg.Trust
	if trust < 0 {
		trust = 0
	} else if trust > 1 {
		trust = 1
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 1
	}
	role := cfg.Role
	if role == "" {
		role = RoleDefault
	}
	return &Node{
		id:        cfg.ID,
		position:  cfg.Position.Clone(),
		role:      role,
		neighbors: make(map[string]*Node),
		capacity:  capacity,
		trust:     trust,
		latencyMs: cfg.Latency,
		alive:     true,
		cache:     make(map[string]string),
		maxCache:  DefaultMaxCacheEntries,
	}
}

// ID returns the node's identifier. Immutable after construction.
func (n *Node) ID() string { return n.id }

// Position returns the node's fixed position vector. Immutable after
// construction; callers receive a clone so they cannot mutate the node's
// internal state through the returned slice.
func (n *Node) Position() vector.Vector { return n.position.Clone() }

// Role returns the node's semantic role. Immutable after construction.
func (n *Node) Role() Role { return n.role }

// Metrics returns a point-in-time, lock-consistent snapshot of the node's
// routing-visible state. This is the only way routing code should observe
// a Node's mutable fields.
func (n *Node) Metrics() Metrics {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]string, 0, len(n.neighbors))
	for id := range n.neighbors {
		ids = append(ids, id)
	}
	slices.Sort(ids) // deterministic snapshot: map iteration order is not
	return Metrics{
		ID:            n.id,
		Position:      n.position.Clone(),
		Role:          n.role,
		NeighborIDs:   ids,
		Load:          n.load,
		Capacity:      n.capacity,
		Trust:         n.trust,
		LatencyMillis: n.latencyMs,
		Alive:         n.alive,
	}
}

// IncrementLoad adds amount to the node's load counter. Called only by the
// route executor, on the node just departed from, once per hop. Load is
// monotonically non-decreasing during a request; only ResetLoad decreases
// it, and that is an operator action between requests.
func (n *Node) IncrementLoad(amount float64) {
	n.mu.Lock()
	n.load += amount
	n.mu.Unlock()
}

// ResetLoad zeroes the node's load counter. An operator action, never
// called mid-route.
func (n *Node) ResetLoad() {
	n.mu.Lock()
	n.load = 0
	n.mu.Unlock()
}

// SetTrust overwrites the node's trust score, clamped into [0, 1]. Used by
// the trust controller and by administrative SetTrust calls.
func (n *Node) SetTrust(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	n.mu.Lock()
	n.trust = v
	n.mu.Unlock()
}

// AdjustTrust applies a bounded delta to the node's trust score, clamping
// the result into [0, 1]. This is the primitive the trust controller uses
// for every per-hop outcome.
func (n *Node) AdjustTrust(delta float64) {
	n.mu.Lock()
	v := n.trust + delta
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	n.trust = v
	n.mu.Unlock()
}

// SetLatency overwrites the node's latency estimate, in milliseconds.
// Called by the health monitor as a slow-moving metric.
func (n *Node) SetLatency(ms float64) {
	n.mu.Lock()
	n.latencyMs = ms
	n.mu.Unlock()
}

// Fail marks the node dead: it will never again be chosen by the selector.
// Edges are not removed — only traversal is blocked — so that recovery or
// healing can see the prior topology.
func (n *Node) Fail() {
	n.mu.Lock()
	n.alive = false
	n.mu.Unlock()
}

// Recover marks the node alive again and clears its consecutive-failure
// streak.
func (n *Node) Recover() {
	n.mu.Lock()
	n.alive = true
	n.failStreak = 0
	n.mu.Unlock()
}

// Alive reports the node's current liveness.
func (n *Node) Alive() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.alive
}

// RecordProbeFailure increments the node's consecutive health-probe failure
// streak and returns the new count. Owned exclusively by the health
// monitor; routing code never calls this.
func (n *Node) RecordProbeFailure() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failStreak++
	return n.failStreak
}

// RecordProbeSuccess clears the node's consecutive health-probe failure
// streak. Owned exclusively by the health monitor.
func (n *Node) RecordProbeSuccess() {
	n.mu.Lock()
	n.failStreak = 0
	n.mu.Unlock()
}

// addNeighbor links neighbor into this node's adjacency set. Idempotent and
// excludes self-loops. Exported only within the node package; topology is
// the sole caller responsible for maintaining edge symmetry.
func (n *Node) addNeighbor(other *Node) {
	if other.id == n.id {
		return
	}
	n.mu.Lock()
	n.neighbors[other.id] = other
	n.mu.Unlock()
}

// removeNeighbor unlinks neighbor from this node's adjacency set.
func (n *Node) removeNeighbor(id string) {
	n.mu.Lock()
	delete(n.neighbors, id)
	n.mu.Unlock()
}

// hasNeighbor reports whether id is currently adjacent to n.
func (n *Node) hasNeighbor(id string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.neighbors[id]
	return ok
}

// Neighbors returns a snapshot slice of all adjacent nodes, alive or not.
func (n *Node) Neighbors() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, 0, len(n.neighbors))
	for _, nb := range n.neighbors {
		out = append(out, nb)
	}
	return out
}

// AliveNeighbors returns a snapshot slice of adjacent nodes currently
// marked alive.
func (n *Node) AliveNeighbors() []*Node {
	n.mu.RLock()
	neighbors := make([]*Node, 0, len(n.neighbors))
	for _, nb := range n.neighbors {
		neighbors = append(neighbors, nb)
	}
	n.mu.RUnlock()

	out := neighbors[:0:0]
	for _, nb := range neighbors {
		if nb.Alive() {
			out = append(out, nb)
		}
	}
	return out
}

// NeighborByID returns the adjacent node with the given id, if any.
func (n *Node) NeighborByID(id string) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	nb, ok := n.neighbors[id]
	return nb, ok
}

// Degree returns the number of adjacent nodes (alive or not).
func (n *Node) Degree() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.neighbors)
}

// CacheLookup consults the route cache for the given rounded target key,
// returning the cached next-hop id and whether an entry was present. The
// cache is a hint only — the caller (selector) must still validate the
// returned id before using it.
func (n *Node) CacheLookup(key string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	id, ok := n.cache[key]
	return id, ok
}

// CacheStore records a next-hop decision for a rounded target key,
// evicting the oldest entry when the cache is at capacity (bounded,
// best-effort — spec: "writes are best-effort; readers tolerate stale
// entries").
func (n *Node) CacheStore(key, nextHopID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.cache[key]; !exists {
		if len(n.cacheOrder) >= n.maxCache {
			oldest := n.cacheOrder[0]
			n.cacheOrder = n.cacheOrder[1:]
			delete(n.cache, oldest)
		}
		n.cacheOrder = append(n.cacheOrder, key)
	}
	n.cache[key] = nextHopID
}

// ClearCache empties the route cache. All §8 round-trip and boundary tests
// must pass whether or not the cache is populated; this method lets tests
// (and operators) disable the optimization entirely.
func (n *Node) ClearCache() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cache = make(map[string]string)
	n.cacheOrder = nil
}
