// Package node implements the routing engine's Node and Network types: the
// identity, position, role, and mutable runtime state (load, trust,
// latency, liveness, adjacency, route cache) that every other subsystem —
// topology, scoring, selection, execution, trust, health — reads and
// mutates.
//
// # Concurrency model
//
// Each Node owns a single sync.RWMutex guarding every mutable field
// (load, trust, latency, alive, cache, failure counter). Routing code never
// reads these fields directly; it calls Node.Metrics to obtain an
// immutable Metrics copy taken atomically under the lock, so
// that a selector step always sees one consistent view of a node (per
// spec: "each selector step sees a consistent view of one node"). Structural
// adjacency changes (insert/remove/heal/rebuild) are serialized against
// each other by topology.Builder's own mutex; the Network's lock guards
// only its id index — see package topology.
package node
