// Package topology builds and maintains the neighbor graph over a set of
// node positions: K-nearest-neighbors, Delaunay tessellation, their union
// ("hybrid"), and the incremental insert/remove/heal/rebuild mutations
// that keep the graph connected as nodes come and go.
//
// See spec §4.2 for the construction modes, fallback rules, and structural
// invariants this package is responsible for.
package topology
