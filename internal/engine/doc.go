// Package engine is the composition root: it wires node, topology,
// scoring, selector, routing, trust, health, and observability into the
// single "Routing core" surface spec.md §6 exposes — BuildNetwork, Route,
// Observe, Fail, Recover, SetTrust, Insert, Remove, Rebuild.
package engine
