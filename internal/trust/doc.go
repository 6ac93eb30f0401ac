// Package trust implements the trust controller: the component that
// observes per-hop outcomes (success, fast, failure, error, slow) and
// applies bounded deltas to a node's trust score.
//
// See spec §4.8 for the delta table and clamping rule this package
// implements.
package trust
