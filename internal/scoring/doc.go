// Package scoring implements the routing engine's weighted-scoring
// function: the published contract that maps (target, neighbor) to a
// scalar combining semantic similarity, trust, load, and latency. Higher
// is better. See spec §4.3.
package scoring
