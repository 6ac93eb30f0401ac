// Package config loads and validates the routing engine's tunable
// parameters — scoring weights, termination threshold, hop cap, topology
// mode/k, trust deltas and thresholds, health monitor intervals, face
// routing step budget, and cache sizing — from an optional YAML file, with
// documented defaults matching the published contract in spec §3/§4/§6.
//
// Precedence, highest first: environment variables (AVRS_MAX_HOPS,
// AVRS_TOPOLOGY_MODE, AVRS_TOPOLOGY_K, AVRS_TOPOLOGY_DIMENSIONS,
// AVRS_MONITOR_POLL_INTERVAL, AVRS_MONITOR_MAX_FAILURES,
// AVRS_ROUTE_CEILING), then the YAML file (if one is loaded), then the
// built-in defaults in Default(). This mirrors the teacher's
// env-var-over-default pattern in cmd/coordinator/main.go's getenv, applied
// to a reusable Config type instead of scattered getenv calls.
package config
