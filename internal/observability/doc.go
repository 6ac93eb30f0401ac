// Package observability implements the routing engine's sink: bounded
// ring buffers for decisions, reroutes, and security blocks, a running
// failures log, and the aggregate counters spec §4.10 requires, plus a
// Prometheus export of the same counters for operators running
// `avrsctl serve-metrics`.
package observability
