// Package routing implements the route executor: the component that drives
// one request through the network, consulting the termination oracle and
// the selector each step, falling back to face routing around local
// minima, maintaining the visited set, and recording the completed route.
//
// See spec §4.5 (termination), §4.6 (face routing), §4.7 (executor), and
// §7 (error taxonomy) for the contract this package implements.
package routing
