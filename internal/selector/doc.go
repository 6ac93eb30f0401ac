// Package selector implements next-hop selection: filtering candidate
// neighbors by liveness, role, capacity, and visited status, scoring the
// survivors, and applying the load-balancing tie-break and route-cache
// fast-path described in spec §4.4.
package selector
