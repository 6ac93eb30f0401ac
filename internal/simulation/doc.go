// Package simulation is the concurrent driver that exercises the routing
// engine under failure and load: it generates seeded random networks,
// fires many routing requests concurrently across a worker pool, and
// reports aggregate results — the in-process stand-in for a real fleet of
// clients hammering a live AVRS deployment.
package simulation
