// Package health implements the health monitor: a periodic background
// task that probes node liveness and flips the Alive/Failed state machine
// after a consecutive-failure threshold, per spec §4.9.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
)

// NodeProbe issues one liveness check against a node. The default
// implementation in this package is an in-process stand-in (the engine
// never talks to real remote nodes); a deployment wiring a real transport
// implements the same interface.
type NodeProbe interface {
	Health(ctx context.Context, n *node.Node) error
}

// ProbeFunc adapts a plain function to NodeProbe.
type ProbeFunc func(ctx context.Context, n *node.Node) error

// Health calls f.
func (f ProbeFunc) Health(ctx context.Context, n *node.Node) error { return f(ctx, n) }

// AlwaysHealthy is the default NodeProbe: a node already marked dead fails
// the probe (so a manually-failed node is never silently resurrected by a
// monitor tick that runs before anything else observes the failure);
// every other node passes. Simulation-driven tests install their own
// ProbeFunc to inject failures deterministically.
var AlwaysHealthy NodeProbe = ProbeFunc(func(_ context.Context, n *node.Node) error {
	if !n.Alive() {
		return errProbeOfDeadNode
	}
	return nil
})

var errProbeOfDeadNode = &probeError{"health: probe target already marked dead"}

type probeError struct{ msg string }

func (e *probeError) Error() string { return e.msg }

// Monitor periodically probes every node in a network and drives the
// Alive/Failed state machine, per spec §4.9. It never blocks the routing
// plane: each tick's probes run sequentially against the configured
// timeout, and Monitor only ever touches a node's alive flag and failure
// counter, both already guarded by the node's own per-node mutex.
type Monitor struct {
	net   *node.Network
	cfg   config.Monitor
	probe NodeProbe
	log   zerolog.Logger

	onStatusChange func(n *node.Node, alive bool)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor returns a Monitor over net using cfg's polling parameters. A
// nil probe defaults to AlwaysHealthy.
func NewMonitor(net *node.Network, cfg config.Monitor, probe NodeProbe, log zerolog.Logger) *Monitor {
	if probe == nil {
		probe = AlwaysHealthy
	}
	return &Monitor{net: net, cfg: cfg, probe: probe, log: log}
}

// OnStatusChange registers a callback invoked whenever a node's liveness
// flips, in either direction. Typically wired to the observability sink
// and to package topology's HealAround.
func (m *Monitor) OnStatusChange(fn func(n *node.Node, alive bool)) {
	m.onStatusChange = fn
}

// Start begins polling in a background goroutine and returns immediately.
// Stop must be called to release it.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.PollInterval)
		defer ticker.Stop()

		m.checkAll(ctx)
		for {
			select {
			case <-ticker.C:
				m.checkAll(ctx)
			case <-ctx.Done():
				m.log.Debug().Msg("health monitor stopping")
				return
			}
		}
	}()
}

// Stop cancels the polling loop and waits for the current tick to finish.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// checkAll probes every node currently registered in the network, alive
// or not — a dead node must keep being probed so it can recover.
func (m *Monitor) checkAll(ctx context.Context) {
	for _, n := range m.net.All() {
		m.checkNode(ctx, n)
	}
}

func (m *Monitor) checkNode(ctx context.Context, n *node.Node) {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	err := m.probe.Health(probeCtx, n)

	if err != nil {
		fails := n.RecordProbeFailure()
		wasAlive := n.Alive()
		if fails >= m.cfg.MaxFailures && wasAlive {
			n.Fail()
			m.log.Warn().Str("node_id", n.ID()).Int("consecutive_fails", fails).Msg("health: node marked dead")
			m.notify(n, false)
		}
		return
	}

	wasAlive := n.Alive()
	n.RecordProbeSuccess()
	if !wasAlive {
		n.Recover()
		m.log.Info().Str("node_id", n.ID()).Msg("health: node recovered")
		m.notify(n, true)
	}
}

func (m *Monitor) notify(n *node.Node, alive bool) {
	if m.onStatusChange != nil {
		m.onStatusChange(n, alive)
	}
}
