package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vectormesh/avrs/internal/classify"
	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/health"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/observability"
	"github.com/vectormesh/avrs/internal/routing"
	"github.com/vectormesh/avrs/internal/topology"
	"github.com/vectormesh/avrs/internal/trust"
	"github.com/vectormesh/avrs/internal/vector"
)

// NodeSpec describes one node to place into a network via BuildNetwork or
// Insert.
type NodeSpec struct {
	ID       string
	Position vector.Vector
	Role     node.Role
	Capacity float64
	Trust    float64
	Latency  float64
}

// Engine is the routing core's exposed surface: everything spec.md §6's
// "Routing core (exposed)" bullet names, backed by the concrete
// subsystems in internal/node, internal/topology, internal/routing,
// internal/trust, internal/health, and internal/observability.
type Engine struct {
	Network *node.Network
	Config  config.Config
	Sink    *observability.Sink
	Trust   *trust.Controller
	Health  *health.Monitor

	builder  *topology.Builder
	executor *routing.Executor
	log      zerolog.Logger
}

// New constructs an Engine over an empty network. Call BuildNetwork to
// populate it. probe is passed to the health monitor; pass nil for the
// default in-process stand-in.
func New(cfg config.Config, probe health.NodeProbe, metrics *observability.Sink, log zerolog.Logger) *Engine {
	net := node.NewNetwork()
	trustCtl := trust.NewController(cfg.Trust)

	ex := routing.NewExecutor(net, cfg)
	ex.Trust = trustCtl
	if metrics != nil {
		ex.Observer = metrics
	}

	monitor := health.NewMonitor(net, cfg.Monitor, probe, log.With().Str("component", "health").Logger())

	e := &Engine{
		Network:  net,
		Config:   cfg,
		Sink:     metrics,
		Trust:    trustCtl,
		Health:   monitor,
		builder:  topology.NewBuilder(cfg.Topology, log.With().Str("component", "topology").Logger()),
		executor: ex,
		log:      log,
	}

	monitor.OnStatusChange(func(n *node.Node, alive bool) {
		if !alive {
			if err := e.builder.HealAround(n, cfg.Topology.K); err != nil {
				e.log.Warn().Err(err).Str("node_id", n.ID()).Msg("engine: heal-around failed")
			}
		}
	})

	return e
}

// BuildNetwork constructs a network from the given node specs and
// tessellates it per e.Config.Topology — spec §6's build_network.
func (e *Engine) BuildNetwork(specs []NodeSpec) error {
	for _, spec := range specs {
		n := node.New(node.Config{
			ID: spec.ID, Position: spec.Position, Role: spec.Role,
			Capacity: spec.Capacity, Trust: spec.Trust, Latency: spec.Latency,
		})
		if err := e.Network.Add(n); err != nil {
			return err
		}
	}
	return e.builder.Build(e.Network)
}

// Route runs req from startID to termination or failure — spec §6's
// route. If req.RequiredRole is empty and req.RequestText is not, the
// role is derived via internal/classify (spec §5.1).
func (e *Engine) Route(ctx context.Context, startID string, req routing.Request) (routing.Result, error) {
	start, ok := e.Network.Get(startID)
	if !ok {
		return routing.Result{}, fmt.Errorf("engine: unknown start node %q", startID)
	}
	if req.RequiredRole == "" && req.RequestText != "" {
		if role, ok := classify.Classify(req.RequestText); ok {
			req.RequiredRole = node.Role(role)
		}
	}

	res := e.executor.Route(ctx, start, req)
	if e.Sink != nil {
		e.Sink.RecordRouteCompletion(req, res)
	}
	return res, nil
}

// Observe returns the current observability rollup — spec §6's observe.
func (e *Engine) Observe() observability.Summary {
	if e.Sink == nil {
		return observability.Summary{}
	}
	return e.Sink.Summary()
}

// Fail marks a node dead by id — spec §6's consumed node-service contract,
// exposed here as an operator action.
func (e *Engine) Fail(id string) error {
	n, ok := e.Network.Get(id)
	if !ok {
		return fmt.Errorf("engine: unknown node %q", id)
	}
	n.Fail()
	if err := e.builder.HealAround(n, e.Config.Topology.K); err != nil {
		return err
	}
	return nil
}

// Recover marks a node alive by id.
func (e *Engine) Recover(id string) error {
	n, ok := e.Network.Get(id)
	if !ok {
		return fmt.Errorf("engine: unknown node %q", id)
	}
	n.Recover()
	return nil
}

// SetTrust overwrites a node's trust score by id, clamped into [0, 1].
func (e *Engine) SetTrust(id string, v float64) error {
	n, ok := e.Network.Get(id)
	if !ok {
		return fmt.Errorf("engine: unknown node %q", id)
	}
	n.SetTrust(v)
	return nil
}

// Insert attaches a new node to its k nearest alive neighbors — spec
// §4.2's insert mutation, exposed on the routing core.
func (e *Engine) Insert(spec NodeSpec) error {
	n := node.New(node.Config{
		ID: spec.ID, Position: spec.Position, Role: spec.Role,
		Capacity: spec.Capacity, Trust: spec.Trust, Latency: spec.Latency,
	})
	return e.builder.Insert(e.Network, n)
}

// Remove marks a node dead by id without deleting it from the network —
// spec §4.2's remove mutation ("mark alive=false; do not delete node").
func (e *Engine) Remove(id string) error {
	return e.Fail(id)
}

// Rebuild clears and reconstructs the graph from scratch over currently
// alive nodes — spec §4.2's rebuild mutation.
func (e *Engine) Rebuild() error {
	return e.builder.Rebuild(e.Network)
}

// StartHealthMonitor begins the background health-polling loop. Stop must
// be called (typically via a deferred e.Health.Stop()) to release it.
func (e *Engine) StartHealthMonitor(ctx context.Context) {
	e.Health.Start(ctx)
}
