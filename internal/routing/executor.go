package routing

import (
	"context"
	"time"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/selector"
	"github.com/vectormesh/avrs/internal/vector"
)

// Outcome classifies one hop's result for the trust controller and
// observability sink, per spec §4.8's per-hop notification contract.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFast    Outcome = "fast"
	OutcomeFailure Outcome = "failure"
	OutcomeError   Outcome = "error"
	OutcomeSlow    Outcome = "slow"
)

// TrustNotifier receives one outcome per hop taken. Implemented by package
// trust; kept as an interface here so routing does not import trust and
// trust can freely import routing's types.
type TrustNotifier interface {
	Notify(n *node.Node, outcome Outcome)
}

// Observer receives routing telemetry as it happens, so a long-running
// route's hops are visible to the observability sink before the route
// completes (or fails to). Implemented by package observability.
type Observer interface {
	RecordHop(req Request, hop HopRecord)
	RecordReroute(req Request, at string)
}

// noopNotifier and noopObserver let Executor be constructed without a
// trust controller or observer wired in yet (e.g. in package-local tests).
type noopNotifier struct{}

func (noopNotifier) Notify(*node.Node, Outcome) {}

type noopObserver struct{}

func (noopObserver) RecordHop(Request, HopRecord)  {}
func (noopObserver) RecordReroute(Request, string) {}

// Executor drives one request through a network: selecting hops,
// detecting termination, falling back to face routing, self-healing on
// mid-route failures, and recording the completed route. Per spec §4.7.
type Executor struct {
	Network  *node.Network
	Config   config.Config
	Trust    TrustNotifier
	Observer Observer

	// Probe, if set, is called once per hop to simulate or measure the
	// network call to the chosen next hop; it returns the outcome and the
	// elapsed time, used to drive trust adjustments. A nil Probe always
	// succeeds instantly, which is sufficient for pure topology/selection
	// tests that do not exercise trust.
	Probe func(from, to *node.Node) (Outcome, time.Duration)
}

// NewExecutor returns an Executor with no-op trust/observer hooks, ready
// for callers (typically package engine) to override Trust and Observer.
func NewExecutor(net *node.Network, cfg config.Config) *Executor {
	return &Executor{
		Network:  net,
		Config:   cfg,
		Trust:    noopNotifier{},
		Observer: noopObserver{},
	}
}

// Route drives req from start to termination or failure, per the eight
// steps of spec §4.7:
//  1. Reject before any hop if a required role has zero alive carriers
//     (the section-boundary rule).
//  2. Maintain a visited set across the whole route.
//  3. At each node, check the termination oracle first.
//  4. Otherwise ask the selector for the next hop.
//  5. If the selector has nothing, fall back to face routing.
//  6. If a node fails mid-route, self-heal by re-selecting from the last
//     good node rather than aborting.
//  7. Increment load, write the cache, and notify trust on every real hop.
//  8. Stop at MaxHops, at ctx cancellation, or at the configured wall-clock
//     ceiling, whichever comes first.
func (ex *Executor) Route(ctx context.Context, start *node.Node, req Request) Result {
	deadline := time.Now().Add(ex.Config.RouteCeiling)
	if ex.Config.RouteCeiling > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	if req.RequiredRole != "" && !ex.Network.HasAliveRole(req.RequiredRole) {
		return Result{
			Status:         StatusSectionFailed,
			FailureCode:    FailureSectionEmpty,
			TerminalReason: "no alive node carries required role " + string(req.RequiredRole),
			Path:           []string{start.ID()},
			SectionFailed:  true,
		}
	}

	startedAt := time.Now()
	visited := map[string]bool{start.ID(): true}
	recent := map[string]bool{}
	path := []string{start.ID()}
	var hops []HopRecord
	reroutes := 0

	current := start
	for hop := 0; hop < ex.Config.MaxHops; hop++ {
		select {
		case <-ctx.Done():
			status := StatusCancelled
			code := FailureCancelled
			if ctx.Err() == context.DeadlineExceeded {
				status = StatusTimedOut
				code = FailureTimeout
			}
			return Result{
				Status: status, FailureCode: code,
				TerminalReason: ctx.Err().Error(),
				Path:           path, Hops: hops,
				TotalHops: hop, Reroutes: reroutes,
				Elapsed: time.Since(startedAt),
			}
		default:
		}

		if !current.Alive() {
			// Step 3: current died out-of-band (e.g. the background health
			// monitor marked it dead while this route was in-flight).
			// Self-heal once by rescoring current's own neighbors, dropping
			// visited; abort if none remain.
			healed, ok := selector.Select(ex.Config.Scoring, ex.Config.Cache, selector.Input{
				Current:      current,
				Target:       req.Target,
				RequiredRole: req.RequiredRole,
				Visited:      visited,
				Recent:       recent,
			})
			if !ok {
				return Result{
					Status: StatusFailed, FailureCode: FailureNodeFailure,
					TerminalReason: "current node failed mid-route and no candidate remained to heal onto",
					Path:           path, Hops: hops,
					TotalHops: hop, Reroutes: reroutes,
					Elapsed: time.Since(startedAt),
				}
			}
			reroutes++
			ex.Observer.RecordReroute(req, current.ID())
			distBefore, _ := vector.EuclideanDistance(current.Position(), req.Target)
			distAfter, _ := vector.EuclideanDistance(healed.Position(), req.Target)
			hops = append(hops, HopRecord{
				From: current.ID(), To: healed.ID(), Kind: HopHeal,
				DistanceBefore: distBefore, DistanceAfter: distAfter,
				CandidateCount: len(current.AliveNeighbors()),
			})
			ex.Observer.RecordHop(req, hops[len(hops)-1])
			visited[healed.ID()] = true
			recent[current.ID()] = true
			path = append(path, healed.ID())
			current = healed
			continue
		}

		reached, err := Reached(ex.Config.Termination, current, req.Target)
		if err != nil {
			return Result{
				Status: StatusFailed, FailureCode: FailureNoNextHop,
				TerminalReason: err.Error(),
				Path:           path, Hops: hops,
				TotalHops: hop, Reroutes: reroutes,
				Elapsed: time.Since(startedAt),
			}
		}
		if reached {
			if req.RequiredRole != "" && !current.Role().Matches(req.RequiredRole) {
				// Geometrically terminal but role-mismatched: the section
				// exists elsewhere in the network but not reachable from
				// here without another hop; treat as ordinary exhaustion
				// rather than a section failure, since the role DOES have
				// alive carriers overall (checked above).
				return Result{
					Status: StatusFailed, FailureCode: FailureNoNextHop,
					TerminalReason: "reached a local optimum without satisfying required role",
					Path:           path, Hops: hops,
					TotalHops: hop, Reroutes: reroutes,
					Elapsed: time.Since(startedAt),
				}
			}
			return Result{
				Status: StatusSucceeded,
				Path:   path, Hops: hops,
				TotalHops: hop, Reroutes: reroutes,
				Elapsed: time.Since(startedAt),
			}
		}

		next, ok := selector.Select(ex.Config.Scoring, ex.Config.Cache, selector.Input{
			Current:      current,
			Target:       req.Target,
			RequiredRole: req.RequiredRole,
			Visited:      visited,
			Recent:       recent,
		})

		kind := HopGreedy
		if !ok {
			faceResult := FaceRoute(ex.Config.FaceRouting, current, req.Target)
			if !faceResult.Success {
				code := FailureNoNextHop
				if len(current.AliveNeighbors()) > 0 {
					code = FailureFaceBudgetExhausted
				}
				return Result{
					Status: StatusFailed, FailureCode: code,
					TerminalReason: "no eligible candidate and face routing did not escape",
					Path:           path, Hops: hops,
					TotalHops: hop, Reroutes: reroutes,
					Elapsed: time.Since(startedAt),
				}
			}
			next = faceResult.Resume
			kind = HopFace
			reroutes++
			ex.Observer.RecordReroute(req, current.ID())
			for _, id := range faceResult.Path[1:] {
				visited[id] = true
			}
		}

		distBefore, _ := vector.EuclideanDistance(current.Position(), req.Target)

		outcome, elapsed := ex.probe(current, next)
		if outcome == OutcomeFailure || outcome == OutcomeError {
			// Mid-route node failure: self-heal by marking next dead (the
			// probe already did, if it's a real health check) and
			// re-selecting from current rather than aborting the route.
			ex.Trust.Notify(next, outcome)
			next.Fail()
			reroutes++
			ex.Observer.RecordReroute(req, current.ID())
			continue
		}

		current.IncrementLoad(1)
		targetKey := vector.RoundedKey(req.Target, ex.Config.Cache.RoundingDecimals)
		current.CacheStore(targetKey, next.ID())
		ex.notifyTrust(next, outcome, elapsed)

		distAfter, _ := vector.EuclideanDistance(next.Position(), req.Target)

		hops = append(hops, HopRecord{
			From: current.ID(), To: next.ID(), Kind: kind,
			DistanceBefore: distBefore, DistanceAfter: distAfter,
			CandidateCount: len(current.AliveNeighbors()),
		})
		ex.Observer.RecordHop(req, hops[len(hops)-1])

		visited[next.ID()] = true
		recent[current.ID()] = true
		path = append(path, next.ID())
		current = next
	}

	return Result{
		Status: StatusExhausted, FailureCode: FailureMaxHopsExceeded,
		TerminalReason: "max hops exceeded",
		Path:           path, Hops: hops,
		TotalHops: ex.Config.MaxHops, Reroutes: reroutes,
		Elapsed: time.Since(startedAt),
	}
}

// probe runs the configured Probe. With none configured (pure
// topology/selection tests that do not exercise trust), every hop
// succeeds instantly.
func (ex *Executor) probe(from, to *node.Node) (Outcome, time.Duration) {
	if ex.Probe == nil {
		return OutcomeSuccess, 0
	}
	return ex.Probe(from, to)
}

// notifyTrust maps a successful probe's measured latency against the
// configured fast/slow thresholds onto the bonus/penalty notifications
// spec §4.8 expects, then records the latency on the hop's destination
// node. Only OutcomeSuccess is expected here; failures and errors are
// notified directly by the caller before the node is marked dead.
func (ex *Executor) notifyTrust(n *node.Node, outcome Outcome, elapsed time.Duration) {
	n.SetLatency(float64(elapsed.Milliseconds()))
	ex.Trust.Notify(n, outcome)
	if elapsed <= ex.Config.Trust.FastThreshold {
		ex.Trust.Notify(n, OutcomeFast)
	} else if elapsed >= ex.Config.Trust.SlowThreshold {
		ex.Trust.Notify(n, OutcomeSlow)
	}
}
