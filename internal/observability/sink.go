package observability

import (
	"sync"
	"time"

	"github.com/vectormesh/avrs/internal/routing"
)

const (
	defaultRingCapacity    = 512
	loadSampleHistoryDepth = 100
)

// DecisionRecord captures one hop decision made by the route executor.
type DecisionRecord struct {
	RequestClientID string
	From            string
	To              string
	Kind            routing.HopKind
	At              time.Time
}

// RerouteRecord captures one reroute (face-routing fallback or mid-route
// self-heal) taken by the route executor.
type RerouteRecord struct {
	RequestClientID string
	At              string
	Time            time.Time
}

// SecurityBlockRecord captures one request rejected before routing began
// (e.g. a malformed request, an unauthorized client) — wired in for
// parity with spec §4.10's three ring buffers even though the routing
// core itself never produces one; callers (engine, a future gateway
// collaborator) record into it directly via RecordSecurityBlock.
type SecurityBlockRecord struct {
	ClientID string
	Reason   string
	Time     time.Time
}

// FailureRecord captures one completed-but-unsuccessful route.
type FailureRecord struct {
	RequestClientID string
	Code            routing.FailureCode
	Reason          string
	Time            time.Time
}

// nodeCounters holds the per-node aggregates spec §4.10 requires.
type nodeCounters struct {
	requests int64
	success  int64
	failures int64
	loads    *ring[float64]
}

// Sink implements routing.Observer and accumulates the bounded buffers and
// rollup counters spec §4.10 describes. A Sink is safe for concurrent use
// by multiple route executors and the health monitor.
type Sink struct {
	decisions      *ring[DecisionRecord]
	reroutes       *ring[RerouteRecord]
	securityBlocks *ring[SecurityBlockRecord]
	failures       *ring[FailureRecord]

	mu            sync.Mutex
	totalRequests int64
	successCount  int64
	totalHops     int64
	totalReroutes int64
	perNode       map[string]*nodeCounters

	prom *promMetrics
}

// NewSink returns an empty Sink with default ring capacities, with its
// counters also exported via Prometheus collectors registered on metrics
// (pass nil to skip Prometheus export entirely, e.g. in unit tests that
// don't care about it).
func NewSink(metrics *promMetrics) *Sink {
	return &Sink{
		decisions:      newRing[DecisionRecord](defaultRingCapacity),
		reroutes:       newRing[RerouteRecord](defaultRingCapacity),
		securityBlocks: newRing[SecurityBlockRecord](defaultRingCapacity),
		failures:       newRing[FailureRecord](defaultRingCapacity),
		perNode:        make(map[string]*nodeCounters),
		prom:           metrics,
	}
}

func (s *Sink) nodeCounters(id string) *nodeCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	nc, ok := s.perNode[id]
	if !ok {
		nc = &nodeCounters{loads: newRing[float64](loadSampleHistoryDepth)}
		s.perNode[id] = nc
	}
	return nc
}

// RecordHop implements routing.Observer: called once per hop as the
// executor takes it.
func (s *Sink) RecordHop(req routing.Request, hop routing.HopRecord) {
	s.decisions.push(DecisionRecord{
		RequestClientID: req.ClientID,
		From:            hop.From,
		To:              hop.To,
		Kind:            hop.Kind,
		At:              time.Now(),
	})
	nc := s.nodeCounters(hop.From)
	s.mu.Lock()
	nc.requests++
	s.mu.Unlock()
	nc.loads.push(hop.DistanceAfter)
	if s.prom != nil {
		s.prom.hopsTotal.WithLabelValues(string(hop.Kind)).Inc()
	}
}

// RecordReroute implements routing.Observer: called whenever the executor
// falls back to face routing or self-heals around a mid-route failure.
func (s *Sink) RecordReroute(req routing.Request, at string) {
	s.reroutes.push(RerouteRecord{RequestClientID: req.ClientID, At: at, Time: time.Now()})
	s.mu.Lock()
	s.totalReroutes++
	s.mu.Unlock()
	if s.prom != nil {
		s.prom.reroutesTotal.Inc()
	}
}

// RecordSecurityBlock records a request rejected before any hop was
// attempted, for a future gateway collaborator (out of this core's
// scope, per spec.md's own Non-goals) to drive.
func (s *Sink) RecordSecurityBlock(clientID, reason string) {
	s.securityBlocks.push(SecurityBlockRecord{ClientID: clientID, Reason: reason, Time: time.Now()})
	if s.prom != nil {
		s.prom.securityBlocksTotal.Inc()
	}
}

// RecordRouteCompletion updates the aggregate and per-node counters once a
// route reaches a terminal state, and files a FailureRecord for anything
// other than success.
func (s *Sink) RecordRouteCompletion(req routing.Request, res routing.Result) {
	s.mu.Lock()
	s.totalRequests++
	s.totalHops += int64(res.TotalHops)
	if res.Success() {
		s.successCount++
	}
	s.mu.Unlock()

	if len(res.Path) > 0 {
		last := res.Path[len(res.Path)-1]
		nc := s.nodeCounters(last)
		s.mu.Lock()
		if res.Success() {
			nc.success++
		} else {
			nc.failures++
		}
		s.mu.Unlock()
	}

	if !res.Success() {
		s.failures.push(FailureRecord{
			RequestClientID: req.ClientID,
			Code:            res.FailureCode,
			Reason:          res.TerminalReason,
			Time:            time.Now(),
		})
	}

	if s.prom != nil {
		s.prom.requestsTotal.Inc()
		s.prom.hopsPerRoute.Observe(float64(res.TotalHops))
		if res.Success() {
			s.prom.successTotal.Inc()
		} else {
			s.prom.failuresTotal.WithLabelValues(string(res.FailureCode)).Inc()
		}
	}
}

// Decisions returns a snapshot of the decision ring buffer, oldest first.
func (s *Sink) Decisions() []DecisionRecord { return s.decisions.snapshot() }

// Reroutes returns a snapshot of the reroute ring buffer, oldest first.
func (s *Sink) Reroutes() []RerouteRecord { return s.reroutes.snapshot() }

// SecurityBlocks returns a snapshot of the security-block ring buffer,
// oldest first.
func (s *Sink) SecurityBlocks() []SecurityBlockRecord { return s.securityBlocks.snapshot() }

// Failures returns a snapshot of the failures log, oldest first.
func (s *Sink) Failures() []FailureRecord { return s.failures.snapshot() }

// Summary is the aggregate rollup spec §4.10 calls summary(): totals,
// averages, and a per-node breakdown.
type Summary struct {
	TotalRequests int64
	SuccessCount  int64
	SuccessRate   float64
	TotalHops     int64
	AverageHops   float64
	TotalReroutes int64
	PerNode       map[string]NodeSummary
}

// NodeSummary is one node's contribution to a Summary.
type NodeSummary struct {
	Requests          int64
	Successes         int64
	Failures          int64
	RecentLoads       []float64
	AverageRecentLoad float64
}

// Summary computes the current rollup. Safe to call concurrently with
// ongoing writes; it takes a point-in-time snapshot.
func (s *Sink) Summary() Summary {
	s.mu.Lock()
	totalRequests := s.totalRequests
	successCount := s.successCount
	totalHops := s.totalHops
	totalReroutes := s.totalReroutes
	nodeIDs := make([]string, 0, len(s.perNode))
	for id := range s.perNode {
		nodeIDs = append(nodeIDs, id)
	}
	s.mu.Unlock()

	sum := Summary{
		TotalRequests: totalRequests,
		SuccessCount:  successCount,
		TotalHops:     totalHops,
		TotalReroutes: totalReroutes,
		PerNode:       make(map[string]NodeSummary, len(nodeIDs)),
	}
	if totalRequests > 0 {
		sum.SuccessRate = float64(successCount) / float64(totalRequests)
		sum.AverageHops = float64(totalHops) / float64(totalRequests)
	}

	for _, id := range nodeIDs {
		nc := s.nodeCounters(id)
		s.mu.Lock()
		ns := NodeSummary{Requests: nc.requests, Successes: nc.success, Failures: nc.failures}
		s.mu.Unlock()
		ns.RecentLoads = nc.loads.snapshot()
		if len(ns.RecentLoads) > 0 {
			total := 0.0
			for _, v := range ns.RecentLoads {
				total += v
			}
			ns.AverageRecentLoad = total / float64(len(ns.RecentLoads))
		}
		sum.PerNode[id] = ns
	}
	return sum
}
