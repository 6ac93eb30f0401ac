package routing

import (
	"time"

	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/vector"
)

// Status is the route-level state machine from spec §4.10.
type Status string

const (
	StatusRunning       Status = "running"
	StatusSucceeded     Status = "succeeded"
	StatusFailed        Status = "failed"
	StatusSectionFailed Status = "section_failed"
	StatusExhausted     Status = "exhausted"
	StatusCancelled     Status = "cancelled"
	StatusTimedOut      Status = "timed_out"
)

// FailureCode is the machine-readable error taxonomy from spec §7.
type FailureCode string

const (
	FailureNone                FailureCode = ""
	FailureNoNextHop           FailureCode = "no_next_hop"
	FailureFaceBudgetExhausted FailureCode = "face_budget_exhausted"
	FailureSectionEmpty        FailureCode = "section_empty"
	FailureNodeFailure         FailureCode = "node_failure"
	FailureMaxHopsExceeded     FailureCode = "max_hops_exceeded"
	FailureCancelled           FailureCode = "cancelled"
	FailureTimeout             FailureCode = "timeout"
)

// HopKind distinguishes how a hop was chosen, which matters for invariant 7
// (every greedy hop strictly decreases distance to target) — fallback and
// face hops are exempt from that check by construction.
type HopKind string

const (
	HopGreedy   HopKind = "greedy"
	HopFallback HopKind = "fallback"
	HopFace     HopKind = "face"
	HopHeal     HopKind = "heal"
)

// HopRecord captures one step of a route: which node was left, which was
// chosen next, how it was chosen, and the candidates considered.
type HopRecord struct {
	From           string
	To             string
	Kind           HopKind
	DistanceBefore float64
	DistanceAfter  float64
	CandidateCount int
}

// Request carries everything the executor needs to route one call, per
// spec §3's Request data model.
type Request struct {
	Target       vector.Vector
	RequiredRole node.Role
	ClientID     string
	RequestText  string
	Nonce        string
	Timestamp    time.Time
}

// Result is the immutable record of a completed (or abandoned) route, per
// spec §3's "Hop record / route result" and §4.10's route state machine.
type Result struct {
	Status         Status
	FailureCode    FailureCode
	TerminalReason string
	Path           []string
	Hops           []HopRecord
	TotalHops      int
	Reroutes       int
	SectionFailed  bool
	Elapsed        time.Duration
}

// Success reports whether the route ended in StatusSucceeded.
func (r Result) Success() bool { return r.Status == StatusSucceeded }
