package selector

import (
	"sort"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/scoring"
	"github.com/vectormesh/avrs/internal/vector"
)

// tieBreakMargin is the fraction of the top score within which a candidate
// is considered "near-equivalent" for load-balancing purposes (spec §4.4
// step 6: "within 5% of the top score").
const tieBreakMargin = 0.05

// Input bundles the per-call parameters Select needs, since the candidate
// set depends on more than just current and target.
type Input struct {
	Current      *node.Node
	Target       vector.Vector
	RequiredRole node.Role // empty means "no role constraint"
	Visited      map[string]bool
	Recent       map[string]bool // recently-used ids, for the tie-break rule
}

// scored pairs a candidate's metrics with its computed score.
type scored struct {
	metrics node.Metrics
	score   float64
}

// Select runs the seven-step candidate procedure from spec §4.4 and
// returns the chosen next hop, or (nil, false) if no eligible candidate
// remains. Select never mutates current or any candidate; the caller
// (the route executor) is responsible for incrementing load and writing
// the cache once a hop is actually taken.
func Select(scoreCfg config.Scoring, cacheCfg config.Cache, in Input) (*node.Node, bool) {
	targetKey := vector.RoundedKey(in.Target, cacheCfg.RoundingDecimals)

	// Step 7 (cache fast-path), checked first per spec: "Before steps 2-6,
	// consult current.cache[round(target)]".
	if cachedID, ok := in.Current.CacheLookup(targetKey); ok {
		if n, valid := validateCached(cachedID, in); valid {
			return n, true
		}
	}

	// Step 1: start with alive neighbors.
	candidates := in.Current.AliveNeighbors()

	// Step 2: role filter.
	if in.RequiredRole != "" {
		candidates = filterByRole(candidates, in.RequiredRole)
	}

	// Step 3: capacity filter (mandatory).
	candidates = filterByCapacity(candidates)

	// Step 4: drop visited.
	candidates = filterVisited(candidates, in.Visited)

	if len(candidates) == 0 {
		return nil, false
	}

	// Step 5: score and sort descending.
	scoredCandidates := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		m := c.Metrics()
		s, err := scoring.Score(scoreCfg, in.Target, m)
		if err != nil {
			// A dimension mismatch here is a programmer error upstream
			// (mismatched target/position dimensionality); skip the
			// candidate rather than silently miscomparing scores.
			continue
		}
		scoredCandidates = append(scoredCandidates, scored{metrics: m, score: s})
	}
	if len(scoredCandidates) == 0 {
		return nil, false
	}
	sort.SliceStable(scoredCandidates, func(i, j int) bool {
		return scoredCandidates[i].score > scoredCandidates[j].score
	})

	// Step 6: load-balance tie-break among near-equivalent top scores.
	chosenID := tieBreak(scoredCandidates, in.Recent)

	chosen, ok := in.Current.NeighborByID(chosenID)
	if !ok {
		return nil, false
	}
	return chosen, true
}

func validateCached(id string, in Input) (*node.Node, bool) {
	n, ok := in.Current.NeighborByID(id)
	if !ok {
		return nil, false
	}
	m := n.Metrics()
	if !m.Alive {
		return nil, false
	}
	if in.RequiredRole != "" && m.Role != in.RequiredRole {
		return nil, false
	}
	if !m.HasCapacity() {
		return nil, false
	}
	if in.Visited[id] {
		return nil, false
	}
	if in.Recent[id] {
		return nil, false
	}
	return n, true
}

func filterByRole(candidates []*node.Node, role node.Role) []*node.Node {
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.Role() == role {
			out = append(out, c)
		}
	}
	return out
}

func filterByCapacity(candidates []*node.Node) []*node.Node {
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.Metrics().HasCapacity() {
			out = append(out, c)
		}
	}
	return out
}

func filterVisited(candidates []*node.Node, visited map[string]bool) []*node.Node {
	out := candidates[:0:0]
	for _, c := range candidates {
		if !visited[c.ID()] {
			out = append(out, c)
		}
	}
	return out
}

// tieBreak implements spec §4.4 step 6: among candidates within 5% of the
// top score, prefer one not in recent; if all are recent, return the top.
func tieBreak(sortedCandidates []scored, recent map[string]bool) string {
	top := sortedCandidates[0]
	threshold := top.score - scoreMargin(top.score)

	for _, c := range sortedCandidates {
		if c.score < threshold {
			break
		}
		if !recent[c.metrics.ID] {
			return c.metrics.ID
		}
	}
	return top.metrics.ID
}

// scoreMargin returns the absolute margin corresponding to tieBreakMargin
// of the top score. Scores can be negative (the scoring formula subtracts
// load/latency penalties), so the margin is computed off the magnitude of
// the top score, not its raw value.
func scoreMargin(topScore float64) float64 {
	m := topScore * tieBreakMargin
	if m < 0 {
		m = -m
	}
	return m
}
