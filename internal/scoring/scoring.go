package scoring

import (
	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/vector"
)

// clamp restricts x to [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Score computes the published scoring-function contract for a candidate
// neighbor against a fixed target, given the configured weights:
//
//	score = W_sem*sem(target, neighbor.position)
//	      + W_trust*neighbor.trust
//	      - W_load*clamp(neighbor.load/neighbor.capacity, 0, 1)
//	      - W_lat*clamp(neighbor.latency/L_MAX, 0, 1)
//
// sem is cosine similarity between the neighbor's position and the target.
// Score never fails on a dimension mismatch silently: the error is
// propagated so that callers (selector, tests) can tell a programmer error
// apart from a legitimately low score.
func Score(cfg config.Scoring, target vector.Vector, candidate node.Metrics) (float64, error) {
	sem, err := vector.CosineSimilarity(candidate.Position, target)
	if err != nil {
		return 0, err
	}

	loadRatio := clamp(candidate.Load/candidate.Capacity, 0, 1)
	latRatio := clamp(candidate.LatencyMillis/cfg.MaxLatencyMs, 0, 1)

	score := cfg.WeightSemantic*sem +
		cfg.WeightTrust*candidate.Trust -
		cfg.WeightLoad*loadRatio -
		cfg.WeightLatency*latRatio

	return score, nil
}
