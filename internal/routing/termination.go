package routing

import (
	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/vector"
)

// Reached reports whether current is a routing endpoint for target, per
// spec §4.5: either current is closer to target than every alive neighbor
// (ties do not terminate), or the cosine similarity between current's
// position and target exceeds the configured threshold. A node with no
// alive neighbors is also terminal — it cannot make any further progress,
// greedy or otherwise.
func Reached(cfg config.Termination, current *node.Node, target vector.Vector) (bool, error) {
	aliveNeighbors := current.AliveNeighbors()
	if len(aliveNeighbors) == 0 {
		return true, nil
	}

	cos, err := vector.CosineSimilarity(current.Position(), target)
	if err != nil {
		return false, err
	}
	if cos > cfg.CosineThreshold {
		return true, nil
	}

	currentDist, err := vector.EuclideanDistance(current.Position(), target)
	if err != nil {
		return false, err
	}
	for _, nb := range aliveNeighbors {
		nbDist, err := vector.EuclideanDistance(nb.Position(), target)
		if err != nil {
			return false, err
		}
		if nbDist < currentDist {
			return false, nil
		}
	}
	return true, nil
}
