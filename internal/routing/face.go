package routing

import (
	"math"

	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/vector"
)

// twoPi is used throughout this file to normalize angular offsets into
// [0, 2π).
const twoPi = 2 * math.Pi

// projected2D returns the first two coordinates of v, the planar
// projection face routing operates on (spec §4.6, §9: "the source projects
// to the first two coordinates... a heuristic fallback, not a proof" in
// dimensions above 2). Vectors with fewer than two components are padded
// with zeros so the projection is always well-defined.
func projected2D(v vector.Vector) (x, y float64) {
	if len(v) > 0 {
		x = v[0]
	}
	if len(v) > 1 {
		y = v[1]
	}
	return x, y
}

// bearing returns the angle, in [0, 2π), of the vector from "from" to "to"
// in the 2D projection.
func bearing(from, to vector.Vector) float64 {
	fx, fy := projected2D(from)
	tx, ty := projected2D(to)
	a := math.Atan2(ty-fy, tx-fx)
	if a < 0 {
		a += twoPi
	}
	return a
}

// ccwOffset returns how far angle θ is counter-clockwise from reference
// angle ref, normalized into [0, 2π).
func ccwOffset(theta, ref float64) float64 {
	d := theta - ref
	d = math.Mod(d, twoPi)
	if d < 0 {
		d += twoPi
	}
	return d
}

// FaceResult is the outcome of one face-routing fallback attempt.
type FaceResult struct {
	Resume  *node.Node // node greedy routing should resume from; nil if exhausted
	Path    []string   // face-local path, in order, including the starting node
	Success bool
}

// FaceRoute runs the right-hand-rule face traversal from spec §4.6,
// starting at stuck and using target's planar projection as the reference
// direction. It returns the first node encountered whose distance to
// target is strictly less than the distance at which face routing began,
// or reports exhaustion after cfg.StepBudget steps or upon returning to
// the starting node.
func FaceRoute(cfg config.FaceRouting, stuck *node.Node, target vector.Vector) FaceResult {
	startDist, err := vector.EuclideanDistance(stuck.Position(), target)
	if err != nil {
		return FaceResult{Success: false}
	}

	startNeighbors := stuck.AliveNeighbors()
	if len(startNeighbors) == 0 {
		return FaceResult{Success: false}
	}

	toTarget := bearing(stuck.Position(), target)
	first := pickSmallestOffset(startNeighbors, stuck.Position(), toTarget, nil)
	if first == nil {
		return FaceResult{Success: false}
	}

	visited := map[string]bool{stuck.ID(): true}
	path := []string{stuck.ID()}

	prev := stuck
	current := first
	for step := 0; step < cfg.StepBudget; step++ {
		path = append(path, current.ID())
		visited[current.ID()] = true

		dist, err := vector.EuclideanDistance(current.Position(), target)
		if err != nil {
			return FaceResult{Path: path, Success: false}
		}
		if dist < startDist {
			return FaceResult{Resume: current, Path: path, Success: true}
		}

		if current.ID() == stuck.ID() {
			// Returned to the face start without making progress.
			return FaceResult{Path: path, Success: false}
		}

		arrivalAngle := bearing(current.Position(), prev.Position())
		candidates := current.AliveNeighbors()
		next := pickSmallestOffset(candidates, current.Position(), arrivalAngle, func(id string) bool {
			return id != prev.ID() && !visited[id]
		})
		if next == nil {
			return FaceResult{Path: path, Success: false}
		}

		prev, current = current, next
	}

	return FaceResult{Path: path, Success: false}
}

// pickSmallestOffset returns the candidate whose bearing from origin has
// the smallest counter-clockwise offset from ref, among candidates for
// which filter(id) is true (or all candidates, if filter is nil).
func pickSmallestOffset(candidates []*node.Node, origin vector.Vector, ref float64, filter func(id string) bool) *node.Node {
	var best *node.Node
	bestOffset := math.Inf(1)
	for _, c := range candidates {
		if filter != nil && !filter(c.ID()) {
			continue
		}
		angle := bearing(origin, c.Position())
		offset := ccwOffset(angle, ref)
		if offset < bestOffset {
			bestOffset = offset
			best = c
		}
	}
	return best
}
