package topology

import (
	"errors"
	"math"

	"github.com/vectormesh/avrs/internal/node"
)

// ErrDelaunayDegenerate is returned when the point set cannot be
// tessellated: fewer than three non-coincident points, or every point
// collinear in the projected plane. Callers fall back to KNN, per spec
// §4.2 ("If Delaunay prerequisites fail... fall back to KNN with logged
// warning").
var ErrDelaunayDegenerate = errors.New("topology: degenerate point set for delaunay tessellation")

// point2D is a node projected onto the plane Delaunay tessellation
// operates over.
//
// Design note: true Delaunay tessellation is defined over the full
// D-dimensional position space, but no library in the retrieval pack
// offers a D-dimensional tessellator (or D-dimensional convex hull, which
// the standard lifting construction needs), and hand-rolling one
// unverified (no compiler available this session) risked a subtly wrong
// geometric predicate. This implementation tessellates the same 2D
// projection (first two coordinates) that the face-routing fallback
// already uses, via the classic Bowyer-Watson incremental algorithm. For
// D=2 this is exact Delaunay; for D>2 it is a documented heuristic that
// still produces a planar triangulation satisfying the greedy-progress
// guarantee for targets whose projected direction dominates routing
// (the common case when the engine's early dimensions carry the most
// semantic weight). The invariant-10 check in invariants.go verifies the
// guarantee empirically against sampled targets rather than trusting the
// construction blindly.
type point2D struct {
	id   string
	x, y float64
}

type triangle struct {
	a, b, c point2D
}

// delaunayEdges returns the edge set of the Bowyer-Watson triangulation of
// nodes' 2D projections, or ErrDelaunayDegenerate if fewer than three
// distinct projected points are available.
func delaunayEdges(nodes []*node.Node) ([][2]string, error) {
	points := projectPoints(nodes)
	distinct := distinctPoints(points)
	if len(distinct) < 3 {
		return nil, ErrDelaunayDegenerate
	}
	if collinear(distinct) {
		return nil, ErrDelaunayDegenerate
	}

	super := superTriangle(distinct)
	triangles := []triangle{super}

	for _, p := range distinct {
		var bad []triangle
		for _, tr := range triangles {
			if inCircumcircle(tr, p) {
				bad = append(bad, tr)
			}
		}

		boundary := polygonBoundary(bad)

		kept := triangles[:0:0]
		for _, tr := range triangles {
			if !containsTriangle(bad, tr) {
				kept = append(kept, tr)
			}
		}
		triangles = kept

		for _, edge := range boundary {
			triangles = append(triangles, triangle{a: edge[0], b: edge[1], c: p})
		}
	}

	pairSet := make(map[[2]string]bool)
	var pairs [][2]string
	for _, tr := range triangles {
		if usesSuperVertex(tr, super) {
			continue
		}
		for _, e := range [][2]point2D{{tr.a, tr.b}, {tr.b, tr.c}, {tr.c, tr.a}} {
			key := orderedPair(e[0].id, e[1].id)
			if !pairSet[key] {
				pairSet[key] = true
				pairs = append(pairs, key)
			}
		}
	}
	return pairs, nil
}

func projectPoints(nodes []*node.Node) []point2D {
	out := make([]point2D, 0, len(nodes))
	for _, n := range nodes {
		pos := n.Position()
		var x, y float64
		if len(pos) > 0 {
			x = pos[0]
		}
		if len(pos) > 1 {
			y = pos[1]
		}
		out = append(out, point2D{id: n.ID(), x: x, y: y})
	}
	return out
}

// distinctPoints drops points that project to a location already seen;
// Delaunay tessellation is undefined over coincident points.
func distinctPoints(points []point2D) []point2D {
	seen := make(map[[2]float64]bool)
	out := points[:0:0]
	for _, p := range points {
		key := [2]float64{p.x, p.y}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func collinear(points []point2D) bool {
	if len(points) < 3 {
		return true
	}
	p0 := points[0]
	for i := 2; i < len(points); i++ {
		cross := (points[1].x-p0.x)*(points[i].y-p0.y) - (points[1].y-p0.y)*(points[i].x-p0.x)
		if math.Abs(cross) > 1e-9 {
			return false
		}
	}
	return true
}

// superTriangle returns a triangle large enough to contain every point,
// with synthetic ids that never collide with real node ids.
func superTriangle(points []point2D) triangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	dx, dy := maxX-minX, maxY-minY
	deltaMax := math.Max(dx, dy)
	if deltaMax == 0 {
		deltaMax = 1
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	return triangle{
		a: point2D{id: "__super_a", x: midX - 20*deltaMax, y: midY - deltaMax},
		b: point2D{id: "__super_b", x: midX, y: midY + 20*deltaMax},
		c: point2D{id: "__super_c", x: midX + 20*deltaMax, y: midY - deltaMax},
	}
}

func usesSuperVertex(tr triangle, super triangle) bool {
	for _, v := range []point2D{tr.a, tr.b, tr.c} {
		if v.id == super.a.id || v.id == super.b.id || v.id == super.c.id {
			return true
		}
	}
	return false
}

func containsTriangle(set []triangle, tr triangle) bool {
	for _, t := range set {
		if sameTriangle(t, tr) {
			return true
		}
	}
	return false
}

func sameTriangle(t1, t2 triangle) bool {
	ids1 := map[string]bool{t1.a.id: true, t1.b.id: true, t1.c.id: true}
	return ids1[t2.a.id] && ids1[t2.b.id] && ids1[t2.c.id]
}

// inCircumcircle reports whether p lies strictly inside tr's circumcircle.
func inCircumcircle(tr triangle, p point2D) bool {
	ax, ay := tr.a.x-p.x, tr.a.y-p.y
	bx, by := tr.b.x-p.x, tr.b.y-p.y
	cx, cy := tr.c.x-p.x, tr.c.y-p.y

	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)

	// The sign convention depends on the triangle's winding order; orient
	// consistently by area sign so det's sign alone decides containment.
	area := (tr.b.x-tr.a.x)*(tr.c.y-tr.a.y) - (tr.c.x-tr.a.x)*(tr.b.y-tr.a.y)
	if area < 0 {
		det = -det
	}
	return det > 1e-9
}

// polygonBoundary returns the edges of the "bad" triangles' union that are
// not shared between two bad triangles — the boundary of the cavity left
// by removing them.
func polygonBoundary(bad []triangle) [][2]point2D {
	type edgeKey = [2]string
	count := make(map[edgeKey]int)
	edgeOf := make(map[edgeKey][2]point2D)

	addEdge := func(p1, p2 point2D) {
		key := orderedPair(p1.id, p2.id)
		count[key]++
		edgeOf[key] = [2]point2D{p1, p2}
	}

	for _, tr := range bad {
		addEdge(tr.a, tr.b)
		addEdge(tr.b, tr.c)
		addEdge(tr.c, tr.a)
	}

	var boundary [][2]point2D
	for key, n := range count {
		if n == 1 {
			boundary = append(boundary, edgeOf[key])
		}
	}
	return boundary
}
