// Package boundary models the play-space polygon the companion walks inside.
//
// Points live in world space with Y up; all polygon math happens on the XZ
// floor plane.
package boundary

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/companion/common"
)

// Segment is one edge of the play-space polygon.
type Segment struct {
	V1 mgl64.Vec3
	V2 mgl64.Vec3
}

func (s Segment) Midpoint() mgl64.Vec3 {
	return s.V1.Add(s.V2).Mul(0.5)
}

// ViewerFunc reports the current viewer pose.
type ViewerFunc func() (pos, forward mgl64.Vec3, ok bool)

// Polygon is a closed play-space boundary. Segment i runs from point i to
// point i+1, wrapping at the end.
type Polygon struct {
	segments []Segment
	floor    []cp.Vector
	center   mgl64.Vec3
	bounds   cp.BB
	viewer   ViewerFunc
}

// NewPolygon closes points into a polygon. Fewer than three points are
// accepted and produce a degenerate boundary.
func NewPolygon(points []mgl64.Vec3) *Polygon {
	p := &Polygon{}
	n := len(points)
	if n == 0 {
		return p
	}

	p.segments = make([]Segment, n)
	p.floor = make([]cp.Vector, n)
	var height float64
	for i, pt := range points {
		p.segments[i] = Segment{V1: pt, V2: points[(i+1)%n]}
		p.floor[i] = toFloor(pt)
		height += pt.Y()
	}
	height /= float64(n)

	c := averageFloor(p.floor)
	if math.Abs(cp.AreaForPoly(n, p.floor, 0)) > 1e-9 {
		c = cp.CentroidForPoly(n, p.floor)
	}
	p.center = mgl64.Vec3{c.X, height, c.Y}

	bb := cp.BB{L: p.floor[0].X, B: p.floor[0].Y, R: p.floor[0].X, T: p.floor[0].Y}
	for _, v := range p.floor[1:] {
		bb = bb.Expand(v)
	}
	p.bounds = bb
	return p
}

// SetViewer sets where GetFacingSegment reads the viewer pose from.
func (p *Polygon) SetViewer(fn ViewerFunc) {
	p.viewer = fn
}

// Segments returns a copy of the edges in polygon order.
func (p *Polygon) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

func (p *Polygon) GetCenter() mgl64.Vec3 {
	return p.center
}

// GetFacingSegment returns the edge the viewer is looking at: the one whose
// midpoint lies closest to the viewer's flattened forward direction. Without
// a viewer the first edge is returned.
func (p *Polygon) GetFacingSegment() Segment {
	if len(p.segments) == 0 {
		return Segment{}
	}
	if p.viewer == nil {
		return p.segments[0]
	}
	pos, fwd, ok := p.viewer()
	if !ok {
		return p.segments[0]
	}
	return FacingSegment(p.segments, pos, fwd)
}

// FacingSegment picks from segments the edge best aligned with forward as
// seen from pos. Ties go to the earliest edge.
func FacingSegment(segments []Segment, pos, forward mgl64.Vec3) Segment {
	if len(segments) == 0 {
		return Segment{}
	}
	dir := common.Normalize(common.Flatten(forward))
	best := 0
	bestDot := math.Inf(-1)
	for i, s := range segments {
		to := common.Normalize(common.Flatten(s.Midpoint().Sub(pos)))
		if d := dir.Dot(to); d > bestDot {
			bestDot = d
			best = i
		}
	}
	return segments[best]
}

// Bounds returns the floor-plane bounding box; X maps to world X and Y maps
// to world Z.
func (p *Polygon) Bounds() cp.BB {
	return p.bounds
}

// Contains reports whether pt lies inside the polygon on the floor plane.
func (p *Polygon) Contains(pt mgl64.Vec3) bool {
	n := len(p.floor)
	if n < 3 {
		return false
	}
	v := toFloor(pt)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.floor[i], p.floor[j]
		if (a.Y > v.Y) != (b.Y > v.Y) && v.X < (b.X-a.X)*(v.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

func toFloor(v mgl64.Vec3) cp.Vector {
	return cp.Vector{X: v.X(), Y: v.Z()}
}

func averageFloor(vs []cp.Vector) cp.Vector {
	sum := cp.Vector{}
	for _, v := range vs {
		sum = sum.Add(v)
	}
	return sum.Mult(1 / float64(len(vs)))
}
