package system

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/companion/boundary"
	"github.com/milk9111/companion/common"
)

// PlanPath orders the first vertex of every boundary segment into one walk
// around the polygon that starts next to companionPos.
//
// The walk runs clockwise when the companion sits to the right of the
// viewer's gaze (negative signed angle about Up) and counterclockwise
// otherwise. The list is split just past the nearest vertex when that vertex
// is to the right of the companion as seen from the viewer, so the companion
// never starts by doubling back.
//
// The result is always a reordering of the input vertices. PlanPath keeps no
// state; equal inputs give equal outputs.
func PlanPath(segments []boundary.Segment, companionPos, viewerPos, viewerForward mgl64.Vec3) []mgl64.Vec3 {
	points := make([]mgl64.Vec3, len(segments))
	for i, s := range segments {
		points[i] = s.V1
	}
	if len(points) < 2 {
		return points
	}

	toCompanion := companionPos.Sub(viewerPos)
	clockwise := common.SignedAngle(viewerForward, toCompanion, common.Up) < 0

	closest := nearestIndex(points, companionPos)

	offset := 0
	toClosest := points[closest].Sub(viewerPos)
	if common.SignedAngle(toClosest, toCompanion, common.Up) < 0 {
		offset = 1
	}
	split := closest + offset

	head := points[:split]
	tail := points[split:]
	out := make([]mgl64.Vec3, 0, len(points))
	if clockwise {
		out = appendReversed(out, head)
		out = appendReversed(out, tail)
		return out
	}
	out = append(out, tail...)
	out = append(out, head...)
	return out
}

// nearestIndex returns the index of the point closest to pos. Ties keep the
// earliest index.
func nearestIndex(points []mgl64.Vec3, pos mgl64.Vec3) int {
	best := 0
	bestSq := common.LenSq(points[0].Sub(pos))
	for i := 1; i < len(points); i++ {
		if d := common.LenSq(points[i].Sub(pos)); d < bestSq {
			bestSq = d
			best = i
		}
	}
	return best
}

func appendReversed(dst, src []mgl64.Vec3) []mgl64.Vec3 {
	for i := len(src) - 1; i >= 0; i-- {
		dst = append(dst, src[i])
	}
	return dst
}
