package pointcloud

import (
	pmath "github.com/Faultbox/pointmorph/pkg/math"
)

// extentFloor keeps the scale finite for zero-size input.
const extentFloor = 1e-6

// Normalize recentres raw geometry on the origin and scales it uniformly so
// its largest bounding box axis equals span. Points with non-finite
// coordinates are dropped.
func Normalize(raw []float32, span float32) []float32 {
	points, _ := normalize(raw, span)
	return points
}

// normalize also returns the source bounding box extent so callers can spot
// degenerate input.
func normalize(raw []float32, span float32) ([]float32, float32) {
	finite := make([]float32, 0, len(raw)-len(raw)%3)
	box := pmath.EmptyBox()
	for i := 0; i+2 < len(raw); i += 3 {
		p := pmath.Vec3{X: raw[i], Y: raw[i+1], Z: raw[i+2]}
		if !p.IsFinite() {
			continue
		}
		finite = append(finite, p.X, p.Y, p.Z)
		box = box.Extend(p)
	}
	if box.Empty() {
		return finite, 0
	}

	extent := box.MaxExtent()
	center := box.Center()
	scale := span / max(extent, extentFloor)

	for i := 0; i < len(finite); i += 3 {
		finite[i] = (finite[i] - center.X) * scale
		finite[i+1] = (finite[i+1] - center.Y) * scale
		finite[i+2] = (finite[i+2] - center.Z) * scale
	}
	return finite, extent
}
