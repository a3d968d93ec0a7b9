package pointcloud

import (
	"math"

	pmath "github.com/Faultbox/pointmorph/pkg/math"
)

// Bias tunes how the resampler distributes points over a model.
type Bias struct {
	// VerticalBoost raises the weight of points whose direction from the
	// centre is close to horizontal, i.e. walls and facades.
	VerticalBoost float32 `yaml:"vertical_boost"`
	// HorizontalSuppression lowers the weight of points near the top and
	// bottom poles, i.e. roofs and floors.
	HorizontalSuppression float32 `yaml:"horizontal_suppression"`
	// Jitter is the per-axis random offset applied to each sample.
	Jitter float32 `yaml:"jitter"`
}

// Weighting thresholds on |y| / |p|.
const (
	LowDirY             = 0.35
	HighDirY            = 0.78
	MinSuppress         = 0.08
	weightFloor         = 1e-4
	lengthFloor         = 1e-6
	verticalJitterScale = 0.7
)

// Weight returns the sampling weight of a normalized point.
func Weight(p pmath.Vec3, b Bias) float32 {
	length := max(p.Length(), lengthFloor)
	dirY := float32(math.Abs(float64(p.Y))) / length

	w := float32(1)
	switch {
	case dirY < LowDirY:
		w = 1 + (LowDirY-dirY)/LowDirY*b.VerticalBoost
	case dirY > HighDirY:
		w = max(MinSuppress, 1-(dirY-HighDirY)/(1-HighDirY)*b.HorizontalSuppression)
	}

	if math.IsNaN(float64(w)) || math.IsInf(float64(w), 0) || w <= 0 {
		return weightFloor
	}
	return w
}
