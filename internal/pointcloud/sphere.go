// Package pointcloud builds the fixed-size point sets that the morph
// scheduler blends between: the procedural sphere, and resampled model
// geometry.
package pointcloud

import (
	"math"
	"math/rand/v2"
)

// Defaults shared by every point set.
const (
	DefaultCount = 2500
	SphereRadius = 2.5
	TargetSpan   = 4.0
	goldenAngle  = math.Pi * (3 - 2.2360679774997896) // pi * (3 - sqrt(5))
	goldFraction = 0.2
)

// Sphere returns n points spread evenly over a sphere of the given radius
// using a Fibonacci lattice.
func Sphere(n int, radius float32) []float32 {
	if n <= 0 {
		return []float32{}
	}

	points := make([]float32, 0, n*3)
	for i := 0; i < n; i++ {
		y := 1.0
		if n > 1 {
			y = 1 - float64(i)/float64(n-1)*2
		}
		ring := math.Sqrt(math.Max(0, 1-y*y))
		theta := goldenAngle * float64(i)

		points = append(points,
			float32(math.Cos(theta)*ring)*radius,
			float32(y)*radius,
			float32(math.Sin(theta)*ring)*radius,
		)
	}
	return points
}

// Colors returns an rgb triplet per point: mostly pale blue with a scattering
// of gold.
func Colors(n int, rng *rand.Rand) []float32 {
	colors := make([]float32, 0, n*3)
	for i := 0; i < n; i++ {
		if rng.Float64() < goldFraction {
			colors = append(colors, 0.95, 0.88, 0.1)
		} else {
			colors = append(colors, 0.85, 0.9, 1.0)
		}
	}
	return colors
}

// Fit returns exactly n points: points are repeated cyclically when there
// are too few and dropped from the end when there are too many. A nil or
// empty input yields n points at the origin.
func Fit(points []float32, n int) []float32 {
	if n <= 0 {
		return []float32{}
	}
	out := make([]float32, n*3)
	have := len(points) / 3
	if have == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		src := (i % have) * 3
		copy(out[i*3:i*3+3], points[src:src+3])
	}
	return out
}
