package pointcloud

import (
	"math"
	"math/rand/v2"

	pmath "github.com/Faultbox/pointmorph/pkg/math"
)

// Resampler turns arbitrary geometry into a point set of exactly Count
// points whose density follows a Bias.
type Resampler struct {
	Count  int
	Span   float32
	Sphere []float32 // fallback shape, Count points

	rng *rand.Rand
}

// NewResampler creates a resampler producing count points. rng drives the
// stratification offset and jitter; seed it for reproducible output.
func NewResampler(count int, rng *rand.Rand) *Resampler {
	return &Resampler{
		Count:  count,
		Span:   TargetSpan,
		Sphere: Sphere(count, SphereRadius),
		rng:    rng,
	}
}

// Fallback returns a fresh copy of the sphere point set.
func (r *Resampler) Fallback() []float32 {
	return Fit(r.Sphere, r.Count)
}

// Resample normalizes raw and draws exactly Count points from it, weighted
// by b. Empty or zero-size input yields a copy of the sphere.
func (r *Resampler) Resample(raw []float32, b Bias) []float32 {
	if r.Count <= 0 {
		return []float32{}
	}

	points, extent := normalize(raw, r.Span)
	n := len(points) / 3
	if n == 0 || extent < extentFloor {
		return r.Fallback()
	}

	cum := make([]float64, n)
	var total float64
	for i := 0; i < n; i++ {
		total += float64(Weight(pmath.Vec3At(points, i), b))
		cum[i] = total
	}
	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return r.Fallback()
	}

	step := total / float64(r.Count)
	indices := ResampleIndices(cum, r.Count, r.rng.Float64()*step)

	jx := float64(b.Jitter)
	jy := jx * verticalJitterScale
	out := make([]float32, 0, r.Count*3)
	for _, idx := range indices {
		p := pmath.Vec3At(points, idx)
		out = append(out,
			p.X+float32((r.rng.Float64()-0.5)*jx),
			p.Y+float32((r.rng.Float64()-0.5)*jy),
			p.Z+float32((r.rng.Float64()-0.5)*jx),
		)
	}

	return Fit(out, r.Count)
}

// ResampleIndices performs stratified systematic resampling over a
// cumulative weight table: n evenly spaced targets starting at offset are
// matched against cum with a single forward-moving pointer. offset should
// lie in [0, cum[len-1]/n).
func ResampleIndices(cum []float64, n int, offset float64) []int {
	if len(cum) == 0 || n <= 0 {
		return nil
	}

	step := cum[len(cum)-1] / float64(n)
	last := len(cum) - 1
	indices := make([]int, 0, n)

	target := offset
	j := 0
	for k := 0; k < n; k++ {
		for j < last && cum[j] < target {
			j++
		}
		indices = append(indices, j)
		target += step
	}
	return indices
}
