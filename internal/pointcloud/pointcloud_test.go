package pointcloud

import (
	"math"
	"math/rand/v2"
	"testing"

	pmath "github.com/Faultbox/pointmorph/pkg/math"
)

func TestSphere(t *testing.T) {
	points := Sphere(DefaultCount, SphereRadius)
	if len(points) != DefaultCount*3 {
		t.Fatalf("expected %d values, got %d", DefaultCount*3, len(points))
	}

	for i := 0; i < DefaultCount; i++ {
		r := pmath.Vec3At(points, i).Length()
		if math.Abs(float64(r-SphereRadius)) > 1e-3 {
			t.Fatalf("point %d at radius %f, want %f", i, r, SphereRadius)
		}
	}

	// First and last points sit on the poles
	if points[1] != SphereRadius || points[len(points)-2] != -SphereRadius {
		t.Errorf("poles = %f, %f", points[1], points[len(points)-2])
	}
}

func TestSphereSmall(t *testing.T) {
	if len(Sphere(0, 1)) != 0 {
		t.Error("expected empty sphere for n=0")
	}
	one := Sphere(1, 2)
	if len(one) != 3 || one[1] != 2 {
		t.Errorf("single point sphere = %v", one)
	}
}

func TestColors(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	colors := Colors(1000, rng)
	if len(colors) != 3000 {
		t.Fatalf("expected 3000 values, got %d", len(colors))
	}

	gold := 0
	for i := 0; i < len(colors); i += 3 {
		if colors[i+2] < 0.5 {
			gold++
		}
	}
	if gold < 120 || gold > 280 {
		t.Errorf("expected roughly 20%% gold points, got %d of 1000", gold)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name   string
		points []float32
		n      int
		want   []float32
	}{
		{"truncate", []float32{1, 1, 1, 2, 2, 2, 3, 3, 3}, 2, []float32{1, 1, 1, 2, 2, 2}},
		{"pad cyclically", []float32{1, 1, 1, 2, 2, 2}, 5, []float32{1, 1, 1, 2, 2, 2, 1, 1, 1, 2, 2, 2, 1, 1, 1}},
		{"exact", []float32{4, 5, 6}, 1, []float32{4, 5, 6}},
		{"empty input", nil, 2, []float32{0, 0, 0, 0, 0, 0}},
		{"partial triplet ignored", []float32{1, 2, 3, 9}, 2, []float32{1, 2, 3, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.points, tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d values, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("value %d: got %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	raw := make([]float32, 0, 300)
	for i := 0; i < 100; i++ {
		raw = append(raw,
			float32(rng.Float64()*50+100),
			float32(rng.Float64()*10-3),
			float32(rng.Float64()*20),
		)
	}

	points := Normalize(raw, TargetSpan)
	if len(points) != len(raw) {
		t.Fatalf("expected %d values, got %d", len(raw), len(points))
	}

	box := pmath.BoxOf(points)
	c := box.Center()
	if math.Abs(float64(c.X)) > 1e-4 || math.Abs(float64(c.Y)) > 1e-4 || math.Abs(float64(c.Z)) > 1e-4 {
		t.Errorf("center = %v, want origin", c)
	}
	if math.Abs(float64(box.MaxExtent()-TargetSpan)) > 1e-4 {
		t.Errorf("max extent = %f, want %f", box.MaxExtent(), TargetSpan)
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	points := Normalize([]float32{3, 3, 3, 3, 3, 3}, TargetSpan)
	for i, v := range points {
		if v != 0 {
			t.Errorf("value %d = %f, want 0", i, v)
		}
	}
}

func TestNormalizeDropsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	points := Normalize([]float32{0, 0, 0, nan, 1, 1, 2, 2, 2}, TargetSpan)
	if len(points) != 6 {
		t.Fatalf("expected 6 values, got %d", len(points))
	}
	for _, v := range points {
		if math.IsNaN(float64(v)) {
			t.Fatal("NaN survived normalization")
		}
	}
}

func TestWeight(t *testing.T) {
	b := Bias{VerticalBoost: 2, HorizontalSuppression: 0.5}

	tests := []struct {
		name string
		p    pmath.Vec3
		want float32
	}{
		{"equator", pmath.Vec3{X: 1}, 3},
		{"mid band", pmath.Vec3{X: 1, Y: 1}, 1},
		{"pole", pmath.Vec3{Y: -2}, 0.5},
		{"origin", pmath.Vec3{}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Weight(tt.p, b); math.Abs(float64(got-tt.want)) > 1e-5 {
				t.Errorf("Weight(%v) = %f, want %f", tt.p, got, tt.want)
			}
		})
	}
}

func TestWeightFloors(t *testing.T) {
	pole := pmath.Vec3{Y: 1}
	if got := Weight(pole, Bias{HorizontalSuppression: 10}); got != MinSuppress {
		t.Errorf("strong suppression = %f, want %f", got, float32(MinSuppress))
	}
	if got := Weight(pmath.Vec3{X: 1}, Bias{VerticalBoost: -10}); got != weightFloor {
		t.Errorf("negative boost = %f, want floor", got)
	}
	nan := float32(math.NaN())
	if got := Weight(pmath.Vec3{X: 1}, Bias{VerticalBoost: nan}); got != weightFloor {
		t.Errorf("NaN boost = %f, want floor", got)
	}
}

func TestResampleIndices(t *testing.T) {
	weights := []float64{1, 2, 3, 4}
	cum := cumulative(weights)

	for _, offset := range []float64{0, 0.05, 0.0999} {
		indices := ResampleIndices(cum, 100, offset)
		if len(indices) != 100 {
			t.Fatalf("expected 100 indices, got %d", len(indices))
		}

		counts := make([]int, len(weights))
		for k, idx := range indices {
			if k > 0 && idx < indices[k-1] {
				t.Fatalf("indices not monotonic at %d", k)
			}
			counts[idx]++
		}
		for i, w := range weights {
			want := int(w * 10)
			if counts[i] < want-1 || counts[i] > want+1 {
				t.Errorf("offset %f: index %d picked %d times, want ~%d", offset, i, counts[i], want)
			}
		}
	}
}

func TestResampleIndicesEmpty(t *testing.T) {
	if ResampleIndices(nil, 10, 0) != nil {
		t.Error("expected nil for empty table")
	}
	if ResampleIndices([]float64{1}, 0, 0) != nil {
		t.Error("expected nil for n=0")
	}
}

func TestResampleIndicesFollowWeights(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	weights := make([]float64, 50)
	for i := range weights {
		weights[i] = 0.1 + rng.Float64()*5
	}
	cum := cumulative(weights)
	step := cum[len(cum)-1] / 200

	freq := make([]float64, len(weights))
	for run := 0; run < 200; run++ {
		for _, idx := range ResampleIndices(cum, 200, rng.Float64()*step) {
			freq[idx]++
		}
	}

	if r := correlation(weights, freq); r < 0.95 {
		t.Errorf("selection frequency correlation with weight = %f, want > 0.95", r)
	}
}

func TestResampleCount(t *testing.T) {
	r := NewResampler(500, rand.New(rand.NewPCG(1, 1)))
	bias := Bias{VerticalBoost: 1.5, HorizontalSuppression: 0.5, Jitter: 0.03}

	inputs := map[string][]float32{
		"empty":       nil,
		"single":      {1, 2, 3},
		"two points":  {0, 0, 0, 1, 1, 1},
		"partial":     {0, 0, 0, 1, 1, 1, 5},
		"many points": Sphere(10000, 7),
		"flat plane":  {0, 0, 0, 1, 0, 0, 0, 0, 1, 1, 0, 1},
	}

	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			got := r.Resample(raw, bias)
			if len(got) != 500*3 {
				t.Errorf("expected %d values, got %d", 500*3, len(got))
			}
		})
	}
}

func TestResampleFallback(t *testing.T) {
	r := NewResampler(100, rand.New(rand.NewPCG(1, 1)))
	nan := float32(math.NaN())

	for name, raw := range map[string][]float32{
		"empty":      nil,
		"degenerate": {2, 2, 2, 2, 2, 2},
		"non-finite": {nan, nan, nan},
	} {
		t.Run(name, func(t *testing.T) {
			got := r.Resample(raw, Bias{})
			if len(got) != len(r.Sphere) {
				t.Fatalf("expected %d values, got %d", len(r.Sphere), len(got))
			}
			for i := range got {
				if got[i] != r.Sphere[i] {
					t.Fatalf("value %d: got %f, want sphere %f", i, got[i], r.Sphere[i])
				}
			}
			got[0] = 99
			if r.Sphere[0] == 99 {
				t.Error("fallback shares memory with the sphere")
			}
		})
	}
}

func TestResampleFitsSpan(t *testing.T) {
	r := NewResampler(1000, rand.New(rand.NewPCG(5, 6)))
	raw := Sphere(3000, 40)
	for i := 0; i < len(raw); i += 3 {
		raw[i] += 100
	}

	got := r.Resample(raw, Bias{VerticalBoost: 1, HorizontalSuppression: 0.5})
	box := pmath.BoxOf(got)
	if box.MaxExtent() > TargetSpan+1e-3 {
		t.Errorf("extent %f exceeds span", box.MaxExtent())
	}
	half := float32(TargetSpan/2 + 1e-3)
	if box.Min.X < -half || box.Max.X > half || box.Min.Y < -half || box.Max.Y > half {
		t.Errorf("points escape the span cube: %v", box)
	}
}

func TestResampleDensity(t *testing.T) {
	// Half the points on an equatorial ring, half stacked on the poles
	raw := make([]float32, 0, 3000)
	for i := 0; i < 500; i++ {
		a := float64(i) / 500 * 2 * math.Pi
		raw = append(raw, float32(math.Cos(a)), 0, float32(math.Sin(a)))
	}
	for i := 0; i < 500; i++ {
		y := float32(1)
		if i%2 == 1 {
			y = -1
		}
		raw = append(raw, 0, y, 0)
	}

	bias := Bias{VerticalBoost: 1.5, HorizontalSuppression: 0.5}
	r := NewResampler(1200, rand.New(rand.NewPCG(9, 9)))

	for run := 0; run < 5; run++ {
		got := r.Resample(raw, bias)
		if len(got) != 1200*3 {
			t.Fatalf("run %d: expected %d values, got %d", run, 1200*3, len(got))
		}

		equator := 0
		for i := 1; i < len(got); i += 3 {
			if math.Abs(float64(got[i])) < 0.5 {
				equator++
			}
		}
		// weights 2.5 vs 0.5 -> 5/6 of the samples on the ring
		frac := float64(equator) / 1200
		if frac < 0.8 || frac > 0.87 {
			t.Errorf("run %d: equator fraction %f, want ~0.833", run, frac)
		}
	}
}

func TestResampleDeterministic(t *testing.T) {
	raw := Sphere(777, 3)
	bias := Bias{VerticalBoost: 1, HorizontalSuppression: 0.4, Jitter: 0.05}

	a := NewResampler(300, rand.New(rand.NewPCG(42, 0))).Resample(raw, bias)
	b := NewResampler(300, rand.New(rand.NewPCG(42, 0))).Resample(raw, bias)
	c := NewResampler(300, rand.New(rand.NewPCG(43, 0))).Resample(raw, bias)

	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("value %d differs with the same seed", i)
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical output")
	}
}

func TestResampleJitter(t *testing.T) {
	// Two source points: every output is a jittered copy of one of them
	raw := []float32{0, 0, 0, 1, 0, 0}
	bias := Bias{Jitter: 0.1}
	r := NewResampler(400, rand.New(rand.NewPCG(2, 2)))

	got := r.Resample(raw, bias)
	var maxY float64
	distinct := map[float32]bool{}
	for i := 0; i < len(got); i += 3 {
		maxY = math.Max(maxY, math.Abs(float64(got[i+1])))
		distinct[got[i]] = true
	}
	if maxY > 0.1*0.7/2+1e-6 {
		t.Errorf("vertical jitter %f exceeds half of 0.07", maxY)
	}
	if len(distinct) < 100 {
		t.Errorf("expected jitter to separate samples, got %d distinct x values", len(distinct))
	}
}

func cumulative(weights []float64) []float64 {
	cum := make([]float64, len(weights))
	var total float64
	for i, w := range weights {
		total += w
		cum[i] = total
	}
	return cum
}

func correlation(a, b []float64) float64 {
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(len(a))
	meanB /= float64(len(b))

	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	return cov / math.Sqrt(varA*varB)
}
