package loader

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/pointmorph/internal/assets"
	"github.com/Faultbox/pointmorph/internal/logger"
	"github.com/Faultbox/pointmorph/internal/pointcloud"
	"github.com/Faultbox/pointmorph/pkg/formats"
)

var errNetwork = errors.New("connection reset")

// scriptedSource replays a fixed sequence of responses per asset name.
type scriptedSource struct {
	mu     sync.Mutex
	script map[string][]response
	tokens []string
	calls  map[string]int
}

type response struct {
	data []byte
	err  error
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{
		script: make(map[string][]response),
		calls:  make(map[string]int),
	}
}

func (s *scriptedSource) add(name string, data []byte, err error) {
	s.script[name] = append(s.script[name], response{data, err})
}

func (s *scriptedSource) Fetch(ctx context.Context, req assets.Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = append(s.tokens, req.CacheToken)
	n := s.calls[req.Name]
	s.calls[req.Name]++

	steps := s.script[req.Name]
	if len(steps) == 0 {
		return nil, assets.ErrNotFound
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	return steps[n].data, steps[n].err
}

// recordSleeps returns a Sleep replacement that records requested delays.
func recordSleeps(mu *sync.Mutex, out *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		*out = append(*out, d)
		mu.Unlock()
		return ctx.Err()
	}
}

func pointModel(t *testing.T, positions []float32) []byte {
	t.Helper()
	data, err := formats.PointModel("test", positions)
	if err != nil {
		t.Fatalf("PointModel failed: %v", err)
	}
	return data
}

func cube() []float32 {
	var p []float32
	for _, x := range []float32{-1, 1} {
		for _, y := range []float32{-1, 1} {
			for _, z := range []float32{-1, 1} {
				p = append(p, x, y, z)
			}
		}
	}
	return p
}

func newTestLoader(src assets.Source) (*Loader, *[]time.Duration) {
	var mu sync.Mutex
	var sleeps []time.Duration
	l := New(src)
	l.Sleep = recordSleeps(&mu, &sleeps)
	return l, &sleeps
}

func newTestResampler(count int) *pointcloud.Resampler {
	return pointcloud.NewResampler(count, rand.New(rand.NewPCG(1, 2)))
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	src := newScriptedSource()
	src.add("kingdom.glb", nil, errNetwork)
	src.add("kingdom.glb", nil, errNetwork)
	src.add("kingdom.glb", pointModel(t, cube()), nil)

	l, sleeps := newTestLoader(src)

	positions, attempts, err := l.Fetch(context.Background(), "kingdom.glb")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(positions) != 24 {
		t.Errorf("expected 24 values, got %d", len(positions))
	}

	var total time.Duration
	for _, d := range *sleeps {
		total += d
	}
	if len(*sleeps) != 2 || total != time.Second {
		t.Errorf("expected two waits totalling 1s, got %v", *sleeps)
	}
}

func TestFetch_LogsFailedAttempts(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger.Replace(zap.New(core))
	defer logger.InitNop()

	src := newScriptedSource()
	src.add("kingdom.glb", nil, errNetwork)
	src.add("kingdom.glb", pointModel(t, cube()), nil)
	l, _ := newTestLoader(src)

	if _, _, err := l.Fetch(context.Background(), "kingdom.glb"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	failed := logs.FilterMessage("Model fetch failed").All()
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed attempt logged, got %d", len(failed))
	}
	if failed[0].LoggerName != "loader" || failed[0].ContextMap()["name"] != "kingdom.glb" {
		t.Errorf("unexpected entry %+v", failed[0])
	}
}

func TestFetch_Exhausted(t *testing.T) {
	src := newScriptedSource()
	src.add("museum.glb", nil, errNetwork)

	l, sleeps := newTestLoader(src)

	_, attempts, err := l.Fetch(context.Background(), "museum.glb")
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted, got %v", err)
	}
	if !errors.Is(err, errNetwork) {
		t.Errorf("expected last error to be wrapped, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(*sleeps) != 2 {
		t.Errorf("expected no wait after the last attempt, got %d waits", len(*sleeps))
	}
}

func TestFetch_PermanentErrorNotRetried(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", []byte("not a model at all"), formats.ErrInvalidGLBMagic},
		{"no meshes", mustEncode(t, &formats.GLTFDocument{Asset: formats.GLTFAsset{Version: "2.0"}}, nil), formats.ErrNoGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newScriptedSource()
			src.add("m.glb", tt.data, nil)
			l, sleeps := newTestLoader(src)

			_, attempts, err := l.Fetch(context.Background(), "m.glb")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if attempts != 1 || len(*sleeps) != 0 {
				t.Errorf("expected a single attempt, got %d attempts and %d waits", attempts, len(*sleeps))
			}
		})
	}
}

func TestFetch_TruncatedIsRetried(t *testing.T) {
	good := pointModel(t, cube())

	src := newScriptedSource()
	src.add("m.glb", good[:len(good)-8], nil)
	src.add("m.glb", good, nil)
	l, _ := newTestLoader(src)

	_, attempts, err := l.Fetch(context.Background(), "m.glb")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestFetch_CacheTokensDistinct(t *testing.T) {
	src := newScriptedSource()
	src.add("m.glb", nil, errNetwork)
	l, _ := newTestLoader(src)
	l.Attempts = 5

	_, _, _ = l.Fetch(context.Background(), "m.glb")
	_, _, _ = l.Fetch(context.Background(), "m.glb")

	seen := make(map[string]bool)
	for _, tok := range src.tokens {
		if tok == "" {
			t.Fatal("empty cache token")
		}
		if seen[tok] {
			t.Fatalf("cache token %q reused", tok)
		}
		seen[tok] = true
	}
	if len(seen) != 10 {
		t.Errorf("expected 10 tokens, got %d", len(seen))
	}
}

func TestFetch_ContextCancelledDuringWait(t *testing.T) {
	src := newScriptedSource()
	src.add("m.glb", nil, errNetwork)

	l := New(src)
	l.Delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	l.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	_, attempts, err := l.Fetch(ctx, "m.glb")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestLoad_DracoStandIn(t *testing.T) {
	view := 0
	doc := &formats.GLTFDocument{
		Asset: formats.GLTFAsset{Version: "2.0"},
		Meshes: []formats.Mesh{{
			Primitives: []formats.Primitive{{
				Attributes: map[string]int{"POSITION": 0},
				Extensions: map[string]json.RawMessage{
					formats.DracoExtension: json.RawMessage(`{"bufferView":0}`),
				},
			}},
		}},
		Accessors: []formats.Accessor{{
			BufferView:    &view,
			ComponentType: formats.ComponentFloat,
			Count:         300,
			Type:          formats.TypeVec3,
			Min:           []float32{-10, 0, -10},
			Max:           []float32{10, 20, 10},
		}},
	}

	src := newScriptedSource()
	src.add("tower.glb", mustEncode(t, doc, nil), nil)
	l, _ := newTestLoader(src)

	raw, _, err := l.Fetch(context.Background(), "tower.glb")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(raw) != 900 {
		t.Fatalf("expected 900 values, got %d", len(raw))
	}

	r := newTestResampler(2500)
	shape := l.Load(context.Background(), Spec{Name: "tower.glb", Bias: pointcloud.Bias{Jitter: 0.03}}, r)
	if shape.Fallback {
		t.Fatalf("unexpected fallback: %v", shape.Err)
	}
	if len(shape.Points) != 7500 {
		t.Fatalf("expected 7500 values, got %d", len(shape.Points))
	}

	// Normalized to span 4 plus jitter.
	for i, v := range shape.Points {
		if v < -2.1 || v > 2.1 {
			t.Fatalf("value %d = %f outside normalized range", i, v)
		}
	}
}

func TestLoad_FallbackToSphere(t *testing.T) {
	src := newScriptedSource()
	src.add("broken.glb", []byte("definitely not glTF"), nil)
	l, _ := newTestLoader(src)
	r := newTestResampler(100)

	shape := l.Load(context.Background(), Spec{Name: "broken.glb"}, r)
	if !shape.Fallback {
		t.Fatal("expected fallback")
	}
	if !errors.Is(shape.Err, formats.ErrInvalidGLBMagic) {
		t.Errorf("expected magic error, got %v", shape.Err)
	}
	if len(shape.Points) != 300 {
		t.Fatalf("expected 300 values, got %d", len(shape.Points))
	}
	for i, v := range shape.Points {
		if v != r.Sphere[i] {
			t.Fatalf("value %d differs from sphere", i)
		}
	}
}

func TestLoad_HugeCompressedCountFallsBack(t *testing.T) {
	view := 0
	doc := &formats.GLTFDocument{
		Asset: formats.GLTFAsset{Version: "2.0"},
		Meshes: []formats.Mesh{{
			Primitives: []formats.Primitive{{
				Attributes: map[string]int{"POSITION": 0},
				Extensions: map[string]json.RawMessage{
					formats.DracoExtension: json.RawMessage(`{"bufferView":0}`),
				},
			}},
		}},
		Accessors: []formats.Accessor{{
			BufferView:    &view,
			ComponentType: formats.ComponentFloat,
			Count:         math.MaxInt32,
			Type:          formats.TypeVec3,
		}},
	}

	src := newScriptedSource()
	src.add("hostile.glb", mustEncode(t, doc, nil), nil)
	l, sleeps := newTestLoader(src)
	r := newTestResampler(100)

	shape := l.Load(context.Background(), Spec{Name: "hostile.glb"}, r)
	if !shape.Fallback {
		t.Fatal("expected fallback")
	}
	if !errors.Is(shape.Err, formats.ErrNoGeometry) {
		t.Errorf("expected ErrNoGeometry, got %v", shape.Err)
	}
	if shape.Attempts != 1 || len(*sleeps) != 0 {
		t.Errorf("expected a single attempt, got %d attempts and %d waits", shape.Attempts, len(*sleeps))
	}
	if len(shape.Points) != 300 {
		t.Errorf("expected 300 values, got %d", len(shape.Points))
	}
}

func TestLoadPair(t *testing.T) {
	src := newScriptedSource()
	src.add("kingdom.glb", pointModel(t, cube()), nil)
	src.add("museum.glb", nil, errNetwork)
	l, _ := newTestLoader(src)
	r := newTestResampler(64)

	kingdom, museum := l.LoadPair(context.Background(),
		Spec{Name: "kingdom.glb"},
		Spec{Name: "museum.glb"},
		r)

	if kingdom.Fallback || kingdom.Name != "kingdom.glb" || kingdom.Attempts != 1 {
		t.Errorf("unexpected kingdom shape: %+v", kingdom)
	}
	if !museum.Fallback || museum.Attempts != 3 {
		t.Errorf("unexpected museum shape: attempts=%d fallback=%v", museum.Attempts, museum.Fallback)
	}
	if !errors.Is(museum.Err, ErrAttemptsExhausted) {
		t.Errorf("expected exhausted error, got %v", museum.Err)
	}
	if len(kingdom.Points) != 192 || len(museum.Points) != 192 {
		t.Errorf("unexpected point counts %d, %d", len(kingdom.Points), len(museum.Points))
	}
}

func mustEncode(t *testing.T, doc *formats.GLTFDocument, bin []byte) []byte {
	t.Helper()
	data, err := formats.EncodeGLB(doc, bin)
	if err != nil {
		t.Fatalf("EncodeGLB failed: %v", err)
	}
	return data
}
