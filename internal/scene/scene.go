// Package scene assembles the point cloud core: the sphere, the two loaded
// shapes and the morph scheduler, behind a per-frame Update call.
package scene

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/pointmorph/internal/assets"
	"github.com/Faultbox/pointmorph/internal/config"
	"github.com/Faultbox/pointmorph/internal/loader"
	"github.com/Faultbox/pointmorph/internal/logger"
	"github.com/Faultbox/pointmorph/internal/morph"
	"github.com/Faultbox/pointmorph/internal/pointcloud"
	pmath "github.com/Faultbox/pointmorph/pkg/math"
)

type loadResult struct {
	kingdom, museum loader.Shape
}

// Scene holds the core state for one viewer.
type Scene struct {
	cfg *config.Config
	log *zap.Logger

	resampler *pointcloud.Resampler
	loader    *loader.Loader
	scheduler *morph.Scheduler
	colors    []float32

	loading    atomic.Bool
	results    chan loadResult
	reloadCtx  context.Context // set while a reload waits for the load in flight
	kingdom    loader.Shape
	museum     loader.Shape
	resolved   bool
	resolvedAt time.Time
	started    bool
}

// New builds the sphere and an idle scheduler. Models are not fetched until
// Load is called.
func New(cfg *config.Config, src assets.Source) *Scene {
	rng := newRand(cfg.Morph.Seed)
	resampler := pointcloud.NewResampler(cfg.Morph.ParticleCount, rng)

	l := loader.New(src)
	l.Attempts = cfg.Loader.Attempts
	l.Delay = cfg.Loader.RetryDelay
	l.Timeout = cfg.Loader.Timeout

	timing := morph.Timing{
		ProgressStep:  float64(cfg.Morph.ProgressStep),
		TimeStep:      float64(cfg.Morph.TimeStep),
		PauseDuration: float64(cfg.Morph.PauseDuration),
	}

	return &Scene{
		cfg:       cfg,
		log:       logger.Named("scene"),
		resampler: resampler,
		loader:    l,
		scheduler: morph.New(resampler.Sphere, timing),
		colors:    pointcloud.Colors(cfg.Morph.ParticleCount, rng),
		results:   make(chan loadResult, 1),
	}
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
}

// Loader exposes the model loader so callers can tune retries.
func (s *Scene) Loader() *loader.Loader { return s.loader }

// Load starts fetching both models in the background. The result is picked
// up by Update or Wait. Calling Load again after the first result reloads
// the models and swaps them in; it reports false while a load is still in
// flight.
func (s *Scene) Load(ctx context.Context) bool {
	if !s.loading.CompareAndSwap(false, true) {
		s.log.Debug("Load already in progress")
		return false
	}

	kingdom := loader.Spec{Name: s.cfg.Assets.Kingdom.Name, Bias: s.cfg.Assets.Kingdom.Bias}
	museum := loader.Spec{Name: s.cfg.Assets.Museum.Name, Bias: s.cfg.Assets.Museum.Bias}

	s.log.Info("Loading models",
		zap.String("kingdom", kingdom.Name),
		zap.String("museum", museum.Name),
		zap.Int("points", s.cfg.Morph.ParticleCount))

	go func() {
		k, m := s.loader.LoadPair(ctx, kingdom, museum, s.resampler)
		s.loading.Store(false)
		s.results <- loadResult{kingdom: k, museum: m}
	}()
	return true
}

// Reload fetches both models again. A request made while a load is in
// flight is kept and started by Update once that load has resolved.
func (s *Scene) Reload(ctx context.Context) {
	s.reloadCtx = ctx
	s.startPendingReload()
}

// ReloadPending reports whether a reload is waiting for the load in flight.
func (s *Scene) ReloadPending() bool { return s.reloadCtx != nil }

func (s *Scene) startPendingReload() {
	if s.reloadCtx == nil {
		return
	}
	if s.Load(s.reloadCtx) {
		s.reloadCtx = nil
	}
}

// Wait blocks until both models have resolved.
func (s *Scene) Wait(ctx context.Context) error {
	if s.resolved {
		return nil
	}
	select {
	case r := <-s.results:
		s.resolve(r, time.Now())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Update advances one frame. The morph starts StartDelay after both models
// have resolved.
func (s *Scene) Update(now time.Time) {
	select {
	case r := <-s.results:
		s.resolve(r, now)
	default:
	}
	s.startPendingReload()

	if s.resolved && !s.started && now.Sub(s.resolvedAt) >= s.cfg.Morph.StartDelay {
		if err := s.scheduler.Start(); err != nil {
			s.log.Error("Failed to start morph", zap.Error(err))
		} else {
			s.started = true
			s.log.Info("Morph started")
		}
	}

	s.scheduler.Tick()
}

func (s *Scene) resolve(r loadResult, now time.Time) {
	if !s.resolved {
		s.resolved = true
		s.resolvedAt = now
	} else {
		s.log.Info("Models reloaded")
	}
	s.kingdom = r.kingdom
	s.museum = r.museum

	for _, shape := range []loader.Shape{r.kingdom, r.museum} {
		s.log.Info("Model resolved",
			zap.String("name", shape.Name),
			zap.Int("attempts", shape.Attempts),
			zap.Bool("fallback", shape.Fallback))
	}

	if err := s.scheduler.SetShapes(r.kingdom.Points, r.museum.Points); err != nil {
		// Resampler output always matches the sphere; keep the cycle alive
		// on the sphere if that ever breaks.
		s.log.Error("Loaded shapes rejected", zap.Error(err))
		sphere := s.resampler.Fallback()
		_ = s.scheduler.SetShapes(sphere, s.resampler.Fallback())
	}
}

// Resolved reports whether both models have resolved.
func (s *Scene) Resolved() bool { return s.resolved }

// Shapes returns the two loaded shapes. They are zero until Resolved.
func (s *Scene) Shapes() (kingdom, museum loader.Shape) { return s.kingdom, s.museum }

// Scheduler returns the morph scheduler.
func (s *Scene) Scheduler() *morph.Scheduler { return s.scheduler }

// Positions returns the active position buffer for this frame.
func (s *Scene) Positions() []float32 { return s.scheduler.Positions() }

// Colors returns the per-point colors.
func (s *Scene) Colors() []float32 { return s.colors }

// ActiveCount returns the number of points to draw.
func (s *Scene) ActiveCount() int { return s.scheduler.ActiveCount() }

// ModelMatrix returns the slow rotation applied to the whole cloud.
func (s *Scene) ModelMatrix() pmath.Mat4 {
	return pmath.RotateY(float32(s.scheduler.Time()) * s.cfg.Morph.RotationSpeed)
}

// Resize forwards a viewport change. Geometry is unaffected.
func (s *Scene) Resize(width, height int) {
	s.scheduler.Resize(width, height)
}
