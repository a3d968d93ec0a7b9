// Package loader fetches model assets with retries and turns them into
// point sets, falling back to the sphere when a model cannot be used.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/pointmorph/internal/assets"
	"github.com/Faultbox/pointmorph/internal/logger"
	"github.com/Faultbox/pointmorph/internal/pointcloud"
	"github.com/Faultbox/pointmorph/pkg/formats"
)

// Default retry settings.
const (
	DefaultAttempts = 3
	DefaultDelay    = 500 * time.Millisecond
)

// ErrAttemptsExhausted is returned when every fetch attempt failed.
var ErrAttemptsExhausted = errors.New("fetch attempts exhausted")

// Spec names a model and the bias used to sample it.
type Spec struct {
	Name string
	Bias pointcloud.Bias
}

// Shape is the outcome of loading one model.
type Shape struct {
	Name     string
	Points   []float32 // exactly Count points
	Attempts int
	Fallback bool  // Points is the sphere substitute
	Err      error // why the fallback was used
}

// Loader fetches and decodes models.
type Loader struct {
	Source   assets.Source
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration // Per attempt, 0 disables

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error

	log    *zap.Logger
	tokens atomic.Uint64
}

// New creates a loader with default retry settings.
func New(src assets.Source) *Loader {
	l := &Loader{
		Source:   src,
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		Sleep:    sleepContext,
		log:      logger.Named("loader"),
	}
	l.tokens.Store(uint64(time.Now().UnixMilli()))
	return l
}

// nextToken returns a cache token never handed out before by this loader.
func (l *Loader) nextToken() string {
	return strconv.FormatUint(l.tokens.Add(1), 10)
}

// Fetch downloads and decodes a model, retrying transient failures. It
// returns the raw positions and the number of attempts made.
func (l *Loader) Fetch(ctx context.Context, name string) ([]float32, int, error) {
	attempts := l.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		positions, err := l.fetchOnce(ctx, name)
		if err == nil {
			l.log.Debug("Model fetched",
				zap.String("name", name),
				zap.Int("attempt", attempt),
				zap.Int("vertices", len(positions)/3))
			return positions, attempt, nil
		}
		lastErr = err

		if formats.IsPermanent(err) {
			l.log.Warn("Model unusable", zap.String("name", name), zap.Error(err))
			return nil, attempt, err
		}
		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}

		l.log.Warn("Model fetch failed",
			zap.String("name", name),
			zap.Int("attempt", attempt),
			zap.Int("of", attempts),
			zap.Error(err))

		if attempt < attempts {
			if err := l.Sleep(ctx, l.Delay); err != nil {
				return nil, attempt, err
			}
		}
	}
	return nil, attempts, fmt.Errorf("%w: %s after %d attempts: %w", ErrAttemptsExhausted, name, attempts, lastErr)
}

func (l *Loader) fetchOnce(ctx context.Context, name string) ([]float32, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	data, err := l.Source.Fetch(ctx, assets.Request{Name: name, CacheToken: l.nextToken()})
	if err != nil {
		return nil, err
	}

	glb, err := formats.ParseGLB(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if glb.Compressed() {
		l.log.Info("Model is Draco compressed, using procedural stand-in", zap.String("name", name))
	}

	positions, err := glb.Positions()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return positions, nil
}

// Load fetches one model and resamples it. Any failure yields the sphere.
func (l *Loader) Load(ctx context.Context, spec Spec, r *pointcloud.Resampler) Shape {
	raw, attempts, err := l.Fetch(ctx, spec.Name)
	return l.shape(spec, raw, attempts, err, r)
}

func (l *Loader) shape(spec Spec, raw []float32, attempts int, err error, r *pointcloud.Resampler) Shape {
	s := Shape{Name: spec.Name, Attempts: attempts, Err: err}
	if err != nil {
		l.log.Error("Falling back to sphere", zap.String("name", spec.Name), zap.Error(err))
		s.Points = r.Fallback()
		s.Fallback = true
		return s
	}
	s.Points = r.Resample(raw, spec.Bias)
	return s
}

// LoadPair fetches both models concurrently and returns once both have
// resolved. Resampling runs afterwards on the calling goroutine in argument
// order, so a seeded resampler gives reproducible output.
func (l *Loader) LoadPair(ctx context.Context, a, b Spec, r *pointcloud.Resampler) (Shape, Shape) {
	type result struct {
		raw      []float32
		attempts int
		err      error
	}
	var ra, rb result

	var g errgroup.Group
	g.Go(func() error {
		ra.raw, ra.attempts, ra.err = l.Fetch(ctx, a.Name)
		return nil
	})
	g.Go(func() error {
		rb.raw, rb.attempts, rb.err = l.Fetch(ctx, b.Name)
		return nil
	})
	_ = g.Wait()

	return l.shape(a, ra.raw, ra.attempts, ra.err, r),
		l.shape(b, rb.raw, rb.attempts, rb.err, r)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
