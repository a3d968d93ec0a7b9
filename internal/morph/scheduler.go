// Package morph drives the point cloud through its sphere, kingdom and
// museum shapes with eased transitions separated by short pauses.
package morph

import (
	"errors"
	"fmt"
)

// Default per-tick timing. A transition takes ceil(1/ProgressStep) = 38
// ticks and a pause PauseDuration/TimeStep = 125 ticks.
const (
	DefaultProgressStep  = 0.0266
	DefaultTimeStep      = 0.0016
	DefaultPauseDuration = 0.2
)

// Scheduler errors.
var (
	ErrShapesNotReady = errors.New("loaded shapes not set")
	ErrShapeSize      = errors.New("shape size does not match sphere")
)

// Timing holds the fixed per-tick increments. Time advances by TimeStep per
// tick regardless of wall-clock time, so animation speed follows frame rate.
type Timing struct {
	ProgressStep  float64 // Morph progress per tick
	TimeStep      float64 // Simulated seconds per tick
	PauseDuration float64 // Simulated seconds between phases
}

// DefaultTiming returns the standard timing.
func DefaultTiming() Timing {
	return Timing{
		ProgressStep:  DefaultProgressStep,
		TimeStep:      DefaultTimeStep,
		PauseDuration: DefaultPauseDuration,
	}
}

// Ease is the cubic ease-in-out curve.
func Ease(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// Blend writes from*(1-e) + to*e into dst. All three slices must have the
// same length.
func Blend(dst, from, to []float32, e float64) {
	inv := 1 - e
	for i := range dst {
		dst[i] = float32(float64(from[i])*inv + float64(to[i])*e)
	}
}

// Scheduler owns the morph state and the active position buffer. It is not
// safe for concurrent use; Tick and the buffer readers run on one goroutine.
type Scheduler struct {
	timing Timing
	shapes [3][]float32
	ready  bool

	mode     Mode
	phase    Phase
	progress float64
	pause    float64
	time     float64

	buffer []float32
}

// New creates an idle scheduler. The active buffer starts as a copy of the
// sphere.
func New(sphere []float32, timing Timing) *Scheduler {
	s := &Scheduler{
		timing: timing,
		buffer: make([]float32, len(sphere)),
	}
	s.shapes[ShapeSphere] = sphere
	copy(s.buffer, sphere)
	return s
}

// SetShapes installs the two loaded point sets. Both must match the sphere
// in length.
func (s *Scheduler) SetShapes(kingdom, museum []float32) error {
	n := len(s.shapes[ShapeSphere])
	if len(kingdom) != n || len(museum) != n {
		return fmt.Errorf("%w: sphere %d, kingdom %d, museum %d values",
			ErrShapeSize, n, len(kingdom), len(museum))
	}
	s.shapes[ShapeKingdom] = kingdom
	s.shapes[ShapeMuseum] = museum
	s.ready = true
	return nil
}

// Start begins the cycle at phase 0. Starting a running scheduler is a
// no-op.
func (s *Scheduler) Start() error {
	if !s.ready {
		return ErrShapesNotReady
	}
	if s.mode != Idle {
		return nil
	}
	s.mode = Morphing
	s.phase = SphereToKingdom
	s.progress = 0
	s.pause = 0
	return nil
}

// Tick advances the scheduler by one frame. Exactly one state is evaluated
// per tick.
func (s *Scheduler) Tick() {
	s.time += s.timing.TimeStep

	switch s.mode {
	case Morphing:
		s.progress += s.timing.ProgressStep
		if s.progress > 1 {
			s.progress = 1
		}
		Blend(s.buffer, s.shapes[s.phase.From()], s.shapes[s.phase.To()], Ease(s.progress))
		if s.progress >= 1 {
			s.mode = Paused
			s.progress = 0
			s.pause = 0
		}

	case Paused:
		s.pause += s.timing.TimeStep
		if s.pause >= s.timing.PauseDuration {
			s.phase = s.phase.Next()
			s.mode = Morphing
		}
	}
}

// Positions returns the active position buffer. Callers must not modify it;
// it is rewritten by the next Tick.
func (s *Scheduler) Positions() []float32 { return s.buffer }

// ActiveCount returns the number of points in the active buffer.
func (s *Scheduler) ActiveCount() int { return len(s.buffer) / 3 }

// Shape returns the point set for id.
func (s *Scheduler) Shape(id Shape) []float32 { return s.shapes[id] }

func (s *Scheduler) Mode() Mode            { return s.mode }
func (s *Scheduler) Phase() Phase          { return s.phase }
func (s *Scheduler) Progress() float64     { return s.progress }
func (s *Scheduler) PauseElapsed() float64 { return s.pause }
func (s *Scheduler) Ready() bool           { return s.ready }

// Time returns the simulated seconds elapsed since creation.
func (s *Scheduler) Time() float64 { return s.time }

// Resize is part of the presentation contract. Viewport changes do not
// affect geometry.
func (s *Scheduler) Resize(width, height int) {}
