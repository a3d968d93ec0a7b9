// Package camera frames the point cloud for rendering.
package camera

import (
	gomath "math"

	"github.com/Faultbox/pointmorph/pkg/math"
)

// Camera looks down -Z at the origin from a fixed distance.
type Camera struct {
	FOV      float32 // Vertical field of view, radians
	Near     float32
	Far      float32
	Distance float32

	// Zoom constraints
	MinDistance     float32
	MaxDistance     float32
	ZoomSensitivity float32

	aspect float32
}

// New creates a camera five units from the origin with a 60 degree field
// of view.
func New() *Camera {
	return &Camera{
		FOV:             gomath.Pi / 3,
		Near:            0.1,
		Far:             100,
		Distance:        5,
		MinDistance:     2.5,
		MaxDistance:     20,
		ZoomSensitivity: 0.1,
		aspect:          1,
	}
}

// SetViewport updates the aspect ratio. Zero sizes (minimized windows) are
// ignored.
func (c *Camera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
}

// Aspect returns the current width/height ratio.
func (c *Camera) Aspect() float32 {
	return c.aspect
}

// Projection returns the perspective matrix.
func (c *Camera) Projection() math.Mat4 {
	return math.Perspective(c.FOV, c.aspect, c.Near, c.Far)
}

// View returns the view matrix.
func (c *Camera) View() math.Mat4 {
	return math.Translate(0, 0, -c.Distance)
}

// ViewProjection returns Projection * View.
func (c *Camera) ViewProjection() math.Mat4 {
	return c.Projection().Mul(c.View())
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *Camera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}
