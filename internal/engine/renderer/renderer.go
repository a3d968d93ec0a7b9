// Package renderer draws the point cloud with OpenGL.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/pointmorph/internal/engine/camera"
	"github.com/Faultbox/pointmorph/internal/engine/shader"
	"github.com/Faultbox/pointmorph/internal/logger"
	pmath "github.com/Faultbox/pointmorph/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width     int
	Height    int
	PointSize float32
}

// Renderer draws a fixed-size point cloud.
type Renderer struct {
	config Config
	log    *zap.Logger

	program  uint32
	uniforms map[string]int32

	vao         uint32
	positionVBO uint32
	colorVBO    uint32
	capacity    int // points the buffers can hold

	camera *camera.Camera
}

// New creates a renderer for up to capacity points. colors holds one rgb
// triplet per point and is uploaded once.
// Must be called after the OpenGL context exists.
func New(cfg Config, cam *camera.Camera, capacity int, colors []float32) (*Renderer, error) {
	r := &Renderer{
		config:   cfg,
		log:      logger.Named("renderer"),
		capacity: capacity,
		camera:   cam,
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.ClearColor(0.06, 0.06, 0.06, 1.0)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	gl.Enable(gl.PROGRAM_POINT_SIZE)

	var err error
	r.program, err = shader.CompileProgram(shader.PointVertex, shader.PointFragment)
	if err != nil {
		return nil, fmt.Errorf("failed to create point shader: %w", err)
	}
	r.uniforms, err = shader.Uniforms(r.program, "uMVP", "uPointSize")
	if err != nil {
		r.Close()
		return nil, err
	}

	r.createBuffers(colors)
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

func (r *Renderer) createBuffers(colors []float32) {
	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)

	// Positions change every frame.
	gl.GenBuffers(1, &r.positionVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.positionVBO)
	gl.BufferData(gl.ARRAY_BUFFER, r.capacity*3*4, nil, gl.DYNAMIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 0, 0)
	gl.EnableVertexAttribArray(0)

	fitted := make([]float32, r.capacity*3)
	copy(fitted, colors)
	gl.GenBuffers(1, &r.colorVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.colorVBO)
	if len(fitted) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(fitted)*4, gl.Ptr(fitted), gl.STATIC_DRAW)
	}
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, 0, 0)
	gl.EnableVertexAttribArray(1)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	r.log.Debug("point buffers created",
		zap.Uint32("vao", r.vao),
		zap.Int("capacity", r.capacity),
	)
}

// Close releases GL resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	if r.positionVBO != 0 {
		gl.DeleteBuffers(1, &r.positionVBO)
	}
	if r.colorVBO != 0 {
		gl.DeleteBuffers(1, &r.colorVBO)
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
	}
}

// Resize updates the viewport and projection. width and height are in
// framebuffer pixels.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.camera.SetViewport(width, height)
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Draw uploads this frame's positions and draws count points rotated by
// model.
func (r *Renderer) Draw(positions []float32, count int, model pmath.Mat4) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	count = min(count, r.capacity, len(positions)/3)
	if count <= 0 {
		return
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, r.positionVBO)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, count*3*4, gl.Ptr(positions))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	mvp := r.camera.ViewProjection().Mul(model)

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.uniforms["uMVP"], 1, false, mvp.Ptr())
	gl.Uniform1f(r.uniforms["uPointSize"], r.config.PointSize)

	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.POINTS, 0, int32(count))
	gl.BindVertexArray(0)
}

// ReadPixels returns the current framebuffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, w, h
}
