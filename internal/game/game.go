// Package game runs the viewer loop: input, scene update, draw, present.
package game

import (
	"context"
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/pointmorph/internal/assets"
	"github.com/Faultbox/pointmorph/internal/config"
	"github.com/Faultbox/pointmorph/internal/engine/camera"
	"github.com/Faultbox/pointmorph/internal/engine/input"
	"github.com/Faultbox/pointmorph/internal/engine/renderer"
	"github.com/Faultbox/pointmorph/internal/engine/screenshot"
	"github.com/Faultbox/pointmorph/internal/engine/window"
	"github.com/Faultbox/pointmorph/internal/logger"
	"github.com/Faultbox/pointmorph/internal/scene"
)

// Title is the window title.
const Title = "pointmorph"

// ScreenshotDir receives F12 captures.
const ScreenshotDir = "screenshots"

// Game is the viewer instance.
type Game struct {
	config   *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.Camera
	capture  *screenshot.Capture
	watcher  *assets.Watcher
	scene    *scene.Scene
	log      *zap.Logger
}

// New opens the window and prepares the scene. Models are not requested
// until Run.
func New(cfg *config.Config) (*Game, error) {
	g := &Game{
		config:  cfg,
		camera:  camera.New(),
		capture: screenshot.New(ScreenshotDir, Title),
		log:     logger.Named("game"),
	}

	g.log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.Int("points", cfg.Morph.ParticleCount),
	)

	src := assets.New(cfg.Assets.BaseURL, cfg.Assets.Dir)
	g.scene = scene.New(cfg, src)

	var err error
	g.window, err = window.New(window.Config{
		Title:      Title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context the window just created.
	fbw, fbh := g.window.DrawableSize()
	g.renderer, err = renderer.New(renderer.Config{
		Width:     fbw,
		Height:    fbh,
		PointSize: cfg.Graphics.PointSize,
	}, g.camera, cfg.Morph.ParticleCount, g.scene.Colors())
	if err != nil {
		g.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	g.input = input.New()

	if cfg.Assets.Watch && cfg.Assets.BaseURL == "" {
		g.watcher, err = assets.NewWatcher(cfg.Assets.Dir, assets.DefaultDebounce,
			cfg.Assets.Kingdom.Name, cfg.Assets.Museum.Name)
		if err != nil {
			g.log.Warn("model hot reload disabled", zap.Error(err))
		}
	}
	return g, nil
}

// Run loads the models and drives the loop until the window closes or ctx
// is cancelled.
func (g *Game) Run(ctx context.Context) error {
	g.running = true
	g.scene.Load(ctx)

	frameCount := 0
	fpsTimer := time.Now()
	loaded := false

	g.log.Info("starting viewer loop")

	for g.running {
		if ctx.Err() != nil {
			break
		}

		if g.input.Update() {
			g.running = false
			break
		}
		for _, event := range g.input.Events() {
			switch event.Type {
			case input.EventResize:
				// Window events carry logical size; the viewport needs pixels.
				g.renderer.Resize(g.window.DrawableSize())
				g.scene.Resize(event.Width, event.Height)
			case input.EventWheel:
				g.camera.HandleZoom(event.Wheel)
			}
		}

		g.pollWatcher(ctx)

		now := time.Now()
		g.scene.Update(now)
		if !loaded && g.scene.Resolved() {
			loaded = true
			g.updateTitle()
		}

		g.renderer.Draw(g.scene.Positions(), g.scene.ActiveCount(), g.scene.ModelMatrix())
		if g.input.KeyPressed(sdl.SCANCODE_F12) {
			g.saveScreenshot()
		}
		g.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			s := g.scene.Scheduler()
			g.log.Debug("frame stats",
				zap.Int("fps", frameCount),
				zap.Stringer("mode", s.Mode()),
				zap.Stringer("phase", s.Phase()),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (g *Game) updateTitle() {
	kingdom, museum := g.scene.Shapes()
	title := Title
	for _, s := range []struct {
		name     string
		fallback bool
	}{{kingdom.Name, kingdom.Fallback}, {museum.Name, museum.Fallback}} {
		if s.fallback {
			title += fmt.Sprintf(" [%s unavailable]", s.name)
		}
	}
	g.window.SetTitle(title)
}

// pollWatcher reloads the models when a watched file changed.
func (g *Game) pollWatcher(ctx context.Context) {
	if g.watcher == nil {
		return
	}
	select {
	case name, ok := <-g.watcher.Changes():
		if !ok {
			g.watcher = nil
			return
		}
		g.log.Info("reloading models", zap.String("changed", name))
		g.scene.Reload(ctx)
	default:
	}
}

// saveScreenshot captures the back buffer before it is presented.
func (g *Game) saveScreenshot() {
	pixels, w, h := g.renderer.ReadPixels()
	path, err := g.capture.SavePixels(pixels, w, h)
	if err != nil {
		g.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	g.log.Info("screenshot saved", zap.String("path", path))
}

// Close releases the renderer and window.
func (g *Game) Close() {
	g.log.Info("closing viewer")

	if g.watcher != nil {
		g.watcher.Close()
	}
	if g.renderer != nil {
		g.renderer.Close()
	}
	if g.window != nil {
		g.window.Close()
	}
}
