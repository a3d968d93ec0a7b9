package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/pointmorph/internal/assets"
	"github.com/Faultbox/pointmorph/internal/config"
	"github.com/Faultbox/pointmorph/internal/pointcloud"
	"github.com/Faultbox/pointmorph/internal/scene"
	"github.com/Faultbox/pointmorph/pkg/formats"
)

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	format := fs.String("format", "text", "Output format: text or yaml")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: morphtool inspect [-format yaml] <file.glb>")
		os.Exit(1)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fail("%v", err)
	}

	info, err := inspect(data)
	if err != nil {
		fail("%s: %v", fs.Arg(0), err)
	}
	if *format == "text" {
		fmt.Printf("File:       %s\n", fs.Arg(0))
	}
	if err := writeInfo(os.Stdout, info, *format); err != nil {
		fail("%v", err)
	}
}

// sampleReport describes one resampling run.
type sampleReport struct {
	Input    int        `yaml:"input_vertices"`
	Count    int        `yaml:"count"`
	Fallback bool       `yaml:"fallback"`
	Reason   string     `yaml:"reason,omitempty"`
	Bounds   *boundsRep `yaml:"bounds,omitempty"`
}

// sample resamples a model's positions. Unusable models produce the sphere,
// exactly as the viewer would.
func sample(data []byte, r *pointcloud.Resampler, bias pointcloud.Bias) ([]float32, *sampleReport) {
	report := &sampleReport{Count: r.Count}

	var raw []float32
	glb, err := formats.ParseGLB(data)
	if err == nil {
		raw, err = glb.Positions()
	}
	if err != nil {
		report.Fallback = true
		report.Reason = err.Error()
		points := r.Fallback()
		report.Bounds = boundsOf(points)
		return points, report
	}

	report.Input = len(raw) / 3
	points := r.Resample(raw, bias)
	report.Bounds = boundsOf(points)
	return points, report
}

func cmdSample(args []string) {
	def := config.Default().Assets.Kingdom.Bias

	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	count := fs.Int("count", pointcloud.DefaultCount, "Number of output points")
	seed := fs.Uint64("seed", 1, "Random seed")
	boost := fs.Float64("vertical-boost", float64(def.VerticalBoost), "Weight boost for steep surfaces")
	suppress := fs.Float64("horizontal-suppression", float64(def.HorizontalSuppression), "Weight reduction for flat surfaces")
	jitter := fs.Float64("jitter", float64(def.Jitter), "Per-axis jitter amplitude")
	output := fs.String("o", "", "Write the point set as a GLB")
	format := fs.String("format", "text", "Output format: text or yaml")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: morphtool sample [options] <file.glb>")
		os.Exit(1)
	}
	if *count <= 0 {
		fail("count must be positive")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fail("%v", err)
	}

	r := pointcloud.NewResampler(*count, rand.New(rand.NewPCG(*seed, *seed+1)))
	bias := pointcloud.Bias{
		VerticalBoost:         float32(*boost),
		HorizontalSuppression: float32(*suppress),
		Jitter:                float32(*jitter),
	}
	points, report := sample(data, r, bias)

	if *format == "yaml" {
		if err := yaml.NewEncoder(os.Stdout).Encode(report); err != nil {
			fail("%v", err)
		}
	} else {
		fmt.Printf("Input:      %d vertices\n", report.Input)
		fmt.Printf("Output:     %d points\n", report.Count)
		if report.Fallback {
			fmt.Printf("Fallback:   sphere (%s)\n", report.Reason)
		}
		if report.Bounds != nil {
			writeBounds(os.Stdout, report.Bounds)
		}
	}

	if *output != "" {
		glb, err := formats.PointModel(filepath.Base(fs.Arg(0)), points)
		if err != nil {
			fail("%v", err)
		}
		if err := os.WriteFile(*output, glb, 0644); err != nil {
			fail("%v", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", *output, len(glb))
	}
}

// frameInterval is the simulated wall-clock time between ticks.
const frameInterval = time.Second / 60

// simulate loads the configured models and runs ticks frames, printing
// every mode or phase change.
func simulate(ctx context.Context, cfg *config.Config, src assets.Source, ticks int, w io.Writer) error {
	s := scene.New(cfg, src)
	s.Load(ctx)
	if err := s.Wait(ctx); err != nil {
		return err
	}

	kingdom, museum := s.Shapes()
	for _, shape := range []struct {
		label    string
		attempts int
		fallback bool
		name     string
	}{
		{"kingdom", kingdom.Attempts, kingdom.Fallback, kingdom.Name},
		{"museum", museum.Attempts, museum.Fallback, museum.Name},
	} {
		state := "loaded"
		if shape.fallback {
			state = "sphere fallback"
		}
		fmt.Fprintf(w, "%-8s %s: %s after %d attempt(s)\n", shape.label, shape.name, state, shape.attempts)
	}

	sched := s.Scheduler()
	now := time.Now()
	mode, phase := sched.Mode(), sched.Phase()
	for tick := 1; tick <= ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		now = now.Add(frameInterval)
		s.Update(now)

		if sched.Mode() != mode || sched.Phase() != phase {
			mode, phase = sched.Mode(), sched.Phase()
			fmt.Fprintf(w, "tick %5d  t=%7.4fs  %-8s %s\n", tick, sched.Time(), mode, phase)
		}
	}

	fmt.Fprintf(w, "done: %d ticks, %d points, mode %s, phase %s, progress %.4f\n",
		ticks, s.ActiveCount(), sched.Mode(), sched.Phase(), sched.Progress())
	return nil
}

func cmdSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	assetsFlag := fs.String("assets", "", "Model directory, or base URL when it starts with http:// or https://")
	ticks := fs.Int("ticks", 3*(38+125)+60, "Number of frames to simulate")
	count := fs.Int("count", 0, "Particle count")
	seed := fs.Uint64("seed", 0, "Random seed (0 = random)")
	fs.Parse(args)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fail("%v", err)
	}
	if *assetsFlag != "" {
		cfg.Assets.SetLocation(*assetsFlag)
	}
	if *count > 0 {
		cfg.Morph.ParticleCount = *count
	}
	if *seed != 0 {
		cfg.Morph.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src := assets.New(cfg.Assets.BaseURL, cfg.Assets.Dir)
	if err := simulate(ctx, cfg, src, *ticks, os.Stdout); err != nil {
		fail("%v", err)
	}
}

// synthesize writes two procedural demo models named after the default
// asset names.
func synthesize(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	names := config.Default().Assets
	models := []struct {
		name      string
		positions []float32
	}{
		{names.Kingdom.Name, formats.ProceduralPositions([3]float32{-10, 0, -10}, [3]float32{10, 30, 10}, 6000)},
		{names.Museum.Name, torus(3, 1, 96, 48)},
	}

	var written []string
	for _, m := range models {
		data, err := formats.PointModel(m.name, m.positions)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, m.name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// torus returns points on an upright torus around the z axis.
func torus(major, minor float64, rings, sides int) []float32 {
	positions := make([]float32, 0, rings*sides*3)
	for i := 0; i < rings; i++ {
		u := float64(i) / float64(rings) * 2 * math.Pi
		for j := 0; j < sides; j++ {
			v := float64(j) / float64(sides) * 2 * math.Pi
			r := major + minor*math.Cos(v)
			positions = append(positions,
				float32(r*math.Cos(u)),
				float32(r*math.Sin(u)),
				float32(minor*math.Sin(v)),
			)
		}
	}
	return positions
}

func cmdSynth(args []string) {
	fs := flag.NewFlagSet("synth", flag.ExitOnError)
	fs.Parse(args)

	dir := "assets"
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	written, err := synthesize(dir)
	if err != nil {
		fail("%v", err)
	}
	for _, path := range written {
		fmt.Printf("Wrote: %s\n", path)
	}
}

func cmdInitConfig(args []string) {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	force := fs.Bool("f", false, "Overwrite an existing file")
	fs.Parse(args)

	cfg := config.Default()
	path := filepath.Join(config.ConfigDir(), "config.yaml")
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	if _, err := os.Stat(path); err == nil && !*force {
		fail("%s already exists (use -f to overwrite)", path)
	}
	if err := cfg.SaveTo(path); err != nil {
		fail("%v", err)
	}
	fmt.Printf("Wrote: %s\n", path)
}
