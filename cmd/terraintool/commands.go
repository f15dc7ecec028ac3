package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/terrain/geometry"
	"github.com/Faultbox/midgard-terrain/internal/terrain/lod"
	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
	"github.com/Faultbox/midgard-terrain/internal/terrain/setup"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// loadConfig loads the file at path over the defaults and applies the shared overrides.
func loadConfig(path, mode string, seed int64) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if mode != "" {
		cfg.Terrain.Mode = mode
	}
	if seed != 0 {
		cfg.HeightMap.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func cmdTopology(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("topology", stderr)
	grid := fs.Int("grid", 255, "Clipmap vertices per level side (2^k-1)")
	patch := fs.Int("patch", 33, "Mipmap vertices per patch side (2^k+1)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := geometry.NewClipmap(*grid)
	if err != nil {
		return err
	}
	p, err := geometry.NewPatchTopology(*patch)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	m := c.BlockSize
	fmt.Fprintf(w, "Clipmap N=%d M=%d\n", c.Size, m)
	fmt.Fprintln(w, "piece\tvertices\tindices")
	fmt.Fprintf(w, "block\t%d\t%d\n", len(c.Block.Vertices), len(c.Block.Indices))
	fmt.Fprintf(w, "fixup\t%d\t%d\n", geometry.FixupVertices(m), geometry.FixupIndexCount(m))
	fmt.Fprintf(w, "trim\t%d\t%d\n", geometry.TrimVertices(m), geometry.TrimIndexCount(m))
	fmt.Fprintf(w, "stitch\t%d\t%d\n", len(c.Stitch.Vertices), len(c.Stitch.Indices))
	fmt.Fprintf(w, "ring blocks\t%d\t\n", len(c.RingBlocks))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Mipmap P=%d tiers=%d\n", p.Size, p.Tiers())
	fmt.Fprintln(w, "tier\tstep\tplain\tall finer")
	all := lod.NeighborCode(lod.NeighborCodes - 1)
	for t := range p.Tiers() {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\n", t, p.Step(t), p.IndexCount(t, 0), p.IndexCount(t, all))
	}
	return w.Flush()
}

// flightPath returns the viewer position at frame i of a circular flight around the
// terrain centre, and the point it looks at.
func flightPath(bounds camera.AABB, i int, step float32) (pos, target mgl32.Vec3) {
	c := bounds.Center()
	radius := 0.35 * min(bounds.Max.X()-bounds.Min.X(), bounds.Max.Z()-bounds.Min.Z())
	angle := float64(float32(i) * step / max(radius, 1))
	dir := mgl32.Vec3{float32(math.Cos(angle)), 0, float32(math.Sin(angle))}
	pos = c.Add(dir.Mul(radius))
	tangent := mgl32.Vec3{-dir.Z(), 0, dir.X()}
	return pos, pos.Add(tangent)
}

type simSummary struct {
	frames      int
	drawCalls   int
	maxCalls    int
	triangles   int
	culled      int
	recenters   int
	regenerated int
	passes      int
	elapsed     time.Duration
}

func cmdSimulate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("simulate", stderr)
	cfgPath := fs.String("config", "", "Config file (defaults otherwise)")
	mode := fs.String("mode", "", "Terrain mode override: clipmap or mipmap")
	seed := fs.Int64("seed", 0, "Noise seed override")
	frames := fs.Int("frames", 300, "Number of frames to simulate")
	every := fs.Int("every", 60, "Print stats every N frames (0 = summary only)")
	altitude := fs.Float64("altitude", 40, "Flight height above the ground")
	tau := fs.Float64("tau", 0, "Screen-space error override in pixels")
	verbose := fs.Bool("v", false, "Log driver activity to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", *frames)
	}

	cfg, err := loadConfig(*cfgPath, *mode, *seed)
	if err != nil {
		return err
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logger.New(level, logger.FileConfig{}, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cam := camera.NewFlyCamera(cfg.Graphics.Width, cfg.Graphics.Height)
	cam.FOV = cfg.Graphics.FOV
	cam.Near = cfg.Graphics.Near
	cam.Far = cfg.Graphics.Far

	rec := render.NewRecorder()
	scene, err := setup.Build(rec, cam, cfg, log)
	if err != nil {
		return err
	}
	defer scene.Driver.Close()
	d := scene.Driver
	if *tau > 0 {
		if err := d.SetTau(float32(*tau)); err != nil {
			return err
		}
	}

	lo, hi := scene.Field.MinMax()
	extent := camera.AABB{
		Min: mgl32.Vec3{0, lo, 0},
		Max: mgl32.Vec3{float32(scene.Field.Width() - 1), hi, float32(scene.Field.Height() - 1)},
	}
	step := cfg.Camera.Speed / 60
	var sum simSummary
	start := time.Now()
	for i := range *frames {
		pos, target := flightPath(extent, i, step)
		ground, _ := d.HeightAndNormalAt([]mgl32.Vec2{{pos.X(), pos.Z()}})
		pos[1] = ground[0] + float32(*altitude)
		target[1] = pos[1]
		cam.Pos = pos
		cam.LookAt(target)

		if err := d.Update(cam.Position()); err != nil {
			return fmt.Errorf("frame %d update: %w", i, err)
		}
		if err := d.Draw(); err != nil {
			return fmt.Errorf("frame %d draw: %w", i, err)
		}

		st := d.Stats()
		sum.frames++
		sum.drawCalls += st.DrawCalls
		sum.maxCalls = max(sum.maxCalls, st.DrawCalls)
		sum.triangles += st.Triangles
		sum.culled += st.Culled
		sum.recenters += st.Recenters
		sum.regenerated += st.Regenerated
		sum.passes += st.Reconcile

		if *every > 0 && i%*every == 0 {
			fmt.Fprintf(stdout, "frame %4d  pos (%.0f, %.0f, %.0f)  %s\n", i, pos.X(), pos.Y(), pos.Z(), st)
		}
	}
	sum.elapsed = time.Since(start)

	log.Debug("simulation finished", zap.Int("frames", sum.frames), zap.Duration("took", sum.elapsed))
	printSummary(stdout, cfg.Terrain.Mode, sum)
	return nil
}

func printSummary(w io.Writer, mode string, s simSummary) {
	n := float64(s.frames)
	fmt.Fprintf(w, "\n%s: %d frames in %v (%.2f ms/frame CPU)\n", mode, s.frames, s.elapsed.Round(time.Millisecond),
		float64(s.elapsed.Microseconds())/1000/n)
	fmt.Fprintf(w, "  draw calls  avg %.1f  max %d\n", float64(s.drawCalls)/n, s.maxCalls)
	fmt.Fprintf(w, "  triangles   avg %.0f\n", float64(s.triangles)/n)
	fmt.Fprintf(w, "  culled      avg %.1f\n", float64(s.culled)/n)
	if mode == config.ModeClipmap {
		fmt.Fprintf(w, "  recenters   %d  regenerated levels %d\n", s.recenters, s.regenerated)
	} else {
		fmt.Fprintf(w, "  reconcile   avg %.2f passes\n", float64(s.passes)/n)
	}
}

func cmdHeightMap(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("heightmap", stderr)
	cfgPath := fs.String("config", "", "Config file (defaults otherwise)")
	seed := fs.Int64("seed", 0, "Noise seed override")
	out := fs.String("out", "", "Output PNG path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("-out is required")
	}

	cfg, err := loadConfig(*cfgPath, "", *seed)
	if err != nil {
		return err
	}
	f, err := setup.HeightField(cfg.HeightMap)
	if err != nil {
		return err
	}
	if err := f.SavePNG(*out); err != nil {
		return err
	}
	lo, hi := f.MinMax()
	fmt.Fprintf(stdout, "wrote %s: %dx%d, elevation %.2f..%.2f\n", *out, f.Width(), f.Height(), lo, hi)
	return nil
}

func cmdConfig(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("config", stderr)
	cfgPath := fs.String("config", "", "Config file (defaults otherwise)")
	out := fs.String("out", "", "Write to this path instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		return err
	}
	if *out != "" {
		if err := cfg.SaveTo(*out); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", *out)
		return nil
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
