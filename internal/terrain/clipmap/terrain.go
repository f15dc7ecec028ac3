// Package clipmap renders a height field with nested geo-clipmap levels that re-center
// around the viewer.
package clipmap

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/internal/terrain/geometry"
	"github.com/Faultbox/midgard-terrain/internal/terrain/lod"
	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
)

// ErrLevelCount is returned for a clipmap without levels or with more than MaxLevels.
var ErrLevelCount = errors.New("invalid clipmap level count")

// MaxLevels bounds the level count so spacings fit comfortably in an int.
const MaxLevels = 20

// Config configures a clipmap terrain.
type Config struct {
	GridSize    int     // N, 2^k - 1
	Levels      int     // number of nested levels, finest spacing 1
	Tau         float32 // allowed screen-space error in pixels
	RegenBudget time.Duration
	LightDir    mgl32.Vec3
	Wireframe   bool
	Logger      *zap.Logger
}

// DefaultConfig returns a 255-vertex, 6-level clipmap.
func DefaultConfig() Config {
	return Config{
		GridSize:    255,
		Levels:      6,
		Tau:         2,
		RegenBudget: 4 * time.Millisecond,
		LightDir:    mgl32.Vec3{-0.4, -1, -0.3},
	}
}

type buffers struct {
	block, blockIdx   render.Buffer
	fixup, fixupIdx   render.Buffer
	trim, trimIdx     render.Buffer
	stitch, stitchIdx render.Buffer
}

// Terrain is the geo-clipmap driver.
type Terrain struct {
	cfg Config
	log *zap.Logger

	dev   render.Device
	cache *render.Cache
	cam   terrain.Camera

	heights terrain.HeightMap
	normals terrain.Normals
	query   *terrain.Query

	topo    *geometry.Clipmap
	levels  []*Level
	origins []geometry.Origin
	bufs    buffers

	metric *lod.Metric
	tau    float32
	finest int
	viewer mgl32.Vec3
	ground camera.AABB

	stats terrain.Stats
}

var _ terrain.Driver = (*Terrain)(nil)

// New builds the shared topology, allocates one elevation and one normal texture per level
// and computes the per-level error metric. Levels are placed on the first Update.
func New(dev render.Device, cam terrain.Camera, heights terrain.HeightMap, normals terrain.Normals, cfg Config) (*Terrain, error) {
	if cfg.Levels < 1 || cfg.Levels > MaxLevels {
		return nil, fmt.Errorf("%w: %d", ErrLevelCount, cfg.Levels)
	}
	if cfg.Tau <= 0 {
		return nil, fmt.Errorf("%w: tau=%v", lod.ErrInvalidProjection, cfg.Tau)
	}
	topo, err := geometry.NewClipmap(cfg.GridSize)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	t := &Terrain{
		cfg:     cfg,
		log:     log,
		dev:     dev,
		cache:   render.NewCache(dev),
		cam:     cam,
		heights: heights,
		normals: normals,
		query:   terrain.NewQuery(heights, normals),
		topo:    topo,
		tau:     cfg.Tau,
	}
	t.origins = append(append([]geometry.Origin(nil), topo.RingBlocks...), topo.CenterBlocks...)

	if err := t.createBuffers(); err != nil {
		t.Close()
		return nil, err
	}
	if err := t.createLevels(); err != nil {
		t.Close()
		return nil, err
	}

	start := time.Now()
	deltas := make([]float32, cfg.Levels)
	for i := range deltas {
		deltas[i] = lod.MaximumDelta(heights, 0, 0, heights.Width()-1, heights.Height()-1, 1<<i)
	}
	t.metric = lod.NewMetric(deltas)
	t.ground = fieldBounds(heights)

	log.Info("clipmap terrain created",
		zap.Int("gridSize", topo.Size),
		zap.Int("blockSize", topo.BlockSize),
		zap.Int("levels", cfg.Levels),
		zap.Int("buffers", t.cache.Len()),
		zap.Duration("metric", time.Since(start)))
	return t, nil
}

func (t *Terrain) createBuffers() error {
	n := t.topo.Size
	key := func(name string) string { return fmt.Sprintf("clipmap/%d/%s", n, name) }

	var err error
	grid := func(name string, mesh geometry.Mesh, dst *render.Buffer) {
		if err != nil {
			return
		}
		*dst, err = t.cache.GridVertices(key(name), func() []render.GridVertex { return mesh.Vertices })
	}
	index := func(name string, mesh geometry.Mesh, dst *render.Buffer) {
		if err != nil {
			return
		}
		*dst, err = t.cache.Indices(key(name), func() []uint16 { return mesh.Indices })
	}

	grid("block/vertices", t.topo.Block, &t.bufs.block)
	index("block/indices", t.topo.Block, &t.bufs.blockIdx)
	grid("fixup/vertices", t.topo.Fixups, &t.bufs.fixup)
	index("fixup/indices", t.topo.Fixups, &t.bufs.fixupIdx)
	grid("trim/vertices", t.topo.Trims, &t.bufs.trim)
	index("trim/indices", t.topo.Trims, &t.bufs.trimIdx)
	grid("stitch/vertices", t.topo.Stitch, &t.bufs.stitch)
	index("stitch/indices", t.topo.Stitch, &t.bufs.stitchIdx)
	return err
}

func (t *Terrain) createLevels() error {
	n := t.topo.Size
	t.levels = make([]*Level, t.cfg.Levels)
	for i := range t.levels {
		l := newLevel(i, n, t.topo.BlockSize)
		if i+1 < t.cfg.Levels {
			l.Coarser = i + 1
		}
		t.levels[i] = l
		var err error
		if l.elevation, err = t.dev.CreateTexture(n, n, 2); err != nil {
			return fmt.Errorf("level %d elevation texture: %w", i, err)
		}
		if l.normals, err = t.dev.CreateTexture(n, n, 4); err != nil {
			return fmt.Errorf("level %d normal texture: %w", i, err)
		}
	}
	return nil
}

// Levels returns the level arena, finest first.
func (t *Terrain) Levels() []*Level {
	return t.levels
}

// Topology returns the shared clipmap topology.
func (t *Terrain) Topology() *geometry.Clipmap {
	return t.topo
}

// FinestActive returns the index of the finest level drawn this frame.
func (t *Terrain) FinestActive() int {
	return t.finest
}

// SetTau implements terrain.Driver.
func (t *Terrain) SetTau(tau float32) error {
	if tau <= 0 {
		return fmt.Errorf("%w: tau=%v", lod.ErrInvalidProjection, tau)
	}
	t.tau = tau
	return nil
}

func (t *Terrain) projection() lod.Projection {
	return lod.Projection{
		Near:           t.cam.ProjectionNear(),
		Top:            t.cam.ProjectionTop(),
		ViewportHeight: t.cam.ViewportHeight(),
	}
}

// Update implements terrain.Updatable. It picks the finest active level from the viewer's
// height above ground, re-centers levels coarse to fine and regenerates the textures of
// every level that moved.
func (t *Terrain) Update(viewer mgl32.Vec3) error {
	t.viewer = viewer
	t.stats.Recenters = 0
	t.stats.Regenerated = 0
	t.stats.RegenTime = 0

	if changed, err := t.metric.Update(t.projection(), t.tau); err != nil {
		return err
	} else if changed {
		t.log.Debug("level thresholds updated", zap.Float32s("thresholds", t.metric.Thresholds()))
	}

	ground := t.heights.Interpolate(viewer.X(), viewer.Z())
	dy := viewer.Y() - ground
	finest := t.metric.Select(dy * dy)
	if finest != t.finest {
		t.log.Debug("finest level changed", zap.Int("from", t.finest), zap.Int("to", finest))
	}
	t.finest = finest
	t.stats.ActiveLevel = finest

	coarserMoved := false
	for i := len(t.levels) - 1; i >= 0; i-- {
		l := t.levels[i]
		if i < finest {
			l.Active = false
			l.placed = false
			continue
		}
		l.Active = true
		moved := t.place(l, viewer)
		if moved || coarserMoved {
			l.dirty = true
		}
		coarserMoved = moved
	}

	t.updateTrims(viewer)
	return t.regenerate()
}

// place moves l so the viewer sits in its central square and its origin lies at one of
// the two legal offsets inside its coarser level. It reports whether the origin changed.
func (t *Terrain) place(l *Level, viewer mgl32.Vec3) bool {
	m := t.topo.BlockSize
	s := l.Spacing
	pos := [2]float32{viewer.X(), viewer.Z()}

	next := l.PositionMin
	if !l.placed {
		for a := range 2 {
			next[a] = snap(pos[a]-float32((2*m-1)*s), 2*s)
		}
	} else {
		for a := range 2 {
			u := (pos[a] - float32(l.PositionMin[a])) / float32(s)
			next[a] += RecenterDelta(u, m) * s
		}
	}

	if l.Coarser >= 0 {
		c := t.levels[l.Coarser]
		for a := range 2 {
			lo := c.PositionMin[a] + (m-1)*c.Spacing
			hi := lo + c.Spacing
			next[a] = max(lo, min(hi, next[a]))
		}
	}

	moved := !l.placed || next != l.PositionMin
	if moved && l.placed {
		t.stats.Recenters++
		t.log.Debug("level re-centered",
			zap.Int("level", l.Index),
			zap.Int("dx", next[0]-l.PositionMin[0]),
			zap.Int("dz", next[1]-l.PositionMin[1]))
	}
	l.PositionMin = next
	l.placed = true
	return moved
}

func (t *Terrain) updateTrims(viewer mgl32.Vec3) {
	m := t.topo.BlockSize
	for i := t.finest + 1; i < len(t.levels); i++ {
		f, c := t.levels[i-1], t.levels[i]
		ox := (f.PositionMin[0] - c.PositionMin[0]) / c.Spacing
		oy := (f.PositionMin[1] - c.PositionMin[1]) / c.Spacing
		c.Trim = geometry.TrimFor(ox, oy, m)
	}

	// The finest level has no finer level; pick the trim a finer level centred on the
	// viewer would need and draw its opposite as well.
	l := t.levels[t.finest]
	u := l.Grid(viewer)
	center := float32(t.topo.Center())
	ox, oy := m-1, m-1
	if u.X() >= center {
		ox = m
	}
	if u.Y() >= center {
		oy = m
	}
	l.Trim = geometry.TrimFor(ox, oy, m)
}

func (t *Terrain) regenerate() error {
	start := time.Now()
	for i := len(t.levels) - 1; i >= t.finest; i-- {
		l := t.levels[i]
		if !l.dirty {
			continue
		}
		l.regenerate(t.heights, t.normals, t.origins)
		if err := t.dev.UpdateTexture(l.elevation, l.elevData); err != nil {
			return fmt.Errorf("level %d elevation upload: %w", i, err)
		}
		if err := t.dev.UpdateTexture(l.normals, l.normData); err != nil {
			return fmt.Errorf("level %d normal upload: %w", i, err)
		}
		t.stats.Regenerated++
	}
	t.stats.RegenTime = time.Since(start)

	if t.stats.Regenerated > 0 && t.cfg.RegenBudget > 0 && t.stats.RegenTime > t.cfg.RegenBudget {
		t.log.Warn("texture regeneration over budget",
			zap.Int("levels", t.stats.Regenerated),
			zap.Duration("took", t.stats.RegenTime),
			zap.Duration("budget", t.cfg.RegenBudget))
	}
	return nil
}

// levelParams returns the draw parameters shared by every piece of l.
func (t *Terrain) levelParams(l *Level) render.DrawParams {
	n := float32(t.topo.Size)
	w := n / 10
	return render.DrawParams{
		Scale:        float32(l.Spacing),
		Origin:       mgl32.Vec2{float32(l.PositionMin[0]), float32(l.PositionMin[1])},
		Texture:      l.elevation,
		Normals:      l.normals,
		ViewerGrid:   l.Grid(t.viewer),
		AlphaOffset:  (n-1)/2 - w - 1,
		OneOverWidth: 1 / w,
		Tier:         l.Index,
	}
}

// Draw implements terrain.Drawable. Levels are drawn coarse to fine: ring blocks, fix-ups,
// the interior trim and edge stitches on every active level, plus centre blocks and the
// opposite trim on the finest one.
func (t *Terrain) Draw() error {
	t.stats.DrawCalls = 0
	t.stats.Culled = 0
	t.stats.Triangles = 0

	t.dev.BeginFrame(render.FrameParams{
		View:       t.cam.View(),
		Projection: t.cam.Projection(),
		Eye:        t.cam.Position(),
		LightDir:   t.cfg.LightDir.Normalize(),
		Wireframe:  t.cfg.Wireframe,
	})
	defer t.dev.EndFrame()

	frustum := t.cam.Frustum()
	for i := len(t.levels) - 1; i >= t.finest; i-- {
		l := t.levels[i]
		if !l.placed {
			continue
		}
		if !frustum.IntersectsAABB(l.bounds) {
			t.stats.Culled++
			continue
		}
		p := t.levelParams(l)

		blocks := t.topo.RingBlocks
		if i == t.finest {
			blocks = t.origins
		}
		for _, o := range blocks {
			if !frustum.IntersectsAABB(l.blockBounds[o]) {
				t.stats.Culled++
				continue
			}
			bp := p
			bp.Offset = mgl32.Vec2{float32(o.X), float32(o.Y)}
			if err := t.draw(t.bufs.block, t.bufs.blockIdx, 0, bp); err != nil {
				return err
			}
		}

		for k := 0; k < 4; k++ {
			if err := t.draw(t.bufs.fixup, t.bufs.fixupIdx, t.topo.FixupBaseVertex(k), p); err != nil {
				return err
			}
		}

		if err := t.draw(t.bufs.trim, t.bufs.trimIdx, t.topo.TrimBaseVertex(l.Trim), p); err != nil {
			return err
		}
		if i == t.finest {
			if err := t.draw(t.bufs.trim, t.bufs.trimIdx, t.topo.TrimBaseVertex(l.Trim.Opposite()), p); err != nil {
				return err
			}
		}

		if err := t.draw(t.bufs.stitch, t.bufs.stitchIdx, 0, p); err != nil {
			return err
		}
	}
	return nil
}

func (t *Terrain) draw(vertices, indices render.Buffer, base int, p render.DrawParams) error {
	err := t.dev.Draw(render.DrawCall{
		Program:    render.ProgramClipmap,
		Primitive:  render.TriangleStrip,
		Vertices:   vertices.ID,
		BaseVertex: base,
		Indices:    indices.ID,
		IndexCount: indices.Count,
		Params:     p,
	})
	if err != nil {
		return fmt.Errorf("clipmap draw: %w", err)
	}
	t.stats.DrawCalls++
	t.stats.Triangles += indices.Count - 2
	return nil
}

// HeightAndNormalAt implements terrain.Service.
func (t *Terrain) HeightAndNormalAt(points []mgl32.Vec2) ([]float32, []mgl32.Vec3) {
	return t.query.HeightAndNormalAt(points)
}

// Bounds implements terrain.BoundsProvider: the coarsest level's footprint once placed,
// the height field extent before that.
func (t *Terrain) Bounds() camera.AABB {
	if c := t.levels[len(t.levels)-1]; c.placed && !c.bounds.Empty() {
		return c.bounds
	}
	return t.ground
}

// Stats implements terrain.Driver.
func (t *Terrain) Stats() terrain.Stats {
	return t.stats
}

// Close releases every texture and shared buffer.
func (t *Terrain) Close() {
	for _, l := range t.levels {
		if l == nil {
			continue
		}
		if l.elevation != 0 {
			t.dev.DeleteTexture(l.elevation)
			l.elevation = 0
		}
		if l.normals != 0 {
			t.dev.DeleteTexture(l.normals)
			l.normals = 0
		}
		l.placed = false
	}
	t.cache.Release()
}

func fieldBounds(h terrain.HeightMap) camera.AABB {
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for y := 0; y < h.Height(); y++ {
		for x := 0; x < h.Width(); x++ {
			v := h.Sample(x, y)
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	return camera.AABB{
		Min: mgl32.Vec3{0, lo, 0},
		Max: mgl32.Vec3{float32(h.Width() - 1), hi, float32(h.Height() - 1)},
	}
}
