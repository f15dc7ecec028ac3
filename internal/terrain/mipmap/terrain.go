// Package mipmap renders a bounded height field as a fixed grid of patches, each drawn at
// the tier its distance to the viewer allows and stitched to finer neighbors.
package mipmap

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/internal/terrain/geometry"
	"github.com/Faultbox/midgard-terrain/internal/terrain/lod"
	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
)

// Config configures a mipmap terrain.
type Config struct {
	PatchSize int     // P, 2^k + 1
	Tau       float32 // allowed screen-space error in pixels
	LightDir  mgl32.Vec3
	Wireframe bool
	Logger    *zap.Logger
}

// DefaultConfig returns 33-vertex patches.
func DefaultConfig() Config {
	return Config{
		PatchSize: 33,
		Tau:       2,
		LightDir:  mgl32.Vec3{-0.4, -1, -0.3},
	}
}

// Terrain is the geo-mipmap driver.
type Terrain struct {
	cfg Config
	log *zap.Logger

	dev   render.Device
	cache *render.Cache
	cam   terrain.Camera

	heights terrain.HeightMap
	query   *terrain.Query

	topo    *geometry.PatchTopology
	patches []*Patch
	grid    *lod.Grid
	indices [][lod.NeighborCodes]render.Buffer // per tier and code

	tau    float32
	bounds camera.AABB
	stats  terrain.Stats
}

var _ terrain.Driver = (*Terrain)(nil)

// New splits the height field into patches, uploads their vertices and builds the index
// list of every (tier, neighbor code) pair. The height field must be a whole number of
// patches on both axes.
func New(dev render.Device, cam terrain.Camera, heights terrain.HeightMap, normals terrain.Normals, cfg Config) (*Terrain, error) {
	if cfg.Tau <= 0 {
		return nil, fmt.Errorf("%w: tau=%v", lod.ErrInvalidProjection, cfg.Tau)
	}
	topo, err := geometry.NewPatchTopology(cfg.PatchSize)
	if err != nil {
		return nil, err
	}
	span := topo.Size - 1
	w, h := heights.Width(), heights.Height()
	if (w-1)%span != 0 || (h-1)%span != 0 {
		return nil, fmt.Errorf("%w: %dx%d height field is not a whole number of %d-vertex patches",
			geometry.ErrPatchSize, w, h, topo.Size)
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
		query:   terrain.NewQuery(heights, normals),
		topo:    topo,
		grid:    lod.NewGrid((w-1)/span, (h-1)/span),
		tau:     cfg.Tau,
		bounds:  camera.EmptyAABB(),
	}

	start := time.Now()
	if err := t.createPatches(normals); err != nil {
		t.Close()
		return nil, err
	}
	if err := t.createIndices(); err != nil {
		t.Close()
		return nil, err
	}

	log.Info("mipmap terrain created",
		zap.Int("patchSize", topo.Size),
		zap.Int("patches", len(t.patches)),
		zap.Int("tiers", topo.Tiers()),
		zap.Int("indexBuffers", t.cache.Len()),
		zap.Duration("took", time.Since(start)))
	return t, nil
}

func (t *Terrain) createPatches(normals terrain.Normals) error {
	g := t.grid
	t.patches = make([]*Patch, 0, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			p, vertices := newPatch(t.heights, normals, g.Index(x, y), x, y, t.topo.Size, t.topo.Tiers())
			for _, s := range lod.Sides {
				p.Neighbors[s] = g.Neighbor(x, y, s)
			}
			id, err := t.dev.CreateMeshVertexBuffer(vertices)
			if err != nil {
				return fmt.Errorf("patch (%d,%d) vertices: %w", x, y, err)
			}
			p.vertices = id
			t.patches = append(t.patches, p)
			t.bounds = t.bounds.Union(p.bounds)
		}
	}
	return nil
}

func (t *Terrain) createIndices() error {
	t.indices = make([][lod.NeighborCodes]render.Buffer, t.topo.Tiers())
	for tier := range t.indices {
		for c := range lod.NeighborCodes {
			code := lod.NeighborCode(c)
			b, err := t.cache.Indices(t.topo.Key(tier, code), func() []uint16 {
				return t.topo.Indices(tier, code)
			})
			if err != nil {
				return err
			}
			t.indices[tier][c] = b
		}
	}
	return nil
}

// Patches returns the patch arena in row-major order.
func (t *Terrain) Patches() []*Patch {
	return t.patches
}

// Patch returns the patch at grid position (x, y).
func (t *Terrain) Patch(x, y int) *Patch {
	return t.patches[t.grid.Index(x, y)]
}

// Topology returns the shared patch topology.
func (t *Terrain) Topology() *geometry.PatchTopology {
	return t.topo
}

// SetTau implements terrain.Driver.
func (t *Terrain) SetTau(tau float32) error {
	if tau <= 0 {
		return fmt.Errorf("%w: tau=%v", lod.ErrInvalidProjection, tau)
	}
	t.tau = tau
	return nil
}

// Update implements terrain.Updatable. Every patch picks its tier from its own distance
// to the viewer; the tiers are then reconciled so neighbors differ by at most one, and
// each patch's neighbor code is derived from the reconciled tiers.
func (t *Terrain) Update(viewer mgl32.Vec3) error {
	proj := lod.Projection{
		Near:           t.cam.ProjectionNear(),
		Top:            t.cam.ProjectionTop(),
		ViewportHeight: t.cam.ViewportHeight(),
	}

	recomputed := 0
	for i, p := range t.patches {
		changed, err := p.metric.Update(proj, t.tau)
		if err != nil {
			return err
		}
		if changed {
			recomputed++
		}
		t.grid.Tiers[i] = p.metric.Select(p.DistanceSquared(viewer))
	}
	if recomputed > 0 {
		t.log.Debug("patch thresholds updated", zap.Int("patches", recomputed), zap.Float32("tau", t.tau))
	}

	t.stats.Reconcile = t.grid.Reconcile()

	tiers := make([]int, t.topo.Tiers())
	changed := 0
	for i, p := range t.patches {
		tier := t.grid.Tiers[i]
		if tier != p.Tier {
			changed++
		}
		p.Tier = tier
		p.Code = t.grid.Code(p.X, p.Y)
		tiers[tier]++
	}
	t.stats.Tiers = tiers
	if changed > 0 {
		t.log.Debug("patch tiers changed",
			zap.Int("patches", changed),
			zap.Ints("histogram", tiers),
			zap.Int("passes", t.stats.Reconcile))
	}
	return nil
}

// Draw implements terrain.Drawable: one triangle list per visible patch.
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
	for _, p := range t.patches {
		if !frustum.IntersectsAABB(p.bounds) {
			t.stats.Culled++
			continue
		}
		idx := t.indices[p.Tier][p.Code]
		err := t.dev.Draw(render.DrawCall{
			Program:    render.ProgramMipmap,
			Primitive:  render.TriangleList,
			Vertices:   p.vertices,
			Indices:    idx.ID,
			IndexCount: idx.Count,
			Params: render.DrawParams{
				Scale:  1,
				Origin: mgl32.Vec2{float32(p.Origin[0]), float32(p.Origin[1])},
				Tier:   p.Tier,
			},
		})
		if err != nil {
			return fmt.Errorf("patch (%d,%d) draw: %w", p.X, p.Y, err)
		}
		t.stats.DrawCalls++
		t.stats.Triangles += idx.Count / 3
	}
	return nil
}

// HeightAndNormalAt implements terrain.Service.
func (t *Terrain) HeightAndNormalAt(points []mgl32.Vec2) ([]float32, []mgl32.Vec3) {
	return t.query.HeightAndNormalAt(points)
}

// Bounds implements terrain.BoundsProvider.
func (t *Terrain) Bounds() camera.AABB {
	return t.bounds
}

// Stats implements terrain.Driver.
func (t *Terrain) Stats() terrain.Stats {
	return t.stats
}

// Close releases the patch vertex buffers and the shared index buffers.
func (t *Terrain) Close() {
	for _, p := range t.patches {
		if p.vertices != 0 {
			t.dev.DeleteBuffer(p.vertices)
			p.vertices = 0
		}
	}
	t.cache.Release()
}
