package mipmap

import (
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/terrain/geometry"
	"github.com/Faultbox/midgard-terrain/internal/terrain/heightfield"
	"github.com/Faultbox/midgard-terrain/internal/terrain/lod"
	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
)

type stubCamera struct {
	frustum camera.Frustum
}

func (c *stubCamera) Position() mgl32.Vec3 { return mgl32.Vec3{} }
func (c *stubCamera) ProjectionNear() float32 { return 1 }
func (c *stubCamera) ProjectionTop() float32 { return 0.5 }
func (c *stubCamera) ViewportHeight() int { return 600 }
func (c *stubCamera) View() mgl32.Mat4 { return mgl32.Ident4() }
func (c *stubCamera) Projection() mgl32.Mat4 { return mgl32.Ident4() }
func (c *stubCamera) Frustum() camera.Frustum { return c.frustum }

func newTerrain(t *testing.T, f *heightfield.Field, patchSize int) (*Terrain, *render.Recorder, *stubCamera) {
	t.Helper()
	rec := render.NewRecorder()
	cam := &stubCamera{}
	cfg := DefaultConfig()
	cfg.PatchSize = patchSize
	mt, err := New(rec, cam, f, heightfield.NewNormalField(f), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(mt.Close)
	return mt, rec, cam
}

// spike returns a 13x13 field, 3x3 patches of 5 vertices, that is flat except for one
// interior peak in the centre patch.
func spike(t *testing.T) *heightfield.Field {
	t.Helper()
	const n = 13
	data := make([]float32, n*n)
	data[6*n+6] = 10
	f, err := heightfield.New(n, n, data)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func noise(t *testing.T, size int) *heightfield.Field {
	t.Helper()
	f, err := heightfield.Generate(size, size, heightfield.DefaultNoiseParams())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		patch int
		tau   float32
		want  error
	}{
		{"patch not 2^k+1", 13, 4, 2, geometry.ErrPatchSize},
		{"patch too small", 13, 2, 2, geometry.ErrPatchSize},
		{"field not whole patches", 14, 5, 2, geometry.ErrPatchSize},
		{"indices overflow", 513, 257, 2, geometry.ErrIndexRange},
		{"zero tau", 13, 5, 0, lod.ErrInvalidProjection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := heightfield.Flat(tt.size, tt.size, 0)
			rec := render.NewRecorder()
			cfg := DefaultConfig()
			cfg.PatchSize = tt.patch
			cfg.Tau = tt.tau
			_, err := New(rec, &stubCamera{}, f, heightfield.NewNormalField(f), cfg)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(rec.MeshBuffers) != 0 || len(rec.IndexBuffers) != 0 {
				t.Errorf("failed New leaked %d vertex and %d index buffers", len(rec.MeshBuffers), len(rec.IndexBuffers))
			}
		})
	}
}

func TestPatchLayout(t *testing.T) {
	mt, rec, _ := newTerrain(t, spike(t), 5)

	if got := len(mt.Patches()); got != 9 {
		t.Fatalf("patches = %d, want 9", got)
	}
	if got := len(rec.MeshBuffers); got != 9 {
		t.Errorf("vertex buffers = %d, want one per patch", got)
	}
	// Tier 0 shares one list across every code.
	if got, want := len(rec.IndexBuffers), 1+(mt.Topology().Tiers()-1)*lod.NeighborCodes; got != want {
		t.Errorf("index buffers = %d, want %d", got, want)
	}

	c := mt.Patch(1, 1)
	if c.Origin != [2]int{4, 4} {
		t.Errorf("centre origin = %v", c.Origin)
	}
	if want := [4]int{3, 5, 1, 7}; c.Neighbors != want {
		t.Errorf("centre neighbors = %v, want %v", c.Neighbors, want)
	}
	if corner := mt.Patch(0, 0); corner.Neighbors != [4]int{-1, 1, -1, 3} {
		t.Errorf("corner neighbors = %v", corner.Neighbors)
	}
	if got := c.Center(); got != (mgl32.Vec3{6, 5, 6}) {
		t.Errorf("centre patch center = %v", got)
	}
	if v := rec.MeshBuffers[c.VertexBuffer()][2*5+2]; v.Position != (mgl32.Vec3{6, 10, 6}) {
		t.Errorf("peak vertex = %v", v.Position)
	}

	b := mt.Bounds()
	if b.Min != (mgl32.Vec3{0, 0, 0}) || b.Max != (mgl32.Vec3{12, 10, 12}) {
		t.Errorf("bounds = %+v", b)
	}
}

func TestFinestPatchWithCoarserNeighbors(t *testing.T) {
	mt, _, _ := newTerrain(t, spike(t), 5)

	if err := mt.Update(mgl32.Vec3{6, 5, 6}); err != nil {
		t.Fatal(err)
	}

	want := [][]int{
		{2, 1, 2},
		{1, 0, 1},
		{2, 1, 2},
	}
	for y := range want {
		for x := range want[y] {
			if got := mt.Patch(x, y).Tier; got != want[y][x] {
				t.Errorf("patch (%d,%d) tier = %d, want %d", x, y, got, want[y][x])
			}
		}
	}

	st := mt.Stats()
	if st.Reconcile != 2 {
		t.Errorf("reconcile passes = %d, want 2", st.Reconcile)
	}
	if !slices.Equal(st.Tiers, []int{1, 4, 4}) {
		t.Errorf("tier histogram = %v", st.Tiers)
	}

	codes := map[[2]int]lod.NeighborCode{
		{1, 1}: 0,
		{1, 0}: lod.BottomFiner,
		{0, 1}: lod.RightFiner,
		{2, 1}: lod.LeftFiner,
		{1, 2}: lod.TopFiner,
		{0, 0}: lod.RightFiner | lod.BottomFiner,
		{2, 2}: lod.LeftFiner | lod.TopFiner,
	}
	for pos, want := range codes {
		if got := mt.Patch(pos[0], pos[1]).Code; got != want {
			t.Errorf("patch %v code = %v, want %v", pos, got, want)
		}
	}
}

func TestDrawSelectsListPerTierAndCode(t *testing.T) {
	mt, rec, _ := newTerrain(t, spike(t), 5)
	if err := mt.Update(mgl32.Vec3{6, 5, 6}); err != nil {
		t.Fatal(err)
	}
	if err := mt.Draw(); err != nil {
		t.Fatal(err)
	}

	if len(rec.Calls) != 9 {
		t.Fatalf("draw calls = %d, want 9", len(rec.Calls))
	}
	topo := mt.Topology()
	for _, call := range rec.Calls {
		if call.Program != render.ProgramMipmap || call.Primitive != render.TriangleList {
			t.Fatalf("unexpected call %+v", call)
		}
		p := patchFor(t, mt, call)
		if got, want := call.IndexCount, topo.IndexCount(p.Tier, p.Code); got != want {
			t.Errorf("patch (%d,%d) drew %d indices, want %d", p.X, p.Y, got, want)
		}
		if !slices.Equal(rec.IndexBuffers[call.Indices], topo.Indices(p.Tier, p.Code)) {
			t.Errorf("patch (%d,%d) drew the wrong index list", p.X, p.Y)
		}
	}
	st := mt.Stats()
	if st.DrawCalls != 9 || st.Culled != 0 || st.Triangles != rec.Triangles() {
		t.Errorf("stats = %+v, recorder triangles %d", st, rec.Triangles())
	}
}

func TestSharedEdgesMatch(t *testing.T) {
	tests := []struct {
		name   string
		field  func(*testing.T) *heightfield.Field
		patch  int
		viewer mgl32.Vec3
	}{
		{"spike", spike, 5, mgl32.Vec3{6, 5, 6}},
		{"noise near corner", func(t *testing.T) *heightfield.Field { return noise(t, 129) }, 17, mgl32.Vec3{10, 150, 12}},
		{"noise centre", func(t *testing.T) *heightfield.Field { return noise(t, 129) }, 17, mgl32.Vec3{64, 120, 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, rec, _ := newTerrain(t, tt.field(t), tt.patch)
			if err := mt.Update(tt.viewer); err != nil {
				t.Fatal(err)
			}
			if err := mt.Draw(); err != nil {
				t.Fatal(err)
			}

			edges := make(map[int]map[[2]float32]bool)
			for _, call := range rec.Calls {
				p := patchFor(t, mt, call)
				vertices := rec.MeshBuffers[call.Vertices]
				used := make(map[[2]float32]bool)
				for _, i := range rec.IndexBuffers[call.Indices][:call.IndexCount] {
					pos := vertices[i].Position
					used[[2]float32{pos[0], pos[2]}] = true
				}
				edges[p.Index] = used
			}

			span := float32(tt.patch - 1)
			for _, p := range mt.Patches() {
				for _, s := range []lod.Side{lod.Right, lod.Bottom} {
					n := p.Neighbors[s]
					if n < 0 {
						continue
					}
					q := mt.Patches()[n]
					if d := p.Tier - q.Tier; d > 1 || d < -1 {
						t.Fatalf("patches %d and %d differ by %d tiers", p.Index, q.Index, d)
					}
					onEdge := func(v [2]float32) bool {
						if s == lod.Right {
							return v[0] == float32(p.Origin[0])+span
						}
						return v[1] == float32(p.Origin[1])+span
					}
					a, b := edgeSet(edges[p.Index], onEdge), edgeSet(edges[q.Index], onEdge)
					if !slices.Equal(a, b) {
						t.Errorf("patch %d (tier %d) and %d (tier %d) disagree on their %v edge: %v vs %v",
							p.Index, p.Tier, q.Index, q.Tier, s, a, b)
					}
				}
			}
		})
	}
}

func edgeSet(used map[[2]float32]bool, keep func([2]float32) bool) [][2]float32 {
	var out [][2]float32
	for v := range used {
		if keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b [2]float32) int {
		switch {
		case a[0] != b[0]:
			if a[0] < b[0] {
				return -1
			}
			return 1
		case a[1] < b[1]:
			return -1
		case a[1] > b[1]:
			return 1
		}
		return 0
	})
	return out
}

func patchFor(t *testing.T, mt *Terrain, call render.DrawCall) *Patch {
	t.Helper()
	for _, p := range mt.Patches() {
		if p.VertexBuffer() == call.Vertices {
			return p
		}
	}
	t.Fatalf("no patch owns vertex buffer %d", call.Vertices)
	return nil
}

func TestTierMonotoneInDistance(t *testing.T) {
	mt, _, _ := newTerrain(t, noise(t, 17), 17)
	p := mt.Patch(0, 0)
	c := p.Center()

	last := -1
	for d := float32(0); d < 1e6; d = d*1.5 + 1 {
		if err := mt.Update(c.Add(mgl32.Vec3{d, d / 2, 0})); err != nil {
			t.Fatal(err)
		}
		if p.Tier < last {
			t.Fatalf("tier dropped from %d to %d at distance %v", last, p.Tier, d)
		}
		last = p.Tier
	}
	if last != mt.Topology().Tiers()-1 {
		t.Errorf("far tier = %d, want coarsest %d", last, mt.Topology().Tiers()-1)
	}
}

func TestSetTauCoarsens(t *testing.T) {
	mt, _, _ := newTerrain(t, noise(t, 65), 17)
	viewer := mgl32.Vec3{32, 250, 32}

	if err := mt.Update(viewer); err != nil {
		t.Fatal(err)
	}
	before := tierSum(mt)

	if err := mt.SetTau(0); !errors.Is(err, lod.ErrInvalidProjection) {
		t.Errorf("SetTau(0) = %v", err)
	}
	if err := mt.SetTau(64); err != nil {
		t.Fatal(err)
	}
	if err := mt.Update(viewer); err != nil {
		t.Fatal(err)
	}
	if after := tierSum(mt); after < before {
		t.Errorf("raising tau made the terrain finer: %d -> %d", before, after)
	}
}

func tierSum(mt *Terrain) int {
	n := 0
	for _, p := range mt.Patches() {
		n += p.Tier
	}
	return n
}

func TestFrustumCulling(t *testing.T) {
	mt, rec, cam := newTerrain(t, spike(t), 5)
	// Keep x <= 4: the first two patch columns.
	cam.frustum.Planes[0] = camera.Plane{Normal: mgl32.Vec3{-1, 0, 0}, D: 4}

	if err := mt.Update(mgl32.Vec3{6, 5, 6}); err != nil {
		t.Fatal(err)
	}
	if err := mt.Draw(); err != nil {
		t.Fatal(err)
	}
	if len(rec.Calls) != 6 {
		t.Errorf("draw calls = %d, want 6", len(rec.Calls))
	}
	if got := mt.Stats().Culled; got != 3 {
		t.Errorf("culled = %d, want 3", got)
	}
}

func TestQueryAndClose(t *testing.T) {
	f := spike(t)
	rec := render.NewRecorder()
	mt, err := New(rec, &stubCamera{}, f, heightfield.NewNormalField(f), DefaultConfig())
	if !errors.Is(err, geometry.ErrPatchSize) {
		t.Fatalf("33-vertex patches on a 13x13 field: err = %v", err)
	}

	cfg := DefaultConfig()
	cfg.PatchSize = 5
	mt, err = New(rec, &stubCamera{}, f, heightfield.NewNormalField(f), cfg)
	if err != nil {
		t.Fatal(err)
	}
	heights, normals := mt.HeightAndNormalAt([]mgl32.Vec2{{6, 6}, {6.5, 6}})
	if heights[0] != 10 || heights[1] != 5 {
		t.Errorf("heights = %v", heights)
	}
	if normals[0].Y() <= 0 {
		t.Errorf("normal %v points down", normals[0])
	}

	mt.Close()
	if len(rec.MeshBuffers) != 0 || len(rec.IndexBuffers) != 0 {
		t.Errorf("resources left after Close: %d vertex buffers, %d index buffers",
			len(rec.MeshBuffers), len(rec.IndexBuffers))
	}
}
