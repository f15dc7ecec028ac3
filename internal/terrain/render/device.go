// Package render defines the narrow GPU surface the terrain drivers draw through.
package render

import (
	"github.com/go-gl/mathgl/mgl32"
)

// BufferID identifies a vertex or index buffer created by a Device.
type BufferID uint32

// TextureID identifies a float texture created by a Device.
type TextureID uint32

// Primitive selects how an index buffer is assembled into triangles.
type Primitive int

// Primitive kinds.
const (
	TriangleStrip Primitive = iota
	TriangleList
)

// String returns the primitive name.
func (p Primitive) String() string {
	switch p {
	case TriangleStrip:
		return "strip"
	case TriangleList:
		return "list"
	default:
		return "unknown"
	}
}

// Program selects the shader used for a draw call.
type Program int

// Shader programs.
const (
	ProgramClipmap Program = iota
	ProgramMipmap
)

// GridVertex is a clipmap vertex: a position in level grid units packed as two small integers.
// The world position and elevation are reconstructed in the vertex shader.
type GridVertex struct {
	X, Y int16
}

// MeshVertex is a fully baked geo-mipmap vertex.
type MeshVertex struct {
	Position [3]float32
	Normal   [3]float32
}

// FrameParams holds per-frame shader state.
type FrameParams struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Eye        mgl32.Vec3
	LightDir   mgl32.Vec3
	Wireframe  bool
}

// DrawParams holds per-draw shader parameters.
//
// For clipmap draws a vertex at grid position g maps to world
// Origin + (Offset+g)*Scale and samples its level textures at texel Offset+g.
type DrawParams struct {
	Scale   float32
	Origin  mgl32.Vec2
	Offset  mgl32.Vec2
	Texture TextureID
	Normals TextureID

	// Transition blending between a level and its coarser parent.
	ViewerGrid   mgl32.Vec2
	AlphaOffset  float32
	OneOverWidth float32

	// Tier is the active resolution tier, used for debug tinting.
	Tier int
}

// DrawCall is a single indexed draw.
type DrawCall struct {
	Program    Program
	Primitive  Primitive
	Vertices   BufferID
	BaseVertex int
	Indices    BufferID
	IndexCount int
	Params     DrawParams
}

// Device creates GPU resources and issues draw calls. All methods must be called from the
// thread that owns the rendering context.
type Device interface {
	CreateGridVertexBuffer(vertices []GridVertex) (BufferID, error)
	CreateMeshVertexBuffer(vertices []MeshVertex) (BufferID, error)
	CreateIndexBuffer(indices []uint16) (BufferID, error)
	DeleteBuffer(id BufferID)

	// CreateTexture allocates a width x height float texture with 1, 2 or 4 channels.
	CreateTexture(width, height, channels int) (TextureID, error)
	// UpdateTexture replaces the whole texture contents.
	UpdateTexture(id TextureID, data []float32) error
	DeleteTexture(id TextureID)

	BeginFrame(frame FrameParams)
	Draw(call DrawCall) error
	EndFrame()
}
