// Package glrender implements render.Device on an OpenGL 4.1 core context.
package glrender

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/engine/shader"
	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
)

var (
	errUnknownBuffer  = errors.New("glrender: unknown buffer")
	errUnknownTexture = errors.New("glrender: unknown texture")
	errEmptyBuffer    = errors.New("glrender: empty buffer")
)

type bufferKind int

const (
	gridBuffer bufferKind = iota
	meshBuffer
	indexBuffer
)

type texture struct {
	width, height int32
	format        uint32
}

type vaoKey struct {
	vertices, indices render.BufferID
}

// Options tune the terrain shading.
type Options struct {
	MaxHeight float32 // elevation mapped to the top of the colour ramp
	FogFar    float32 // distance at which fog is opaque
	TintTiers bool    // colour each level or tier differently
}

// tierTints cycles per level or tier when Options.TintTiers is set.
var tierTints = []mgl32.Vec3{
	{0.9, 0.2, 0.2},
	{0.9, 0.6, 0.1},
	{0.8, 0.9, 0.2},
	{0.2, 0.8, 0.3},
	{0.2, 0.6, 0.9},
	{0.5, 0.3, 0.9},
}

// Device draws terrain through OpenGL. It must be created and used on the thread that
// owns the GL context.
type Device struct {
	log  *zap.Logger
	opts Options

	programs [2]*shader.Program
	buffers  map[render.BufferID]bufferKind
	textures map[render.TextureID]texture
	vaos     map[vaoKey]uint32

	frame     render.FrameParams
	current   *shader.Program
	wireframe bool
}

var _ render.Device = (*Device)(nil)

// New compiles the terrain programs.
func New(log *zap.Logger, opts Options) (*Device, error) {
	if log == nil {
		log = zap.NewNop()
	}
	clip, err := shader.Compile("clipmap", shader.ClipmapVertexShader, shader.TerrainFragmentShader)
	if err != nil {
		return nil, err
	}
	mip, err := shader.Compile("mipmap", shader.MipmapVertexShader, shader.TerrainFragmentShader)
	if err != nil {
		clip.Delete()
		return nil, err
	}

	d := &Device{
		log:      log,
		opts:     opts,
		buffers:  make(map[render.BufferID]bufferKind),
		textures: make(map[render.TextureID]texture),
		vaos:     make(map[vaoKey]uint32),
	}
	d.programs[render.ProgramClipmap] = clip
	d.programs[render.ProgramMipmap] = mip

	log.Info("terrain programs compiled",
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))
	return d, nil
}

// SetTintTiers toggles level and tier tinting.
func (d *Device) SetTintTiers(on bool) {
	d.opts.TintTiers = on
}

// SetMaxHeight sets the elevation at the top of the colour ramp.
func (d *Device) SetMaxHeight(h float32) {
	d.opts.MaxHeight = h
}

// SetWireframe forces line rendering regardless of what the frame asks for.
func (d *Device) SetWireframe(on bool) {
	d.wireframe = on
}

func (d *Device) createBuffer(target uint32, size int, data unsafe.Pointer, kind bufferKind) (render.BufferID, error) {
	if size == 0 {
		return 0, errEmptyBuffer
	}
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(target, id)
	gl.BufferData(target, size, data, gl.STATIC_DRAW)
	gl.BindBuffer(target, 0)
	if e := gl.GetError(); e != gl.NO_ERROR {
		gl.DeleteBuffers(1, &id)
		return 0, fmt.Errorf("glrender: buffer upload failed: 0x%x", e)
	}
	d.buffers[render.BufferID(id)] = kind
	return render.BufferID(id), nil
}

// CreateGridVertexBuffer implements render.Device.
func (d *Device) CreateGridVertexBuffer(vertices []render.GridVertex) (render.BufferID, error) {
	if len(vertices) == 0 {
		return d.createBuffer(gl.ARRAY_BUFFER, 0, nil, gridBuffer)
	}
	return d.createBuffer(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gridBuffer)
}

// CreateMeshVertexBuffer implements render.Device.
func (d *Device) CreateMeshVertexBuffer(vertices []render.MeshVertex) (render.BufferID, error) {
	if len(vertices) == 0 {
		return d.createBuffer(gl.ARRAY_BUFFER, 0, nil, meshBuffer)
	}
	return d.createBuffer(gl.ARRAY_BUFFER, len(vertices)*24, gl.Ptr(vertices), meshBuffer)
}

// CreateIndexBuffer implements render.Device.
func (d *Device) CreateIndexBuffer(indices []uint16) (render.BufferID, error) {
	if len(indices) == 0 {
		return d.createBuffer(gl.ELEMENT_ARRAY_BUFFER, 0, nil, indexBuffer)
	}
	return d.createBuffer(gl.ELEMENT_ARRAY_BUFFER, len(indices)*2, gl.Ptr(indices), indexBuffer)
}

// DeleteBuffer implements render.Device. Vertex arrays referencing the buffer go with it.
func (d *Device) DeleteBuffer(id render.BufferID) {
	if _, ok := d.buffers[id]; !ok {
		return
	}
	for k, vao := range d.vaos {
		if k.vertices == id || k.indices == id {
			gl.DeleteVertexArrays(1, &vao)
			delete(d.vaos, k)
		}
	}
	name := uint32(id)
	gl.DeleteBuffers(1, &name)
	delete(d.buffers, id)
}

func textureFormat(channels int) (internal int32, format uint32, err error) {
	switch channels {
	case 1:
		return gl.R32F, gl.RED, nil
	case 2:
		return gl.RG32F, gl.RG, nil
	case 4:
		return gl.RGBA32F, gl.RGBA, nil
	default:
		return 0, 0, fmt.Errorf("glrender: unsupported channel count %d", channels)
	}
}

// CreateTexture implements render.Device. Textures are sampled with texelFetch, so
// filtering is nearest and coordinates clamp to the edge.
func (d *Device) CreateTexture(width, height, channels int) (render.TextureID, error) {
	internal, format, err := textureFormat(channels)
	if err != nil {
		return 0, err
	}
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, format, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if e := gl.GetError(); e != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		return 0, fmt.Errorf("glrender: texture %dx%dx%d failed: 0x%x", width, height, channels, e)
	}
	d.textures[render.TextureID(id)] = texture{width: int32(width), height: int32(height), format: format}
	return render.TextureID(id), nil
}

func channelCount(format uint32) int {
	switch format {
	case gl.RED:
		return 1
	case gl.RG:
		return 2
	default:
		return 4
	}
}

// UpdateTexture implements render.Device.
func (d *Device) UpdateTexture(id render.TextureID, data []float32) error {
	tex, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", errUnknownTexture, id)
	}
	if want := int(tex.width) * int(tex.height) * channelCount(tex.format); len(data) != want {
		return fmt.Errorf("glrender: texture %d: %d values, want %d", id, len(data), want)
	}
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, tex.width, tex.height, tex.format, gl.FLOAT, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// DeleteTexture implements render.Device.
func (d *Device) DeleteTexture(id render.TextureID) {
	if _, ok := d.textures[id]; !ok {
		return
	}
	name := uint32(id)
	gl.DeleteTextures(1, &name)
	delete(d.textures, id)
}

// BeginFrame implements render.Device.
func (d *Device) BeginFrame(frame render.FrameParams) {
	d.frame = frame
	d.current = nil

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	if frame.Wireframe || d.wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

// use binds a program and uploads the per-frame uniforms the first time it is used in
// a frame.
func (d *Device) use(p *shader.Program) {
	if d.current == p {
		return
	}
	d.current = p
	p.Use()

	viewProj := d.frame.Projection.Mul4(d.frame.View)
	gl.UniformMatrix4fv(p.Uniform("uViewProj"), 1, false, &viewProj[0])
	gl.Uniform3fv(p.Uniform("uLightDir"), 1, &d.frame.LightDir[0])
	gl.Uniform3fv(p.Uniform("uEye"), 1, &d.frame.Eye[0])
	gl.Uniform1f(p.Uniform("uMaxHeight"), d.opts.MaxHeight)
	gl.Uniform1f(p.Uniform("uFogFar"), d.opts.FogFar)
	gl.Uniform1i(p.Uniform("uElevation"), 0)
	gl.Uniform1i(p.Uniform("uNormals"), 1)
}

// vao returns the vertex array binding a vertex buffer to an index buffer.
func (d *Device) vao(vertices, indices render.BufferID) (uint32, error) {
	key := vaoKey{vertices, indices}
	if vao, ok := d.vaos[key]; ok {
		return vao, nil
	}
	kind, ok := d.buffers[vertices]
	if !ok || kind == indexBuffer {
		return 0, fmt.Errorf("%w: vertices %d", errUnknownBuffer, vertices)
	}
	if k, ok := d.buffers[indices]; !ok || k != indexBuffer {
		return 0, fmt.Errorf("%w: indices %d", errUnknownBuffer, indices)
	}

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(vertices))
	switch kind {
	case gridBuffer:
		gl.EnableVertexAttribArray(shader.AttribGrid)
		gl.VertexAttribIPointer(shader.AttribGrid, 2, gl.SHORT, 4, nil)
	case meshBuffer:
		gl.EnableVertexAttribArray(shader.AttribPosition)
		gl.VertexAttribPointerWithOffset(shader.AttribPosition, 3, gl.FLOAT, false, 24, 0)
		gl.EnableVertexAttribArray(shader.AttribNormal)
		gl.VertexAttribPointerWithOffset(shader.AttribNormal, 3, gl.FLOAT, false, 24, 12)
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(indices))
	gl.BindVertexArray(0)

	d.vaos[key] = vao
	return vao, nil
}

// Draw implements render.Device.
func (d *Device) Draw(call render.DrawCall) error {
	if int(call.Program) < 0 || int(call.Program) >= len(d.programs) {
		return fmt.Errorf("glrender: unknown program %d", call.Program)
	}
	vao, err := d.vao(call.Vertices, call.Indices)
	if err != nil {
		return err
	}
	p := d.programs[call.Program]
	d.use(p)

	params := call.Params
	gl.Uniform1f(p.Uniform("uScale"), params.Scale)
	gl.Uniform2f(p.Uniform("uOrigin"), params.Origin[0], params.Origin[1])
	tint := mgl32.Vec3{0.5, 0.5, 0.5}
	if d.opts.TintTiers {
		tint = tierTints[params.Tier%len(tierTints)]
	}
	gl.Uniform3fv(p.Uniform("uTint"), 1, &tint[0])

	if call.Program == render.ProgramClipmap {
		gl.Uniform2f(p.Uniform("uOffset"), params.Offset[0], params.Offset[1])
		gl.Uniform2f(p.Uniform("uViewerGrid"), params.ViewerGrid[0], params.ViewerGrid[1])
		gl.Uniform1f(p.Uniform("uAlphaOffset"), params.AlphaOffset)
		gl.Uniform1f(p.Uniform("uOneOverWidth"), params.OneOverWidth)
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, uint32(params.Texture))
		gl.ActiveTexture(gl.TEXTURE1)
		gl.BindTexture(gl.TEXTURE_2D, uint32(params.Normals))
	}

	mode := uint32(gl.TRIANGLE_STRIP)
	if call.Primitive == render.TriangleList {
		mode = gl.TRIANGLES
	}
	gl.BindVertexArray(vao)
	gl.DrawElementsBaseVertex(mode, int32(call.IndexCount), gl.UNSIGNED_SHORT, nil, int32(call.BaseVertex))
	gl.BindVertexArray(0)
	return nil
}

// EndFrame implements render.Device.
func (d *Device) EndFrame() {
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	gl.UseProgram(0)
	d.current = nil
	if e := gl.GetError(); e != gl.NO_ERROR {
		d.log.Warn("GL error during frame", zap.Uint32("code", e))
	}
}

// Clear clears the colour and depth buffers to the fog colour.
func (d *Device) Clear(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(0.62, 0.72, 0.82, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// ReadPixels returns the back buffer as bottom-up RGBA rows.
func (d *Device) ReadPixels(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

// Close releases every resource the device still holds.
func (d *Device) Close() {
	for _, vao := range d.vaos {
		gl.DeleteVertexArrays(1, &vao)
	}
	clear(d.vaos)
	for id := range d.buffers {
		name := uint32(id)
		gl.DeleteBuffers(1, &name)
	}
	clear(d.buffers)
	for id := range d.textures {
		name := uint32(id)
		gl.DeleteTextures(1, &name)
	}
	clear(d.textures)
	for _, p := range d.programs {
		if p != nil {
			p.Delete()
		}
	}
}
