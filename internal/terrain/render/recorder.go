package render

import (
	"errors"
	"fmt"
)

// Recorder errors.
var (
	ErrUnknownBuffer  = errors.New("unknown buffer")
	ErrUnknownTexture = errors.New("unknown texture")
	ErrTextureSize    = errors.New("texture data size mismatch")
)

// RecordedTexture is the CPU copy of a texture held by a Recorder.
type RecordedTexture struct {
	Width, Height, Channels int
	Data                    []float32
	Updates                 int
}

// Recorder is an in-memory Device. It keeps copies of every resource and records draw
// calls, which makes it usable for headless runs and tests.
type Recorder struct {
	nextID uint32

	GridBuffers  map[BufferID][]GridVertex
	MeshBuffers  map[BufferID][]MeshVertex
	IndexBuffers map[BufferID][]uint16
	Textures     map[TextureID]*RecordedTexture

	Frame  FrameParams
	Calls  []DrawCall
	Frames int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		GridBuffers:  make(map[BufferID][]GridVertex),
		MeshBuffers:  make(map[BufferID][]MeshVertex),
		IndexBuffers: make(map[BufferID][]uint16),
		Textures:     make(map[TextureID]*RecordedTexture),
	}
}

func (r *Recorder) id() uint32 {
	r.nextID++
	return r.nextID
}

// CreateGridVertexBuffer implements Device.
func (r *Recorder) CreateGridVertexBuffer(vertices []GridVertex) (BufferID, error) {
	id := BufferID(r.id())
	r.GridBuffers[id] = append([]GridVertex(nil), vertices...)
	return id, nil
}

// CreateMeshVertexBuffer implements Device.
func (r *Recorder) CreateMeshVertexBuffer(vertices []MeshVertex) (BufferID, error) {
	id := BufferID(r.id())
	r.MeshBuffers[id] = append([]MeshVertex(nil), vertices...)
	return id, nil
}

// CreateIndexBuffer implements Device.
func (r *Recorder) CreateIndexBuffer(indices []uint16) (BufferID, error) {
	id := BufferID(r.id())
	r.IndexBuffers[id] = append([]uint16(nil), indices...)
	return id, nil
}

// DeleteBuffer implements Device.
func (r *Recorder) DeleteBuffer(id BufferID) {
	delete(r.GridBuffers, id)
	delete(r.MeshBuffers, id)
	delete(r.IndexBuffers, id)
}

// CreateTexture implements Device.
func (r *Recorder) CreateTexture(width, height, channels int) (TextureID, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrTextureSize, width, height)
	}
	switch channels {
	case 1, 2, 4:
	default:
		return 0, fmt.Errorf("%w: %d channels", ErrTextureSize, channels)
	}
	id := TextureID(r.id())
	r.Textures[id] = &RecordedTexture{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]float32, width*height*channels),
	}
	return id, nil
}

// UpdateTexture implements Device.
func (r *Recorder) UpdateTexture(id TextureID, data []float32) error {
	tex, ok := r.Textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	if len(data) != len(tex.Data) {
		return fmt.Errorf("%w: got %d floats, want %d", ErrTextureSize, len(data), len(tex.Data))
	}
	copy(tex.Data, data)
	tex.Updates++
	return nil
}

// DeleteTexture implements Device.
func (r *Recorder) DeleteTexture(id TextureID) {
	delete(r.Textures, id)
}

// BeginFrame implements Device. It clears the calls of the previous frame.
func (r *Recorder) BeginFrame(frame FrameParams) {
	r.Frame = frame
	r.Calls = r.Calls[:0]
}

// Draw implements Device.
func (r *Recorder) Draw(call DrawCall) error {
	indices, ok := r.IndexBuffers[call.Indices]
	if !ok {
		return fmt.Errorf("%w: index buffer %d", ErrUnknownBuffer, call.Indices)
	}
	if call.IndexCount > len(indices) {
		return fmt.Errorf("draw of %d indices from buffer of %d", call.IndexCount, len(indices))
	}
	_, grid := r.GridBuffers[call.Vertices]
	_, mesh := r.MeshBuffers[call.Vertices]
	if !grid && !mesh {
		return fmt.Errorf("%w: vertex buffer %d", ErrUnknownBuffer, call.Vertices)
	}
	r.Calls = append(r.Calls, call)
	return nil
}

// EndFrame implements Device.
func (r *Recorder) EndFrame() {
	r.Frames++
}

// Triangles returns the number of triangles drawn in the current frame,
// degenerate strip triangles included.
func (r *Recorder) Triangles() int {
	n := 0
	for _, c := range r.Calls {
		switch c.Primitive {
		case TriangleStrip:
			if c.IndexCount >= 3 {
				n += c.IndexCount - 2
			}
		case TriangleList:
			n += c.IndexCount / 3
		}
	}
	return n
}
