package heightfield

import (
	"github.com/aquilax/go-perlin"
)

// NoiseParams controls synthetic terrain generation.
type NoiseParams struct {
	Seed      int64
	Octaves   int32
	Alpha     float64 // weight falloff between octaves
	Beta      float64 // frequency growth between octaves
	Frequency float64 // noise frequency per sample
	Scale     float32 // peak-to-trough elevation
}

// DefaultNoiseParams returns rolling hills roughly 200 units high.
func DefaultNoiseParams() NoiseParams {
	return NoiseParams{
		Seed:      1,
		Octaves:   6,
		Alpha:     2,
		Beta:      2,
		Frequency: 0.004,
		Scale:     200,
	}
}

// Generate builds a width x height field from layered perlin noise.
// Elevations are remapped so the lowest sample is 0 and the highest is p.Scale.
func Generate(width, height int, p NoiseParams) (*Field, error) {
	if width < 2 || height < 2 {
		return nil, ErrInvalidDimensions
	}
	octaves := p.Octaves
	if octaves <= 0 {
		octaves = 1
	}
	// Two generators at different frequencies, like continents under hills.
	hi := perlin.NewPerlin(p.Alpha, p.Beta, octaves, p.Seed)
	lo := perlin.NewPerlin(p.Alpha+0.5, p.Beta+1, 3, p.Seed+1)

	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fx := float64(x) * p.Frequency
			fy := float64(y) * p.Frequency
			h := hi.Noise2D(fx, fy) + 0.5*lo.Noise2D(fx*0.25, fy*0.25)
			data[y*width+x] = float32(h)
		}
	}

	f := &Field{width: width, height: height, data: data}
	f.rescale(p.Scale)
	return f, nil
}

// rescale maps elevations linearly onto [0, scale].
func (f *Field) rescale(scale float32) {
	lo, hi := f.MinMax()
	span := hi - lo
	if span == 0 {
		for i := range f.data {
			f.data[i] = 0
		}
		return
	}
	k := scale / span
	for i, h := range f.data {
		f.data[i] = (h - lo) * k
	}
}
