package heightfield

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/tiff" // TIFF decoder registration
)

// Load errors.
var (
	ErrTruncatedData     = errors.New("truncated height map data")
	ErrUnsupportedFormat = errors.New("unsupported height map format")
)

// Format identifies a height map file encoding.
type Format string

// Supported formats.
const (
	FormatAuto  Format = ""
	FormatImage Format = "image" // png, bmp, tiff; gray or color, 8 or 16 bit
	FormatR16   Format = "r16"   // little-endian uint16 samples
	FormatR32   Format = "r32"   // little-endian float32 samples
)

// DetectFormat guesses the format from a file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".r16", ".raw":
		return FormatR16
	case ".r32":
		return FormatR32
	default:
		return FormatImage
	}
}

// LoadOptions describes how to read a height map file.
type LoadOptions struct {
	Format Format
	// Width and Height are required for raw formats; images carry their own size.
	Width, Height int
	// Scale multiplies normalized image/r16 samples. r32 samples are used as is.
	Scale float32
}

// LoadFile reads a height map from disk.
func LoadFile(path string, opts LoadOptions) (*Field, error) {
	if opts.Format == FormatAuto {
		opts.Format = DetectFormat(path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening height map: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	switch opts.Format {
	case FormatImage:
		return LoadImage(r, opts.Scale)
	case FormatR16, FormatR32:
		return LoadRaw(r, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
}

// LoadImage decodes an image and maps its luminance to [0, scale].
// 16-bit grayscale images keep their full precision.
func LoadImage(r io.Reader, scale float32) (*Field, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding height map image: %w", err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}

	data := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			data[y*w+x] = float32(g.Y) / math.MaxUint16 * scale
		}
	}
	return &Field{width: w, height: h, data: data}, nil
}

// LoadRaw reads headerless little-endian samples.
func LoadRaw(r io.Reader, opts LoadOptions) (*Field, error) {
	w, h := opts.Width, opts.Height
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("%w: raw height map needs explicit size, got %dx%d", ErrInvalidDimensions, w, h)
	}

	data := make([]float32, w*h)
	switch opts.Format {
	case FormatR16:
		raw := make([]uint16, w*h)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("%w: reading %d r16 samples", ErrTruncatedData, len(raw))
		}
		for i, v := range raw {
			data[i] = float32(v) / math.MaxUint16 * opts.Scale
		}
	case FormatR32:
		if err := binary.Read(r, binary.LittleEndian, data); err != nil {
			return nil, fmt.Errorf("%w: reading %d r32 samples", ErrTruncatedData, len(data))
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
	return &Field{width: w, height: h, data: data}, nil
}

// ParseRaw is LoadRaw over an in-memory buffer.
func ParseRaw(data []byte, opts LoadOptions) (*Field, error) {
	return LoadRaw(bytes.NewReader(data), opts)
}

// Image renders the field as a 16-bit grayscale image, stretched over its own range.
func (f *Field) Image() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.width, f.height))
	lo, hi := f.MinMax()
	span := hi - lo
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			var v float32
			if span > 0 {
				v = (f.data[y*f.width+x] - lo) / span
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v*math.MaxUint16 + 0.5)})
		}
	}
	return img
}

// SavePNG writes the field as a 16-bit grayscale PNG.
func (f *Field) SavePNG(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(file, f.Image()); err != nil {
		file.Close()
		return fmt.Errorf("encoding png: %w", err)
	}
	return file.Close()
}
