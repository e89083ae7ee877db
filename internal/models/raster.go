package models

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Image is a normalized grayscale slice. Pix holds Width*Height samples
// in row-major order, each in [0, 1].
//
// Pipeline stages treat an Image as immutable: they read it and return a
// freshly allocated result instead of writing back into it.
type Image struct {
	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int

	// Pix is the intensity data in row-major order
	Pix []float64
}

// NewImage allocates a zero-filled image.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// Index returns the offset of (x, y) in Pix.
func (im *Image) Index(x, y int) int {
	return y*im.Width + x
}

// At returns the intensity at (x, y).
func (im *Image) At(x, y int) float64 {
	return im.Pix[y*im.Width+x]
}

// Set stores v at (x, y).
func (im *Image) Set(x, y int, v float64) {
	im.Pix[y*im.Width+x] = v
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	out := NewImage(im.Width, im.Height)
	copy(out.Pix, im.Pix)
	return out
}

// Empty reports whether the image has no pixels.
func (im *Image) Empty() bool {
	return im == nil || im.Width == 0 || im.Height == 0
}

// Masked returns a copy with every pixel outside m set to zero.
func (im *Image) Masked(m *Mask) *Image {
	out := NewImage(im.Width, im.Height)
	for i, v := range im.Pix {
		if m.Bits[i] {
			out.Pix[i] = v
		}
	}
	return out
}

// FromImage converts any image.Image to a normalized grayscale Image
// using the standard luminance weights.
func FromImage(img image.Image) *Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := NewImage(width, height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			// Convert 16-bit luminance to float64 (0-1 range)
			out.Pix[y*width+x] = float64(g.Y) / 65535.0
		}
	}

	return out
}

// ToGray renders the image as 8-bit grayscale.
func (im *Image) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, im.Width, im.Height))
	for i, v := range im.Pix {
		img.Pix[i] = uint8(math.Round(clamp01(v) * 255))
	}
	return img
}

// ToRGBA renders the image as an opaque RGBA picture, gray on all channels.
func (im *Image) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, im.Width, im.Height))
	for i, v := range im.Pix {
		g := uint8(math.Round(clamp01(v) * 255))
		img.Pix[4*i] = g
		img.Pix[4*i+1] = g
		img.Pix[4*i+2] = g
		img.Pix[4*i+3] = 255
	}
	return img
}

// Mask is a binary raster congruent to an Image. true marks membership.
type Mask struct {
	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int

	// Bits is the membership data in row-major order
	Bits []bool
}

// NewMask allocates an empty mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Bits:   make([]bool, width*height),
	}
}

// At reports membership of (x, y). Out-of-range coordinates are outside.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Set marks (x, y) as inside or outside.
func (m *Mask) Set(x, y int, v bool) {
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of member pixels.
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Empty reports whether no pixel is set.
func (m *Mask) Empty() bool {
	if m == nil {
		return true
	}
	for _, b := range m.Bits {
		if b {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.Width, m.Height)
	copy(out.Bits, m.Bits)
	return out
}

// And returns the intersection of m and other.
func (m *Mask) And(other *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for i := range m.Bits {
		out.Bits[i] = m.Bits[i] && other.Bits[i]
	}
	return out
}

// SameSize reports whether m and other cover the same raster.
func (m *Mask) SameSize(width, height int) bool {
	return m != nil && m.Width == width && m.Height == height
}

// CheckCongruent returns an error when the mask does not match the given size.
func (m *Mask) CheckCongruent(width, height int) error {
	if !m.SameSize(width, height) {
		if m == nil {
			return fmt.Errorf("mask is nil, expected %dx%d", width, height)
		}
		return fmt.Errorf("mask is %dx%d, expected %dx%d", m.Width, m.Height, width, height)
	}
	return nil
}

// MaskFromImage thresholds any image at half intensity (value > 127 on an
// 8-bit scale), matching 0/255 mask files.
func MaskFromImage(img image.Image) *Mask {
	gray := FromImage(img)
	out := NewMask(gray.Width, gray.Height)
	for i, v := range gray.Pix {
		out.Bits[i] = v*255 > 127
	}
	return out
}

// ToGray renders the mask as a 0/255 grayscale image.
func (m *Mask) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b {
			img.Pix[i] = 255
		}
	}
	return img
}

// Spacing is the physical size of one pixel in millimetres.
type Spacing struct {
	X, Y float64
}

// DefaultSpacing is the pixel spacing assumed when the source carries none.
var DefaultSpacing = Spacing{X: 0.5, Y: 0.5}

// TimeUnit is the caller-facing unit of growth simulation time.
type TimeUnit string

const (
	Hours TimeUnit = "hours"
	Days  TimeUnit = "days"
)

// Valid reports whether u is a known unit.
func (u TimeUnit) Valid() bool {
	return u == Hours || u == Days
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Reflect101 folds i into [0, n) mirroring about the edge samples, the
// border convention shared by the blur and Laplacian stencils
// (…2 1 | 0 1 2 … n-2 n-1 | n-2 …).
func Reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
