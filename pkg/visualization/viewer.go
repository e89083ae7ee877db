// Package visualization renders a segmented slice for inspection and saves
// images to disk.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"oncosim/internal/models"
	"oncosim/pkg/measurement"
)

// ErrEmptyRegion is returned when a requested crop has no pixels.
var ErrEmptyRegion = errors.New("empty region")

var (
	// BoxColor outlines the tumor bounding box
	BoxColor = color.RGBA{R: 255, A: 255}

	// CenterColor fills the center marker
	CenterColor = color.RGBA{R: 255, G: 255, A: 255}
)

const (
	tintStrength = 0.4
	boxThickness = 2
	centerRadius = 5
)

// Viewer holds one slice and its tumor segmentation.
type Viewer struct {
	slice *models.Image
	tumor *models.Mask
}

// NewViewer creates a viewer for a slice. tumor may be nil.
func NewViewer(slice *models.Image, tumor *models.Mask) *Viewer {
	return &Viewer{slice: slice, tumor: tumor}
}

// Tinted returns the slice with the tumor pixels tinted green.
func (v *Viewer) Tinted() *image.RGBA {
	img := v.slice.ToRGBA()
	if v.tumor == nil || !v.tumor.SameSize(v.slice.Width, v.slice.Height) {
		return img
	}

	add := uint8(tintStrength * 255)
	for i, in := range v.tumor.Bits {
		if !in {
			continue
		}
		g := img.Pix[4*i+1]
		if int(g)+int(add) > 255 {
			img.Pix[4*i+1] = 255
		} else {
			img.Pix[4*i+1] = g + add
		}
	}
	return img
}

// Overlay returns the tinted slice annotated with the bounding box and the
// center marker from stats.
func (v *Viewer) Overlay(stats measurement.GeometryStats) *image.RGBA {
	img := v.Tinted()
	b := stats.BBox
	DrawRect(img, image.Rect(b.XMin, b.YMin, b.XMax+1, b.YMax+1), boxThickness, BoxColor)
	FillCircle(img, stats.Center.X, stats.Center.Y, centerRadius, CenterColor)
	return img
}

// ExtractRegion crops the slice to the bounding box plus pad pixels on each side.
func (v *Viewer) ExtractRegion(b measurement.BBox, pad int) (*image.Gray, error) {
	r := image.Rect(b.XMin-pad, b.YMin-pad, b.XMax+pad+1, b.YMax+pad+1).
		Intersect(image.Rect(0, 0, v.slice.Width, v.slice.Height))
	if r.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyRegion, r)
	}

	gray := v.slice.ToGray()
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), gray, r.Min, draw.Src)
	return out, nil
}

// DrawRect draws an axis-aligned rectangle outline of the given thickness.
func DrawRect(img draw.Image, r image.Rectangle, thickness int, c color.Color) {
	src := image.NewUniform(c)
	r = r.Canon()
	for t := 0; t < thickness; t++ {
		inner := r.Inset(t)
		if inner.Empty() {
			return
		}
		edges := []image.Rectangle{
			image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+1),
			image.Rect(inner.Min.X, inner.Max.Y-1, inner.Max.X, inner.Max.Y),
			image.Rect(inner.Min.X, inner.Min.Y, inner.Min.X+1, inner.Max.Y),
			image.Rect(inner.Max.X-1, inner.Min.Y, inner.Max.X, inner.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(img, e.Intersect(img.Bounds()), src, image.Point{}, draw.Src)
		}
	}
}

// FillCircle paints a filled disk centered on (cx, cy).
func FillCircle(img draw.Image, cx, cy, radius int, c color.Color) {
	bounds := img.Bounds()
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			if (image.Point{X: x, Y: y}).In(bounds) {
				img.Set(x, y, c)
			}
		}
	}
}

// SaveImage writes img to path, choosing PNG or JPEG from the extension.
// Missing directories are created.
func SaveImage(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode(file, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return fmt.Errorf("unsupported image extension: %s", filepath.Ext(path))
	}
}

// SaveSequence writes images as prefix_000.png, prefix_001.png, ... under outputDir.
func SaveSequence(images []image.Image, outputDir, prefix string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for i, img := range images {
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%03d.png", prefix, i))
		if err := SaveImage(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// LoadImage reads a PNG or JPEG slice as a normalized grayscale image.
func LoadImage(path string) (*models.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return models.FromImage(img), nil
}
