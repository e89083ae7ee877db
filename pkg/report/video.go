// Package report turns simulation output into videos and plots.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"github.com/icza/mjpeg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"oncosim/internal/log"
	"oncosim/internal/models"
	"oncosim/pkg/growth"
)

var (
	// ErrNoFrames is returned when there is nothing to render.
	ErrNoFrames = errors.New("no frames")

	// ErrFrameSize is returned when frames of a video differ in size.
	ErrFrameSize = errors.New("frame size mismatch")
)

// densityOpacity is the weight of the colorized density over the slice.
const densityOpacity = 0.4

// LabelColor is used for text drawn onto frames.
var LabelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// viridis anchors, evenly spaced over [0, 255]
var viridis = []color.RGBA{
	{68, 1, 84, 255},
	{71, 44, 122, 255},
	{59, 81, 139, 255},
	{44, 113, 142, 255},
	{33, 144, 141, 255},
	{39, 173, 129, 255},
	{92, 200, 99, 255},
	{170, 220, 50, 255},
	{253, 231, 37, 255},
}

// Viridis maps an 8-bit value onto the viridis colormap.
func Viridis(v uint8) color.RGBA {
	pos := float64(v) / 255 * float64(len(viridis)-1)
	i := int(pos)
	if i >= len(viridis)-1 {
		return viridis[len(viridis)-1]
	}
	f := pos - float64(i)
	a, b := viridis[i], viridis[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + f*(float64(y)-float64(x))))
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

// GrowthFrame blends a colorized density frame over the base slice and
// labels it with elapsed time and growth. base may be nil.
func GrowthFrame(base *models.Image, f growth.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, d := range f.Density {
		c := Viridis(uint8(math.Round(math.Max(0, math.Min(1, d)) * 255)))
		var g float64
		if base != nil && len(base.Pix) == len(f.Density) {
			g = math.Max(0, math.Min(1, base.Pix[i])) * 255
		}
		img.Pix[4*i] = mix(g, c.R)
		img.Pix[4*i+1] = mix(g, c.G)
		img.Pix[4*i+2] = mix(g, c.B)
		img.Pix[4*i+3] = 255
	}

	AddLabel(img, 5, 15, fmt.Sprintf("Time: %.1f %s", f.Elapsed, f.Unit), LabelColor)
	AddLabel(img, 5, 30, fmt.Sprintf("Growth: +%.2f mm", f.GrowthDeltaMM), LabelColor)
	if f.Grade == growth.Increased {
		AddLabel(img, 5, 45, "Grade: IV (Increased)", color.RGBA{R: 255, A: 255})
	}
	return img
}

func mix(base float64, heat uint8) uint8 {
	return uint8(math.Round((1-densityOpacity)*base + densityOpacity*float64(heat)))
}

// AddLabel draws a text label onto an image with its baseline at (x, y).
func AddLabel(img draw.Image, x, y int, label string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(label)
}

// WriteVideo encodes images as an MJPEG AVI. All images must share the
// size of the first one.
func WriteVideo(path string, images []image.Image, fps int) error {
	if len(images) == 0 {
		return ErrNoFrames
	}
	if fps <= 0 {
		fps = 10
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	size := images[0].Bounds().Size()
	videoWriter, err := mjpeg.New(path, int32(size.X), int32(size.Y), int32(fps))
	if err != nil {
		return fmt.Errorf("error creating video writer: %w", err)
	}

	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: 75}
	for i, img := range images {
		if img.Bounds().Size() != size {
			videoWriter.Close()
			return fmt.Errorf("%w: frame %d is %v, want %v", ErrFrameSize, i, img.Bounds().Size(), size)
		}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			videoWriter.Close()
			return fmt.Errorf("error encoding frame %d: %w", i, err)
		}
		if err := videoWriter.AddFrame(buf.Bytes()); err != nil {
			videoWriter.Close()
			return fmt.Errorf("error adding frame %d: %w", i, err)
		}
		buf.Reset()
	}

	if err := videoWriter.Close(); err != nil {
		return fmt.Errorf("error finalizing video: %w", err)
	}
	log.Debug("video written", "path", path, "frames", len(images), "fps", fps)
	return nil
}

// GrowthVideo renders growth frames over the base slice into an AVI.
func GrowthVideo(path string, base *models.Image, frames []growth.Frame, fps int) error {
	images := make([]image.Image, len(frames))
	for i, f := range frames {
		images[i] = GrowthFrame(base, f)
	}
	return WriteVideo(path, images, fps)
}
