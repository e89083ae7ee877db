// Package measurement derives physical geometry from a lesion mask.
package measurement

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"oncosim/internal/models"
)

// BBox is an inclusive pixel bounding box.
type BBox struct {
	XMin, XMax, YMin, YMax int
}

// Point is a pixel coordinate.
type Point struct {
	X, Y int
}

// GeometryStats holds the physical measurements of a mask.
type GeometryStats struct {
	// AreaMM2 is the pixel count times the pixel area
	AreaMM2 float64

	// BBox is the tight pixel bounding box
	BBox BBox

	// Center is the bounding box midpoint in pixels
	Center Point

	// WidthMM and HeightMM are the bounding box extents, (max−min)×spacing
	WidthMM  float64
	HeightMM float64

	// EquivalentDiameterMM is the diameter of a circle with the same area
	EquivalentDiameterMM float64

	// MajorAxis and MinorAxis are 2√λ of the pixel-coordinate covariance
	MajorAxis float64
	MinorAxis float64

	// Eccentricity is √(1 − minor²/major²), 0 for round or degenerate shapes
	Eccentricity float64

	// Elongation is major/minor, 1 for round or degenerate shapes
	Elongation float64

	// Degenerate is set when principal axes could not be derived
	Degenerate bool
}

// MaxDiameterMM is the larger bounding box extent.
func (g GeometryStats) MaxDiameterMM() float64 {
	return math.Max(g.WidthMM, g.HeightMM)
}

// Measure computes geometry for m. It returns false for an empty mask.
func Measure(m *models.Mask, spacing models.Spacing) (GeometryStats, bool) {
	if m.Empty() {
		return GeometryStats{}, false
	}

	n := 0
	box := BBox{XMin: m.Width, YMin: m.Height, XMax: -1, YMax: -1}
	coords := make([]float64, 0, 2*len(m.Bits)/8)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Bits[y*m.Width+x] {
				continue
			}
			n++
			coords = append(coords, float64(x), float64(y))
			box.XMin = min(box.XMin, x)
			box.XMax = max(box.XMax, x)
			box.YMin = min(box.YMin, y)
			box.YMax = max(box.YMax, y)
		}
	}

	area := float64(n) * spacing.X * spacing.Y
	g := GeometryStats{
		AreaMM2:              area,
		BBox:                 box,
		Center:               Point{X: (box.XMin + box.XMax) / 2, Y: (box.YMin + box.YMax) / 2},
		WidthMM:              float64(box.XMax-box.XMin) * spacing.X,
		HeightMM:             float64(box.YMax-box.YMin) * spacing.Y,
		EquivalentDiameterMM: 2 * math.Sqrt(area/math.Pi),
		MajorAxis:            1,
		MinorAxis:            1,
		Elongation:           1,
	}

	major, minor, ok := principalAxes(mat.NewDense(n, 2, coords))
	if !ok {
		g.Degenerate = true
		return g, true
	}
	g.MajorAxis, g.MinorAxis = major, minor
	if major > minor {
		g.Eccentricity = math.Sqrt(1 - (minor*minor)/(major*major))
	}
	g.Elongation = major / minor
	return g, true
}

// axisEpsilon treats round-off sized axes as zero.
const axisEpsilon = 1e-6

// principalAxes returns 2√|λ| of the sample covariance eigenvalues, largest
// first. A zero axis is reported as 1 so ratios stay finite; fewer than two
// points or a failed decomposition report false.
func principalAxes(pts *mat.Dense) (major, minor float64, ok bool) {
	if r, _ := pts.Dims(); r < 2 {
		return 0, 0, false
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, pts, nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, false) {
		return 0, 0, false
	}
	vals := eig.Values(nil)
	// Values are ascending.
	major = 2 * math.Sqrt(math.Abs(vals[1]))
	minor = 2 * math.Sqrt(math.Abs(vals[0]))
	if major < axisEpsilon {
		major = 1
	}
	if minor < axisEpsilon {
		minor = 1
	}
	return major, minor, true
}

// Rounded returns g with display rounding applied: area and elongation to
// 0.01, eccentricity to 0.001, lengths to 0.01.
func (g GeometryStats) Rounded() GeometryStats {
	g.AreaMM2 = round(g.AreaMM2, 2)
	g.WidthMM = round(g.WidthMM, 2)
	g.HeightMM = round(g.HeightMM, 2)
	g.EquivalentDiameterMM = round(g.EquivalentDiameterMM, 2)
	g.MajorAxis = round(g.MajorAxis, 2)
	g.MinorAxis = round(g.MinorAxis, 2)
	g.Eccentricity = round(g.Eccentricity, 3)
	g.Elongation = round(g.Elongation, 2)
	return g
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
