package segmentation

import (
	"oncosim/internal/models"
)

// Erode applies binary erosion with a size×size square element, repeated
// iterations times. Pixels outside the raster count as background, so the
// mask always retreats from the image border.
//
// For even sizes the element origin sits at size/2, matching the usual
// array-library convention.
func Erode(m *models.Mask, size, iterations int) *models.Mask {
	out := m.Clone()
	if size <= 1 {
		return out
	}
	for i := 0; i < iterations; i++ {
		out = erodeOnce(out, size)
	}
	return out
}

// erodeOnce uses a summed-area table so each pixel costs O(1) regardless
// of the element size.
func erodeOnce(m *models.Mask, size int) *models.Mask {
	w, h := m.Width, m.Height
	stride := w + 1
	sat := make([]int32, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var row int32
		for x := 0; x < w; x++ {
			if m.Bits[y*w+x] {
				row++
			}
			sat[(y+1)*stride+x+1] = sat[y*stride+x+1] + row
		}
	}

	c := size / 2
	lo := -c
	hi := size - 1 - c
	full := int32(size * size)

	out := models.NewMask(w, h)
	for y := 0; y < h; y++ {
		y0, y1 := y+lo, y+hi
		if y0 < 0 || y1 >= h {
			continue
		}
		for x := 0; x < w; x++ {
			x0, x1 := x+lo, x+hi
			if x0 < 0 || x1 >= w {
				continue
			}
			sum := sat[(y1+1)*stride+x1+1] - sat[y0*stride+x1+1] - sat[(y1+1)*stride+x0] + sat[y0*stride+x0]
			out.Bits[y*w+x] = sum == full
		}
	}
	return out
}

// FillHoles sets every background pixel that cannot be reached from the
// image border through 4-connected background.
func FillHoles(m *models.Mask) *models.Mask {
	w, h := m.Width, m.Height
	out := m.Clone()
	if w == 0 || h == 0 {
		return out
	}

	reached := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))
	push := func(i int) {
		if !m.Bits[i] && !reached[i] {
			reached[i] = true
			queue = append(queue, i)
		}
	}

	for x := 0; x < w; x++ {
		push(x)
		push((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		push(y * w)
		push(y*w + w - 1)
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(i - 1)
		}
		if x < w-1 {
			push(i + 1)
		}
		if y > 0 {
			push(i - w)
		}
		if y < h-1 {
			push(i + w)
		}
	}

	for i := range out.Bits {
		if !m.Bits[i] && !reached[i] {
			out.Bits[i] = true
		}
	}
	return out
}

// LabelComponents assigns a label to every 4-connected foreground region.
// Labels start at 1 in raster-scan order of each region's first pixel;
// sizes[label] is the pixel count and sizes[0] is unused.
func LabelComponents(m *models.Mask) (labels []int32, sizes []int) {
	w, h := m.Width, m.Height
	labels = make([]int32, w*h)
	sizes = []int{0}

	var queue []int
	var next int32
	for start, on := range m.Bits {
		if !on || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		queue = append(queue[:0], start)
		count := 0

		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			count++
			x, y := i%w, i/w
			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				switch {
				case n == i-1 && x == 0,
					n == i+1 && x == w-1,
					n == i-w && y == 0,
					n == i+w && y == h-1:
					continue
				}
				if m.Bits[n] && labels[n] == 0 {
					labels[n] = next
					queue = append(queue, n)
				}
			}
		}
		sizes = append(sizes, count)
	}
	return labels, sizes
}

// LargestComponent keeps only the biggest 4-connected region. Ties go to
// the region found first in raster order. An empty mask stays empty.
func LargestComponent(m *models.Mask) *models.Mask {
	labels, sizes := LabelComponents(m)
	out := models.NewMask(m.Width, m.Height)
	if len(sizes) <= 1 {
		return out
	}

	best := 1
	for l := 2; l < len(sizes); l++ {
		if sizes[l] > sizes[best] {
			best = l
		}
	}
	for i, l := range labels {
		out.Bits[i] = int(l) == best
	}
	return out
}
