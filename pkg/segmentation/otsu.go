package segmentation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MultiOtsu returns classes-1 thresholds that maximize the between-class
// variance of values, computed over a histogram of nbins equal-width bins
// spanning [min, max]. Thresholds are reported as bin centers, ascending.
//
// When the histogram has exactly `classes` occupied bins the thresholds
// fall on the first classes-1 of them; fewer occupied bins is an error.
func MultiOtsu(values []float64, classes, nbins int) ([]float64, error) {
	if classes < 2 {
		return nil, fmt.Errorf("segmentation: need at least 2 classes, got %d", classes)
	}
	if len(values) == 0 {
		return nil, ErrTooFewValues
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if hi <= lo {
		return nil, fmt.Errorf("%w: all %d values equal %g", ErrTooFewValues, len(values), lo)
	}

	hist := make([]float64, nbins)
	width := (hi - lo) / float64(nbins)
	for _, v := range values {
		b := int((v - lo) / width)
		if b >= nbins {
			b = nbins - 1
		}
		hist[b]++
	}
	centers := make([]float64, nbins)
	for i := range centers {
		centers[i] = lo + (float64(i)+0.5)*width
	}

	var occupied []int
	for i, c := range hist {
		if c > 0 {
			occupied = append(occupied, i)
		}
	}
	switch {
	case len(occupied) < classes:
		return nil, fmt.Errorf("%w: %d occupied bins for %d classes", ErrTooFewValues, len(occupied), classes)
	case len(occupied) == classes:
		out := make([]float64, classes-1)
		for k := range out {
			out[k] = centers[occupied[k]]
		}
		return out, nil
	}

	idx := otsuSearch(hist, centers, classes)
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = centers[i]
	}
	return out, nil
}

// otsuSearch enumerates every ordered set of classes-1 bin indices and keeps
// the one with the largest Σ m_k²/w_k. Prefix sums make each class O(1).
func otsuSearch(hist, centers []float64, classes int) []int {
	n := len(hist)
	// w[i], m[i] are cumulative weight and first moment over bins [0, i).
	w := make([]float64, n+1)
	m := make([]float64, n+1)
	for i := 0; i < n; i++ {
		w[i+1] = w[i] + hist[i]
		m[i+1] = m[i] + hist[i]*centers[i]
	}
	term := func(from, to int) float64 {
		dw := w[to] - w[from]
		if dw <= 0 {
			return 0
		}
		dm := m[to] - m[from]
		return dm * dm / dw
	}

	cuts := classes - 1
	cur := make([]int, cuts)
	best := make([]int, cuts)
	bestScore := math.Inf(-1)

	// cur[k] is the last bin of class k.
	var walk func(k, start int, acc float64)
	walk = func(k, start int, acc float64) {
		if k == cuts {
			score := acc + term(start, n)
			if score > bestScore {
				bestScore = score
				copy(best, cur)
			}
			return
		}
		for i := start; i <= n-1-(cuts-k); i++ {
			cur[k] = i
			walk(k+1, i+1, acc+term(start, i+1))
		}
	}
	walk(0, 0, 0)
	return best
}

// Digitize returns how many thresholds are less than or equal to v, which
// is the class index of v for ascending thresholds.
func Digitize(v float64, thresholds []float64) int {
	n := 0
	for _, t := range thresholds {
		if v >= t {
			n++
		}
	}
	return n
}

// Entropy is the Shannon entropy in bits of a 256-bin histogram of values
// over [0, 1]. Values outside the range are ignored.
func Entropy(values []float64) float64 {
	const bins = 256
	hist := make([]float64, bins)
	total := 0.0
	for _, v := range values {
		if v < 0 || v > 1 || math.IsNaN(v) {
			continue
		}
		b := int(v * bins)
		if b >= bins {
			b = bins - 1
		}
		hist[b]++
		total++
	}
	if total == 0 {
		return 0
	}

	e := 0.0
	for _, c := range hist {
		p := c / total
		e -= p * math.Log2(p+1e-9)
	}
	return e
}
