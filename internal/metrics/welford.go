package metrics

import (
	"fmt"
	"math"
)

// WelfordState keeps a running mean and variance without storing samples.
// The builders use it to summarize walk durations per phase.
type WelfordState struct {
	count int
	mean  float64
	m2    float64
	min   float64
	max   float64
}

// Update adds one observation
func (w *WelfordState) Update(v float64) {
	w.count++
	if w.count == 1 || v < w.min {
		w.min = v
	}
	if w.count == 1 || v > w.max {
		w.max = v
	}
	delta := v - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (v - w.mean)
}

// Count returns the number of observations
func (w *WelfordState) Count() int {
	return w.count
}

// Mean returns the running mean, 0 when empty
func (w *WelfordState) Mean() float64 {
	return w.mean
}

// StdDev returns the population standard deviation, 0 below two samples
func (w *WelfordState) StdDev() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count))
}

// Min returns the smallest observation
func (w *WelfordState) Min() float64 {
	return w.min
}

// Max returns the largest observation
func (w *WelfordState) Max() float64 {
	return w.max
}

func (w *WelfordState) String() string {
	if w.count == 0 {
		return "n=0"
	}
	return fmt.Sprintf("n=%d mean=%.1f sd=%.1f min=%.0f max=%.0f",
		w.count, w.mean, w.StdDev(), w.min, w.max)
}
