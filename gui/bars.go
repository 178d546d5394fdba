package gui

import "math"

const (
	barCount = 9
	barMin   = 0.15
)

// barHeights is the listening animation at frame: barCount bars between
// barMin and 1, a travelling wave with the centre bars tallest.
func barHeights(frame int) []float64 {
	h := make([]float64, barCount)
	mid := float64(barCount-1) / 2
	for i := range h {
		wave := (math.Sin(float64(frame)*0.25-float64(i)*0.7) + 1) / 2
		falloff := 1 - math.Abs(float64(i)-mid)/(mid+1)
		h[i] = barMin + (1-barMin)*wave*falloff
	}
	return h
}
