package gui

import "testing"

func TestBarHeightsInRange(t *testing.T) {
	for frame := 0; frame < 200; frame++ {
		h := barHeights(frame)
		if len(h) != barCount {
			t.Fatalf("len = %d", len(h))
		}
		for i, v := range h {
			if v < barMin || v > 1 {
				t.Fatalf("frame %d bar %d = %f", frame, i, v)
			}
		}
	}
}

func TestBarHeightsAnimate(t *testing.T) {
	a, b := barHeights(0), barHeights(3)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
		}
	}
	if same {
		t.Error("bars did not move between frames")
	}
}
