package output

import (
	"fmt"
	"math"
)

// Window scales a block of samples in place before a transform.
type Window func(data []float64)

// cosineWindow builds w(x) = a0 - a1 cos(2πx) + a2 cos(4πx).
func cosineWindow(a0, a1, a2 float64) Window {
	return func(data []float64) {
		n := float64(len(data))
		for i := range data {
			x := float64(i) / n
			data[i] *= a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
		}
	}
}

var (
	Han      = cosineWindow(0.5, 0.5, 0)
	Blackman = cosineWindow(0.42, 0.5, 0.08)
	// Rect leaves the samples unchanged.
	Rect Window = func([]float64) {}
)

// ParseWindow returns the window with the given name.
func ParseWindow(name string) (Window, error) {
	switch name {
	case "han", "hann":
		return Han, nil
	case "blackman":
		return Blackman, nil
	case "rect", "none":
		return Rect, nil
	}
	return nil, fmt.Errorf("unknown window %q", name)
}
