package systems

import "math"

// Cell is a tile coordinate pair used across systems.
type Cell struct {
	Row, Col int
}

// clamp01 clamps a value to the [0, 1] range. NaN maps to 0.
func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampFloat clamps a value between min and max.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal || math.IsNaN(v) {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// lerp interpolates linearly between a and b.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// chebyshev returns the chessboard distance between two cells.
func chebyshev(a, b Cell) int {
	dr := absInt(a.Row - b.Row)
	dc := absInt(a.Col - b.Col)
	if dr > dc {
		return dr
	}
	return dc
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
