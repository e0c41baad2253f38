package hrir

import "math"

// Snap returns the element of available closest to angle. On equal distance
// the earlier element wins. With no candidates it returns angle unchanged and
// ok == false; callers are expected to report that fallback.
func Snap(angle float64, available []int) (snapped float64, ok bool) {
	if len(available) == 0 {
		return angle, false
	}
	best := available[0]
	bestDist := math.Abs(float64(best) - angle)
	for _, a := range available[1:] {
		if d := math.Abs(float64(a) - angle); d < bestDist {
			best, bestDist = a, d
		}
	}
	return float64(best), true
}
