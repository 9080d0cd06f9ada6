package report

import "math"

const statPlaces = 4

// roundTo rounds half away from zero. Values too large to carry any
// fraction at that precision come back unchanged, so scaling never
// overflows to Inf.
func roundTo(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	if math.Abs(f) >= 1e15 || math.IsInf(f*p, 0) {
		return f
	}
	return math.Round(f*p) / p
}

func roundPtr(p *float64, places int) *float64 {
	if p == nil {
		return nil
	}
	v := roundTo(*p, places)
	return &v
}
