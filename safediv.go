package stormdag

import "math"

// SafeDivide returns x/y, or 0 when y is 0 or the quotient is not finite.
func SafeDivide(x, y float64) float64 {
	if y == 0 {
		return 0
	}
	q := x / y
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}
