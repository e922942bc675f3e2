package report

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat rounds v to the given number of decimal digits and renders it
// the way the original CSV exports did: shortest representation with at least
// one decimal ("5.0", "123.457"). NaN and infinities render as an empty cell.
func FormatFloat(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	r := Round(v, digits)
	if r == 0 {
		r = 0 // drop negative zero
	}
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatCount renders an integer total
func FormatCount(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Round rounds half away from zero at the given number of decimal digits
func Round(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}
