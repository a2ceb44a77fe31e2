package kitti

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat formats v with the shortest representation that round-trips,
// in the same notation Python's repr uses for floats: fixed notation with a
// trailing ".0" for integral values when the decimal exponent is in
// [-4, 16), scientific notation otherwise.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	e := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if v != 0 && (exp < -4 || exp >= 16) {
		return e
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
