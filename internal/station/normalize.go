package station

import (
	"math"
	"strconv"
	"strings"
)

// Sentinel is the value published for a field with no valid data.
const Sentinel = -99.0

// valueStripper removes the wire separators that wrap every value (":22.2;").
var valueStripper = strings.NewReplacer(":", "", ";", "")

// Normalize converts one raw value string to a float.
//
// The separators ':' and ';' are removed, then the string is cut at the
// first character that is not a digit, '.', '-' or '+', which drops unit
// suffixes and trailing framing noise such as ")D621". If what remains does
// not parse, Normalize returns NaN.
func Normalize(raw string) float64 {
	s := valueStripper.Replace(raw)
	if i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+'
	}); i >= 0 {
		s = s[:i]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// IsSentinel reports whether v carries no data: NaN or the -99 marker.
func IsSentinel(v float64) bool {
	return math.IsNaN(v) || v == Sentinel
}
