package geo

import (
	"math"
	"strings"
)

// ratio divides an EXIF rational, mapping a zero denominator to NaN so the
// whole DMS triple gets rejected downstream instead of producing Inf.
func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// dmsToDecimal converts a degrees/minutes/seconds triple and a hemisphere
// reference into signed decimal degrees. South and West negate the
// magnitude. The conversion fails when any component is non-finite or the
// reference is not one of N/S/E/W.
func dmsToDecimal(dms [3]float64, ref string) (float64, bool) {
	ref = strings.TrimSpace(strings.Trim(ref, "\x00"))
	if ref != "N" && ref != "S" && ref != "E" && ref != "W" {
		return 0, false
	}
	for _, component := range dms {
		if math.IsNaN(component) || math.IsInf(component, 0) {
			return 0, false
		}
	}

	decimal := dms[0] + dms[1]/60.0 + dms[2]/3600.0
	if ref == "S" || ref == "W" {
		decimal = -decimal
	}
	return decimal, true
}
