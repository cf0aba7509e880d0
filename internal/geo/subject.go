package geo

import (
	"regexp"
	"strconv"
)

// subjectLocationRe matches the structured location tag contributors put in
// the email subject, e.g. "Report lat:55.75,lng:37.61".
var subjectLocationRe = regexp.MustCompile(`(?i)lat:([-+]?\d*\.?\d+),lng:([-+]?\d*\.?\d+)`)

// ParseSubjectLocation scans a subject line for a lat:<n>,lng:<n> tag and
// returns the coordinate when both numbers parse and are in range.
func ParseSubjectLocation(subject string) (Coordinate, bool) {
	if subject == "" {
		return Coordinate{}, false
	}
	match := subjectLocationRe.FindStringSubmatch(subject)
	if match == nil {
		return Coordinate{}, false
	}

	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return Coordinate{}, false
	}

	coord := Coordinate{Latitude: lat, Longitude: lng}
	return coord, coord.Valid()
}
