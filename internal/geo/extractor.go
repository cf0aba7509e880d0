package geo

import "log"

// Strategy is one independent way of pulling a coordinate out of image
// bytes.
type Strategy interface {
	Name() string
	Extract(data []byte) (Coordinate, bool)
}

// Extractor resolves a coordinate for an image using an ordered strategy
// chain, falling back to the subject-line tag when no embedded coordinate
// is found. First success wins.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor builds the default chain: raw tag-stream EXIF reader first,
// full-decode EXIF reader second.
func NewExtractor() *Extractor {
	return &Extractor{
		strategies: []Strategy{tagStreamReader{}, decodeReader{}},
	}
}

// Extract runs the chain. The boolean is false when no stage produced a
// valid coordinate.
func (e *Extractor) Extract(data []byte, subject string) (Coordinate, bool) {
	for _, s := range e.strategies {
		if coord, ok := s.Extract(data); ok {
			log.Printf("[Geo] Extracted GPS via %s: lat=%f, lng=%f", s.Name(), coord.Latitude, coord.Longitude)
			return coord, true
		}
	}

	if coord, ok := ParseSubjectLocation(subject); ok {
		log.Printf("[Geo] Using coordinates from subject: lat=%f, lng=%f", coord.Latitude, coord.Longitude)
		return coord, true
	}
	return Coordinate{}, false
}
