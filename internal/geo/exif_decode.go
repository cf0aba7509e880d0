package geo

import (
	"bytes"

	gexif "github.com/cozy/goexif2/exif"
)

// decodeReader extracts GPS coordinates through goexif2's full EXIF decode.
// It runs after the tag-stream reader: the two libraries disagree on which
// real-world EXIF blocks are parseable, and neither subsumes the other.
type decodeReader struct{}

func (decodeReader) Name() string { return "exif-decode" }

func (decodeReader) Extract(data []byte) (Coordinate, bool) {
	x, err := gexif.Decode(bytes.NewReader(data))
	if err != nil {
		return Coordinate{}, false
	}

	lat, ok := decodedDMS(x, gexif.GPSLatitude, gexif.GPSLatitudeRef)
	if !ok {
		return Coordinate{}, false
	}
	lon, ok := decodedDMS(x, gexif.GPSLongitude, gexif.GPSLongitudeRef)
	if !ok {
		return Coordinate{}, false
	}

	coord := Coordinate{Latitude: lat, Longitude: lon}
	return coord, coord.Valid()
}

func decodedDMS(x *gexif.Exif, valueName, refName gexif.FieldName) (float64, bool) {
	tag, err := x.Get(valueName)
	if err != nil || tag.Count < 3 {
		return 0, false
	}
	refTag, err := x.Get(refName)
	if err != nil {
		return 0, false
	}
	ref, err := refTag.StringVal()
	if err != nil {
		return 0, false
	}

	var dms [3]float64
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, false
		}
		dms[i] = ratio(float64(num), float64(den))
	}
	return dmsToDecimal(dms, ref)
}
