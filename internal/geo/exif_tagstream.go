package geo

import (
	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// tagStreamReader extracts GPS coordinates by walking the raw EXIF tag
// stream with go-exif. It is the first stage of the chain because it copes
// with EXIF blocks whose surrounding JPEG structure other decoders choke on.
type tagStreamReader struct{}

func (tagStreamReader) Name() string { return "exif-tagstream" }

func (tagStreamReader) Extract(data []byte) (Coordinate, bool) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return Coordinate{}, false
	}

	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return Coordinate{}, false
	}

	var latDMS, lonDMS []exifcommon.Rational
	var latRef, lonRef string

	for _, tag := range tags {
		if tag.IfdPath != "IFD/GPSInfo" {
			continue
		}
		switch tag.TagName {
		case "GPSLatitude":
			latDMS, _ = tag.Value.([]exifcommon.Rational)
		case "GPSLatitudeRef":
			latRef, _ = tag.Value.(string)
		case "GPSLongitude":
			lonDMS, _ = tag.Value.([]exifcommon.Rational)
		case "GPSLongitudeRef":
			lonRef, _ = tag.Value.(string)
		}
	}

	lat, ok := rationalDMS(latDMS, latRef)
	if !ok {
		return Coordinate{}, false
	}
	lon, ok := rationalDMS(lonDMS, lonRef)
	if !ok {
		return Coordinate{}, false
	}

	coord := Coordinate{Latitude: lat, Longitude: lon}
	return coord, coord.Valid()
}

func rationalDMS(rationals []exifcommon.Rational, ref string) (float64, bool) {
	if len(rationals) != 3 {
		return 0, false
	}
	var dms [3]float64
	for i, r := range rationals {
		dms[i] = ratio(float64(r.Numerator), float64(r.Denominator))
	}
	return dmsToDecimal(dms, ref)
}
