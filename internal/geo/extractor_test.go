package geo

import "testing"

type stubStrategy struct {
	name  string
	coord Coordinate
	ok    bool
	calls *int
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Extract(data []byte) (Coordinate, bool) {
	if s.calls != nil {
		*s.calls++
	}
	return s.coord, s.ok
}

func TestExtractorFirstStrategyWins(t *testing.T) {
	secondCalls := 0
	e := &Extractor{strategies: []Strategy{
		stubStrategy{name: "first", coord: Coordinate{10, 20}, ok: true},
		stubStrategy{name: "second", coord: Coordinate{30, 40}, ok: true, calls: &secondCalls},
	}}

	coord, ok := e.Extract([]byte("img"), "")
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if coord != (Coordinate{10, 20}) {
		t.Errorf("got %v, want first strategy's coordinate", coord)
	}
	if secondCalls != 0 {
		t.Errorf("second strategy ran %d time(s), want 0", secondCalls)
	}
}

func TestExtractorFallsThroughChain(t *testing.T) {
	e := &Extractor{strategies: []Strategy{
		stubStrategy{name: "first", ok: false},
		stubStrategy{name: "second", coord: Coordinate{30, 40}, ok: true},
	}}

	coord, ok := e.Extract([]byte("img"), "")
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if coord != (Coordinate{30, 40}) {
		t.Errorf("got %v, want second strategy's coordinate", coord)
	}
}

func TestExtractorSubjectFallback(t *testing.T) {
	e := &Extractor{strategies: []Strategy{
		stubStrategy{name: "first", ok: false},
	}}

	coord, ok := e.Extract([]byte("img"), "Report lat:1.5,lng:-2.5")
	if !ok {
		t.Fatal("expected subject fallback to produce a coordinate")
	}
	if coord != (Coordinate{1.5, -2.5}) {
		t.Errorf("got %v, want subject coordinate", coord)
	}
}

func TestExtractorSubjectOnlyWhenStrategiesFail(t *testing.T) {
	e := &Extractor{strategies: []Strategy{
		stubStrategy{name: "first", coord: Coordinate{10, 20}, ok: true},
	}}

	coord, _ := e.Extract([]byte("img"), "lat:1,lng:2")
	if coord != (Coordinate{10, 20}) {
		t.Errorf("got %v, embedded coordinate must win over subject", coord)
	}
}

func TestExtractorNothingFound(t *testing.T) {
	e := NewExtractor()

	// Garbage bytes carry no EXIF segment; the subject has no tag either.
	if _, ok := e.Extract([]byte("definitely not an image"), "hello"); ok {
		t.Error("expected extraction to fail")
	}
}

func TestExtractorRealChainOnNonExifImage(t *testing.T) {
	e := NewExtractor()

	// A minimal GIF has no EXIF data, so only the subject can supply a
	// location.
	coord, ok := e.Extract(tinyGIF(), "lat:59.94,lng:30.31")
	if !ok {
		t.Fatal("expected subject fallback")
	}
	if coord != (Coordinate{59.94, 30.31}) {
		t.Errorf("got %v", coord)
	}
}

func tinyGIF() []byte {
	return []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
		0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff,
		0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00,
		0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
		0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
	}
}
