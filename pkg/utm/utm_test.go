package utm

import (
	"errors"
	"math"
	"testing"
)

func TestFromLatLon_CentralMeridian(t *testing.T) {
	c, err := FromLatLon(0, 3, 31)
	if err != nil {
		t.Fatalf("FromLatLon failed: %v", err)
	}
	if math.Abs(c.Easting-500000) > 1e-3 || math.Abs(c.Northing) > 1e-3 {
		t.Errorf("expected (500000, 0), got (%f, %f)", c.Easting, c.Northing)
	}
	if !c.North {
		t.Error("equator should be reported as northern hemisphere")
	}
}

func TestFromLatLon_EastingIncreasesEastward(t *testing.T) {
	west, _ := FromLatLon(45, -123.01, 10)
	east, _ := FromLatLon(45, -122.99, 10)
	if east.Easting <= west.Easting {
		t.Errorf("expected easting to grow eastward: %f <= %f", east.Easting, west.Easting)
	}
	// 0.02 degrees of longitude at 45N is roughly 1.57 km.
	if d := east.Easting - west.Easting; d < 1500 || d > 1650 {
		t.Errorf("unexpected easting delta %f", d)
	}
}

func TestRoundTrip(t *testing.T) {
	points := []struct {
		lat, lon float64
		zone     int
	}{
		{47.6062, -122.3321, 10},
		{45.5, -122.6, 10},
		{-33.8688, 151.2093, 56},
		{64.1466, -21.9426, 27},
	}
	for _, p := range points {
		c, err := FromLatLon(p.lat, p.lon, p.zone)
		if err != nil {
			t.Fatalf("FromLatLon(%v, %v) failed: %v", p.lat, p.lon, err)
		}
		lat, lon, err := ToLatLon(c)
		if err != nil {
			t.Fatalf("ToLatLon(%v) failed: %v", c, err)
		}
		if math.Abs(lat-p.lat) > 1e-6 || math.Abs(lon-p.lon) > 1e-6 {
			t.Errorf("round trip (%v, %v) -> %v -> (%v, %v)", p.lat, p.lon, c, lat, lon)
		}
	}
}

func TestFromLatLon_SouthernFalseNorthing(t *testing.T) {
	c, err := FromLatLon(-0.0001, 3, 31)
	if err != nil {
		t.Fatalf("FromLatLon failed: %v", err)
	}
	if c.North {
		t.Error("expected southern hemisphere")
	}
	// Just south of the equator the northing sits just under 10,000 km.
	if c.Northing < 9999980 || c.Northing >= 10000000 {
		t.Errorf("unexpected southern northing %f", c.Northing)
	}
}

func TestFromLatLon_ForcedZone(t *testing.T) {
	// -116.9 lies in zone 11; forcing zone 10 keeps it on the western grid.
	own, err := FromLatLon(47.6, -116.9, 11)
	if err != nil {
		t.Fatalf("FromLatLon failed: %v", err)
	}
	forced, err := FromLatLon(47.6, -116.9, 10)
	if err != nil {
		t.Fatalf("FromLatLon failed: %v", err)
	}
	if forced.Zone != 10 || forced.Easting <= 800000 {
		t.Errorf("forced zone: got %v, want zone 10 far east of the central meridian", forced)
	}
	// 0.1 degrees east of zone 11's central meridian.
	if own.Easting <= 500000 || own.Easting > 510000 {
		t.Errorf("own zone: got %v, want just east of the central meridian", own)
	}

	lat, lon, err := ToLatLon(forced)
	if err != nil {
		t.Fatalf("ToLatLon failed: %v", err)
	}
	if math.Abs(lat-47.6) > 1e-5 || math.Abs(lon+116.9) > 1e-5 {
		t.Errorf("forced round trip gave (%v, %v)", lat, lon)
	}
}

func TestZoneFor(t *testing.T) {
	tests := []struct {
		lon  float64
		want int
	}{
		{-180, 1},
		{-122.3, 10},
		{0, 31},
		{3, 31},
		{179.9, 60},
		{180, 60},
	}
	for _, tt := range tests {
		if got := ZoneFor(tt.lon); got != tt.want {
			t.Errorf("ZoneFor(%v) = %d, want %d", tt.lon, got, tt.want)
		}
	}
}

func TestInvalidZone(t *testing.T) {
	if _, err := FromLatLon(0, 0, 0); !errors.Is(err, ErrInvalidZone) {
		t.Errorf("expected ErrInvalidZone, got %v", err)
	}
	if _, _, err := ToLatLon(Coord{Zone: 61}); !errors.Is(err, ErrInvalidZone) {
		t.Errorf("expected ErrInvalidZone, got %v", err)
	}
}
