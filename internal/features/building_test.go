package features

import (
	"testing"

	"github.com/Faultbox/geobake/pkg/formats"
	"github.com/Faultbox/geobake/pkg/math"
)

// square returns a closed square way of the given side with its first corner
// at the origin, listed clockwise when cw is set.
func square(side float32, cw bool) []math.Vec2 {
	if cw {
		return pts(0, 0, 0, side, side, side, side, 0, 0, 0)
	}
	return pts(0, 0, side, 0, side, side, 0, side, 0, 0)
}

func closedIDs(n int) []int64 {
	out := ids(n)
	out[n-1] = out[0]
	return out
}

func footprint(b *formats.Building) []math.Vec2 {
	out := make([]math.Vec2, len(b.Footprint))
	for i, p := range b.Footprint {
		out[i] = math.Vec2{X: p[0], Y: p[1]}
	}
	return out
}

func TestBuilding_ClockwiseIsReversed(t *testing.T) {
	s := New(flatElevation(0), DefaultOptions(), nil)
	points := square(10, true)
	if math.SignedArea(points[:4]) >= 0 {
		t.Fatal("fixture should be clockwise")
	}

	b, ok := s.Building(way(map[string]string{"building": "yes"}, closedIDs(5)...), points)
	if !ok {
		t.Fatal("expected building")
	}

	// The mean includes the repeated closing node.
	if b.BaseX != 4 || b.BaseY != 4 {
		t.Errorf("base: got (%f, %f), want (4, 4)", b.BaseX, b.BaseY)
	}
	fp := footprint(b)
	if len(fp) != 4 {
		t.Fatalf("expected 4 footprint points, got %d", len(fp))
	}
	if math.SignedArea(fp) <= 0 {
		t.Errorf("footprint not counter-clockwise: %v", fp)
	}
	want := []math.Vec2{{X: 6, Y: -4}, {X: 6, Y: 6}, {X: -4, Y: 6}, {X: -4, Y: -4}}
	for i := range want {
		if fp[i] != want[i] {
			t.Errorf("point %d: got %v, want %v", i, fp[i], want[i])
		}
	}
}

func TestBuilding_CounterClockwiseKept(t *testing.T) {
	s := New(flatElevation(0), DefaultOptions(), nil)
	b, ok := s.Building(way(map[string]string{"building": "yes"}, closedIDs(5)...), square(10, false))
	if !ok {
		t.Fatal("expected building")
	}
	fp := footprint(b)
	if fp[0] != (math.Vec2{X: -4, Y: -4}) || fp[1] != (math.Vec2{X: 6, Y: -4}) {
		t.Errorf("expected input order kept, got %v", fp)
	}
}

func TestBuilding_HeightAndKind(t *testing.T) {
	tests := []struct {
		name       string
		tags       map[string]string
		side       float32
		wantHeight float32
		wantKind   formats.BuildingKind
	}{
		{"default", map[string]string{"building": "yes"}, 10, 3, formats.BuildingHouse},
		{"explicit height", map[string]string{"building": "yes", "height": "7.5"}, 10, 7.5, formats.BuildingHouse},
		{"height with unit", map[string]string{"building": "yes", "height": "8 m"}, 10, 8, formats.BuildingHouse},
		{"tall", map[string]string{"building": "yes", "height": "42"}, 10, 42, formats.BuildingTower},
		{"levels", map[string]string{"building": "yes", "building:levels": "4"}, 10, 12, formats.BuildingTower},
		{"malformed height uses levels", map[string]string{"building": "yes", "height": "tall", "building:levels": "2"}, 10, 6, formats.BuildingHouse},
		{"malformed levels", map[string]string{"building": "yes", "building:levels": "many"}, 10, 3, formats.BuildingHouse},
		{"large footprint", map[string]string{"building": "yes"}, 30, 6, formats.BuildingCommercial},
		{"large and tall", map[string]string{"building": "yes", "height": "15"}, 30, 15, formats.BuildingTower},
		{"industrial tag is not a kind", map[string]string{"building": "industrial"}, 10, 3, formats.BuildingHouse},
		{"warehouse tag is not a kind", map[string]string{"building": "warehouse", "height": "9"}, 10, 9, formats.BuildingHouse},
		{"tall school", map[string]string{"building": "school", "height": "25"}, 10, 25, formats.BuildingTower},
		{"large hospital", map[string]string{"building": "hospital"}, 30, 6, formats.BuildingCommercial},
		{"parking", map[string]string{"building": "parking"}, 10, 3, formats.BuildingHouse},
	}

	s := New(flatElevation(0), DefaultOptions(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := s.Building(way(tt.tags, closedIDs(5)...), square(tt.side, false))
			if !ok {
				t.Fatal("expected building")
			}
			if b.Height != tt.wantHeight {
				t.Errorf("height: got %f, want %f", b.Height, tt.wantHeight)
			}
			if b.Kind != tt.wantKind {
				t.Errorf("kind: got %s, want %s", b.Kind, tt.wantKind)
			}
			if b.Roof != formats.RoofFlat {
				t.Errorf("roof: got %d, want flat", b.Roof)
			}
		})
	}
}

func TestBuilding_GroundExtrema(t *testing.T) {
	ramp := elevationFunc(func(x, y float32) float32 { return 50 + x })
	s := New(ramp, DefaultOptions(), nil)

	b, ok := s.Building(way(map[string]string{"building": "yes"}, closedIDs(5)...), square(10, false))
	if !ok {
		t.Fatal("expected building")
	}
	if b.GroundMin != 50 || b.GroundMax != 60 {
		t.Errorf("ground: got [%f, %f], want [50, 60]", b.GroundMin, b.GroundMax)
	}
}

func TestBuilding_OpenAndDegenerate(t *testing.T) {
	s := New(flatElevation(0), DefaultOptions(), nil)

	b, ok := s.Building(way(map[string]string{"building": "yes"}, ids(3)...), pts(0, 0, 10, 0, 0, 10))
	if !ok {
		t.Fatal("expected open triangle to be kept")
	}
	if len(b.Footprint) != 3 {
		t.Errorf("open way should keep all nodes, got %d", len(b.Footprint))
	}

	if _, ok := s.Building(way(map[string]string{"building": "yes"}, closedIDs(3)...), pts(0, 0, 10, 0, 0, 0)); ok {
		t.Error("expected two-point footprint to be skipped")
	}
}
