package features

import (
	"github.com/Faultbox/geobake/pkg/formats"
	"github.com/Faultbox/geobake/pkg/math"
	"github.com/Faultbox/geobake/pkg/osm"
)

const (
	towerHeight          = 10  // metres; taller buildings are towers
	commercialArea       = 500 // square metres of footprint bounding box
	commercialHeightMin  = 6
	minFootprintVertices = 3
)

// isBuilding reports whether w carries a building tag.
func isBuilding(w *osm.Way) bool {
	_, ok := w.Tag("building")
	return ok
}

// Building derives a building record from a way and its projected node
// positions. It returns false when the footprint is degenerate.
func (s *Synthesizer) Building(w *osm.Way, points []math.Vec2) (*formats.Building, bool) {
	footprint := points
	if w.IsClosed() {
		footprint = points[:len(points)-1]
	}
	if len(footprint) < minFootprintVertices {
		return nil, false
	}

	base := math.Centroid(points)
	b := &formats.Building{
		BaseX:     base.X,
		BaseY:     base.Y,
		GroundMin: s.elev.Sample(footprint[0].X, footprint[0].Y),
		Roof:      formats.RoofFlat,
	}
	b.GroundMax = b.GroundMin

	local := make([]math.Vec2, len(footprint))
	for i, p := range footprint {
		e := s.elev.Sample(p.X, p.Y)
		b.GroundMin = min(b.GroundMin, e)
		b.GroundMax = max(b.GroundMax, e)
		local[i] = p.Sub(base)
	}
	if math.Reversed(local) {
		for i, j := 0, len(local)-1; i < j; i, j = i+1, j-1 {
			local[i], local[j] = local[j], local[i]
		}
	}
	b.Footprint = make([][2]float32, len(local))
	for i, p := range local {
		b.Footprint[i] = p.Array()
	}

	b.Height = s.buildingHeight(w)
	b.Kind = inferKind(math.BoundsArea(local), b.Height)
	if b.Kind == formats.BuildingCommercial || b.Kind == formats.BuildingIndustrial {
		b.Height = max(b.Height, commercialHeightMin)
	}
	return b, true
}

func (s *Synthesizer) buildingHeight(w *osm.Way) float32 {
	if v, ok := w.Tag("height"); ok {
		if h, ok := parseNumber(v); ok && h > 0 {
			return h
		}
	}
	if v, ok := w.Tag("building:levels"); ok {
		if levels, ok := parseNumber(v); ok && levels > 0 {
			return levels * s.opts.LevelHeight
		}
	}
	return s.opts.DefaultBuildingHeight
}

// inferKind classifies a building from its size alone; the building tag value
// is ignored. area is the footprint's bounding-box area, not its polygon area.
func inferKind(area, height float32) formats.BuildingKind {
	switch {
	case height > towerHeight:
		return formats.BuildingTower
	case area > commercialArea:
		return formats.BuildingCommercial
	default:
		return formats.BuildingHouse
	}
}
