package features

import (
	gomath "math"

	"github.com/Faultbox/geobake/pkg/formats"
	"github.com/Faultbox/geobake/pkg/math"
	"github.com/Faultbox/geobake/pkg/osm"
)

// maxMiterAngle caps the bend angle used for width correction.
const maxMiterAngle = gomath.Pi / 2

// RoadKind classifies a highway way.
type RoadKind int

// Road kinds.
const (
	KindRoad RoadKind = iota
	KindFootPath
	KindBikePath
)

// IsLevelPath reports whether the ribbon is flattened across its width.
func (k RoadKind) IsLevelPath() bool {
	return k == KindFootPath || k == KindBikePath
}

func isRoad(w *osm.Way) bool {
	_, ok := w.Tag("highway")
	return ok
}

// skipRoad reports whether w is a structure the ribbon builder cannot model.
func skipRoad(w *osm.Way) bool {
	highway, _ := w.Tag("highway")
	return present(w, "tunnel") || present(w, "bridge") || highway == "steps"
}

// classifyRoad returns the road kind and, for vehicular roads, the lane count.
func classifyRoad(w *osm.Way) (RoadKind, float32) {
	highway, _ := w.Tag("highway")
	_, footway := w.Tag("footway")
	switch {
	case highway == "footway" || highway == "path" || footway:
		return KindFootPath, 0
	case highway == "cycleway":
		return KindBikePath, 0
	}
	lanes := float32(2)
	if v, ok := w.Tag("lanes"); ok {
		if n, ok := parseNumber(v); ok {
			lanes = max(n, 1)
		}
	}
	return KindRoad, lanes
}

// RoadNode is a ribbon cross-section under construction.
type RoadNode struct {
	Center    math.Vec2
	Left      math.Vec3
	Right     math.Vec3
	Normal    math.Vec3
	Direction math.Vec3
}

// Road builds a ribbon record from a way and its projected node positions.
// It returns false for structures and for ways with fewer than two distinct
// positions.
func (s *Synthesizer) Road(w *osm.Way, points []math.Vec2) (*formats.Road, bool) {
	if s.opts.SkipStructures && skipRoad(w) {
		return nil, false
	}

	centers := dedupe(points)
	if len(centers) < 2 {
		return nil, false
	}

	kind, lanes := classifyRoad(w)
	halfWidth := s.opts.PathHalfWidth
	if kind == KindRoad {
		halfWidth = lanes * s.opts.LaneWidth
	}

	base := math.Centroid(points)
	road := &formats.Road{
		BaseX:         base.X,
		BaseY:         base.Y,
		BaseElevation: s.elev.Sample(base.X, base.Y),
		Type:          formats.RoadPath,
		Lanes:         1,
	}
	if kind == KindRoad {
		road.Type = formats.RoadTwoWay
		if present(w, "oneway") {
			road.Type = formats.RoadOneWay
		}
		road.Lanes = uint8(min(gomath.Ceil(float64(lanes)), 255))
	}

	nodes := s.ribbon(centers, base, road.BaseElevation, halfWidth, kind.IsLevelPath())
	road.Nodes = make([]formats.RoadNode, len(nodes))
	for i, n := range nodes {
		road.Nodes[i] = formats.RoadNode{
			Left:      n.Left.Array(),
			Right:     n.Right.Array(),
			Normal:    n.Normal.Array(),
			Direction: n.Direction.Array(),
		}
	}
	return road, true
}

// ribbon places the left and right rails of a path, then derives per-node
// surface normals from the 3D rails.
func (s *Synthesizer) ribbon(centers []math.Vec2, base math.Vec2, baseElevation, halfWidth float32, level bool) []RoadNode {
	nodes := make([]RoadNode, len(centers))
	lift := func(p math.Vec2) math.Vec3 {
		return p.Sub(base).WithZ(s.elev.Sample(p.X, p.Y) - baseElevation)
	}

	for i, c := range centers {
		var in, out math.Vec2
		if i > 0 {
			in = c.Sub(centers[i-1]).Normalize()
		}
		if i < len(centers)-1 {
			out = centers[i+1].Sub(c).Normalize()
		}

		dir := averageDirection2(in, out, i > 0, i < len(centers)-1)
		width := halfWidth
		if i > 0 && i < len(centers)-1 {
			angle := float64(min(in.Angle(out), maxMiterAngle))
			width *= float32(1 / gomath.Cos(angle/2))
		}

		side := dir.Perp().Scale(width)
		left := lift(c.Add(side))
		right := lift(c.Sub(side))
		if level {
			z := max(left.Z, right.Z)
			left.Z, right.Z = z, z
		}
		nodes[i] = RoadNode{Center: c, Left: left, Right: right}
	}

	for i := range nodes {
		var in, out math.Vec3
		if i > 0 {
			in = nodes[i].Left.Sub(nodes[i-1].Left).Normalize()
		}
		if i < len(nodes)-1 {
			out = nodes[i+1].Left.Sub(nodes[i].Left).Normalize()
		}
		fwd := averageDirection3(in, out, i > 0, i < len(nodes)-1)
		side := nodes[i].Right.Sub(nodes[i].Left).Normalize()
		nodes[i].Direction = fwd
		nodes[i].Normal = fwd.Cross(side)
	}
	return nodes
}

// averageDirection2 averages the unit vectors into and out of a node. The
// mean is not renormalized, so it shortens at a bend. At a reversal the
// average vanishes and the outgoing direction is used.
func averageDirection2(in, out math.Vec2, hasIn, hasOut bool) math.Vec2 {
	switch {
	case hasIn && hasOut:
		if d := in.Mean(out); d != (math.Vec2{}) {
			return d
		}
		return out
	case hasIn:
		return in
	default:
		return out
	}
}

func averageDirection3(in, out math.Vec3, hasIn, hasOut bool) math.Vec3 {
	switch {
	case hasIn && hasOut:
		if d := in.Mean(out); d != (math.Vec3{}) {
			return d
		}
		return out
	case hasIn:
		return in
	default:
		return out
	}
}

// dedupe drops consecutive repeated positions.
func dedupe(points []math.Vec2) []math.Vec2 {
	out := make([]math.Vec2, 0, len(points))
	for i, p := range points {
		if i > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}
