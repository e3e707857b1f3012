package formats

import "fmt"

// FeatureTag identifies a record in the map feature file.
type FeatureTag uint8

// Feature tags. The values are part of the file format.
const (
	TagBuilding FeatureTag = 0
	TagRoad     FeatureTag = 1
)

// String returns a human-readable tag name.
func (t FeatureTag) String() string {
	switch t {
	case TagBuilding:
		return "Building"
	case TagRoad:
		return "Road"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Feature is one record of the map feature file.
type Feature interface {
	Tag() FeatureTag
	Encode(buf *Buffer) error
}

// BuildingKind classifies a building for the renderer.
type BuildingKind uint8

// Building kinds.
const (
	BuildingHouse      BuildingKind = 0 // pitched roofs, siding or brick
	BuildingTower      BuildingKind = 1
	BuildingCommercial BuildingKind = 2 // shops, theaters
	BuildingIndustrial BuildingKind = 3
	BuildingParking    BuildingKind = 4
	BuildingSchool     BuildingKind = 5
	BuildingHospital   BuildingKind = 6
)

// String returns a human-readable building kind.
func (k BuildingKind) String() string {
	switch k {
	case BuildingHouse:
		return "House"
	case BuildingTower:
		return "Tower"
	case BuildingCommercial:
		return "Commercial"
	case BuildingIndustrial:
		return "Industrial"
	case BuildingParking:
		return "Parking"
	case BuildingSchool:
		return "School"
	case BuildingHospital:
		return "Hospital"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// RoofKind selects the roof geometry.
type RoofKind uint8

// Roof kinds.
const (
	RoofFlat RoofKind = 0
)

// Building is a footprint extruded from the ground.
type Building struct {
	BaseX, BaseY float32
	GroundMin    float32
	GroundMax    float32
	Height       float32
	Kind         BuildingKind
	Roof         RoofKind
	// Footprint points relative to (BaseX, BaseY) in the map frame (x east,
	// y south), without a duplicated closing point. The winding has positive
	// shoelace area in that frame, which reads clockwise on a north-up map.
	Footprint [][2]float32
}

// Tag implements Feature.
func (b *Building) Tag() FeatureTag { return TagBuilding }

// Encode implements Feature.
func (b *Building) Encode(buf *Buffer) error {
	if len(b.Footprint) > 0xFFFF {
		return fmt.Errorf("building has %d footprint points, limit is 65535", len(b.Footprint))
	}
	buf.WriteUint8(uint8(TagBuilding))
	buf.WriteFloat(b.BaseX)
	buf.WriteFloat(b.BaseY)
	buf.WriteFloat(b.GroundMin)
	buf.WriteFloat(b.GroundMax)
	buf.WriteFloat(b.Height)
	buf.WriteUint8(uint8(b.Kind))
	buf.WriteUint8(uint8(b.Roof))
	buf.WriteShort(uint16(len(b.Footprint)))
	for _, p := range b.Footprint {
		buf.WriteFloat(p[0])
		buf.WriteFloat(p[1])
	}
	return nil
}

// RoadType is the road classification byte.
type RoadType uint8

// Road types.
const (
	RoadPath   RoadType = 0 // foot and bike paths
	RoadTwoWay RoadType = 1
	RoadOneWay RoadType = 2
)

// RoadNode is one ribbon cross-section, relative to the road base position.
type RoadNode struct {
	Left      [3]float32
	Right     [3]float32
	Normal    [3]float32
	Direction [3]float32
}

// Road is a ribbon following a way.
type Road struct {
	BaseX, BaseY  float32
	BaseElevation float32
	Type          RoadType
	Lanes         uint8
	Nodes         []RoadNode
}

// Tag implements Feature.
func (r *Road) Tag() FeatureTag { return TagRoad }

// Encode implements Feature.
func (r *Road) Encode(buf *Buffer) error {
	if len(r.Nodes) > 0xFFFF {
		return fmt.Errorf("road has %d nodes, limit is 65535", len(r.Nodes))
	}
	buf.WriteUint8(uint8(TagRoad))
	buf.WriteFloat(r.BaseX)
	buf.WriteFloat(r.BaseY)
	buf.WriteFloat(r.BaseElevation)
	buf.WriteUint8(uint8(r.Type))
	buf.WriteUint8(r.Lanes)
	buf.WriteShort(uint16(len(r.Nodes)))
	for _, n := range r.Nodes {
		for _, v := range [4][3]float32{n.Left, n.Right, n.Normal, n.Direction} {
			buf.WriteFloat(v[0])
			buf.WriteFloat(v[1])
			buf.WriteFloat(v[2])
		}
	}
	return nil
}

// ParseFeatures decodes a complete map feature file.
func ParseFeatures(data []byte) ([]Feature, error) {
	r := NewReader(data)
	var features []Feature

	for r.Remaining() > 0 {
		tag, _ := r.ReadByte()
		var (
			f   Feature
			err error
		)
		switch FeatureTag(tag) {
		case TagBuilding:
			f, err = parseBuilding(r)
		case TagRoad:
			f, err = parseRoad(r)
		default:
			return features, fmt.Errorf("%w: %d at record %d", ErrUnknownFeature, tag, len(features))
		}
		if err != nil {
			return features, fmt.Errorf("parsing %s record %d: %w", FeatureTag(tag), len(features), err)
		}
		features = append(features, f)
	}

	return features, nil
}

func parseBuilding(r *Reader) (*Building, error) {
	b := &Building{}
	if err := r.readFloats(&b.BaseX, &b.BaseY, &b.GroundMin, &b.GroundMax, &b.Height); err != nil {
		return nil, err
	}
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	roof, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	b.Kind = BuildingKind(kind)
	b.Roof = RoofKind(roof)

	count, err := r.ReadShort()
	if err != nil {
		return nil, err
	}
	b.Footprint = make([][2]float32, count)
	for i := range b.Footprint {
		if err := r.readFloats(&b.Footprint[i][0], &b.Footprint[i][1]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func parseRoad(r *Reader) (*Road, error) {
	road := &Road{}
	if err := r.readFloats(&road.BaseX, &road.BaseY, &road.BaseElevation); err != nil {
		return nil, err
	}
	typ, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	lanes, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	road.Type = RoadType(typ)
	road.Lanes = lanes

	count, err := r.ReadShort()
	if err != nil {
		return nil, err
	}
	road.Nodes = make([]RoadNode, count)
	for i := range road.Nodes {
		n := &road.Nodes[i]
		for _, v := range []*[3]float32{&n.Left, &n.Right, &n.Normal, &n.Direction} {
			if err := r.readFloats(&v[0], &v[1], &v[2]); err != nil {
				return nil, err
			}
		}
	}
	return road, nil
}
