// Package features turns OpenStreetMap ways into building footprints and
// road ribbons draped over the elevation surface.
package features

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Faultbox/geobake/pkg/formats"
	"github.com/Faultbox/geobake/pkg/math"
	"github.com/Faultbox/geobake/pkg/osm"
	"github.com/Faultbox/geobake/pkg/utm"
)

// Elevation samples terrain height at region pixel coordinates.
type Elevation interface {
	Sample(x, y float32) float32
}

// Options control feature synthesis.
type Options struct {
	SkipStructures        bool    // skip tunnels, bridges and steps
	LaneWidth             float32 // half-width contributed per lane
	PathHalfWidth         float32 // half-width of foot and bike paths
	DefaultBuildingHeight float32
	LevelHeight           float32 // metres per building:levels
}

// DefaultOptions returns the production synthesis options.
func DefaultOptions() Options {
	return Options{
		SkipStructures:        true,
		LaneWidth:             1.5,
		PathHalfWidth:         1.0,
		DefaultBuildingHeight: 3.0,
		LevelHeight:           3.0,
	}
}

// Stats count what a run produced.
type Stats struct {
	Nodes     int
	Buildings int
	Roads     int
	Skipped   int
}

// Synthesizer converts ways into feature records.
type Synthesizer struct {
	elev Elevation
	opts Options
	log  *zap.Logger
}

// New creates a synthesizer sampling elevation from elev. log may be nil.
func New(elev Elevation, opts Options, log *zap.Logger) *Synthesizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{elev: elev, opts: opts, log: log}
}

// Project converts a node to region pixel coordinates: metres east of the
// origin and metres south of it. The origin's zone is used even when the node
// lies in a neighbouring zone.
func Project(n *osm.Node, origin utm.Coord) (math.Vec2, error) {
	c, err := utm.FromLatLon(n.Lat, n.Lon, origin.Zone)
	if err != nil {
		return math.Vec2{}, err
	}
	return math.Vec2{
		X: float32(c.Easting - origin.Easting),
		Y: float32(-(c.Northing - origin.Northing)),
	}, nil
}

// Feature builds the record for one way from its projected node positions.
// It returns nil for ways that are neither buildings nor usable roads.
func (s *Synthesizer) Feature(w *osm.Way, points []math.Vec2) formats.Feature {
	switch {
	case isBuilding(w):
		if b, ok := s.Building(w, points); ok {
			return b
		}
	case isRoad(w):
		if r, ok := s.Road(w, points); ok {
			return r
		}
	}
	return nil
}

// checkEvery is how many OSM objects are scanned between context checks.
const checkEvery = 4096

// Run streams an OSM extract and appends one record per building and road to
// buf. Nodes must precede the ways that reference them, as in OSM XML files.
func (s *Synthesizer) Run(ctx context.Context, r io.Reader, origin utm.Coord, buf *formats.Buffer) (Stats, error) {
	var stats Stats
	nodes := make(map[int64]math.Vec2)
	scanner := osm.NewScanner(r)

	for n := 0; scanner.Scan(); n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		switch obj := scanner.Object().(type) {
		case *osm.Node:
			p, err := Project(obj, origin)
			if err != nil {
				return stats, fmt.Errorf("projecting node %d: %w", obj.ID, err)
			}
			nodes[obj.ID] = p
			stats.Nodes++

		case *osm.Way:
			if !isBuilding(obj) && !isRoad(obj) {
				continue
			}
			points, missing, ok := resolve(obj, nodes)
			if !ok {
				s.log.Warn("way references unknown node",
					zap.Int64("way", obj.ID),
					zap.Int64("node", missing))
				stats.Skipped++
				continue
			}

			f := s.Feature(obj, points)
			if f == nil {
				stats.Skipped++
				continue
			}
			if err := f.Encode(buf); err != nil {
				s.log.Warn("skipping way", zap.Int64("way", obj.ID), zap.Error(err))
				stats.Skipped++
				continue
			}
			switch f.Tag() {
			case formats.TagBuilding:
				stats.Buildings++
			case formats.TagRoad:
				stats.Roads++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading osm: %w", err)
	}

	s.log.Info("features synthesized",
		zap.Int("nodes", stats.Nodes),
		zap.Int("buildings", stats.Buildings),
		zap.Int("roads", stats.Roads),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// resolve looks up the projected position of every node of w. On failure it
// returns the first unknown node id.
func resolve(w *osm.Way, nodes map[int64]math.Vec2) ([]math.Vec2, int64, bool) {
	points := make([]math.Vec2, len(w.NodeIDs))
	for i, id := range w.NodeIDs {
		p, ok := nodes[id]
		if !ok {
			return nil, id, false
		}
		points[i] = p
	}
	return points, 0, true
}
