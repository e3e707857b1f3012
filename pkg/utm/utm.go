// Package utm projects WGS84 geographic coordinates onto the Universal
// Transverse Mercator grid and back.
package utm

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ctessum/geom/proj"
)

// ErrInvalidZone is returned for zone numbers outside 1..60.
var ErrInvalidZone = errors.New("utm zone out of range")

const geographic = "+proj=longlat +datum=WGS84 +no_defs"

// Coord is a projected UTM position.
type Coord struct {
	Zone     int
	Easting  float64
	Northing float64
	North    bool
}

// String formats the coordinate as "zone hemisphere easting northing".
func (c Coord) String() string {
	h := "N"
	if !c.North {
		h = "S"
	}
	return fmt.Sprintf("%d%s %.2fE %.2fN", c.Zone, h, c.Easting, c.Northing)
}

// ZoneFor returns the standard zone number for a longitude in degrees.
func ZoneFor(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone > 60 {
		zone = 60
	}
	if zone < 1 {
		zone = 1
	}
	return zone
}

type grid struct {
	zone  int
	south bool
}

type transforms struct {
	forward proj.Transformer
	inverse proj.Transformer
}

var (
	mu    sync.Mutex
	grids = make(map[grid]*transforms)
)

// transformsFor returns the cached projection pair for one zone and
// hemisphere, parsing the proj4 definitions on first use.
func transformsFor(zone int, south bool) (*transforms, error) {
	if zone < 1 || zone > 60 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidZone, zone)
	}

	key := grid{zone: zone, south: south}
	mu.Lock()
	defer mu.Unlock()
	if t, ok := grids[key]; ok {
		return t, nil
	}

	def := fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", zone)
	if south {
		def += " +south"
	}
	utmSR, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", def, err)
	}
	geoSR, err := proj.Parse(geographic)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", geographic, err)
	}

	fwd, err := geoSR.NewTransform(utmSR)
	if err != nil {
		return nil, fmt.Errorf("zone %d transform: %w", zone, err)
	}
	inv, err := utmSR.NewTransform(geoSR)
	if err != nil {
		return nil, fmt.Errorf("zone %d inverse transform: %w", zone, err)
	}

	t := &transforms{forward: fwd, inverse: inv}
	grids[key] = t
	return t, nil
}

// FromLatLon projects lat/lon (degrees) into the given zone. Forcing the zone
// keeps every point of a region on one grid even where the region straddles a
// zone boundary.
func FromLatLon(lat, lon float64, zone int) (Coord, error) {
	north := lat >= 0
	t, err := transformsFor(zone, !north)
	if err != nil {
		return Coord{}, err
	}

	easting, northing, err := t.forward(lon, lat)
	if err != nil {
		return Coord{}, fmt.Errorf("project (%f, %f): %w", lat, lon, err)
	}
	return Coord{Zone: zone, Easting: easting, Northing: northing, North: north}, nil
}

// ToLatLon converts a UTM coordinate back to lat/lon in degrees.
func ToLatLon(c Coord) (lat, lon float64, err error) {
	t, err := transformsFor(c.Zone, !c.North)
	if err != nil {
		return 0, 0, err
	}

	lon, lat, err = t.inverse(c.Easting, c.Northing)
	if err != nil {
		return 0, 0, fmt.Errorf("unproject %v: %w", c, err)
	}
	return lat, lon, nil
}
