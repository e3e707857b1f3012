// Package raster holds the tiled elevation model every geometry builder
// samples from.
package raster

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/logger"
	"github.com/Faultbox/geobake/pkg/utm"
)

// Load errors.
var (
	ErrLayoutMismatch = errors.New("raster layout mismatch")
	ErrChunkDecode    = errors.New("chunk decode failed")
)

// edgeInset keeps samples off the exact raster edge, where the chunk index
// division would land one past the last chunk.
const edgeInset = 0.01

// Layout describes how the raster is chunked.
type Layout struct {
	ChunkSize int // nominal chunk width and height in samples
	GridSize  int // chunks per row and per column
}

// DefaultLayout is the 20x20 grid of 512x512 chunks of a survey region.
var DefaultLayout = Layout{ChunkSize: 512, GridSize: 20}

// ChunkCount returns the number of chunks in the grid.
func (l Layout) ChunkCount() int {
	return l.GridSize * l.GridSize
}

// ChunkIndex returns the index of the chunk containing sample (x, y) and
// whether it lies inside the grid.
func (l Layout) ChunkIndex(x, y float32) (int, bool) {
	cx := int(math.Floor(float64(x) / float64(l.ChunkSize)))
	cy := int(math.Floor(float64(y) / float64(l.ChunkSize)))
	if cx < 0 || cy < 0 || cx >= l.GridSize || cy >= l.GridSize {
		return 0, false
	}
	return cy*l.GridSize + cx, true
}

// ChunkSource supplies decoded raster chunks. pkg/geotiff implements it.
type ChunkSource interface {
	Dimensions() (width, height int)
	ChunkDimensions() (width, height int)
	ChunkCount() int
	ChunkDataDimensions(i int) (width, height int)
	ReadChunk(i int) ([]float32, error)
	TiePoint() (easting, northing float64, err error)
}

// Tile is one decoded chunk. It is immutable after load and shared between
// workers without locking.
type Tile struct {
	Data   []float32
	Width  int
	Height int
}

// Get returns the sample at local pixel (x, y).
func (t *Tile) Get(x, y int) float32 {
	return t.Data[y*t.Width+x]
}

// Neighbors are the tiles a mesh stitches its seam against. Nil means
// absent.
type Neighbors struct {
	Right  *Tile
	Below  *Tile
	Corner *Tile
}

// Params identify a region being loaded.
type Params struct {
	Name   string
	Zone   int
	South  bool
	Layout Layout
}

// Region is the fully resident elevation raster of one survey area.
type Region struct {
	Name   string
	Origin utm.Coord // top-left corner of the raster
	Layout Layout
	Width  int
	Height int

	tiles []*Tile
}

// Load decodes every chunk of src into a Region. Nothing is returned unless
// the whole raster matches the layout.
func Load(src ChunkSource, p Params) (*Region, error) {
	l := p.Layout
	if l.ChunkSize <= 0 || l.GridSize <= 0 {
		return nil, fmt.Errorf("%w: invalid layout %+v", ErrLayoutMismatch, l)
	}

	if cw, ch := src.ChunkDimensions(); cw != l.ChunkSize || ch != l.ChunkSize {
		return nil, fmt.Errorf("%w: chunk size %dx%d, expected %dx%d",
			ErrLayoutMismatch, cw, ch, l.ChunkSize, l.ChunkSize)
	}

	width, height := src.Dimensions()
	across := (width + l.ChunkSize - 1) / l.ChunkSize
	down := (height + l.ChunkSize - 1) / l.ChunkSize
	if across != l.GridSize || down != l.GridSize {
		return nil, fmt.Errorf("%w: %dx%d raster is %dx%d chunks, expected %dx%d",
			ErrLayoutMismatch, width, height, across, down, l.GridSize, l.GridSize)
	}
	if n := src.ChunkCount(); n != l.ChunkCount() {
		return nil, fmt.Errorf("%w: source has %d chunks, expected %d", ErrLayoutMismatch, n, l.ChunkCount())
	}

	easting, northing, err := src.TiePoint()
	if err != nil {
		return nil, fmt.Errorf("reading tie point: %w", err)
	}

	r := &Region{
		Name: p.Name,
		Origin: utm.Coord{
			Zone:     p.Zone,
			Easting:  easting,
			Northing: northing,
			North:    !p.South,
		},
		Layout: l,
		Width:  width,
		Height: height,
		tiles:  make([]*Tile, 0, l.ChunkCount()),
	}

	for i := 0; i < l.ChunkCount(); i++ {
		wantW, wantH := r.expectedChunkDims(i)
		w, h := src.ChunkDataDimensions(i)
		if w != wantW || h != wantH {
			return nil, fmt.Errorf("%w: chunk %d is %dx%d, expected %dx%d",
				ErrLayoutMismatch, i, w, h, wantW, wantH)
		}

		data, err := src.ReadChunk(i)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrChunkDecode, i, err)
		}
		if len(data) != w*h {
			return nil, fmt.Errorf("%w: chunk %d has %d samples, expected %d",
				ErrChunkDecode, i, len(data), w*h)
		}

		r.tiles = append(r.tiles, &Tile{Data: data, Width: w, Height: h})
		logger.Debug("chunk decoded", zap.String("region", p.Name), zap.Int("chunk", i))
	}

	return r, nil
}

// expectedChunkDims returns the size chunk i must have given the raster
// dimensions: full chunks everywhere except the trailing row and column.
func (r *Region) expectedChunkDims(i int) (int, int) {
	cs := r.Layout.ChunkSize
	col := i % r.Layout.GridSize
	row := i / r.Layout.GridSize
	return min(cs, r.Width-col*cs), min(cs, r.Height-row*cs)
}

// TileCount returns the number of tiles.
func (r *Region) TileCount() int {
	return len(r.tiles)
}

// Tile returns tile i.
func (r *Region) Tile(i int) *Tile {
	return r.tiles[i]
}

// Neighbors returns the tiles right of, below, and diagonally below-right of
// tile i. Only full tiles have successors to stitch against.
func (r *Region) Neighbors(i int) Neighbors {
	t := r.tiles[i]
	cs := r.Layout.ChunkSize
	gs := r.Layout.GridSize
	col := i % gs
	row := i / gs

	fullW := t.Width == cs && col+1 < gs
	fullH := t.Height == cs && row+1 < gs

	var nb Neighbors
	if fullW {
		nb.Right = r.tiles[i+1]
	}
	if fullH {
		nb.Below = r.tiles[i+gs]
	}
	if fullW && fullH {
		nb.Corner = r.tiles[i+gs+1]
	}
	return nb
}

// Sample returns the elevation at region pixel coordinates (x, y). The
// position is clamped into the raster first. A position that still maps
// outside the chunk grid (NaN input) violates the caller's contract and
// panics.
func (r *Region) Sample(x, y float32) float32 {
	x = clampf(x, edgeInset, float32(r.Width)-edgeInset)
	y = clampf(y, edgeInset, float32(r.Height)-edgeInset)

	idx, ok := r.Layout.ChunkIndex(x, y)
	if !ok {
		panic(fmt.Sprintf("raster: sample (%v, %v) outside chunk grid", x, y))
	}

	t := r.tiles[idx]
	cs := float32(r.Layout.ChunkSize)
	lx := int(float32(math.Mod(float64(x), float64(cs))))
	ly := int(float32(math.Mod(float64(y), float64(cs))))
	return t.Get(lx, ly)
}

// Bounds returns the geographic extent of the region in degrees.
func (r *Region) Bounds() (Bounds, error) {
	north, west, err := utm.ToLatLon(r.Origin)
	if err != nil {
		return Bounds{}, err
	}
	far := r.Origin
	far.Easting += float64(r.Width)
	far.Northing -= float64(r.Height)
	south, east, err := utm.ToLatLon(far)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{South: south, West: west, North: north, East: east}, nil
}

// Bounds is a lat/lon bounding box.
type Bounds struct {
	South, West, North, East float64
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
