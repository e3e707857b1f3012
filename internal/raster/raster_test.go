package raster

import (
	"errors"
	"testing"

	"github.com/Faultbox/geobake/internal/raster/rastertest"
)

// testLayout mirrors the production 20x20 grid at a size tests can afford:
// 3x3 chunks of 8 samples over a 21x21 raster leave a 5-sample trailing edge.
var testLayout = Layout{ChunkSize: 8, GridSize: 3}

func rampSource() *rastertest.Source {
	return rastertest.New(21, 21, 8, func(x, y int) float32 {
		return float32(y*1000 + x)
	})
}

func loadTestRegion(t *testing.T) (*Region, *rastertest.Source) {
	t.Helper()
	src := rampSource()
	r, err := Load(src, Params{Name: "test", Zone: 10, Layout: testLayout})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return r, src
}

func TestLoad(t *testing.T) {
	r, _ := loadTestRegion(t)

	if r.TileCount() != 9 {
		t.Fatalf("expected 9 tiles, got %d", r.TileCount())
	}
	if r.Origin.Easting != 500000 || r.Origin.Northing != 5000000 || r.Origin.Zone != 10 {
		t.Errorf("unexpected origin %+v", r.Origin)
	}
	if !r.Origin.North {
		t.Error("expected northern hemisphere by default")
	}

	tests := []struct {
		index   int
		w, h    int
		x0, y0  int
		checkAt [2]int
	}{
		{0, 8, 8, 0, 0, [2]int{3, 7}},
		{2, 5, 8, 16, 0, [2]int{4, 2}},
		{6, 8, 5, 0, 16, [2]int{7, 4}},
		{8, 5, 5, 16, 16, [2]int{4, 4}},
	}
	for _, tt := range tests {
		tile := r.Tile(tt.index)
		if tile.Width != tt.w || tile.Height != tt.h {
			t.Errorf("tile %d: expected %dx%d, got %dx%d", tt.index, tt.w, tt.h, tile.Width, tile.Height)
			continue
		}
		lx, ly := tt.checkAt[0], tt.checkAt[1]
		want := float32((tt.y0+ly)*1000 + tt.x0 + lx)
		if got := tile.Get(lx, ly); got != want {
			t.Errorf("tile %d (%d,%d): got %v, want %v", tt.index, lx, ly, got, want)
		}
	}
}

func TestLoad_LayoutMismatch(t *testing.T) {
	tests := []struct {
		name   string
		src    *rastertest.Source
		layout Layout
	}{
		{"wrong chunk size", rastertest.Flat(21, 21, 4, 0), testLayout},
		{"too few chunks", rastertest.Flat(16, 21, 8, 0), testLayout},
		{"too many chunks", rastertest.Flat(25, 25, 8, 0), testLayout},
		{"bad layout", rampSource(), Layout{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src, Params{Name: "bad", Zone: 10, Layout: tt.layout})
			if !errors.Is(err, ErrLayoutMismatch) {
				t.Errorf("expected ErrLayoutMismatch, got %v", err)
			}
		})
	}
}

func TestLoad_ChunkDecodeFailure(t *testing.T) {
	src := rampSource()
	src.Fail[4] = true
	r, err := Load(src, Params{Name: "bad", Zone: 10, Layout: testLayout})
	if !errors.Is(err, ErrChunkDecode) {
		t.Errorf("expected ErrChunkDecode, got %v", err)
	}
	if r != nil {
		t.Error("no partial region may be returned")
	}
}

func TestNeighbors(t *testing.T) {
	r, _ := loadTestRegion(t)

	tests := []struct {
		index                int
		right, below, corner int // -1 means absent
	}{
		{0, 1, 3, 4},
		{1, 2, 4, 5},
		{2, -1, 5, -1}, // trailing column
		{6, 7, -1, -1}, // trailing row
		{8, -1, -1, -1},
	}
	for _, tt := range tests {
		nb := r.Neighbors(tt.index)
		check := func(name string, got *Tile, want int) {
			if want < 0 {
				if got != nil {
					t.Errorf("tile %d: expected no %s neighbor", tt.index, name)
				}
				return
			}
			if got != r.Tile(want) {
				t.Errorf("tile %d: %s neighbor should be tile %d", tt.index, name, want)
			}
		}
		check("right", nb.Right, tt.right)
		check("below", nb.Below, tt.below)
		check("corner", nb.Corner, tt.corner)
	}
}

func TestSample(t *testing.T) {
	r, src := loadTestRegion(t)

	tests := []struct {
		name string
		x, y float32
		want float32
	}{
		{"origin clamps inward", 0, 0, src.At(0, 0)},
		{"negative clamps", -50, -3, src.At(0, 0)},
		{"interior", 3.5, 2.2, src.At(3, 2)},
		{"chunk boundary", 8, 8, src.At(8, 8)},
		{"trailing chunk", 19.9, 20.5, src.At(19, 20)},
		{"far edge clamps", 1000, 1000, src.At(20, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Sample(tt.x, tt.y); got != tt.want {
				t.Errorf("Sample(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestSample_Idempotent(t *testing.T) {
	r, _ := loadTestRegion(t)
	first := r.Sample(13.7, 9.1)
	for i := 0; i < 100; i++ {
		if got := r.Sample(13.7, 9.1); got != first {
			t.Fatalf("sample changed between calls: %v != %v", got, first)
		}
	}
}

func TestBounds(t *testing.T) {
	r, _ := loadTestRegion(t)
	b, err := r.Bounds()
	if err != nil {
		t.Fatalf("Bounds failed: %v", err)
	}
	if !(b.South < b.North) || !(b.West < b.East) {
		t.Errorf("degenerate bounds %+v", b)
	}
	// Origin at the central meridian of zone 10.
	if b.West < -123.0001 || b.West > -122.9999 {
		t.Errorf("expected west edge near -123, got %v", b.West)
	}
}
