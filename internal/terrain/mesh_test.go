package terrain

import (
	"errors"
	"testing"

	"github.com/Faultbox/geobake/internal/raster"
)

func makeTile(w, h int, f func(x, y int) float32) *raster.Tile {
	t := &raster.Tile{Data: make([]float32, w*h), Width: w, Height: h}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t.Data[y*w+x] = f(x, y)
		}
	}
	return t
}

func flat(z float32) func(x, y int) float32 {
	return func(int, int) float32 { return z }
}

func TestBuildGrid_Dimensions(t *testing.T) {
	full := makeTile(4, 4, flat(1))
	short := makeTile(3, 4, flat(1))

	tests := []struct {
		name      string
		tile      *raster.Tile
		nb        raster.Neighbors
		wantVerts int
		wantFaces int
	}{
		{"no neighbors", full, raster.Neighbors{}, 16, 18},
		{"right only", full, raster.Neighbors{Right: full}, 20, 24},
		{"below only", full, raster.Neighbors{Below: full}, 20, 24},
		{"all neighbors", full, raster.Neighbors{Right: full, Below: full, Corner: full}, 25, 32},
		{"trailing tile ignores right", short, raster.Neighbors{Right: full}, 12, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := BuildGrid(tt.tile, tt.nb, 4)
			if err != nil {
				t.Fatalf("BuildGrid failed: %v", err)
			}
			if m.VertexCount() != tt.wantVerts {
				t.Errorf("expected %d vertices, got %d", tt.wantVerts, m.VertexCount())
			}
			if m.FaceCount() != tt.wantFaces {
				t.Errorf("expected %d faces, got %d", tt.wantFaces, m.FaceCount())
			}
		})
	}
}

func TestBuildGrid_SeamHeights(t *testing.T) {
	tile := makeTile(4, 4, flat(0))
	right := makeTile(4, 4, func(x, y int) float32 { return float32(100 + y*10 + x) })
	below := makeTile(4, 4, func(x, y int) float32 { return float32(200 + y*10 + x) })
	corner := makeTile(4, 4, flat(300))

	m, err := BuildGrid(tile, raster.Neighbors{Right: right, Below: below, Corner: corner}, 4)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}

	at := func(x, y int) float64 { return m.Position(int32(y*5 + x))[2] }
	for y := 0; y < 4; y++ {
		if got, want := at(4, y), float64(right.Get(0, y)); got != want {
			t.Errorf("seam column y=%d: got %f, want %f", y, got, want)
		}
	}
	for x := 0; x < 4; x++ {
		if got, want := at(x, 4), float64(below.Get(x, 0)); got != want {
			t.Errorf("seam row x=%d: got %f, want %f", x, got, want)
		}
	}
	if at(4, 4) != 300 {
		t.Errorf("corner: got %f, want 300", at(4, 4))
	}
}

func TestBuildGrid_Winding(t *testing.T) {
	m, err := BuildGrid(makeTile(3, 3, flat(5)), raster.Neighbors{}, 4)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}
	faces := m.Faces()
	if faces[0] != [3]int32{0, 1, 3} || faces[1] != [3]int32{1, 4, 3} {
		t.Errorf("unexpected first quad: %v %v", faces[0], faces[1])
	}
	for v := range m.pos {
		n := m.VertexNormal(int32(v))
		if n != [3]float64{0, 0, 1} {
			t.Errorf("vertex %d normal %v, want +z", v, n)
		}
	}
}

func TestBuildGrid_Boundary(t *testing.T) {
	m, err := BuildGrid(makeTile(5, 5, flat(0)), raster.Neighbors{}, 8)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}
	count := 0
	for v := range m.pos {
		x, y := v%5, v/5
		onEdge := x == 0 || y == 0 || x == 4 || y == 4
		if m.IsBoundary(int32(v)) != onEdge {
			t.Errorf("vertex (%d,%d): boundary=%v", x, y, m.IsBoundary(int32(v)))
		}
		if onEdge {
			count++
		}
	}
	if count != 16 {
		t.Errorf("expected 16 boundary vertices, got %d", count)
	}
}

func TestBuildGrid_Malformed(t *testing.T) {
	full := makeTile(4, 4, flat(0))
	tests := []struct {
		name string
		tile *raster.Tile
		nb   raster.Neighbors
	}{
		{"nil tile", nil, raster.Neighbors{}},
		{"sample count", &raster.Tile{Data: make([]float32, 5), Width: 4, Height: 4}, raster.Neighbors{}},
		{"too wide", makeTile(5, 4, flat(0)), raster.Neighbors{}},
		{"zero height", &raster.Tile{Width: 4}, raster.Neighbors{}},
		{"single sample", makeTile(1, 1, flat(0)), raster.Neighbors{}},
		{"short right neighbor", full, raster.Neighbors{Right: makeTile(4, 2, flat(0))}},
		{"narrow below neighbor", full, raster.Neighbors{Below: makeTile(2, 4, flat(0))}},
		{"missing corner", full, raster.Neighbors{Right: full, Below: full}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildGrid(tt.tile, tt.nb, 4)
			if !errors.Is(err, ErrMalformedTile) {
				t.Errorf("expected ErrMalformedTile, got %v", err)
			}
		})
	}
}
