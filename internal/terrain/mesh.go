package terrain

import (
	"fmt"
	"math"

	"github.com/Faultbox/geobake/internal/raster"
)

// Mesh is an indexed triangle mesh that supports in-place edge collapses.
// Dead vertices and faces keep their slots until encoding compacts them.
type Mesh struct {
	pos       [][3]float64
	faces     [][3]int32
	faceAlive []bool
	vertAlive []bool
	boundary  []bool
	// incident lists the live faces around each vertex.
	incident [][]int32

	liveVerts int
	liveFaces int
}

func newMesh(vertexCap, faceCap int) *Mesh {
	return &Mesh{
		pos:       make([][3]float64, 0, vertexCap),
		faces:     make([][3]int32, 0, faceCap),
		faceAlive: make([]bool, 0, faceCap),
		vertAlive: make([]bool, 0, vertexCap),
		incident:  make([][]int32, 0, vertexCap),
	}
}

func (m *Mesh) addVertex(p [3]float64) int32 {
	m.pos = append(m.pos, p)
	m.vertAlive = append(m.vertAlive, true)
	m.incident = append(m.incident, make([]int32, 0, 6))
	m.liveVerts++
	return int32(len(m.pos) - 1)
}

func (m *Mesh) addFace(a, b, c int32) {
	f := int32(len(m.faces))
	m.faces = append(m.faces, [3]int32{a, b, c})
	m.faceAlive = append(m.faceAlive, true)
	for _, v := range [3]int32{a, b, c} {
		m.incident[v] = append(m.incident[v], f)
	}
	m.liveFaces++
}

type edgeUse struct {
	other int32
	faces int
}

// markBoundary flags every vertex on an edge used by exactly one face.
func (m *Mesh) markBoundary() {
	m.boundary = make([]bool, len(m.pos))
	var buf [16]edgeUse
	for v := range m.pos {
		uses := buf[:0]
		for _, f := range m.incident[v] {
			for _, w := range m.faces[f] {
				if w == int32(v) {
					continue
				}
				found := false
				for i := range uses {
					if uses[i].other == w {
						uses[i].faces++
						found = true
						break
					}
				}
				if !found {
					uses = append(uses, edgeUse{other: w, faces: 1})
				}
			}
		}
		for _, u := range uses {
			if u.faces == 1 {
				m.boundary[v] = true
				break
			}
		}
	}
}

// VertexCount returns the number of live vertices.
func (m *Mesh) VertexCount() int { return m.liveVerts }

// FaceCount returns the number of live faces.
func (m *Mesh) FaceCount() int { return m.liveFaces }

// IsBoundary reports whether vertex v lies on the mesh border.
func (m *Mesh) IsBoundary(v int32) bool { return m.boundary[v] }

// Position returns the position of vertex v.
func (m *Mesh) Position(v int32) [3]float64 { return m.pos[v] }

// Vertices returns the live vertex ids in ascending order.
func (m *Mesh) Vertices() []int32 {
	out := make([]int32, 0, m.liveVerts)
	for v, alive := range m.vertAlive {
		if alive {
			out = append(out, int32(v))
		}
	}
	return out
}

// Faces returns the live faces.
func (m *Mesh) Faces() [][3]int32 {
	out := make([][3]int32, 0, m.liveFaces)
	for f, alive := range m.faceAlive {
		if alive {
			out = append(out, m.faces[f])
		}
	}
	return out
}

// faceNormal returns the unnormalized normal of face f, its length twice the
// face area.
func (m *Mesh) faceNormal(f int32) [3]float64 {
	t := m.faces[f]
	a, b, c := m.pos[t[0]], m.pos[t[1]], m.pos[t[2]]
	return cross(sub(b, a), sub(c, a))
}

// VertexNormal returns the area-weighted average of the normals of the faces
// around v. Isolated vertices point straight up.
func (m *Mesh) VertexNormal(v int32) [3]float64 {
	var sum [3]float64
	for _, f := range m.incident[v] {
		n := m.faceNormal(f)
		sum[0] += n[0]
		sum[1] += n[1]
		sum[2] += n[2]
	}
	return normalize(sum)
}

// Bounds returns the bounding box of the live vertices.
func (m *Mesh) Bounds() Bounds {
	b := Bounds{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for v, alive := range m.vertAlive {
		if alive {
			updateBounds(&b, m.pos[v])
		}
	}
	return b
}

// neighbors appends the vertices sharing a live face with v to dst.
func (m *Mesh) neighbors(v int32, dst []int32) []int32 {
	dst = dst[:0]
	for _, f := range m.incident[v] {
		for _, w := range m.faces[f] {
			if w != v && !containsID(dst, w) {
				dst = append(dst, w)
			}
		}
	}
	return dst
}

// BuildGrid triangulates a tile, extending it by one row and column of seam
// samples taken from its neighbors when the tile is full sized.
func BuildGrid(tile *raster.Tile, nb raster.Neighbors, chunkSize int) (*Mesh, error) {
	if err := validateTile(tile, nb, chunkSize); err != nil {
		return nil, err
	}

	w, h := tile.Width, tile.Height
	gw, gh := w, h
	if w == chunkSize && nb.Right != nil {
		gw++
	}
	if h == chunkSize && nb.Below != nil {
		gh++
	}
	if gw < 2 || gh < 2 {
		return nil, fmt.Errorf("%w: %dx%d grid has no quads", ErrMalformedTile, gw, gh)
	}

	height := func(x, y int) float32 {
		switch {
		case x < w && y < h:
			return tile.Get(x, y)
		case y < h:
			return nb.Right.Get(0, y)
		case x < w:
			return nb.Below.Get(x, 0)
		default:
			return nb.Corner.Get(0, 0)
		}
	}

	m := newMesh(gw*gh, 2*(gw-1)*(gh-1))
	for y := 0; y < gh; y++ {
		for x := 0; x < gw; x++ {
			m.addVertex([3]float64{float64(x), float64(y), float64(height(x, y))})
		}
	}
	for y := 0; y < gh-1; y++ {
		for x := 0; x < gw-1; x++ {
			i := int32(y*gw + x)
			stride := int32(gw)
			m.addFace(i, i+1, i+stride)
			m.addFace(i+1, i+stride+1, i+stride)
		}
	}
	m.markBoundary()
	return m, nil
}

func validateTile(tile *raster.Tile, nb raster.Neighbors, chunkSize int) error {
	if tile == nil {
		return fmt.Errorf("%w: nil tile", ErrMalformedTile)
	}
	w, h := tile.Width, tile.Height
	if w < 1 || h < 1 || w > chunkSize || h > chunkSize {
		return fmt.Errorf("%w: dimensions %dx%d outside [1, %d]", ErrMalformedTile, w, h, chunkSize)
	}
	if len(tile.Data) != w*h {
		return fmt.Errorf("%w: %d samples for %dx%d", ErrMalformedTile, len(tile.Data), w, h)
	}

	extendX := w == chunkSize && nb.Right != nil
	extendY := h == chunkSize && nb.Below != nil
	if extendX && (nb.Right.Height < h || nb.Right.Width < 1 || len(nb.Right.Data) != nb.Right.Width*nb.Right.Height) {
		return fmt.Errorf("%w: right neighbor cannot supply %d seam samples", ErrMalformedTile, h)
	}
	if extendY && (nb.Below.Width < w || nb.Below.Height < 1 || len(nb.Below.Data) != nb.Below.Width*nb.Below.Height) {
		return fmt.Errorf("%w: below neighbor cannot supply %d seam samples", ErrMalformedTile, w)
	}
	if extendX && extendY && (nb.Corner == nil || len(nb.Corner.Data) == 0) {
		return fmt.Errorf("%w: missing corner neighbor", ErrMalformedTile)
	}
	return nil
}

// Helper functions

func updateBounds(b *Bounds, p [3]float64) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float64) [3]float64 {
	l := math.Sqrt(dot(v, v))
	if l < 1e-12 {
		return [3]float64{0, 0, 1}
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}

func containsID(s []int32, v int32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func removeID(s []int32, v int32) []int32 {
	for i, x := range s {
		if x == v {
			s[i] = s[len(s)-1]
			return s[:len(s)-1]
		}
	}
	return s
}
