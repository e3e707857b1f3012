package terrain

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/logger"
	"github.com/Faultbox/geobake/internal/raster"
	"github.com/Faultbox/geobake/pkg/formats"
)

// BuildMesh meshes, decimates and quantizes one raster tile.
func BuildMesh(tile *raster.Tile, nb raster.Neighbors, opts Options) (*formats.TileMesh, Stats, error) {
	m, err := BuildGrid(tile, nb, opts.ChunkSize)
	if err != nil {
		return nil, Stats{}, err
	}
	stats := Stats{GridVertices: m.VertexCount(), GridFaces: m.FaceCount()}

	Decimate(m, opts.MaxError, opts.MinFaces)

	stats.Vertices = m.VertexCount()
	stats.Faces = m.FaceCount()
	stats.Bounds = m.Bounds()
	logger.Debug("tile decimated",
		zap.Int("grid_faces", stats.GridFaces),
		zap.Int("vertices", stats.Vertices),
		zap.Int("faces", stats.Faces))

	tm, err := Quantize(m, opts.ChunkSize)
	if err != nil {
		return nil, stats, err
	}
	return tm, stats, nil
}

// BuildTile meshes one raster tile and encodes it.
func BuildTile(tile *raster.Tile, nb raster.Neighbors, opts Options) (*formats.Buffer, error) {
	tm, _, err := BuildMesh(tile, nb, opts)
	if err != nil {
		return nil, err
	}
	buf := formats.NewBuffer(8 + 2 + len(tm.Vertices)*9 + 2 + len(tm.Faces)*6)
	if err := tm.Encode(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Quantize compacts the live part of m into the 16-bit tile representation.
// x and y are normalized against chunkSize, z against the mesh's own height
// range. A flat mesh quantizes every z to 0.
func Quantize(m *Mesh, chunkSize int) (*formats.TileMesh, error) {
	if m.VertexCount() >= maxIndexed {
		return nil, fmt.Errorf("%w: %d vertices", ErrIndexOverflow, m.VertexCount())
	}
	if m.FaceCount() >= maxIndexed {
		return nil, fmt.Errorf("%w: %d faces", ErrIndexOverflow, m.FaceCount())
	}

	verts := m.Vertices()
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, v := range verts {
		z := m.pos[v][2]
		minZ = math.Min(minZ, z)
		maxZ = math.Max(maxZ, z)
	}
	if len(verts) == 0 {
		minZ, maxZ = 0, 0
	}
	rangeZ := maxZ - minZ

	span := float64(chunkSize)
	remap := make([]uint16, len(m.pos))
	tm := &formats.TileMesh{
		MinZ:     float32(minZ),
		RangeZ:   float32(rangeZ),
		Vertices: make([]formats.TileVertex, len(verts)),
	}
	for i, v := range verts {
		remap[v] = uint16(i)
		p := m.pos[v]
		n := m.VertexNormal(v)
		tv := formats.TileVertex{
			X:  uint16(math.Round(p[0] / span * 65535)),
			Y:  uint16(math.Round(p[1] / span * 65535)),
			NX: int8(math.Round(n[0] * 127)),
			NY: int8(math.Round(n[1] * 127)),
			NZ: int8(math.Round(n[2] * 127)),
		}
		if rangeZ > 0 {
			tv.Z = uint16(math.Round((p[2] - minZ) / rangeZ * 65535))
		}
		tm.Vertices[i] = tv
	}

	faces := m.Faces()
	tm.Faces = make([][3]uint16, len(faces))
	for i, f := range faces {
		tm.Faces[i] = [3]uint16{remap[f[1]], remap[f[0]], remap[f[2]]}
	}
	return tm, nil
}
