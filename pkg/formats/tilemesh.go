package formats

import "fmt"

// TileVertex is one quantized terrain vertex.
//
// X and Y are normalized against the nominal chunk span, so vertices on a
// stitched seam row or column land on 65535 and vertices of trailing-edge
// tiles never reach it.
type TileVertex struct {
	X, Y, Z    uint16
	NX, NY, NZ int8
}

// TileMesh is the decoded form of a terrain tile file.
type TileMesh struct {
	MinZ     float32
	RangeZ   float32
	Vertices []TileVertex
	// Faces hold indices in the order they are stored on disk: (b, a, c)
	// relative to the source triangle (a, b, c).
	Faces [][3]uint16
}

// Encode appends the tile mesh to buf.
func (m *TileMesh) Encode(buf *Buffer) error {
	if len(m.Vertices) > 0xFFFF {
		return fmt.Errorf("tile mesh has %d vertices, limit is 65535", len(m.Vertices))
	}
	if len(m.Faces) > 0xFFFF {
		return fmt.Errorf("tile mesh has %d faces, limit is 65535", len(m.Faces))
	}

	buf.WriteFloat(m.MinZ)
	buf.WriteFloat(m.RangeZ)
	buf.WriteShort(uint16(len(m.Vertices)))
	for _, v := range m.Vertices {
		buf.WriteShort(v.X)
		buf.WriteShort(v.Y)
		buf.WriteShort(v.Z)
		buf.WriteInt8(v.NX)
		buf.WriteInt8(v.NY)
		buf.WriteInt8(v.NZ)
	}

	buf.WriteShort(uint16(len(m.Faces)))
	for _, f := range m.Faces {
		buf.WriteShort(f[0])
		buf.WriteShort(f[1])
		buf.WriteShort(f[2])
	}
	return nil
}

// ParseTileMesh decodes a terrain tile file.
func ParseTileMesh(data []byte) (*TileMesh, error) {
	r := NewReader(data)
	m := &TileMesh{}

	if err := r.readFloats(&m.MinZ, &m.RangeZ); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	vertexCount, err := r.ReadShort()
	if err != nil {
		return nil, fmt.Errorf("reading vertex count: %w", err)
	}
	if r.Remaining() < int(vertexCount)*9 {
		return nil, fmt.Errorf("%w: %d vertices need %d bytes, have %d",
			ErrTruncated, vertexCount, int(vertexCount)*9, r.Remaining())
	}

	m.Vertices = make([]TileVertex, vertexCount)
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.X, _ = r.ReadShort()
		v.Y, _ = r.ReadShort()
		v.Z, _ = r.ReadShort()
		v.NX, _ = r.ReadInt8()
		v.NY, _ = r.ReadInt8()
		v.NZ, _ = r.ReadInt8()
	}

	faceCount, err := r.ReadShort()
	if err != nil {
		return nil, fmt.Errorf("reading face count: %w", err)
	}
	if r.Remaining() < int(faceCount)*6 {
		return nil, fmt.Errorf("%w: %d faces need %d bytes, have %d",
			ErrTruncated, faceCount, int(faceCount)*6, r.Remaining())
	}

	m.Faces = make([][3]uint16, faceCount)
	for i := range m.Faces {
		for j := 0; j < 3; j++ {
			m.Faces[i][j], _ = r.ReadShort()
		}
		for _, idx := range m.Faces[i] {
			if int(idx) >= len(m.Vertices) {
				return nil, fmt.Errorf("face %d references vertex %d of %d", i, idx, len(m.Vertices))
			}
		}
	}

	return m, nil
}

// Dequantize returns the world-space position of vertex v given the nominal
// chunk span used at encode time.
func (m *TileMesh) Dequantize(v TileVertex, span float32) (x, y, z float32) {
	x = float32(v.X) / 65535 * span
	y = float32(v.Y) / 65535 * span
	z = m.MinZ + float32(v.Z)/65535*m.RangeZ
	return x, y, z
}
