// Package terrain turns raster tiles into decimated, quantized triangle meshes.
package terrain

import "errors"

// Mesher errors.
var (
	ErrMalformedTile = errors.New("malformed tile")
	ErrIndexOverflow = errors.New("mesh exceeds 16-bit index range")
)

// maxIndexed is the first vertex or face count that no longer fits a
// 16-bit index.
const maxIndexed = 1 << 16

// Options control tile meshing.
type Options struct {
	ChunkSize int     // nominal tile span in samples
	MaxError  float64 // collapses costing more than MaxError^2 are refused
	MinFaces  int     // decimation never goes below this face count
}

// DefaultOptions returns the production meshing options.
func DefaultOptions() Options {
	return Options{
		ChunkSize: 512,
		MaxError:  1.0,
		MinFaces:  10000,
	}
}

// Bounds holds the axis-aligned bounding box of a mesh.
type Bounds struct {
	Min [3]float64
	Max [3]float64
}

// Stats summarize one meshed tile.
type Stats struct {
	GridVertices int
	GridFaces    int
	Vertices     int
	Faces        int
	Bounds       Bounds
}
