// Package rastertest provides an in-memory raster.ChunkSource for tests.
package rastertest

import "fmt"

// Source is a synthetic raster chunked like a tiled GeoTIFF.
type Source struct {
	Width, Height int
	ChunkSize     int
	Easting       float64
	Northing      float64

	// Reads counts ReadChunk calls per chunk index.
	Reads map[int]int
	// Fail makes ReadChunk return an error for the listed chunks.
	Fail map[int]bool

	samples []float32
}

// New builds a width x height raster whose samples come from f.
func New(width, height, chunkSize int, f func(x, y int) float32) *Source {
	s := &Source{
		Width:     width,
		Height:    height,
		ChunkSize: chunkSize,
		Easting:   500000,
		Northing:  5000000,
		Reads:     make(map[int]int),
		Fail:      make(map[int]bool),
		samples:   make([]float32, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			s.samples[y*width+x] = f(x, y)
		}
	}
	return s
}

// Flat returns a raster with the same elevation everywhere.
func Flat(width, height, chunkSize int, z float32) *Source {
	return New(width, height, chunkSize, func(int, int) float32 { return z })
}

// At returns the sample at raster pixel (x, y).
func (s *Source) At(x, y int) float32 {
	return s.samples[y*s.Width+x]
}

func (s *Source) across() int {
	return (s.Width + s.ChunkSize - 1) / s.ChunkSize
}

// Dimensions implements raster.ChunkSource.
func (s *Source) Dimensions() (int, int) { return s.Width, s.Height }

// ChunkDimensions implements raster.ChunkSource.
func (s *Source) ChunkDimensions() (int, int) { return s.ChunkSize, s.ChunkSize }

// ChunkCount implements raster.ChunkSource.
func (s *Source) ChunkCount() int {
	down := (s.Height + s.ChunkSize - 1) / s.ChunkSize
	return s.across() * down
}

// ChunkDataDimensions implements raster.ChunkSource.
func (s *Source) ChunkDataDimensions(i int) (int, int) {
	col, row := i%s.across(), i/s.across()
	return min(s.ChunkSize, s.Width-col*s.ChunkSize), min(s.ChunkSize, s.Height-row*s.ChunkSize)
}

// ReadChunk implements raster.ChunkSource.
func (s *Source) ReadChunk(i int) ([]float32, error) {
	s.Reads[i]++
	if s.Fail[i] {
		return nil, fmt.Errorf("chunk %d: injected failure", i)
	}
	if i < 0 || i >= s.ChunkCount() {
		return nil, fmt.Errorf("chunk %d out of range", i)
	}
	w, h := s.ChunkDataDimensions(i)
	x0 := (i % s.across()) * s.ChunkSize
	y0 := (i / s.across()) * s.ChunkSize
	out := make([]float32, 0, w*h)
	for y := 0; y < h; y++ {
		row := (y0+y)*s.Width + x0
		out = append(out, s.samples[row:row+w]...)
	}
	return out, nil
}

// TiePoint implements raster.ChunkSource.
func (s *Source) TiePoint() (float64, float64, error) {
	return s.Easting, s.Northing, nil
}
