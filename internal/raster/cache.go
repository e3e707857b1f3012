package raster

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/logger"
)

// DefaultCacheSize is the number of decoded chunks a server-mode sampler
// keeps resident.
const DefaultCacheSize = 11

// Cache is a least-recently-used set of decoded chunks keyed by chunk index.
// It is not safe for concurrent use; each request owns its own cache.
type Cache struct {
	lru *lru.Cache[int, *Tile]
}

// NewCache returns a cache holding at most capacity chunks.
func NewCache(capacity int) (*Cache, error) {
	c, err := lru.New[int, *Tile](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating chunk cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Get returns chunk i and marks it most recently used.
func (c *Cache) Get(i int) (*Tile, bool) {
	return c.lru.Get(i)
}

// Add inserts chunk i as most recently used, evicting the least recently
// used chunk when full. It reports whether an eviction happened.
func (c *Cache) Add(i int, t *Tile) bool {
	return c.lru.Add(i, t)
}

// Len returns the number of cached chunks.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Keys returns the cached chunk indices from least to most recently used.
func (c *Cache) Keys() []int {
	return c.lru.Keys()
}

// Sampler answers elevation queries by decoding chunks on demand through a
// Cache, for serving when the full raster is not resident.
type Sampler struct {
	src    ChunkSource
	cache  *Cache
	layout Layout
	width  int
	height int
}

// NewSampler validates src against layout and returns a sampler with a fresh
// cache of cacheSize chunks.
func NewSampler(src ChunkSource, layout Layout, cacheSize int) (*Sampler, error) {
	if cw, ch := src.ChunkDimensions(); cw != layout.ChunkSize || ch != layout.ChunkSize {
		return nil, fmt.Errorf("%w: chunk size %dx%d, expected %dx%d",
			ErrLayoutMismatch, cw, ch, layout.ChunkSize, layout.ChunkSize)
	}
	cache, err := NewCache(cacheSize)
	if err != nil {
		return nil, err
	}
	w, h := src.Dimensions()
	return &Sampler{src: src, cache: cache, layout: layout, width: w, height: h}, nil
}

// Cache exposes the sampler's chunk cache.
func (s *Sampler) Cache() *Cache {
	return s.cache
}

// Lookup returns the elevation at (x, y). Positions outside the raster and
// chunks that fail to decode are reported as a miss.
func (s *Sampler) Lookup(x, y float32) (float32, bool) {
	if !(x >= 0 && y >= 0 && x < float32(s.width) && y < float32(s.height)) {
		return 0, false
	}
	x = clampf(x, edgeInset, float32(s.width)-edgeInset)
	y = clampf(y, edgeInset, float32(s.height)-edgeInset)

	idx, ok := s.layout.ChunkIndex(x, y)
	if !ok {
		return 0, false
	}
	t, ok := s.tile(idx)
	if !ok {
		return 0, false
	}

	cs := float64(s.layout.ChunkSize)
	lx := int(math.Mod(float64(x), cs))
	ly := int(math.Mod(float64(y), cs))
	if lx >= t.Width || ly >= t.Height {
		return 0, false
	}
	return t.Get(lx, ly), true
}

func (s *Sampler) tile(i int) (*Tile, bool) {
	if t, ok := s.cache.Get(i); ok {
		return t, true
	}

	w, h := s.src.ChunkDataDimensions(i)
	data, err := s.src.ReadChunk(i)
	if err != nil || len(data) != w*h {
		logger.Warn("chunk decode failed",
			zap.Int("chunk", i),
			zap.Int("samples", len(data)),
			zap.Error(err))
		return nil, false
	}

	t := &Tile{Data: data, Width: w, Height: h}
	s.cache.Add(i, t)
	return t, true
}
