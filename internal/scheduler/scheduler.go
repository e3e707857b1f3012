// Package scheduler meshes raster tiles on a fixed pool of workers.
package scheduler

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/raster"
	"github.com/Faultbox/geobake/pkg/formats"
)

// Job is one tile to mesh.
type Job struct {
	Index     int
	Tile      *raster.Tile
	Neighbors raster.Neighbors
}

// MeshFunc turns a tile and its seam neighbours into an encoded asset.
type MeshFunc func(tile *raster.Tile, nb raster.Neighbors) (*formats.Buffer, error)

// Sink stores encoded assets. store.Store implements it.
type Sink interface {
	SaveCompressed(name string, data []byte) error
}

// Config holds scheduler settings.
type Config struct {
	Workers int // 0 means one per CPU
}

// Scheduler drains a FIFO of tile jobs with a fixed worker pool.
type Scheduler struct {
	workers int
	mesh    MeshFunc
	sink    Sink
	log     *zap.Logger
	metrics *Metrics

	mu    sync.Mutex
	queue []Job
}

// New creates a scheduler. log and metrics may be nil.
func New(cfg Config, mesh MeshFunc, sink Sink, log *zap.Logger, metrics *Metrics) *Scheduler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		workers: workers,
		mesh:    mesh,
		sink:    sink,
		log:     log,
		metrics: metrics,
	}
}

// Workers returns the size of the worker pool.
func (s *Scheduler) Workers() int {
	return s.workers
}

// TileName returns the asset name of tile i.
func TileName(i int) string {
	return fmt.Sprintf("tile%d", i)
}

// JobsFor returns one job per tile of r in index order.
func JobsFor(r *raster.Region) []Job {
	jobs := make([]Job, r.TileCount())
	for i := range jobs {
		jobs[i] = Job{Index: i, Tile: r.Tile(i), Neighbors: r.Neighbors(i)}
	}
	return jobs
}

// Run processes every job and blocks until all workers have exited. A failed
// job does not stop its worker; all failures are returned combined.
func (s *Scheduler) Run(jobs []Job) error {
	s.mu.Lock()
	s.queue = append(s.queue, jobs...)
	s.metrics.setDepth(len(s.queue))
	s.mu.Unlock()

	s.log.Info("scheduler starting",
		zap.Int("jobs", len(jobs)),
		zap.Int("workers", s.workers))
	start := time.Now()

	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		errs   error
		failed int
	)
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				job, ok := s.pop()
				if !ok {
					return
				}
				if err := s.process(worker, job); err != nil {
					errMu.Lock()
					errs = multierr.Append(errs, err)
					failed++
					errMu.Unlock()
				}
			}
		}(w)
	}
	wg.Wait()

	s.log.Info("scheduler finished",
		zap.Int("jobs", len(jobs)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))
	return errs
}

// pop removes the head of the queue. The lock covers only the pop.
func (s *Scheduler) pop() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Job{}, false
	}
	job := s.queue[0]
	s.queue[0] = Job{}
	s.queue = s.queue[1:]
	s.metrics.setDepth(len(s.queue))
	return job, true
}

func (s *Scheduler) process(worker int, job Job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tile %d: panic: %v", job.Index, r)
		}
		elapsed := time.Since(start)
		s.metrics.observe(elapsed, err)
		if err != nil {
			s.log.Error("tile failed", zap.Int("worker", worker), zap.Int("tile", job.Index), zap.Error(err))
			return
		}
		s.log.Debug("tile done",
			zap.Int("worker", worker),
			zap.Int("tile", job.Index),
			zap.Duration("elapsed", elapsed))
	}()

	buf, err := s.mesh(job.Tile, job.Neighbors)
	if err != nil {
		return fmt.Errorf("tile %d: %w", job.Index, err)
	}
	if err := s.sink.SaveCompressed(TileName(job.Index), buf.Bytes()); err != nil {
		return fmt.Errorf("tile %d: saving: %w", job.Index, err)
	}
	return nil
}
