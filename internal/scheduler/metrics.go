package scheduler

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values for geobake_tiles_total.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics exposes tile scheduler metrics.
type Metrics struct {
	Tiles        *prometheus.CounterVec
	TileDuration prometheus.Histogram
	QueueDepth   prometheus.Gauge
}

// NewMetrics registers scheduler metrics against reg. A nil reg uses the
// default registerer. Registering twice returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	tiles, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geobake",
		Name:      "tiles_total",
		Help:      "Tiles processed by the scheduler, by result.",
	}, []string{"result"}), "geobake_tiles_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geobake",
		Name:      "tile_duration_seconds",
		Help:      "Time to mesh, encode and store one tile.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "geobake_tile_duration_seconds")
	if err != nil {
		return nil, err
	}

	depth, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "geobake",
		Name:      "tile_queue_depth",
		Help:      "Tiles waiting in the scheduler queue.",
	}), "geobake_tile_queue_depth")
	if err != nil {
		return nil, err
	}

	return &Metrics{Tiles: tiles, TileDuration: duration, QueueDepth: depth}, nil
}

func (m *Metrics) observe(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	m.Tiles.WithLabelValues(result).Inc()
	m.TileDuration.Observe(d.Seconds())
}

func (m *Metrics) setDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
