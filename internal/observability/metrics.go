package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/signalsfoundry/hawki-etc/model"
)

// ETCCollector bundles the Prometheus metrics of the exposure-time
// calculator: photometric lookup traffic, memoization cache size, and the
// model computations served. It satisfies the photometry package's
// LookupRecorder and CacheRecorder interfaces so the service and its cache
// can drive the metrics directly.
type ETCCollector struct {
	gatherer prometheus.Gatherer

	PhotometryLookups *prometheus.CounterVec
	CacheEntries      prometheus.Gauge
	Computations      *prometheus.CounterVec
}

// NewETCCollector registers the calculator metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewETCCollector(reg prometheus.Registerer) (*ETCCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "photometry_lookups_total",
		Help: "Photometric lookups performed, labeled by lookup kind, filter, and outcome.",
	}, []string{"kind", "filter", "outcome"})
	lookups, err := registerCounterVec(reg, lookups, "photometry_lookups_total")
	if err != nil {
		return nil, err
	}

	cacheEntries, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "photometry_cache_entries",
		Help: "Current number of memoized photometric lookups.",
	}), "photometry_cache_entries")
	if err != nil {
		return nil, err
	}

	computations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etc_computations_total",
		Help: "Exposure-time model computations served, labeled by operation and filter.",
	}, []string{"operation", "filter"})
	computations, err = registerCounterVec(reg, computations, "etc_computations_total")
	if err != nil {
		return nil, err
	}

	return &ETCCollector{
		gatherer:          gatherer,
		PhotometryLookups: lookups,
		CacheEntries:      cacheEntries,
		Computations:      computations,
	}, nil
}

// RecordLookup satisfies photometry.LookupRecorder.
func (c *ETCCollector) RecordLookup(kind string, filter model.Filter, outcome string) {
	if c == nil || c.PhotometryLookups == nil {
		return
	}
	c.PhotometryLookups.WithLabelValues(kind, string(filter), outcome).Inc()
}

// SetCacheEntries satisfies photometry.CacheRecorder.
func (c *ETCCollector) SetCacheEntries(n int) {
	if c == nil || c.CacheEntries == nil {
		return
	}
	c.CacheEntries.Set(float64(n))
}

// RecordComputation counts one served model operation ("snr",
// "limiting_magnitude", "snr_curve").
func (c *ETCCollector) RecordComputation(operation string, filter model.Filter) {
	if c == nil || c.Computations == nil {
		return
	}
	c.Computations.WithLabelValues(operation, string(filter)).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ETCCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
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
