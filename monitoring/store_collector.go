package monitoring

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	storeCollectorName = "store"

	// dbTimeout is how long a scrape may wait for the database.
	dbTimeout = 5 * time.Second
)

// storeCollector is a Prometheus collector that exports the progress of the
// asset store.
type storeCollector struct {
	collectMx sync.Mutex

	cfg      *PrometheusConfig
	registry *prometheus.Registry

	lastHeight prometheus.Gauge
}

func newStoreCollector(cfg *PrometheusConfig,
	registry *prometheus.Registry) (*storeCollector, error) {

	if cfg == nil {
		return nil, errors.New("store collector prometheus cfg is nil")
	}

	if cfg.AssetStore == nil {
		return nil, errors.New("store collector asset store is nil")
	}

	return &storeCollector{
		cfg:      cfg,
		registry: registry,
		lastHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "store_last_height",
				Help: "Height of the last stored block, -1 if " +
					"none was stored yet",
			},
		),
	}, nil
}

// Describe sends the super-set of all possible descriptors of metrics
// collected by this Collector to the provided channel and returns once the
// last descriptor has been sent.
//
// NOTE: Part of the prometheus.Collector interface.
func (s *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	s.collectMx.Lock()
	defer s.collectMx.Unlock()

	s.lastHeight.Describe(ch)
}

// Collect is called by the Prometheus registry when collecting metrics.
//
// NOTE: Part of the prometheus.Collector interface.
func (s *storeCollector) Collect(ch chan<- prometheus.Metric) {
	s.collectMx.Lock()
	defer s.collectMx.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	height, found, err := s.cfg.AssetStore.LastHeight(ctx)
	if err != nil {
		log.Errorf("unable to fetch last height: %v", err)
		return
	}
	if !found {
		height = -1
	}

	s.lastHeight.Set(float64(height))
	s.lastHeight.Collect(ch)
}

// Name is the name of the metric group. When exported to prometheus, it's
// expected that all metric under this group have the same prefix.
//
// NOTE: Part of the MetricGroup interface.
func (s *storeCollector) Name() string {
	return storeCollectorName
}

// RegisterMetricFuncs signals to the underlying hybrid collector that it
// should register all metrics that it aims to export with the exporter's
// registry.
//
// NOTE: Part of the MetricGroup interface.
func (s *storeCollector) RegisterMetricFuncs() error {
	return s.registry.Register(s)
}

func init() {
	registerMetricGroup(storeCollectorName, func(cfg *PrometheusConfig,
		registry *prometheus.Registry) (MetricGroup, error) {

		return newStoreCollector(cfg, registry)
	})
}
