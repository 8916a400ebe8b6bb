package monitoring

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const scanCollectorName = "scan"

// scanCollector is a Prometheus collector that exports the counters of the
// chain scanner.
type scanCollector struct {
	collectMx sync.Mutex

	cfg      *PrometheusConfig
	registry *prometheus.Registry

	blocks   prometheus.Gauge
	outputs  prometheus.Gauge
	payloads prometheus.Gauge
	failures prometheus.Gauge
}

func newScanCollector(cfg *PrometheusConfig,
	registry *prometheus.Registry) (*scanCollector, error) {

	if cfg == nil {
		return nil, errors.New("scan collector prometheus cfg is nil")
	}

	if cfg.Scanner == nil {
		return nil, errors.New("scan collector scanner is nil")
	}

	newGauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Name: name,
			Help: help,
		})
	}

	return &scanCollector{
		cfg:      cfg,
		registry: registry,
		blocks: newGauge(
			"scan_blocks", "Blocks scanned since start",
		),
		outputs: newGauge(
			"scan_outputs", "Outputs carrying the asset marker "+
				"scanned since start",
		),
		payloads: newGauge(
			"scan_payloads", "Asset payloads decoded since start",
		),
		failures: newGauge(
			"scan_failures", "Asset payloads that failed to "+
				"decode since start",
		),
	}, nil
}

// Describe sends the super-set of all possible descriptors of metrics
// collected by this Collector to the provided channel and returns once the
// last descriptor has been sent.
//
// NOTE: Part of the prometheus.Collector interface.
func (s *scanCollector) Describe(ch chan<- *prometheus.Desc) {
	s.collectMx.Lock()
	defer s.collectMx.Unlock()

	s.blocks.Describe(ch)
	s.outputs.Describe(ch)
	s.payloads.Describe(ch)
	s.failures.Describe(ch)
}

// Collect is called by the Prometheus registry when collecting metrics.
//
// NOTE: Part of the prometheus.Collector interface.
func (s *scanCollector) Collect(ch chan<- prometheus.Metric) {
	s.collectMx.Lock()
	defer s.collectMx.Unlock()

	stats := s.cfg.Scanner.Stats()

	s.blocks.Set(float64(stats.Blocks))
	s.outputs.Set(float64(stats.Outputs))
	s.payloads.Set(float64(stats.Payloads))
	s.failures.Set(float64(stats.Failures))

	s.blocks.Collect(ch)
	s.outputs.Collect(ch)
	s.payloads.Collect(ch)
	s.failures.Collect(ch)
}

// Name is the name of the metric group. When exported to prometheus, it's
// expected that all metric under this group have the same prefix.
//
// NOTE: Part of the MetricGroup interface.
func (s *scanCollector) Name() string {
	return scanCollectorName
}

// RegisterMetricFuncs signals to the underlying hybrid collector that it
// should register all metrics that it aims to export with the exporter's
// registry.
//
// NOTE: Part of the MetricGroup interface.
func (s *scanCollector) RegisterMetricFuncs() error {
	return s.registry.Register(s)
}

func init() {
	registerMetricGroup(scanCollectorName, func(cfg *PrometheusConfig,
		registry *prometheus.Registry) (MetricGroup, error) {

		return newScanCollector(cfg, registry)
	})
}
