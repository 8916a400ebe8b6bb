package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// readHeaderTimeout is the time a scraper has to send its request
	// headers.
	readHeaderTimeout = 10 * time.Second

	// shutdownTimeout is how long Stop waits for in-flight scrapes.
	shutdownTimeout = 5 * time.Second
)

var (
	// metricGroups is a global variable of all registered metrics
	// projected by the mutex below. All new MetricGroups should add
	// themselves to this map within the init() method of their file.
	metricGroups = make(map[string]metricGroupFactory)

	// metricsMtx is a global mutex that should be held when accessing the
	// global map.
	metricsMtx sync.Mutex
)

// PrometheusExporter is a metric exporter that uses Prometheus directly. The
// daemon's server will interact with this struct in order to export relevant
// metrics.
type PrometheusExporter struct {
	started sync.Once
	stopped sync.Once

	config *PrometheusConfig

	registry *prometheus.Registry

	// activeGroups holds the metric groups that were registered on start,
	// keyed by their name.
	activeGroups map[string]MetricGroup

	server *http.Server

	// addr is the address the HTTP server listens on once started.
	addr string
}

// NewPrometheusExporter makes a new instance of the PrometheusExporter given
// the config.
func NewPrometheusExporter(cfg *PrometheusConfig) *PrometheusExporter {
	return &PrometheusExporter{
		config:       cfg,
		registry:     prometheus.NewRegistry(),
		activeGroups: make(map[string]MetricGroup),
	}
}

// Start registers all relevant metrics with the Prometheus library, then
// launches the HTTP server that Prometheus will hit to scrape our metrics.
func (p *PrometheusExporter) Start() error {
	// If we're not active, then there's nothing more to do.
	if !p.config.Active {
		return nil
	}

	var startErr error
	p.started.Do(func() {
		startErr = p.start()
	})

	return startErr
}

func (p *PrometheusExporter) start() error {
	// Next, we'll attempt to register all our metrics. If we fail to
	// register ANY metric, then we'll fail all together.
	if err := p.registerMetrics(); err != nil {
		return err
	}

	// The listener is created up front, so a busy address is reported to
	// the caller.
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("unable to listen on %v: %w",
			p.config.ListenAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		p.registry, promhttp.HandlerOpts{},
	))
	p.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	p.addr = lis.Addr().String()
	log.Infof("Prometheus exporter listening on %v", p.addr)

	// Finally, we'll launch the HTTP server that Prometheus will use to
	// scape our metrics.
	go func() {
		err := p.server.Serve(lis)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("prometheus server exited with err: %v", err)
		}
	}()

	return nil
}

// Stop shuts down the HTTP server of the exporter.
func (p *PrometheusExporter) Stop() error {
	var stopErr error
	p.stopped.Do(func() {
		if p.server == nil {
			return
		}

		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		stopErr = p.server.Shutdown(ctx)
	})

	return stopErr
}

// registerMetrics iterates through all the registered metric groups and
// attempts to register each one. If any of the MetricGroups fail to register,
// then an error will be returned.
func (p *PrometheusExporter) registerMetrics() error {
	metricsMtx.Lock()
	defer metricsMtx.Unlock()

	// Register in a stable order, so errors are reproducible.
	names := make([]string, 0, len(metricGroups))
	for name := range metricGroups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		metricGroup, err := metricGroups[name](p.config, p.registry)
		if err != nil {
			return err
		}

		if err := metricGroup.RegisterMetricFuncs(); err != nil {
			return err
		}

		p.activeGroups[metricGroup.Name()] = metricGroup
	}

	return nil
}

// registerMetricGroup makes a metric group available to every exporter.
func registerMetricGroup(name string, factory metricGroupFactory) {
	metricsMtx.Lock()
	defer metricsMtx.Unlock()

	metricGroups[name] = factory
}
