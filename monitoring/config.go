package monitoring

import (
	"context"

	"github.com/rvnlabs/rvnassets/chainscan"
)

// ScanStats is the source of the scanner's counters.
type ScanStats interface {
	// Stats returns the counters of everything scanned so far.
	Stats() chainscan.Stats
}

// ScanProgress reports how far the scanned chain has been stored.
type ScanProgress interface {
	// LastHeight returns the height of the last stored block.
	LastHeight(ctx context.Context) (int64, bool, error)
}

// PrometheusConfig is the set of configuration data that specifies if
// Prometheus metric exporting is activated, and if so the listening address of
// the Prometheus server.
//
//nolint:lll
type PrometheusConfig struct {
	// Active, if true, then Prometheus metrics will be exported.
	Active bool `long:"active" description:"if true prometheus metrics will be exported"`

	// ListenAddr is the listening address that we should use to allow the
	// main Prometheus server to scrape our metrics.
	ListenAddr string `long:"listenaddr" description:"the interface we should listen on for prometheus"`

	// Scanner is used to collect the counters of the chain scanner.
	Scanner ScanStats

	// AssetStore is used to collect the progress of the stored chain.
	AssetStore ScanProgress
}

// DefaultPrometheusConfig is the default configuration for the Prometheus
// metrics exporter.
func DefaultPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		ListenAddr: "127.0.0.1:8989",
		Active:     false,
	}
}
