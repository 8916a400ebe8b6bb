package monitoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rvnlabs/rvnassets/chainscan"
	"github.com/stretchr/testify/require"
)

type mockScanner struct {
	stats chainscan.Stats
}

func (m *mockScanner) Stats() chainscan.Stats {
	return m.stats
}

type mockStore struct {
	height int64
	found  bool
	err    error
}

func (m *mockStore) LastHeight(context.Context) (int64, bool, error) {
	return m.height, m.found, m.err
}

// gather collects the metrics of a registry by name.
func gather(t *testing.T, registry *prometheus.Registry) map[string]float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			values[family.GetName()] = metric.GetGauge().GetValue()
		}
	}

	return values
}

// TestCollectors tests the values exported by the collectors.
func TestCollectors(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	cfg := &PrometheusConfig{
		Scanner: &mockScanner{
			stats: chainscan.Stats{
				Blocks:   3,
				Outputs:  4,
				Payloads: 5,
				Failures: 1,
			},
		},
		AssetStore: store,
	}

	registry := prometheus.NewRegistry()
	scan, err := newScanCollector(cfg, registry)
	require.NoError(t, err)
	require.NoError(t, scan.RegisterMetricFuncs())

	storeGroup, err := newStoreCollector(cfg, registry)
	require.NoError(t, err)
	require.NoError(t, storeGroup.RegisterMetricFuncs())

	require.Equal(t, map[string]float64{
		"scan_blocks":       3,
		"scan_outputs":      4,
		"scan_payloads":     5,
		"scan_failures":     1,
		"store_last_height": -1,
	}, gather(t, registry))

	store.height, store.found = 42, true
	require.Equal(t, 42.0, gather(t, registry)["store_last_height"])

	// A failing database leaves the height out.
	store.err = errors.New("database is locked")
	require.NotContains(t, gather(t, registry), "store_last_height")

	// Collectors need their sources.
	_, err = newScanCollector(&PrometheusConfig{}, registry)
	require.Error(t, err)
	_, err = newStoreCollector(&PrometheusConfig{}, registry)
	require.Error(t, err)
}

// TestExporter tests that the exporter serves the metrics of all groups.
func TestExporter(t *testing.T) {
	t.Parallel()

	exporter := NewPrometheusExporter(&PrometheusConfig{
		Active:     true,
		ListenAddr: "127.0.0.1:0",
		Scanner: &mockScanner{
			stats: chainscan.Stats{Blocks: 7},
		},
		AssetStore: &mockStore{height: 6, found: true},
	})
	require.NoError(t, exporter.Start())
	t.Cleanup(func() {
		require.NoError(t, exporter.Stop())
	})

	require.Contains(t, exporter.activeGroups, scanCollectorName)
	require.Contains(t, exporter.activeGroups, storeCollectorName)

	require.NotEmpty(t, exporter.addr)

	// Both groups are registered with the exporter's own registry.
	values := gather(t, exporter.registry)
	require.Equal(t, 7.0, values["scan_blocks"])
	require.Equal(t, 6.0, values["store_last_height"])
}

// TestExporterInactive tests that an inactive exporter does nothing.
func TestExporterInactive(t *testing.T) {
	t.Parallel()

	exporter := NewPrometheusExporter(&PrometheusConfig{})
	require.NoError(t, exporter.Start())
	require.Nil(t, exporter.server)
	require.Empty(t, exporter.activeGroups)
	require.NoError(t, exporter.Stop())
}

// TestExporterServes tests scraping the exporter over HTTP.
func TestExporterServes(t *testing.T) {
	t.Parallel()

	exporter := NewPrometheusExporter(&PrometheusConfig{
		Active:     true,
		ListenAddr: "127.0.0.1:0",
		Scanner: &mockScanner{
			stats: chainscan.Stats{Payloads: 11},
		},
		AssetStore: &mockStore{},
	})
	require.NoError(t, exporter.Start())
	t.Cleanup(func() {
		require.NoError(t, exporter.Stop())
	})

	resp, err := http.Get("http://" + exporter.addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "scan_payloads 11")
	require.Contains(t, string(body), "store_last_height -1")
}
