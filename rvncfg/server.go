package rvncfg

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/lnd/signal"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/rvnlabs/rvnassets"
	"github.com/rvnlabs/rvnassets/chainscan"
	"github.com/rvnlabs/rvnassets/monitoring"
	"github.com/rvnlabs/rvnassets/rvndb"
	"github.com/rvnlabs/rvnassets/rvnrpc"
)

// CreateServerFromConfig creates a new scanner server from the given CLI
// config.
func CreateServerFromConfig(cfg *Config, cfgLogger btclog.Logger,
	shutdownInterceptor signal.Interceptor,
	mainErrChan chan<- error) (*rvnassets.Server, error) {

	var certs []byte
	if cfg.Node.CertPath != "" {
		var err error
		certs, err = os.ReadFile(cfg.Node.CertPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read node "+
				"certificate: %w", err)
		}
	}

	cfgLogger.Infof("Connecting to node at %v", cfg.Node.Host)
	node, err := rvnrpc.New(cfg.Node, cfg.ActiveNetParams, certs)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to node: %w", err)
	}

	// Now that we know where the database will live, we'll go ahead and
	// open up the default implementation of it.
	cfgLogger.Infof("Opening sqlite3 database at: %v",
		cfg.Sqlite.DatabaseFileName)
	db, err := rvndb.NewSqliteStore(cfg.Sqlite)
	if err != nil {
		node.Stop()
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	assetStore := rvndb.NewSqliteAssetStore(db)

	scanner := chainscan.New(&chainscan.Config{
		Source:       node,
		Sink:         assetStore,
		StartHeight:  cfg.Scan.StartHeight,
		PollTicker:   ticker.New(cfg.Scan.PollInterval),
		SkipNullData: cfg.Scan.SkipNullData,
		ErrChan:      mainErrChan,
	})

	var prometheus *monitoring.PrometheusExporter
	if cfg.Prometheus.Active {
		cfg.Prometheus.Scanner = scanner
		cfg.Prometheus.AssetStore = assetStore
		prometheus = monitoring.NewPrometheusExporter(&cfg.Prometheus)
	}

	return rvnassets.NewServer(&rvnassets.Config{
		DebugLevel:        cfg.DebugLevel,
		ChainParams:       cfg.ActiveNetParams,
		Node:              node,
		Scanner:           scanner,
		Prometheus:        prometheus,
		SignalInterceptor: shutdownInterceptor,
		LogWriter:         cfg.LogWriter,
		DatabaseConfig: &rvnassets.DatabaseConfig{
			DB:         db,
			AssetStore: assetStore,
		},
	}), nil
}
