package rvnassets

import (
	"github.com/lightningnetwork/lnd/build"
	"github.com/lightningnetwork/lnd/signal"
	"github.com/rvnlabs/rvnassets/address"
	"github.com/rvnlabs/rvnassets/chainscan"
	"github.com/rvnlabs/rvnassets/monitoring"
	"github.com/rvnlabs/rvnassets/rvndb"
	"github.com/rvnlabs/rvnassets/rvnrpc"
)

// DatabaseConfig is the config that holds all the persistence related structs
// the scanner daemon needs.
type DatabaseConfig struct {
	// DB is the open database, it is closed on shutdown.
	DB *rvndb.SqliteStore

	// AssetStore keeps the scanned payloads.
	AssetStore *rvndb.AssetStore
}

// Config is the main config of the scanner daemon.
type Config struct {
	DebugLevel string

	// ChainParams are the parameters of the network that is scanned.
	ChainParams *address.ChainParams

	// Node is the connection to the node's JSON-RPC interface.
	Node *rvnrpc.Client

	// Scanner walks the chain and feeds the asset store.
	Scanner *chainscan.Scanner

	// Prometheus exports the scanner's metrics, if activated.
	Prometheus *monitoring.PrometheusExporter

	SignalInterceptor signal.Interceptor

	LogWriter *build.RotatingLogWriter

	*DatabaseConfig
}
