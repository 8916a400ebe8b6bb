package rvncfg

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btclog"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/build"
	"github.com/lightningnetwork/lnd/signal"
	"github.com/rvnlabs/rvnassets"
	"github.com/rvnlabs/rvnassets/address"
	"github.com/rvnlabs/rvnassets/monitoring"
	"github.com/rvnlabs/rvnassets/rvndb"
	"github.com/rvnlabs/rvnassets/rvnrpc"
)

const (
	defaultDataDirname = "data"
	defaultLogLevel    = "info"
	defaultLogDirname  = "logs"
	defaultLogFilename = "rvnscand.log"

	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10

	defaultConfigFileName = "rvnscand.conf"

	// defaultPollInterval is how often the scanner asks the node for new
	// blocks once it reached the tip.
	defaultPollInterval = time.Second * 30

	// minPollInterval is the smallest poll interval that is accepted.
	minPollInterval = time.Second
)

var (
	// DefaultRvnDir is the default directory where rvnscand tries to find
	// its configuration file and store its data. This is a directory in
	// the user's application data, for example:
	//   C:\Users\<username>\AppData\Local\Rvnscand on Windows
	//   ~/.rvnscand on Linux
	//   ~/Library/Application Support/Rvnscand on MacOS
	DefaultRvnDir = btcutil.AppDataDir("rvnscand", false)

	// DefaultConfigFile is the default full path of rvnscand's
	// configuration file.
	DefaultConfigFile = filepath.Join(DefaultRvnDir, defaultConfigFileName)

	defaultNetwork = "mainnet"

	defaultDataDir = filepath.Join(DefaultRvnDir, defaultDataDirname)
	defaultLogDir  = filepath.Join(DefaultRvnDir, defaultLogDirname)

	defaultSqliteDatabaseFileName = "rvnassets.db"

	// defaultSqliteDatabasePath is the default path under which we store
	// the SQLite database file.
	defaultSqliteDatabasePath = filepath.Join(
		defaultDataDir, defaultNetwork, defaultSqliteDatabaseFileName,
	)

	// defaultRPCPorts are the default JSON-RPC ports of the node for each
	// network.
	defaultRPCPorts = map[string]string{
		address.MainNetParams.Name: "8766",
		address.TestNetParams.Name: "18766",
		address.RegTestParams.Name: "18443",
	}
)

// ChainConfig houses the configuration options that govern which network we
// operate on.
//
//nolint:lll
type ChainConfig struct {
	Network string `long:"network" description:"network to scan" choice:"mainnet" choice:"testnet" choice:"regtest"`
}

// ScanConfig houses the options of the chain scanner.
//
//nolint:lll
type ScanConfig struct {
	StartHeight  int64         `long:"startheight" description:"The height to start scanning at if the database is empty"`
	PollInterval time.Duration `long:"pollinterval" description:"How often to check for new blocks once the scanner reached the chain tip"`
	SkipNullData bool          `long:"skipnulldata" description:"Don't store payloads without the asset prefix"`
}

// Config is the main config for the rvnscand cli command.
//
//nolint:lll
type Config struct {
	ShowVersion bool `long:"version" description:"Display version information and exit"`

	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	RvnDir     string `long:"rvndir" description:"The base directory that contains rvnscand's data, logs, configuration file, etc."`
	ConfigFile string `long:"configfile" description:"Path to configuration file"`

	DataDir        string `long:"datadir" description:"The directory to store rvnscand's data within"`
	LogDir         string `long:"logdir" description:"Directory to log output."`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`

	ChainConf *ChainConfig

	Node *rvnrpc.Config `group:"node" namespace:"node"`

	Scan *ScanConfig `group:"scan" namespace:"scan"`

	Sqlite *rvndb.SqliteConfig `group:"sqlite" namespace:"sqlite"`

	Prometheus monitoring.PrometheusConfig `group:"prometheus" namespace:"prometheus"`

	// LogWriter is the root logger that all of the daemon's subloggers are
	// hooked up to.
	LogWriter *build.RotatingLogWriter

	// ActiveNetParams contains parameters of the target chain.
	ActiveNetParams *address.ChainParams

	// networkDir is the path to the directory of the currently active
	// network. This path will hold the files related to each different
	// network.
	networkDir string
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		RvnDir:         DefaultRvnDir,
		ConfigFile:     DefaultConfigFile,
		DataDir:        defaultDataDir,
		DebugLevel:     defaultLogLevel,
		LogDir:         defaultLogDir,
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		ChainConf: &ChainConfig{
			Network: defaultNetwork,
		},
		Node: &rvnrpc.Config{},
		Scan: &ScanConfig{
			PollInterval: defaultPollInterval,
		},
		Sqlite: &rvndb.SqliteConfig{
			DatabaseFileName: defaultSqliteDatabasePath,
		},
		Prometheus: monitoring.DefaultPrometheusConfig(),
		LogWriter:  build.NewRotatingLogWriter(),
	}
}

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig(interceptor signal.Interceptor) (*Config, btclog.Logger,
	error) {

	// Pre-parse the command line options to pick up an alternative config
	// file.
	preCfg := DefaultConfig()
	if _, err := flags.Parse(&preCfg); err != nil {
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", rvnassets.Version())
		os.Exit(0)
	}

	// If the config file path has not been modified by the user, then
	// we'll use the default config file path. However, if the user has
	// modified their rvndir, then we should assume they intend to use the
	// config file within it.
	configFileDir := CleanAndExpandPath(preCfg.RvnDir)
	configFilePath := CleanAndExpandPath(preCfg.ConfigFile)
	switch {
	case configFileDir != DefaultRvnDir &&
		configFilePath == DefaultConfigFile:

		configFilePath = filepath.Join(
			configFileDir, defaultConfigFileName,
		)

	// User did specify an explicit --configfile, so we check that it does
	// exist under that path to avoid surprises.
	case configFilePath != DefaultConfigFile:
		if !fileExists(configFilePath) {
			return nil, nil, fmt.Errorf("specified config file does "+
				"not exist in %s", configFilePath)
		}
	}

	// Next, load any additional configuration options from the file.
	var configFileError error
	cfg := preCfg
	fileParser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(fileParser).ParseFile(configFilePath)
	if err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		if _, ok := err.(*flags.IniError); ok {
			return nil, nil, err
		}

		configFileError = err
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	flagParser := flags.NewParser(&cfg, flags.Default)
	if _, err := flagParser.Parse(); err != nil {
		return nil, nil, err
	}

	// Make sure everything we just loaded makes sense.
	cleanCfg, cfgLogger, err := ValidateConfig(cfg, interceptor)
	if err != nil {
		if _, ok := err.(*usageError); ok {
			// The logging system might not yet be initialized, so
			// we also write to stderr to make sure the message
			// appears somewhere.
			_, _ = fmt.Fprintln(os.Stderr, usageMessage)
			if cfgLogger != nil {
				cfgLogger.Warnf("Incorrect usage: %v",
					usageMessage)
			}
		}

		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		if cfgLogger != nil {
			cfgLogger.Warnf("Error validating config: %v", err)
		}
		return nil, nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid
	// options.
	if configFileError != nil {
		cfgLogger.Warnf("%v", configFileError)
	}

	return cleanCfg, cfgLogger, nil
}

// usageError is an error type that signals a problem with the supplied flags.
type usageError struct {
	err error
}

// Error returns the error string.
//
// NOTE: This is part of the error interface.
func (u *usageError) Error() string {
	return u.err.Error()
}

// Unwrap returns the underlying error.
func (u *usageError) Unwrap() error {
	return u.err
}

// validateNetwork resolves the network parameters and fills in the network
// dependent defaults.
func validateNetwork(cfg *Config) error {
	params, err := address.ParamsForNet(cfg.ChainConf.Network)
	if err != nil {
		return err
	}
	cfg.ActiveNetParams = params
	cfg.Node.Host = NodeHost(cfg.Node.Host, params)

	return nil
}

// NodeHost fills in the defaults of a node's host:port for the given network.
// An empty host becomes localhost, a host without a port gets the network's
// default RPC port.
func NodeHost(host string, params *address.ChainParams) string {
	switch {
	case host == "":
		return net.JoinHostPort("localhost", defaultRPCPorts[params.Name])

	case !strings.Contains(host, ":"):
		return net.JoinHostPort(host, defaultRPCPorts[params.Name])
	}

	return host
}

// DatabasePath returns the default path of the scanner's database for a
// network.
func DatabasePath(network string) string {
	return filepath.Join(
		defaultDataDir, network, defaultSqliteDatabaseFileName,
	)
}

// validateScan checks the options of the chain scanner.
func validateScan(cfg *ScanConfig) error {
	if cfg.StartHeight < 0 {
		return fmt.Errorf("start height must not be negative, got %d",
			cfg.StartHeight)
	}
	if cfg.PollInterval < minPollInterval {
		return fmt.Errorf("poll interval must be at least %v, got %v",
			minPollInterval, cfg.PollInterval)
	}

	return nil
}

// ValidateConfig check the given configuration to be sane. This makes sure no
// illegal values or combination of values are set. All file system paths are
// normalized. The cleaned up config is returned on success.
func ValidateConfig(cfg Config, interceptor signal.Interceptor) (*Config,
	btclog.Logger, error) {

	// If the provided rvnscand directory is not the default, we'll modify
	// the path to all of the files and directories that will live within
	// it.
	rvnDir := CleanAndExpandPath(cfg.RvnDir)
	if rvnDir != DefaultRvnDir {
		cfg.DataDir = filepath.Join(rvnDir, defaultDataDirname)
		cfg.LogDir = filepath.Join(rvnDir, defaultLogDirname)
	}

	funcName := "ValidateConfig"
	mkErr := func(format string, args ...interface{}) error {
		return fmt.Errorf(funcName+": "+format, args...)
	}
	makeDirectory := func(dir string) error {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			// Show a nicer error message if it's because a symlink
			// is linked to a directory that does not exist
			// (probably because it's not mounted).
			if e, ok := err.(*os.PathError); ok && os.IsExist(err) {
				link, lerr := os.Readlink(e.Path)
				if lerr == nil {
					str := "is symlink %s -> %s mounted?"
					err = fmt.Errorf(str, e.Path, link)
				}
			}

			str := "Failed to create rvnscand directory '%s': %v"
			return mkErr(str, dir, err)
		}

		return nil
	}

	// As soon as we're done parsing configuration options, ensure all
	// paths to directories and files are cleaned and expanded before
	// attempting to use them later on.
	cfg.DataDir = CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = CleanAndExpandPath(cfg.LogDir)
	cfg.Node.CertPath = CleanAndExpandPath(cfg.Node.CertPath)

	if err := validateNetwork(&cfg); err != nil {
		return nil, nil, &usageError{mkErr("%v", err)}
	}
	if err := validateScan(cfg.Scan); err != nil {
		return nil, nil, &usageError{mkErr("%v", err)}
	}
	if cfg.Node.CertPath != "" && !cfg.Node.TLS {
		return nil, nil, &usageError{mkErr("node.rpccert requires " +
			"node.tls")}
	}

	// We'll now construct the network directory which will be where we
	// store all the data specific to this chain/network.
	cfg.networkDir = filepath.Join(cfg.DataDir, cfg.ActiveNetParams.Name)

	// We'll also update the database file location as well, if it wasn't
	// set.
	if cfg.Sqlite.DatabaseFileName == defaultSqliteDatabasePath {
		cfg.Sqlite.DatabaseFileName = filepath.Join(
			cfg.networkDir, defaultSqliteDatabaseFileName,
		)
	}
	cfg.Sqlite.DatabaseFileName = CleanAndExpandPath(
		cfg.Sqlite.DatabaseFileName,
	)

	// Create the rvnscand directory and all other sub-directories if they
	// don't already exist. This makes sure that directory trees are also
	// created for files that point to outside the rvndir.
	dirs := []string{
		rvnDir, cfg.DataDir, cfg.networkDir,
		filepath.Dir(cfg.Sqlite.DatabaseFileName),
	}
	for _, dir := range dirs {
		if err := makeDirectory(dir); err != nil {
			return nil, nil, err
		}
	}

	// Append the network type to the log directory so it is "namespaced"
	// per network in the same fashion as the data directory.
	cfg.LogDir = filepath.Join(cfg.LogDir, cfg.ActiveNetParams.Name)

	// A log writer must be passed in, otherwise we can't function and would
	// run into a panic later on.
	if cfg.LogWriter == nil {
		return nil, nil, mkErr("log writer missing in config")
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems",
			cfg.LogWriter.SupportedSubsystems())
		os.Exit(0)
	}

	// Initialize logging at the default logging level.
	rvnassets.SetupLoggers(cfg.LogWriter, interceptor)
	err := cfg.LogWriter.InitLogRotator(
		filepath.Join(cfg.LogDir, defaultLogFilename),
		cfg.MaxLogFileSize, cfg.MaxLogFiles,
	)
	if err != nil {
		str := "log rotation setup failed: %v"
		return nil, nil, mkErr(str, err)
	}

	cfgLogger := cfg.LogWriter.GenSubLogger("CONF", nil)

	// Parse, validate, and set debug log level(s).
	err = build.ParseAndSetDebugLevels(cfg.DebugLevel, cfg.LogWriter)
	if err != nil {
		str := "error parsing debug level: %v"
		return nil, cfgLogger, &usageError{mkErr(str, err)}
	}

	// All good, return the sanitized result.
	return &cfg, cfgLogger, nil
}

// fileExists reports whether the named file or directory exists.
// This function is taken from https://github.com/btcsuite/btcd
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
