package rvnassets

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rvnlabs/rvnassets/fn"
)

// Server is the main daemon construct of the asset scanner. It starts the
// chain scanner and tears everything down again on shutdown.
type Server struct {
	started  int32
	shutdown int32

	cfg *Config

	quit chan struct{}
}

// NewServer creates a new server given the passed config.
func NewServer(cfg *Config) *Server {
	return &Server{
		cfg:  cfg,
		quit: make(chan struct{}, 1),
	}
}

// RunUntilShutdown runs the main scanner loop until a signal is received to
// shut down the process.
func (s *Server) RunUntilShutdown(mainErrChan <-chan error) error {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return nil
	}

	defer func() {
		srvrLog.Info("Shutdown complete\n")
		err := s.cfg.LogWriter.Close()
		if err != nil {
			srvrLog.Errorf("Could not close log rotator: %v", err)
		}
	}()

	mkErr := func(format string, args ...interface{}) error {
		logFormat := strings.ReplaceAll(format, "%w", "%v")
		srvrLog.Errorf("Shutting down because error in main "+
			"method: "+logFormat, args...)
		return fmt.Errorf(format, args...)
	}

	srvrLog.Infof("Version: %s, network: %v", Version(),
		s.cfg.ChainParams.Name)

	if err := s.cfg.Scanner.Start(); err != nil {
		return mkErr("unable to start chain scanner: %w", err)
	}
	defer func() {
		if err := s.Stop(); err != nil {
			srvrLog.Errorf("Unable to stop server: %v", err)
		}
	}()

	if s.cfg.Prometheus != nil {
		if err := s.cfg.Prometheus.Start(); err != nil {
			return mkErr("unable to start prometheus exporter: %w",
				err)
		}
	}

	srvrLog.Infof("Scanner fully started")

	select {
	case <-s.cfg.SignalInterceptor.ShutdownChannel():
		srvrLog.Infof("Received SIGINT (Ctrl+C). Shutting down...")

	case err := <-mainErrChan:
		if err == nil {
			srvrLog.Debug("Main err chan closed")
			return nil
		}

		// We'll report the error to the main daemon, but only if this
		// isn't a context cancel.
		if fn.IsCanceled(err) {
			srvrLog.Debugf("Got context canceled error: %v", err)
			return nil
		}

		return mkErr("received critical error from subsystem: %w", err)

	case <-s.quit:
	}

	return nil
}

// Stop signals that the server should attempt a graceful shutdown.
func (s *Server) Stop() error {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		return nil
	}

	srvrLog.Infof("Stopping Main Server")

	if err := s.cfg.Scanner.Stop(); err != nil {
		return err
	}

	if s.cfg.Prometheus != nil {
		if err := s.cfg.Prometheus.Stop(); err != nil {
			srvrLog.Errorf("Unable to stop prometheus exporter: %v",
				err)
		}
	}

	stats := s.cfg.Scanner.Stats()
	srvrLog.Infof("Scanned this session: %v", stats)

	s.cfg.Node.Stop()

	if s.cfg.DatabaseConfig != nil && s.cfg.DB != nil {
		if err := s.cfg.DB.Close(); err != nil {
			return err
		}
	}

	close(s.quit)

	return nil
}
