// Package service runs the health and metrics endpoints of a long running acceptor.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/reportstream/rs-acceptor/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"
)

type Config struct {
	HealthzAddr string
	Metrics     opmetrics.CLIConfig
	// Ready backs /healthz. Nil means always ready.
	Ready func() bool
}

// DefaultConfig serves /healthz on 0.0.0.0:8080 and metrics per the op-service defaults.
func DefaultConfig() Config {
	return Config{
		HealthzAddr: net.JoinHostPort(HealthzHost, HealthzPort),
		Metrics:     opmetrics.DefaultCLIConfig(),
	}
}

type Service struct {
	Healthz *HealthzServer
	// Metrics is nil when the metrics server is disabled.
	Metrics *MetricsServer

	cfg Config
	log log.Logger
}

func New(cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	s := &Service{
		Healthz: &HealthzServer{log: logger, ready: cfg.Ready},
		cfg:     cfg,
		log:     logger,
	}
	if cfg.Metrics.Enabled {
		s.Metrics = &MetricsServer{}
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	go func() {
		addr := s.cfg.HealthzAddr
		s.log.Info("starting healthz server", "addr", addr)
		if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	if s.Metrics != nil {
		go func() {
			addr := net.JoinHostPort(s.cfg.Metrics.ListenAddr, strconv.Itoa(s.cfg.Metrics.ListenPort))
			s.log.Info("starting metrics server", "addr", addr)
			if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("error starting metrics server", err)
			}
		}()
	}

	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	if s.Metrics != nil {
		_ = s.Metrics.Shutdown()
		s.log.Info("metrics stopped")
	}

	s.log.Info("service stopped")
}
