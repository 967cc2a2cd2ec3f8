package service

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the process's prometheus collectors on /metrics.
type MetricsServer struct {
	mu       sync.Mutex
	ctx      context.Context
	server   *http.Server
	gatherer prometheus.Gatherer
}

func (m *MetricsServer) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Handler: m.handler(),
		Addr:    addr,
	}
	m.mu.Lock()
	m.ctx = ctx
	m.server = server
	m.mu.Unlock()
	return server.ListenAndServe()
}

func (m *MetricsServer) handler() http.Handler {
	gatherer := m.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (m *MetricsServer) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(m.ctx)
}
