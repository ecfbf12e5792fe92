// Package metrics exposes Prometheus counters for the shared channel and
// the HAL dispatch surface, plus a standalone /metrics server.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ExchangesTotal counts shared-channel exchanges by result:
	// ok, error, rejected (oversize frame), poisoned.
	ExchangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keymint_hal",
		Name:      "channel_exchanges_total",
		Help:      "Shared channel exchanges by result.",
	}, []string{"result"})

	// ChannelPoisonedTotal counts transitions into the poisoned state.
	ChannelPoisonedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keymint_hal",
		Name:      "channel_poisoned_total",
		Help:      "Times an abnormal exchange poisoned the shared channel.",
	})

	// RequestsTotal counts inbound HAL requests by service interface.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keymint_hal",
		Name:      "requests_total",
		Help:      "Inbound HAL requests by service interface.",
	}, []string{"service"})

	// ConnectAttemptsTotal counts comm service connect attempts by result.
	ConnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keymint_hal",
		Name:      "connect_attempts_total",
		Help:      "Comm service connection attempts by result.",
	}, []string{"result"})
)

// MetricsServer serves the Prometheus scrape endpoint.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr.
func New(addr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
