package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics exposes live load-generator counters to Prometheus
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeUsers     prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadgen",
			Name:      "requests_total",
			Help:      "Total number of requests issued by simulated users.",
		}, []string{"method", "name", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loadgen",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of issued requests.",
			Buckets: []float64{
				0.005, 0.01, 0.025,
				0.05, 0.1, 0.25,
				0.5, 1, 2.5, 5, 10,
			},
		}, []string{"method", "name"}),
		activeUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loadgen",
			Name:      "active_users",
			Help:      "Current number of running simulated users.",
		}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.activeUsers)
	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(method, name string, duration time.Duration, failed bool) {
	result := "success"
	if failed {
		result = "failure"
	}
	m.requestsTotal.WithLabelValues(method, name, result).Inc()
	m.requestDuration.WithLabelValues(method, name).Observe(duration.Seconds())
}

func (m *Metrics) userStarted() { m.activeUsers.Inc() }
func (m *Metrics) userStopped() { m.activeUsers.Dec() }

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}
