// Package metrics exposes the appliance's health as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "pianod"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	engineRunning       prometheus.Gauge
	engineRestarts      prometheus.Counter
	engineStartFailures prometheus.Counter
	devicesConnected    prometheus.Gauge
	instrumentChanges   *prometheus.CounterVec
	statusLevel         prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		engineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_running",
			Help:      "1 when the synthesis engine process is alive.",
		}),
		engineRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_restarts_total",
			Help:      "Engine restarts, requested or automatic.",
		}),
		engineStartFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_start_failures_total",
			Help:      "Engine launches that failed.",
		}),
		devicesConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "midi_devices_connected",
			Help:      "External MIDI inputs currently known.",
		}),
		instrumentChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instrument_changes_total",
			Help:      "Instrument selections by direction.",
		}, []string{"direction"}),
		statusLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status_level",
			Help:      "Current indicator level as its numeric code.",
		}),
	}
	m.registry.MustRegister(
		m.engineRunning,
		m.engineRestarts,
		m.engineStartFailures,
		m.devicesConnected,
		m.instrumentChanges,
		m.statusLevel,
	)
	return m
}

func (m *Metrics) SetEngineRunning(running bool) {
	if running {
		m.engineRunning.Set(1)
		return
	}
	m.engineRunning.Set(0)
}

func (m *Metrics) IncRestarts()              { m.engineRestarts.Inc() }
func (m *Metrics) IncStartFailures()         { m.engineStartFailures.Inc() }
func (m *Metrics) SetDevicesConnected(n int) { m.devicesConnected.Set(float64(n)) }
func (m *Metrics) SetStatusLevel(code int)   { m.statusLevel.Set(float64(code)) }

func (m *Metrics) IncInstrumentChanges(direction string) {
	m.instrumentChanges.WithLabelValues(direction).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
