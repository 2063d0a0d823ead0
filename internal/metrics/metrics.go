// Package metrics exposes Prometheus instrumentation for the bot.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Update outcomes.
const (
	OutcomeHandled  = "handled"
	OutcomeConsumed = "consumed"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics holds all collectors registered by the bot.
type Metrics struct {
	UpdatesTotal        *prometheus.CounterVec
	UpdateDuration      *prometheus.HistogramVec
	FlowsTotal          *prometheus.CounterVec
	CallbacksTotal      *prometheus.CounterVec
	ActiveConversations prometheus.Gauge
	PhotosStoredTotal   *prometheus.CounterVec
}

// New registers the bot collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	f := promauto.With(registry)
	return &Metrics{
		UpdatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shopbot_updates_total",
			Help: "Telegram updates processed, by kind and outcome",
		}, []string{"kind", "outcome"}),
		UpdateDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopbot_update_duration_seconds",
			Help:    "Update handling latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		FlowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shopbot_flows_total",
			Help: "Finished conversations, by flow and outcome",
		}, []string{"flow", "outcome"}),
		CallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shopbot_callbacks_total",
			Help: "Inline button presses, by action",
		}, []string{"action"}),
		ActiveConversations: f.NewGauge(prometheus.GaugeOpts{
			Name: "shopbot_active_conversations",
			Help: "Conversations currently waiting for an answer",
		}),
		PhotosStoredTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shopbot_photos_stored_total",
			Help: "Item photos written to the photo store, by result",
		}, []string{"result"}),
	}
}

// RecordUpdate counts one update and its latency.
func (m *Metrics) RecordUpdate(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.UpdatesTotal.WithLabelValues(kind, outcome).Inc()
	m.UpdateDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Metrics) RecordCallback(action string) {
	if m == nil {
		return
	}
	m.CallbacksTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordPhoto(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PhotosStoredTotal.WithLabelValues(result).Inc()
}

// SessionStarted implements conversation.Observer.
func (m *Metrics) SessionStarted(string) {
	if m == nil {
		return
	}
	m.ActiveConversations.Inc()
}

// SessionEnded implements conversation.Observer.
func (m *Metrics) SessionEnded(flow, outcome string) {
	if m == nil {
		return
	}
	m.ActiveConversations.Dec()
	m.FlowsTotal.WithLabelValues(flow, outcome).Inc()
}

// Serve exposes registry on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, registry *prometheus.Registry, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down metrics server", zap.Error(err))
		}
	}()

	logger.Info("Metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
