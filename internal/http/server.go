package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"playlistnotify/internal/core"
)

const serviceName = "playlistnotify"

// Readiness reports whether the monitor has taken its baseline snapshot
type Readiness interface {
	Ready() bool
	SnapshotSize() int
}

type Server struct {
	config *core.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// Metrics holds the collectors on a private registry so several instances can coexist
type Metrics struct {
	registry *prometheus.Registry

	PollsTotal         *prometheus.CounterVec
	ChangesTotal       *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	TokenRefreshTotal  *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	PlaylistSize       prometheus.Gauge
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playlistnotify_polls_total",
				Help: "Total number of playlist polls",
			},
			[]string{"status"},
		),
		ChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playlistnotify_changes_total",
				Help: "Total number of detected playlist changes",
			},
			[]string{"kind"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playlistnotify_notifications_total",
				Help: "Total number of notifications sent per sink",
			},
			[]string{"sink", "status"},
		),
		TokenRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playlistnotify_token_refresh_total",
				Help: "Total number of access token refreshes",
			},
			[]string{"status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playlistnotify_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
		PlaylistSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playlistnotify_playlist_size",
				Help: "Number of (track, adder) entries in the last fetched listing",
			},
		),
	}

	metrics.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.PollsTotal,
		metrics.ChangesTotal,
		metrics.NotificationsTotal,
		metrics.TokenRefreshTotal,
		metrics.ErrorsTotal,
		metrics.PlaylistSize,
	)

	return metrics
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordPoll(status string) {
	m.PollsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordChange(kind string) {
	m.ChangesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordNotification(sink, status string) {
	m.NotificationsTotal.WithLabelValues(sink, status).Inc()
}

func (m *Metrics) RecordTokenRefresh(status string) {
	m.TokenRefreshTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func (m *Metrics) SetPlaylistSize(size int) {
	m.PlaylistSize.Set(float64(size))
}

func NewServer(config *core.ServerConfig, metrics *Metrics, readiness Readiness, logger *zap.Logger) *Server {
	mux := setupRoutes(logger, metrics, readiness)

	return &Server{
		config: config,
		logger: logger,
		server: createHTTPServer(config, mux),
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(logger *zap.Logger, metrics *Metrics, readiness Readiness) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]any{
			"status":  "ok",
			"service": serviceName,
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !readiness.Ready() {
			writeJSON(w, logger, http.StatusServiceUnavailable, map[string]any{
				"status":  "not ready",
				"service": serviceName,
			})
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]any{
			"status":  "ready",
			"service": serviceName,
			"entries": readiness.SnapshotSize(),
		})
	})

	mux.Handle("/metrics", metrics.Handler())

	return mux
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}
