// Package metrics реализует экспорт метрик в Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики
var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurodrive_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neurodrive_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)

	// SamplesReceived количество принятых точек ЭЭГ
	SamplesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "neurodrive_eeg_samples_received_total",
			Help: "Total number of EEG data points received",
		},
	)

	// WindowsRejected количество отбракованных окон по условиям отказа
	WindowsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurodrive_eeg_windows_rejected_total",
			Help: "Total number of EEG windows rejected by the pipeline",
		},
		[]string{"reason"},
	)

	// AlertsFired количество сработавших тревог усталости
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurodrive_alerts_fired_total",
			Help: "Total number of fatigue alerts fired",
		},
		[]string{"level"},
	)

	// FatigueScore последняя оценка усталости по сессиям
	FatigueScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "neurodrive_fatigue_score",
			Help: "Latest fatigue score per session",
		},
		[]string{"session_id"},
	)

	// SignalQuality последняя оценка качества сигнала по сессиям
	SignalQuality = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "neurodrive_signal_quality",
			Help: "Latest signal quality per session",
		},
		[]string{"session_id"},
	)

	// WSClients число активных WebSocket-подключений
	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "neurodrive_ws_clients",
			Help: "Number of active WebSocket connections",
		},
	)

	// ActiveSessions число сессий с живыми эвалюаторами
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "neurodrive_active_sessions",
			Help: "Number of sessions with live evaluators",
		},
	)

	// ClassifyLatency время выполнения конвейера классификации
	ClassifyLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "neurodrive_classify_latency_seconds",
			Help:    "Feature extraction and classification latency in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05},
		},
	)

	// CacheHits успешные записи в кэш
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "neurodrive_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses промахи кэша
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "neurodrive_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// ActiveGoroutines количество активных горутин
	ActiveGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "neurodrive_active_goroutines",
			Help: "Number of active goroutines",
		},
	)
)
