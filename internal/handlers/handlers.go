// Package handlers содержит HTTP обработчики для API
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"neurodrive-service/internal/cache"
	"neurodrive-service/internal/cognitive"
	"neurodrive-service/internal/eeg"
	"neurodrive-service/internal/hub"
	"neurodrive-service/internal/metrics"
	"neurodrive-service/internal/models"
	"neurodrive-service/internal/session"
)

// Handler содержит зависимости для HTTP обработчиков
type Handler struct {
	sessions  *session.Manager
	cache     *cache.RedisCache
	hub       *hub.Hub
	extractor *eeg.Extractor
	startTime time.Time

	alertMu    sync.Mutex
	lastAlert  map[uuid.UUID]time.Time
	alertQuiet time.Duration
}

// NewHandler создает новый обработчик
func NewHandler(sessions *session.Manager, redisCache *cache.RedisCache, h *hub.Hub) *Handler {
	return &Handler{
		sessions:   sessions,
		cache:      redisCache,
		hub:        h,
		extractor:  eeg.NewExtractor(0),
		startTime:  time.Now(),
		lastAlert:  make(map[uuid.UUID]time.Time),
		alertQuiet: 30 * time.Second,
	}
}

// HealthHandler обрабатывает GET /health - проверка здоровья
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	redisStatus := "disconnected"
	if h.cache != nil && h.cache.Ping() == nil {
		redisStatus = "connected"
	}

	status := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Redis:     redisStatus,
		Uptime:    time.Since(h.startTime).String(),
	}

	h.respondJSON(w, status, http.StatusOK)
}

// StatsHandler обрабатывает GET /stats - статистика сервиса
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))

	var totalSamples, totalAlerts int64
	if h.cache != nil {
		totalSamples, _ = h.cache.GetCounter(cache.SamplesCounterKey)
		totalAlerts, _ = h.cache.GetCounter(cache.AlertsCounterKey)
	}

	response := models.StatsResponse{
		TotalSamples:   totalSamples,
		TotalAlerts:    totalAlerts,
		ActiveSessions: h.sessions.Count(),
		WSClients:      h.hub.ClientCount(),
	}

	metrics.RequestsTotal.WithLabelValues("/stats", r.Method, "200").Inc()
	h.respondJSON(w, response, http.StatusOK)
}

// AlertWarningScore и AlertCriticalScore - пороги срабатывания тревог
const (
	AlertWarningScore  = 70.0
	AlertCriticalScore = 85.0
)

// maybeFireAlert поднимает тревогу по уровню усталости с учетом
// периода тишины на сессию
func (h *Handler) maybeFireAlert(sessionID uuid.UUID, score float64, ts time.Time) {
	if score < AlertWarningScore {
		return
	}

	level := models.AlertWarning
	if score >= AlertCriticalScore {
		level = models.AlertCritical
	}

	h.alertMu.Lock()
	if last, ok := h.lastAlert[sessionID]; ok && ts.Sub(last) < h.alertQuiet {
		h.alertMu.Unlock()
		return
	}
	h.lastAlert[sessionID] = ts
	h.alertMu.Unlock()

	alert := models.Alert{
		SessionID:     sessionID,
		Timestamp:     ts,
		Level:         level,
		FatigueScore:  score,
		TriggerReason: "fatigue_score_threshold",
	}

	if h.cache != nil {
		if saved, err := h.cache.AppendAlert(alert); err == nil {
			alert = saved
		}
	}

	metrics.AlertsFired.WithLabelValues(level).Inc()
	h.hub.BroadcastToSession(sessionID.String(), hub.EventAlert, alert)
	h.hub.BroadcastAll(hub.EventAlert, alert)
}

// forgetSession сбрасывает состояние тихого периода тревог сессии.
// Вызывается при завершении и удалении сессии, иначе карта
// lastAlert растет без ограничений
func (h *Handler) forgetSession(id uuid.UUID) {
	h.alertMu.Lock()
	delete(h.lastAlert, id)
	h.alertMu.Unlock()
}

// decodeJSON декодирует тело запроса в dst
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// respondJSON отправляет JSON ответ
func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError отправляет ошибку в JSON формате
func (h *Handler) respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondPipelineError отправляет типизированный отказ конвейера.
// Условие сообщается отдельным полем, чтобы вызывающая сторона
// могла решить, пропустить окно или поднять тревогу
func (h *Handler) respondPipelineError(w http.ResponseWriter, err error) {
	condition := conditionOf(err)
	metrics.WindowsRejected.WithLabelValues(condition).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(map[string]string{
		"error":     err.Error(),
		"condition": condition,
	})
}

// conditionOf возвращает имя условия отказа для типизированной ошибки
func conditionOf(err error) string {
	switch {
	case errors.Is(err, eeg.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, eeg.ErrMalformedSignal):
		return "malformed_signal"
	case errors.Is(err, cognitive.ErrUncalibrated):
		return "uncalibrated"
	default:
		return "internal"
	}
}

// isPipelineError сообщает, является ли ошибка условием отказа конвейера
func isPipelineError(err error) bool {
	return conditionOf(err) != "internal"
}
