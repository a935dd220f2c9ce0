package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"neurodrive-service/internal/cache"
	"neurodrive-service/internal/hub"
	"neurodrive-service/internal/metrics"
	"neurodrive-service/internal/models"
)

// CreateSessionHandler обрабатывает POST /api/v1/sessions - создание сессии
func (h *Handler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SessionCreate
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		h.respondError(w, "session_name is required", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = "monitoring"
	}
	if req.DeviceType == "" {
		req.DeviceType = "muse-2"
	}

	session := models.Session{
		ID:         uuid.New(),
		Name:       req.Name,
		Type:       req.Type,
		DeviceType: req.DeviceType,
		Status:     models.SessionActive,
		StartedAt:  time.Now(),
	}

	if h.cache != nil {
		if err := h.cache.SaveSession(session); err != nil {
			h.respondError(w, "Failed to save session: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	h.sessions.Get(session.ID)
	h.hub.BroadcastAll(hub.EventSessionStatus, session)
	h.respondJSON(w, session, http.StatusCreated)
}

// ListSessionsHandler обрабатывает GET /api/v1/sessions - список сессий
func (h *Handler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.respondJSON(w, []models.Session{}, http.StatusOK)
		return
	}

	sessions, err := h.cache.ListSessions()
	if err != nil {
		h.respondError(w, "Failed to list sessions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := sessions[:0]
		for _, s := range sessions {
			if s.Status == status {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	h.respondJSON(w, sessions, http.StatusOK)
}

// GetSessionHandler обрабатывает GET /api/v1/sessions/{id}
func (h *Handler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, session, http.StatusOK)
}

// UpdateSessionHandler обрабатывает PATCH /api/v1/sessions/{id} -
// частичное обновление метаданных сессии
func (h *Handler) UpdateSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	var req models.SessionUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Name != nil {
		session.Name = *req.Name
	}
	if req.Type != nil {
		session.Type = *req.Type
	}
	if req.DeviceType != nil {
		session.DeviceType = *req.DeviceType
	}

	if err := h.cache.SaveSession(*session); err != nil {
		h.respondError(w, "Failed to save session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, session, http.StatusOK)
}

// DeleteSessionHandler обрабатывает DELETE /api/v1/sessions/{id} -
// удаляет сессию вместе с накопленными данными
func (h *Handler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	if err := h.cache.DeleteSession(session.ID); err != nil {
		h.respondError(w, "Failed to delete session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.sessions.Remove(session.ID)
	h.forgetSession(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// CompleteSessionHandler обрабатывает POST /api/v1/sessions/{id}/complete -
// завершает сессию и подсчитывает итоговые показатели по кэшу
func (h *Handler) CompleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if session.Status == models.SessionCompleted {
		h.respondError(w, "Session already completed", http.StatusConflict)
		return
	}

	now := time.Now()
	session.Status = models.SessionCompleted
	session.EndedAt = &now
	session.DurationSeconds = int(now.Sub(session.StartedAt).Seconds())

	samples, err := h.cache.GetRecentSamples(session.ID, cache.MaxSamplesPerSession)
	if err == nil && len(samples) > 0 {
		var sum, max float64
		for _, rec := range samples {
			score := rec.Processed.EEGFatigueScore
			sum += score
			if score > max {
				max = score
			}
		}
		session.AvgFatigueScore = sum / float64(len(samples))
		session.MaxFatigueScore = max
		session.SampleCount = int64(len(samples))
	}

	_, alertTotal, aerr := h.cache.GetAlerts(cache.AlertFilter{SessionID: &session.ID}, 1, 0)
	if aerr == nil {
		session.AlertCount = alertTotal
	}

	if err := h.cache.SaveSession(*session); err != nil {
		h.respondError(w, "Failed to save session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.sessions.Remove(session.ID)
	h.forgetSession(session.ID)
	metrics.FatigueScore.DeleteLabelValues(session.ID.String())
	metrics.SignalQuality.DeleteLabelValues(session.ID.String())

	h.hub.BroadcastToSession(session.ID.String(), hub.EventSessionStatus, session)
	h.hub.BroadcastAll(hub.EventSessionStatus, session)
	h.respondJSON(w, session, http.StatusOK)
}

// CalibrateSessionHandler обрабатывает POST /api/v1/sessions/{id}/calibrate -
// запускает сбор базовой линии для сессии
func (h *Handler) CalibrateSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	evaluator := h.sessions.Get(id)
	evaluator.StartCalibration()
	collected, required := evaluator.CalibrationProgress()

	h.respondJSON(w, map[string]interface{}{
		"session_id": id,
		"status":     "calibrating",
		"collected":  collected,
		"required":   required,
	}, http.StatusOK)
}

// SessionEEGHandler обрабатывает GET /api/v1/sessions/{id}/eeg -
// постраничное воспроизведение накопленных точек
func (h *Handler) SessionEEGHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 100)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	records, total, err := h.cache.GetSamplesPage(session.ID, page, pageSize)
	if err != nil {
		h.respondError(w, "Failed to read samples: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, models.PaginatedEEG{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasNext:  int64(page*pageSize) < total,
		Data:     records,
	}, http.StatusOK)
}

// sessionID извлекает и проверяет идентификатор сессии из пути
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, "Invalid session id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// loadSession извлекает сессию из кэша по идентификатору в пути
func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	if h.cache == nil {
		h.respondError(w, "Storage unavailable", http.StatusServiceUnavailable)
		return nil, false
	}

	session, err := h.cache.GetSession(id)
	if err != nil {
		h.respondError(w, "Failed to load session: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if session == nil {
		h.respondError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// queryInt читает целочисленный query-параметр со значением по умолчанию
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
