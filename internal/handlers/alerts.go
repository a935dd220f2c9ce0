package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"neurodrive-service/internal/cache"
	"neurodrive-service/internal/models"
)

// ListAlertsHandler обрабатывает GET /api/v1/alerts - список тревог
// с фильтрами session_id, alert_level, acknowledged и пагинацией
func (h *Handler) ListAlertsHandler(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.respondJSON(w, models.AlertList{Alerts: []models.Alert{}}, http.StatusOK)
		return
	}

	var filter cache.AlertFilter
	q := r.URL.Query()

	if raw := q.Get("session_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, "Invalid session_id", http.StatusBadRequest)
			return
		}
		filter.SessionID = &id
	}
	if level := q.Get("alert_level"); level != "" {
		if level != models.AlertWarning && level != models.AlertCritical {
			h.respondError(w, "Invalid alert_level", http.StatusBadRequest)
			return
		}
		filter.Level = level
	}
	if raw := q.Get("acknowledged"); raw != "" {
		ack, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(w, "Invalid acknowledged flag", http.StatusBadRequest)
			return
		}
		filter.Acknowledged = &ack
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > cache.MaxAlerts {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	alerts, total, err := h.cache.GetAlerts(filter, limit, offset)
	if err != nil {
		h.respondError(w, "Failed to list alerts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, models.AlertList{
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Alerts: alerts,
	}, http.StatusOK)
}

// AcknowledgeAlertHandler обрабатывает POST /api/v1/alerts/{id}/ack -
// отмечает тревогу как подтвержденную
func (h *Handler) AcknowledgeAlertHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, "Invalid alert id", http.StatusBadRequest)
		return
	}
	if h.cache == nil {
		h.respondError(w, "Storage unavailable", http.StatusServiceUnavailable)
		return
	}

	alert, err := h.cache.AcknowledgeAlert(id)
	if err != nil {
		h.respondError(w, "Failed to acknowledge alert: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if alert == nil {
		h.respondError(w, "Alert not found", http.StatusNotFound)
		return
	}
	h.respondJSON(w, alert, http.StatusOK)
}
