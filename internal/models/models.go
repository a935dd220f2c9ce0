// Package models содержит структуры данных API и хранилища
package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы сессии мониторинга
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// Уровни тревог усталости
const (
	AlertWarning  = "warning"
	AlertCritical = "critical"
)

// ProcessedMetrics обработанные метрики одного окна ЭЭГ
type ProcessedMetrics struct {
	DeltaPower      float64 `json:"delta_power"`
	ThetaPower      float64 `json:"theta_power"`
	AlphaPower      float64 `json:"alpha_power"`
	BetaPower       float64 `json:"beta_power"`
	GammaPower      float64 `json:"gamma_power"`
	ThetaAlphaRatio float64 `json:"theta_alpha_ratio"`
	BetaAlphaRatio  float64 `json:"beta_alpha_ratio"`
	SignalQuality   float64 `json:"signal_quality"`
	CognitiveState  string  `json:"cognitive_state"`
	EEGFatigueScore float64 `json:"eeg_fatigue_score"`
}

// StreamPayload пакет потоковых данных от стримера (HTTP POST)
type StreamPayload struct {
	SessionID  uuid.UUID          `json:"session_id"`
	Timestamp  time.Time          `json:"timestamp"`
	SampleRate int                `json:"sample_rate"`
	Channels   map[string]float64 `json:"channels"`
	// RawWindow полное окно отсчетов по каналам; если задано,
	// сервер пересчитывает метрики собственным конвейером
	RawWindow [][]float64      `json:"raw_window,omitempty"`
	Processed ProcessedMetrics `json:"processed"`
	SaveToDB  bool             `json:"save_to_db"`
}

// WindowRequest запрос синхронной оценки окна (POST /eeg/window)
type WindowRequest struct {
	SessionID  *uuid.UUID  `json:"session_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	SampleRate int         `json:"sample_rate"`
	Channels   [][]float64 `json:"channels"`
}

// WindowResponse результат оценки окна
type WindowResponse struct {
	BandPowersPerChannel map[string][]float64 `json:"band_powers_per_channel"`
	ThetaAlphaRatio      float64              `json:"theta_alpha_ratio"`
	BetaAlphaRatio       float64              `json:"beta_alpha_ratio"`
	SignalQuality        float64              `json:"signal_quality"`
	CognitiveState       string               `json:"cognitive_state"`
	FatigueScore         float64              `json:"fatigue_score"`
	State                string               `json:"state"`
	Confidence           float64              `json:"confidence"`
	Calibrated           bool                 `json:"calibrated"`
}

// EEGRecord сохраненная точка данных сессии
type EEGRecord struct {
	SessionID uuid.UUID          `json:"session_id"`
	Timestamp time.Time          `json:"timestamp"`
	Channels  map[string]float64 `json:"channels"`
	Processed ProcessedMetrics   `json:"processed"`
}

// Session сессия мониторинга
type Session struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"session_name"`
	Type            string     `json:"session_type"`
	DeviceType      string     `json:"device_type"`
	Status          string     `json:"session_status"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	AvgFatigueScore float64    `json:"avg_fatigue_score"`
	MaxFatigueScore float64    `json:"max_fatigue_score"`
	AlertCount      int        `json:"alert_count"`
	SampleCount     int64      `json:"sample_count"`
}

// SessionCreate запрос создания сессии
type SessionCreate struct {
	Name       string `json:"session_name"`
	Type       string `json:"session_type"`
	DeviceType string `json:"device_type"`
}

// SessionUpdate частичное обновление сессии
type SessionUpdate struct {
	Name       *string `json:"session_name,omitempty"`
	Type       *string `json:"session_type,omitempty"`
	DeviceType *string `json:"device_type,omitempty"`
}

// Alert тревога усталости
type Alert struct {
	ID            int64     `json:"id"`
	SessionID     uuid.UUID `json:"session_id"`
	Timestamp     time.Time `json:"timestamp"`
	Level         string    `json:"alert_level"`
	FatigueScore  float64   `json:"fatigue_score"`
	TriggerReason string    `json:"trigger_reason"`
	Acknowledged  bool      `json:"acknowledged"`
}

// HealthStatus статус здоровья сервиса
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Redis     string    `json:"redis"`
	Uptime    string    `json:"uptime"`
}

// StatsResponse статистика сервиса
type StatsResponse struct {
	TotalSamples   int64 `json:"total_samples"`
	TotalAlerts    int64 `json:"total_alerts"`
	ActiveSessions int   `json:"active_sessions"`
	WSClients      int   `json:"ws_clients"`
}

// PaginatedEEG страница точек данных сессии
type PaginatedEEG struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	HasNext  bool        `json:"has_next"`
	Data     []EEGRecord `json:"data"`
}

// AlertList страница тревог
type AlertList struct {
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Alerts []Alert `json:"alerts"`
}
