package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"neurodrive-service/internal/cache"
	"neurodrive-service/internal/cognitive"
	"neurodrive-service/internal/eeg"
	"neurodrive-service/internal/hub"
	"neurodrive-service/internal/metrics"
	"neurodrive-service/internal/models"
)

// artifactThresholdFactor порог мягкого ограничения артефактов (в MAD)
const artifactThresholdFactor = 3.0

// StreamEEGHandler обрабатывает POST /api/v1/eeg/stream - прием потока
// от стримера. Сервер авторитетно переклассифицирует окно, кэширует
// точку и рассылает ее подписчикам сессии
func (h *Handler) StreamEEGHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/api/v1/eeg/stream", r.Method))
	defer timer.ObserveDuration()

	var payload models.StreamPayload
	if err := decodeJSON(r, &payload); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/api/v1/eeg/stream", r.Method, "400").Inc()
		return
	}

	if payload.SessionID == uuid.Nil {
		h.respondError(w, "session_id is required", http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/api/v1/eeg/stream", r.Method, "400").Inc()
		return
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}

	processed, err := h.evaluatePayload(&payload)
	if err != nil {
		if isPipelineError(err) {
			h.respondPipelineError(w, err)
			metrics.RequestsTotal.WithLabelValues("/api/v1/eeg/stream", r.Method, "422").Inc()
			return
		}
		h.respondError(w, err.Error(), http.StatusInternalServerError)
		metrics.RequestsTotal.WithLabelValues("/api/v1/eeg/stream", r.Method, "500").Inc()
		return
	}

	rec := models.EEGRecord{
		SessionID: payload.SessionID,
		Timestamp: payload.Timestamp,
		Channels:  payload.Channels,
		Processed: *processed,
	}

	metrics.SamplesReceived.Inc()
	metrics.FatigueScore.WithLabelValues(payload.SessionID.String()).Set(processed.EEGFatigueScore)
	metrics.SignalQuality.WithLabelValues(payload.SessionID.String()).Set(processed.SignalQuality)

	if h.cache != nil {
		// Накопление для воспроизведения и выгрузки - только по запросу клиента
		if payload.SaveToDB {
			if err := h.cache.CacheSample(rec); err != nil {
				metrics.CacheMisses.Inc()
			} else {
				metrics.CacheHits.Inc()
			}
		}
		// Снимок последней точки для досылки новым подписчикам храним всегда
		h.cache.SetWithTTL(cache.LatestSampleKeyPrefix+payload.SessionID.String(), rec, cache.LatestSampleTTL)
	}

	h.hub.BroadcastToSession(payload.SessionID.String(), hub.EventEEGData, rec)
	h.maybeFireAlert(payload.SessionID, processed.EEGFatigueScore, payload.Timestamp)

	metrics.RequestsTotal.WithLabelValues("/api/v1/eeg/stream", r.Method, "200").Inc()
	h.respondJSON(w, rec, http.StatusOK)
}

// evaluatePayload прогоняет пакет через конвейер сессии.
// Полное окно (raw_window) пересчитывается сервером; иначе отношения
// восстанавливаются из присланных мощностей полос
func (h *Handler) evaluatePayload(payload *models.StreamPayload) (*models.ProcessedMetrics, error) {
	evaluator := h.sessions.Get(payload.SessionID)

	start := time.Now()
	defer func() {
		metrics.ClassifyLatency.Observe(time.Since(start).Seconds())
	}()

	var (
		ratios  eeg.Ratios
		powers  eeg.BandPowers
		quality float64
		err     error
	)

	if len(payload.RawWindow) > 0 {
		window := eeg.Window{
			Channels:   payload.RawWindow,
			SampleRate: payload.SampleRate,
			Timestamp:  payload.Timestamp,
		}
		quality = eeg.SignalQuality(window)

		clean := eeg.AttenuateArtifacts(window, artifactThresholdFactor)
		features, ferr := h.extractor.Extract(clean)
		if ferr != nil {
			return nil, ferr
		}
		ratios = features.Ratios
		powers = features.Average
	} else {
		powers = eeg.BandPowers{
			eeg.BandDelta: payload.Processed.DeltaPower,
			eeg.BandTheta: payload.Processed.ThetaPower,
			eeg.BandAlpha: payload.Processed.AlphaPower,
			eeg.BandBeta:  payload.Processed.BetaPower,
			eeg.BandGamma: payload.Processed.GammaPower,
		}
		quality = payload.Processed.SignalQuality
		ratios, err = eeg.RatiosFromPowers(powers)
		if err != nil {
			return nil, err
		}
	}

	result, err := evaluator.Classify(ratios)
	if err != nil {
		return nil, err
	}

	return &models.ProcessedMetrics{
		DeltaPower:      powers[eeg.BandDelta],
		ThetaPower:      powers[eeg.BandTheta],
		AlphaPower:      powers[eeg.BandAlpha],
		BetaPower:       powers[eeg.BandBeta],
		GammaPower:      powers[eeg.BandGamma],
		ThetaAlphaRatio: ratios.ThetaAlpha,
		BetaAlphaRatio:  ratios.BetaAlpha,
		SignalQuality:   quality,
		CognitiveState:  string(result.CognitiveState),
		EEGFatigueScore: result.FatigueScore,
	}, nil
}

// WindowHandler обрабатывает POST /api/v1/eeg/window - синхронная оценка
// одного окна. Без session_id окно классифицируется относительно
// базовой линии по умолчанию
func (h *Handler) WindowHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/api/v1/eeg/window", r.Method))
	defer timer.ObserveDuration()

	var req models.WindowRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/api/v1/eeg/window", r.Method, "400").Inc()
		return
	}

	window := eeg.Window{
		Channels:   req.Channels,
		SampleRate: req.SampleRate,
		Timestamp:  req.Timestamp,
	}
	quality := eeg.SignalQuality(window)

	features, err := h.extractor.Extract(window)
	if err != nil {
		h.respondPipelineError(w, err)
		metrics.RequestsTotal.WithLabelValues("/api/v1/eeg/window", r.Method, "422").Inc()
		return
	}

	var result cognitive.Result
	if req.SessionID != nil {
		result, err = h.sessions.Get(*req.SessionID).Classify(features.Ratios)
	} else {
		result, err = cognitive.NewClassifier(cognitive.DefaultConfig()).
			Classify(features.Ratios, cognitive.DefaultBaseline(), false)
	}
	if err != nil {
		h.respondPipelineError(w, err)
		metrics.RequestsTotal.WithLabelValues("/api/v1/eeg/window", r.Method, "422").Inc()
		return
	}

	bandPowers := make(map[string][]float64, len(eeg.Bands))
	for _, band := range eeg.Bands {
		perChannel := make([]float64, len(features.PerChannel))
		for ch, powers := range features.PerChannel {
			perChannel[ch] = powers[band]
		}
		bandPowers[string(band)] = perChannel
	}

	response := models.WindowResponse{
		BandPowersPerChannel: bandPowers,
		ThetaAlphaRatio:      features.Ratios.ThetaAlpha,
		BetaAlphaRatio:       features.Ratios.BetaAlpha,
		SignalQuality:        quality,
		CognitiveState:       string(result.CognitiveState),
		FatigueScore:         result.FatigueScore,
		State:                string(result.State),
		Confidence:           result.Confidence,
		Calibrated:           result.Calibrated,
	}

	metrics.RequestsTotal.WithLabelValues("/api/v1/eeg/window", r.Method, "200").Inc()
	h.respondJSON(w, response, http.StatusOK)
}
