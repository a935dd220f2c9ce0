package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"neurodrive-service/internal/cache"
	"neurodrive-service/internal/eeg"
)

// ExportSessionHandler обрабатывает GET /api/v1/sessions/{id}/export -
// выгрузка точек сессии в CSV в хронологическом порядке
func (h *Handler) ExportSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	records, err := h.cache.GetRecentSamples(session.ID, cache.MaxSamplesPerSession)
	if err != nil {
		h.respondError(w, "Failed to read samples: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=session_%s.csv", session.ID))

	writer := csv.NewWriter(w)
	header := []string{"timestamp"}
	header = append(header, eeg.ChannelLabels...)
	header = append(header,
		"delta_power", "theta_power", "alpha_power", "beta_power", "gamma_power",
		"theta_alpha_ratio", "beta_alpha_ratio",
		"signal_quality", "cognitive_state", "eeg_fatigue_score")
	if err := writer.Write(header); err != nil {
		return
	}

	// Кэш хранит точки новыми вперед, выгружаем от старых к новым
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		row := []string{rec.Timestamp.Format(time.RFC3339Nano)}
		for _, label := range eeg.ChannelLabels {
			row = append(row, formatFloat(rec.Channels[label]))
		}
		p := rec.Processed
		row = append(row,
			formatFloat(p.DeltaPower), formatFloat(p.ThetaPower),
			formatFloat(p.AlphaPower), formatFloat(p.BetaPower),
			formatFloat(p.GammaPower),
			formatFloat(p.ThetaAlphaRatio), formatFloat(p.BetaAlphaRatio),
			formatFloat(p.SignalQuality), p.CognitiveState,
			formatFloat(p.EEGFatigueScore))
		if err := writer.Write(row); err != nil {
			return
		}
	}
	writer.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
