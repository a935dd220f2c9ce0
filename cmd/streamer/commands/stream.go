package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"neurodrive-service/internal/cognitive"
	"neurodrive-service/internal/eeg"
	"neurodrive-service/internal/models"
	"neurodrive-service/internal/simulator"
)

const (
	streamSampleRate    = 256
	windowSeconds       = 1.0
	calibrationDuration = 10 * time.Second
	progressInterval    = 5 * time.Second
	artifactThreshold   = 3.0
)

var (
	backendURL  string
	sessionID   string
	stateName   string
	duration    time.Duration
	saveToDB    bool
	noCalibrate bool
	sendRaw     bool
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Generate EEG windows and stream them to the backend",
	RunE:  runStream,
}

func init() {
	streamCmd.Flags().StringVar(&backendURL, "backend-url", "http://localhost:8080", "backend base URL")
	streamCmd.Flags().StringVar(&sessionID, "session-id", "", "existing session id (a new session is created when empty)")
	streamCmd.Flags().StringVar(&stateName, "state", "alert", "simulated profile: alert, drowsy, stress, relaxed")
	streamCmd.Flags().DurationVar(&duration, "duration", 0, "how long to stream (0 = until interrupted)")
	streamCmd.Flags().BoolVar(&saveToDB, "save-db", false, "ask the backend to persist samples")
	streamCmd.Flags().BoolVar(&noCalibrate, "no-calibrate", false, "skip the baseline calibration phase")
	streamCmd.Flags().BoolVar(&sendRaw, "raw", true, "include the raw window so the server reclassifies it")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	profile := simulator.Profile(stateName)
	switch profile {
	case simulator.ProfileAlert, simulator.ProfileDrowsy, simulator.ProfileStress, simulator.ProfileRelaxed:
	default:
		return fmt.Errorf("unknown state %q", stateName)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	id, err := resolveSession(ctx, client)
	if err != nil {
		return err
	}
	log.Printf("Streaming profile %q into session %s", profile, id)

	gen := simulator.NewGenerator(streamSampleRate, profile)
	extractor := eeg.NewExtractor(0)
	smoother := cognitive.NewSmoother(cognitive.DefaultSmoothingWindow)
	evaluator := cognitive.NewEvaluator(cognitive.DefaultConfig())

	if !noCalibrate {
		if err := calibrate(ctx, client, id, gen, extractor, evaluator); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	progress := time.NewTicker(progressInterval)
	defer progress.Stop()

	var sent int
	var last cognitive.Result

	for {
		select {
		case <-ctx.Done():
			log.Printf("Streaming finished, %d windows sent", sent)
			return nil
		case <-progress.C:
			log.Printf("Sent %d windows, state=%s fatigue=%.1f",
				sent, last.CognitiveState, last.FatigueScore)
		case <-ticker.C:
			window := gen.Window(windowSeconds, time.Now())
			payload, result, err := buildPayload(id, window, extractor, smoother, evaluator)
			if err != nil {
				log.Printf("Window skipped: %v", err)
				continue
			}
			last = result
			if err := postJSON(ctx, client, backendURL+"/api/v1/eeg/stream", payload, nil); err != nil {
				log.Printf("Failed to deliver window: %v", err)
				continue
			}
			sent++
		}
	}
}

// resolveSession возвращает существующую сессию или создает новую
func resolveSession(ctx context.Context, client *http.Client) (uuid.UUID, error) {
	if sessionID != "" {
		id, err := uuid.Parse(sessionID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid --session-id: %w", err)
		}
		return id, nil
	}

	create := models.SessionCreate{
		Name:       fmt.Sprintf("streamer %s %s", stateName, time.Now().Format("15:04:05")),
		Type:       "simulation",
		DeviceType: "simulator",
	}
	var session models.Session
	if err := postJSON(ctx, client, backendURL+"/api/v1/sessions", create, &session); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session.ID, nil
}

// calibrate собирает базовую линию: сервер переводит сессию в режим
// калибровки и накапливает отношения из обычного потока окон
func calibrate(ctx context.Context, client *http.Client, id uuid.UUID,
	gen *simulator.Generator, extractor *eeg.Extractor, evaluator *cognitive.Evaluator) error {

	url := fmt.Sprintf("%s/api/v1/sessions/%s/calibrate", backendURL, id)
	if err := postJSON(ctx, client, url, nil, nil); err != nil {
		return fmt.Errorf("failed to start calibration: %w", err)
	}
	evaluator.StartCalibration()
	log.Printf("Calibrating baseline for %s...", calibrationDuration)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.After(calibrationDuration)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			if baseline, ok := evaluator.Baseline(); ok {
				log.Printf("Baseline ready: theta/alpha=%.3f beta/alpha=%.3f alpha/beta=%.3f",
					baseline.ThetaAlpha, baseline.BetaAlpha, baseline.AlphaBeta)
			} else {
				log.Print("Calibration ended without enough samples, using defaults")
			}
			return nil
		case <-ticker.C:
			window := gen.Window(windowSeconds, time.Now())
			features, err := extractor.Extract(window)
			if err != nil {
				continue
			}
			evaluator.AddCalibrationSample(features.Ratios)

			payload := models.StreamPayload{
				SessionID:  id,
				Timestamp:  window.Timestamp,
				SampleRate: window.SampleRate,
				Channels:   channelAmplitudes(window),
				RawWindow:  window.Channels,
				SaveToDB:   saveToDB,
			}
			if err := postJSON(ctx, client, backendURL+"/api/v1/eeg/stream", payload, nil); err != nil {
				log.Printf("Calibration window not delivered: %v", err)
			}
		}
	}
}

// buildPayload прогоняет окно через локальный конвейер и собирает пакет
func buildPayload(id uuid.UUID, window eeg.Window, extractor *eeg.Extractor,
	smoother *cognitive.Smoother, evaluator *cognitive.Evaluator) (models.StreamPayload, cognitive.Result, error) {

	quality := eeg.SignalQuality(window)
	clean := eeg.AttenuateArtifacts(window, artifactThreshold)

	features, err := extractor.Extract(clean)
	if err != nil {
		return models.StreamPayload{}, cognitive.Result{}, err
	}

	smoothed := smoother.Smooth(features.Ratios)
	result, err := evaluator.Classify(smoothed)
	if err != nil {
		return models.StreamPayload{}, cognitive.Result{}, err
	}

	payload := models.StreamPayload{
		SessionID:  id,
		Timestamp:  window.Timestamp,
		SampleRate: window.SampleRate,
		Channels:   channelAmplitudes(window),
		Processed: models.ProcessedMetrics{
			DeltaPower:      features.Average[eeg.BandDelta],
			ThetaPower:      features.Average[eeg.BandTheta],
			AlphaPower:      features.Average[eeg.BandAlpha],
			BetaPower:       features.Average[eeg.BandBeta],
			GammaPower:      features.Average[eeg.BandGamma],
			ThetaAlphaRatio: smoothed.ThetaAlpha,
			BetaAlphaRatio:  smoothed.BetaAlpha,
			SignalQuality:   quality,
			CognitiveState:  string(result.CognitiveState),
			EEGFatigueScore: result.FatigueScore,
		},
		SaveToDB: saveToDB,
	}
	if sendRaw {
		payload.RawWindow = window.Channels
	}
	return payload, result, nil
}

// channelAmplitudes возвращает среднеквадратичную амплитуду по каналам
func channelAmplitudes(window eeg.Window) map[string]float64 {
	amps := make(map[string]float64, len(window.Channels))
	for ch, samples := range window.Channels {
		if ch >= len(eeg.ChannelLabels) || len(samples) == 0 {
			break
		}
		var sum float64
		for _, v := range samples {
			sum += v * v
		}
		amps[eeg.ChannelLabels[ch]] = math.Sqrt(sum / float64(len(samples)))
	}
	return amps
}

// postJSON отправляет JSON и при необходимости декодирует ответ в out
func postJSON(ctx context.Context, client *http.Client, url string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error     string `json:"error"`
			Condition string `json:"condition"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			if apiErr.Condition != "" {
				return fmt.Errorf("backend %d (%s): %s", resp.StatusCode, apiErr.Condition, apiErr.Error)
			}
			return fmt.Errorf("backend %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
