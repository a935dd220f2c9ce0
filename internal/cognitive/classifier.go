// Package cognitive реализует классификацию когнитивного состояния водителя
// по спектральным отношениям ЭЭГ. Включает калибровку базовой линии сессии,
// цепочку пороговых правил и вычисление оценки усталости (0-100)
package cognitive

import (
	"errors"
	"fmt"
	"math"

	"neurodrive-service/internal/eeg"
)

// ErrUncalibrated классификация запрошена до калибровки
// при включенном строгом режиме (RequireBaseline)
var ErrUncalibrated = errors.New("cognitive: classification requested before calibration")

// State внутреннее когнитивное состояние
type State string

// Внутренние состояния в порядке приоритета правил
const (
	StateFatigue State = "fatigue" // высокий theta/alpha - сонливость
	StateStress  State = "stress"  // очень высокий beta/alpha
	StateFocused State = "focused" // умеренно высокий beta/alpha, стабильный
	StateRelaxed State = "relaxed" // высокий alpha/beta, бодрый
	StateNormal  State = "normal"  // сбалансированные отношения
)

// BackendState трехуровневое состояние для хранения и отображения
type BackendState string

// Состояния, ожидаемые потребителем данных
const (
	BackendAlert    BackendState = "alert"
	BackendDrowsy   BackendState = "drowsy"
	BackendFatigued BackendState = "fatigued"
)

// Пороги оценки усталости для трехуровневой разбивки.
// Разбивка по оценке авторитетна для backend-состояния (см. DESIGN.md)
const (
	DrowsyScoreCutoff   = 40.0
	FatiguedScoreCutoff = 70.0
)

// Thresholds пороги правил классификации.
// Применяются к отношениям, нормированным на базовую линию сессии
type Thresholds struct {
	FatigueThetaAlphaMin float64
	StressBetaAlphaMin   float64
	StressThetaAlphaMax  float64
	FocusedBetaAlphaMin  float64
	FocusedBetaAlphaMax  float64
	FocusedThetaAlphaMax float64
	RelaxedAlphaBetaMin  float64
	RelaxedThetaAlphaMax float64
}

// DefaultThresholds возвращает пороги по умолчанию
func DefaultThresholds() Thresholds {
	return Thresholds{
		FatigueThetaAlphaMin: 1.4,
		StressBetaAlphaMin:   1.8,
		StressThetaAlphaMax:  1.2,
		FocusedBetaAlphaMin:  1.2,
		FocusedBetaAlphaMax:  1.8,
		FocusedThetaAlphaMax: 1.3,
		RelaxedAlphaBetaMin:  1.3,
		RelaxedThetaAlphaMax: 1.2,
	}
}

// Config конфигурация классификатора
type Config struct {
	Thresholds Thresholds
	// RequireBaseline строгий режим: без калибровки возвращается
	// ErrUncalibrated вместо классификации по умолчательной базовой линии
	RequireBaseline bool
	// MinCalibrationSamples минимум валидных окон для базовой линии
	MinCalibrationSamples int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Thresholds:            DefaultThresholds(),
		RequireBaseline:       false,
		MinCalibrationSamples: DefaultCalibrationSamples,
	}
}

// Result результат классификации одного окна.
// CognitiveState вычисляется из FatigueScore (авторитетная разбивка),
// State - внутренняя пятиуровневая метка, сообщается рядом
type Result struct {
	State          State        `json:"state"`
	CognitiveState BackendState `json:"cognitive_state"`
	Confidence     float64      `json:"confidence"`
	FatigueScore   float64      `json:"fatigue_score"`
	ThetaAlpha     float64      `json:"theta_alpha"`
	BetaAlpha      float64      `json:"beta_alpha"`
	AlphaBeta      float64      `json:"alpha_beta"`
	Calibrated     bool         `json:"calibrated"`
}

// Classifier чистый классификатор когнитивного состояния.
// Не хранит состояния между вызовами: одинаковый вход и базовая линия
// детерминированно дают одинаковый результат
type Classifier struct {
	cfg Config
}

// NewClassifier создает классификатор
func NewClassifier(cfg Config) *Classifier {
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &Classifier{cfg: cfg}
}

// Classify классифицирует отношения текущего окна относительно базовой линии.
// calibrated сообщает, была ли базовая линия получена калибровкой
func (c *Classifier) Classify(r eeg.Ratios, baseline Baseline, calibrated bool) (Result, error) {
	if err := validateRatios(r); err != nil {
		return Result{}, err
	}
	if c.cfg.RequireBaseline && !calibrated {
		return Result{}, ErrUncalibrated
	}

	norm := baseline.Normalize(r)
	state, confidence := c.evaluateRules(norm)
	score := c.fatigueScore(norm.ThetaAlpha, state, confidence)

	return Result{
		State:          state,
		CognitiveState: BandScore(score, state),
		Confidence:     confidence,
		FatigueScore:   score,
		ThetaAlpha:     norm.ThetaAlpha,
		BetaAlpha:      norm.BetaAlpha,
		AlphaBeta:      norm.AlphaBeta,
		Calibrated:     calibrated,
	}, nil
}

// evaluateRules применяет фиксированную цепочку правил, первое совпадение
// побеждает. Порядок задан приоритетом опасности для вождения:
// усталость, затем стресс, затем остальные
func (c *Classifier) evaluateRules(r eeg.Ratios) (State, float64) {
	th := c.cfg.Thresholds

	if r.ThetaAlpha > th.FatigueThetaAlphaMin {
		excess := r.ThetaAlpha - th.FatigueThetaAlphaMin
		return StateFatigue, math.Min(0.5+excess*0.5, 1.0)
	}

	if r.BetaAlpha > th.StressBetaAlphaMin && r.ThetaAlpha <= th.StressThetaAlphaMax {
		excess := r.BetaAlpha - th.StressBetaAlphaMin
		return StateStress, math.Min(0.4+excess*0.3, 0.8)
	}

	if r.BetaAlpha >= th.FocusedBetaAlphaMin && r.BetaAlpha <= th.FocusedBetaAlphaMax &&
		r.ThetaAlpha < th.FocusedThetaAlphaMax {
		return StateFocused, 0.5
	}

	if r.AlphaBeta > th.RelaxedAlphaBetaMin && r.ThetaAlpha < th.RelaxedThetaAlphaMax {
		excess := r.AlphaBeta - th.RelaxedAlphaBetaMin
		return StateRelaxed, math.Min(0.5+excess*0.3, 1.0)
	}

	// Сбалансированное состояние: уверенность падает
	// с отклонением отношений от единицы
	balance := 1.0
	for _, v := range []float64{r.ThetaAlpha, r.BetaAlpha, r.AlphaBeta} {
		balance -= math.Abs(v-1.0) * 0.2
	}
	return StateNormal, math.Max(0, balance)
}

// fatigueScore монотонное отображение нормированного theta/alpha в [0, 100].
// При состоянии fatigue оценка поднимается до уровня, согласованного
// с уверенностью правила
func (c *Classifier) fatigueScore(thetaAlpha float64, state State, confidence float64) float64 {
	score := (thetaAlpha-1.0)*50 + 30
	score = math.Max(0, math.Min(100, score))

	if state == StateFatigue {
		score = math.Max(score, 50+confidence*45)
	}

	return score
}

// BandScore разбивает оценку усталости на три backend-состояния.
// Ниже порога drowsy внутреннее состояние fatigue все равно дает drowsy
func BandScore(score float64, state State) BackendState {
	switch {
	case score >= FatiguedScoreCutoff:
		return BackendFatigued
	case score >= DrowsyScoreCutoff:
		return BackendDrowsy
	case state == StateFatigue:
		return BackendDrowsy
	default:
		return BackendAlert
	}
}

func validateRatios(r eeg.Ratios) error {
	for _, v := range []float64{r.ThetaAlpha, r.BetaAlpha, r.AlphaBeta} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: invalid ratio %v", eeg.ErrMalformedSignal, v)
		}
	}
	return nil
}
