package cognitive

import (
	"sort"
	"sync"

	"neurodrive-service/internal/eeg"
)

const (
	// DefaultCalibrationSamples минимум окон для стабильной базовой линии
	DefaultCalibrationSamples = 5
	// minBaselineValue базовая линия ниже этого сбрасывается в единицу
	minBaselineValue = 0.01
)

// Baseline базовая линия сессии: референсные отношения, снятые
// в спокойном бодром состоянии. Неизменяемое значение - владелец
// сессии подменяет его целиком, частичные обновления невозможны
type Baseline struct {
	ThetaAlpha float64 `json:"theta_alpha"`
	BetaAlpha  float64 `json:"beta_alpha"`
	AlphaBeta  float64 `json:"alpha_beta"`
}

// DefaultBaseline возвращает единичную базовую линию,
// используемую до калибровки
func DefaultBaseline() Baseline {
	return Baseline{ThetaAlpha: 1.0, BetaAlpha: 1.0, AlphaBeta: 1.0}
}

// Normalize нормирует отношения окна на базовую линию
func (b Baseline) Normalize(r eeg.Ratios) eeg.Ratios {
	return eeg.Ratios{
		ThetaAlpha: normalizeOne(r.ThetaAlpha, b.ThetaAlpha),
		BetaAlpha:  normalizeOne(r.BetaAlpha, b.BetaAlpha),
		AlphaBeta:  normalizeOne(r.AlphaBeta, b.AlphaBeta),
	}
}

func normalizeOne(value, baseline float64) float64 {
	if baseline > 0 {
		return value / baseline
	}
	return value
}

// Calibrator накапливает окна калибровочной фазы и строит базовую линию.
// Медиана вместо среднего - устойчивость к артефактным окнам
type Calibrator struct {
	mu      sync.Mutex
	samples []eeg.Ratios
	min     int
	active  bool
}

// NewCalibrator создает калибратор с заданным минимумом окон
func NewCalibrator(minSamples int) *Calibrator {
	if minSamples <= 0 {
		minSamples = DefaultCalibrationSamples
	}
	return &Calibrator{min: minSamples}
}

// Start начинает калибровочную фазу, сбрасывая накопленные окна
func (c *Calibrator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = c.samples[:0]
	c.active = true
}

// Active сообщает, идет ли калибровка
func (c *Calibrator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Add добавляет отношения валидного окна. Возвращает true,
// когда накоплено достаточно окон для завершения
func (c *Calibrator) Add(r eeg.Ratios) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return false
	}
	c.samples = append(c.samples, r)
	return len(c.samples) >= c.min
}

// Progress возвращает число накопленных окон и требуемый минимум
func (c *Calibrator) Progress() (collected, required int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples), c.min
}

// Finalize строит базовую линию из накопленных окон и завершает фазу.
// ok == false, если окон меньше минимума - базовая линия не меняется
func (c *Calibrator) Finalize() (Baseline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.samples) < c.min {
		return Baseline{}, false
	}

	b := Baseline{
		ThetaAlpha: guardBaseline(medianOf(c.samples, func(r eeg.Ratios) float64 { return r.ThetaAlpha })),
		BetaAlpha:  guardBaseline(medianOf(c.samples, func(r eeg.Ratios) float64 { return r.BetaAlpha })),
		AlphaBeta:  guardBaseline(medianOf(c.samples, func(r eeg.Ratios) float64 { return r.AlphaBeta })),
	}

	c.active = false
	c.samples = c.samples[:0]
	return b, true
}

func guardBaseline(v float64) float64 {
	if v < minBaselineValue {
		return 1.0
	}
	return v
}

func medianOf(samples []eeg.Ratios, pick func(eeg.Ratios) float64) float64 {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = pick(s)
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2
	}
	return values[mid]
}
