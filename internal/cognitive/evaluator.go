package cognitive

import (
	"sync"

	"neurodrive-service/internal/eeg"
)

// Evaluator связывает классификатор с базовой линией одной сессии.
// Базовая линия читается часто и подменяется атомарно по завершении
// калибровки - конкурентные классификации никогда не видят
// частично обновленного значения
type Evaluator struct {
	mu         sync.RWMutex
	baseline   Baseline
	calibrated bool

	calibrator *Calibrator
	classifier *Classifier
}

// NewEvaluator создает эвалюатор сессии с базовой линией по умолчанию
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{
		baseline:   DefaultBaseline(),
		calibrator: NewCalibrator(cfg.MinCalibrationSamples),
		classifier: NewClassifier(cfg),
	}
}

// StartCalibration начинает калибровочную фазу сессии
func (e *Evaluator) StartCalibration() {
	e.calibrator.Start()
}

// Calibrating сообщает, идет ли калибровка
func (e *Evaluator) Calibrating() bool {
	return e.calibrator.Active()
}

// CalibrationProgress возвращает прогресс калибровки
func (e *Evaluator) CalibrationProgress() (collected, required int) {
	return e.calibrator.Progress()
}

// AddCalibrationSample добавляет окно калибровочной фазы.
// По накоплении минимума базовая линия подменяется целиком.
// Возвращает true, когда калибровка завершена
func (e *Evaluator) AddCalibrationSample(r eeg.Ratios) bool {
	if !e.calibrator.Add(r) {
		return false
	}

	b, ok := e.calibrator.Finalize()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.baseline = b
	e.calibrated = true
	e.mu.Unlock()
	return true
}

// Baseline возвращает текущую базовую линию и флаг калибровки
func (e *Evaluator) Baseline() (Baseline, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseline, e.calibrated
}

// SetBaseline подменяет базовую линию целиком (восстановление сессии)
func (e *Evaluator) SetBaseline(b Baseline) {
	e.mu.Lock()
	e.baseline = b
	e.calibrated = true
	e.mu.Unlock()
}

// Classify классифицирует окно относительно базовой линии сессии.
// Во время калибровки окно также учитывается как калибровочное
func (e *Evaluator) Classify(r eeg.Ratios) (Result, error) {
	if e.calibrator.Active() {
		e.AddCalibrationSample(r)
	}

	baseline, calibrated := e.Baseline()
	return e.classifier.Classify(r, baseline, calibrated)
}
