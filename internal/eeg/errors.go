// Package eeg реализует извлечение спектральных признаков из окна ЭЭГ-сигнала
// Вычисляет мощности частотных полос (delta/theta/alpha/beta/gamma),
// усредненные по каналам отношения (theta/alpha, beta/alpha, alpha/beta)
// и оценку качества сигнала
package eeg

import "errors"

// Типизированные условия отказа конвейера.
// Вызывающая сторона решает, пропустить окно или поднять тревогу -
// конвейер никогда не подставляет нулевые значения молча.
var (
	// ErrInsufficientData окно короче минимальной длины для полосы delta (~1 Гц)
	ErrInsufficientData = errors.New("eeg: insufficient data for requested bands")
	// ErrMalformedSignal окно содержит нечисловые, бесконечные или отрицательные значения
	ErrMalformedSignal = errors.New("eeg: malformed signal")
)
