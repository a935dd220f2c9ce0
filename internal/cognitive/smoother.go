package cognitive

import (
	"sort"

	"neurodrive-service/internal/eeg"
)

// DefaultSmoothingWindow размер окна временного сглаживания (5 окон)
const DefaultSmoothingWindow = 5

// MedianWindow реализует скользящее окно со скользящей медианой.
// Медиана вместо среднего устойчива к одиночным артефактным окнам
type MedianWindow struct {
	values []float64
	size   int
	index  int
	count  int
}

// NewMedianWindow создает скользящее окно заданного размера
func NewMedianWindow(size int) *MedianWindow {
	if size <= 0 {
		size = DefaultSmoothingWindow
	}
	return &MedianWindow{
		values: make([]float64, size),
		size:   size,
	}
}

// Add добавляет новое значение в окно, вытесняя старейшее
func (mw *MedianWindow) Add(value float64) {
	mw.values[mw.index] = value
	mw.index = (mw.index + 1) % mw.size
	if mw.count < mw.size {
		mw.count++
	}
}

// Median возвращает скользящую медиану
func (mw *MedianWindow) Median() float64 {
	if mw.count == 0 {
		return 0
	}
	sorted := make([]float64, mw.count)
	copy(sorted, mw.values[:mw.count])
	sort.Float64s(sorted)
	mid := mw.count / 2
	if mw.count%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Count возвращает количество элементов в окне
func (mw *MedianWindow) Count() int {
	return mw.count
}

// Smoother временное сглаживание когнитивных отношений между окнами.
// Живет в цикле приема (стример), а не в классификаторе -
// классификация остается чистой функцией окна
type Smoother struct {
	thetaAlpha *MedianWindow
	betaAlpha  *MedianWindow
	alphaBeta  *MedianWindow
}

// NewSmoother создает сглаживатель с заданным размером окна
func NewSmoother(size int) *Smoother {
	return &Smoother{
		thetaAlpha: NewMedianWindow(size),
		betaAlpha:  NewMedianWindow(size),
		alphaBeta:  NewMedianWindow(size),
	}
}

// Smooth добавляет отношения очередного окна и возвращает
// сглаженные скользящей медианой значения
func (s *Smoother) Smooth(r eeg.Ratios) eeg.Ratios {
	s.thetaAlpha.Add(r.ThetaAlpha)
	s.betaAlpha.Add(r.BetaAlpha)
	s.alphaBeta.Add(r.AlphaBeta)

	return eeg.Ratios{
		ThetaAlpha: s.thetaAlpha.Median(),
		BetaAlpha:  s.betaAlpha.Median(),
		AlphaBeta:  s.alphaBeta.Median(),
	}
}
