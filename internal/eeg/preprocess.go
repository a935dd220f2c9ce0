package eeg

import (
	"math"
	"sort"
)

// madScale коэффициент приведения MAD к стандартному отклонению
// для нормального распределения
const madScale = 1.4826

// SignalQuality оценивает качество сигнала окна в диапазоне [0, 1]
// без отбраковки данных. Штрафы: плоские каналы (отошедший электрод),
// избыточный высокочастотный шум, доля артефактных выбросов.
// Используется для взвешивания уверенности классификации
func SignalQuality(w Window) float64 {
	if w.Samples() == 0 || len(w.Channels) == 0 {
		return 0
	}

	quality := 1.0

	// Плоские каналы
	stds := make([]float64, len(w.Channels))
	var flat int
	for ch, samples := range w.Channels {
		stds[ch] = stdDev(samples)
		if stds[ch] < 0.1 {
			flat++
		}
	}
	quality -= float64(flat) / float64(len(w.Channels)) * 0.3

	// Высокочастотный шум: средний модуль первой разности
	// против ожидаемого уровня
	var noiseSum float64
	var noiseCount int
	for _, samples := range w.Channels {
		for i := 1; i < len(samples); i++ {
			noiseSum += math.Abs(samples[i] - samples[i-1])
			noiseCount++
		}
	}
	if noiseCount > 0 {
		noiseLevel := noiseSum / float64(noiseCount)
		expected := median(stds) * 0.5
		if expected > 0 {
			ratio := math.Min(noiseLevel/expected, 2.0) - 1.0
			if ratio > 0 {
				quality -= ratio * 0.2
			}
		}
	}

	// Доля выбросов за пределами 4*MAD
	for _, samples := range w.Channels {
		med := median(samples)
		mad := medianAbsDev(samples, med)
		if mad == 0 {
			continue
		}
		threshold := 4 * mad * madScale
		var outliers int
		for _, v := range samples {
			if math.Abs(v-med) > threshold {
				outliers++
			}
		}
		quality -= float64(outliers) / float64(len(samples)) * 0.1
	}

	return math.Max(0, math.Min(1, quality))
}

// AttenuateArtifacts подавляет (не отбраковывает) экстремальные значения
// мягким ограничением: значения за пределами threshold*MAD сжимаются
// через tanh. Данные никогда не выбрасываются - мониторинг непрерывен
func AttenuateArtifacts(w Window, thresholdFactor float64) Window {
	out := cloneWindow(w)

	for _, samples := range out.Channels {
		med := median(samples)
		mad := medianAbsDev(samples, med)
		if mad == 0 {
			continue
		}

		threshold := thresholdFactor * mad * madScale
		upper := med + threshold
		lower := med - threshold

		for i, v := range samples {
			switch {
			case v > upper:
				samples[i] = upper + math.Tanh((v-upper)/threshold)*threshold*0.5
			case v < lower:
				samples[i] = lower - math.Tanh((lower-v)/threshold)*threshold*0.5
			}
		}
	}

	return out
}

// RobustNormalize нормализует каждый канал по медиане и MAD.
// Устойчива к выбросам от движения в отличие от z-score по среднему
func RobustNormalize(w Window) Window {
	out := cloneWindow(w)

	for _, samples := range out.Channels {
		med := median(samples)
		mad := medianAbsDev(samples, med)
		if mad == 0 {
			mad = 1.0 / madScale
		}
		scale := mad * madScale
		for i, v := range samples {
			samples[i] = (v - med) / scale
		}
	}

	return out
}

func cloneWindow(w Window) Window {
	channels := make([][]float64, len(w.Channels))
	for ch, samples := range w.Channels {
		channels[ch] = append([]float64(nil), samples...)
	}
	return Window{Channels: channels, SampleRate: w.SampleRate, Timestamp: w.Timestamp}
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func medianAbsDev(values []float64, med float64) float64 {
	if len(values) == 0 {
		return 0
	}
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - med)
	}
	return median(devs)
}
