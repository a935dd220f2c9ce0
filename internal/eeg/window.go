package eeg

import (
	"fmt"
	"math"
	"time"
)

// NumChannels количество каналов гарнитуры (TP9, AF7, AF8, TP10)
const NumChannels = 4

// ChannelLabels метки каналов в порядке следования в окне
var ChannelLabels = []string{"TP9", "AF7", "AF8", "TP10"}

// Window окно многоканального ЭЭГ-сигнала фиксированной длины.
// Окна сменяются целиком (tumbling), без перекрытия.
type Window struct {
	Channels   [][]float64
	SampleRate int
	Timestamp  time.Time
}

// Samples возвращает длину окна в отсчетах
func (w Window) Samples() int {
	if len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

// Duration возвращает длительность окна
func (w Window) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(w.Samples()) / float64(w.SampleRate) * float64(time.Second))
}

// Validate проверяет окно перед извлечением признаков.
// Пустое окно, число каналов не равное NumChannels, неконсистентные
// каналы и нечисловые значения - ErrMalformedSignal;
// окно короче одного периода нижней границы delta (1 Гц) - ErrInsufficientData.
func (w Window) Validate() error {
	if w.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrMalformedSignal, w.SampleRate)
	}
	if len(w.Channels) != NumChannels {
		return fmt.Errorf("%w: got %d channels, expected %d",
			ErrMalformedSignal, len(w.Channels), NumChannels)
	}

	n := len(w.Channels[0])
	if n == 0 {
		return fmt.Errorf("%w: empty window", ErrMalformedSignal)
	}

	for ch, samples := range w.Channels {
		if len(samples) != n {
			return fmt.Errorf("%w: channel %d has %d samples, expected %d",
				ErrMalformedSignal, ch, len(samples), n)
		}
		for i, v := range samples {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value at channel %d sample %d",
					ErrMalformedSignal, ch, i)
			}
		}
	}

	// Для оценки delta (от 1 Гц) нужен хотя бы один полный период
	if n < w.SampleRate {
		return fmt.Errorf("%w: %d samples, need at least %d", ErrInsufficientData, n, w.SampleRate)
	}

	return nil
}
