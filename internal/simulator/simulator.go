// Package simulator генерирует синтетический многоканальный ЭЭГ-сигнал
// для стримера и тестов. Сигнал - сумма синусоид по центрам частотных
// полос с амплитудным профилем состояния плюс дешевый детерминированный
// шум. Не претендует на клиническую достоверность
package simulator

import (
	"math"
	"time"

	"neurodrive-service/internal/eeg"
)

// Profile профиль когнитивного состояния генератора
type Profile string

// Доступные профили
const (
	ProfileAlert   Profile = "alert"
	ProfileDrowsy  Profile = "drowsy"
	ProfileStress  Profile = "stress"
	ProfileRelaxed Profile = "relaxed"
)

// bandAmplitudes амплитуды полос (delta, theta, alpha, beta, gamma)
type bandAmplitudes [5]float64

// Амплитудные профили: drowsy поднимает theta относительно alpha,
// stress - beta, relaxed - alpha
var profiles = map[Profile]bandAmplitudes{
	ProfileAlert:   {0.6, 0.5, 1.0, 0.9, 0.2},
	ProfileDrowsy:  {0.8, 1.6, 0.6, 0.4, 0.1},
	ProfileStress:  {0.4, 0.3, 0.4, 1.6, 0.4},
	ProfileRelaxed: {0.5, 0.4, 1.5, 0.5, 0.1},
}

// bandCenters центральные частоты полос в Гц
var bandCenters = [5]float64{2.5, 6, 10.5, 21, 37}

// Generator детерминированный генератор окон ЭЭГ.
// Окна стыкуются без перекрытия: время течет непрерывно между вызовами
type Generator struct {
	sampleRate int
	amps       bandAmplitudes
	scale      float64
	noise      float64
	sample     int64
}

// NewGenerator создает генератор с заданным профилем состояния
func NewGenerator(sampleRate int, profile Profile) *Generator {
	amps, ok := profiles[profile]
	if !ok {
		amps = profiles[ProfileAlert]
	}
	return &Generator{
		sampleRate: sampleRate,
		amps:       amps,
		scale:      20, // микровольты, порядок реального сигнала
		noise:      0.05,
	}
}

// SetProfile переключает амплитудный профиль на лету
// (смена состояния в длинном прогоне)
func (g *Generator) SetProfile(profile Profile) {
	if amps, ok := profiles[profile]; ok {
		g.amps = amps
	}
}

// Window возвращает следующее окно длительностью seconds
func (g *Generator) Window(seconds float64, timestamp time.Time) eeg.Window {
	n := int(seconds * float64(g.sampleRate))
	channels := make([][]float64, eeg.NumChannels)
	for ch := range channels {
		channels[ch] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		t := float64(g.sample+int64(i)) / float64(g.sampleRate)
		for ch := range channels {
			// Фазовый сдвиг по каналам, чтобы каналы не совпадали
			phase := float64(ch) * 0.7
			var v float64
			for b, amp := range g.amps {
				v += amp * math.Sin(2*math.Pi*bandCenters[b]*t+phase)
			}
			v += g.noise * cheapNoise(t, float64(ch))
			channels[ch][i] = v * g.scale
		}
	}
	g.sample += int64(n)

	return eeg.Window{
		Channels:   channels,
		SampleRate: g.sampleRate,
		Timestamp:  timestamp,
	}
}

// cheapNoise детерминированный псевдошум без ГСЧ
func cheapNoise(t, ch float64) float64 {
	x := math.Sin(12345.678*t+ch*987.654) * 43758.5453
	return 2*(x-math.Floor(x)) - 1
}
