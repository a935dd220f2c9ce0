package eeg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Band имя частотной полосы ЭЭГ
type Band string

// Частотные полосы ЭЭГ
const (
	BandDelta Band = "delta" // 1-4 Гц, глубокий сон
	BandTheta Band = "theta" // 4-8 Гц, сонливость
	BandAlpha Band = "alpha" // 8-13 Гц, расслабленность
	BandBeta  Band = "beta"  // 13-30 Гц, активное мышление
	BandGamma Band = "gamma" // 30-45 Гц, высшая когнитивная активность
)

// Bands полосы в порядке возрастания частоты
var Bands = []Band{BandDelta, BandTheta, BandAlpha, BandBeta, BandGamma}

// bandRanges границы полос в Гц
var bandRanges = map[Band][2]float64{
	BandDelta: {1, 4},
	BandTheta: {4, 8},
	BandAlpha: {8, 13},
	BandBeta:  {13, 30},
	BandGamma: {30, 45},
}

// DefaultNperseg длина сегмента Уэлча по умолчанию
const DefaultNperseg = 256

// BandPowers мощности полос одного канала (или усредненные по каналам)
type BandPowers map[Band]float64

// Ratios когнитивные отношения мощностей, усредненные по каналам
type Ratios struct {
	ThetaAlpha float64 `json:"theta_alpha"`
	BetaAlpha  float64 `json:"beta_alpha"`
	AlphaBeta  float64 `json:"alpha_beta"`
}

// FeatureSet результат извлечения признаков из одного окна
type FeatureSet struct {
	PerChannel []BandPowers
	Average    BandPowers
	Ratios     Ratios
}

// Extractor извлекает спектральные признаки методом Уэлча.
// Чистая функция своего входа: состояние между вызовами не сохраняется.
type Extractor struct {
	nperseg int
}

// NewExtractor создает экстрактор с заданной длиной сегмента Уэлча.
// nperseg <= 0 означает значение по умолчанию (256 отсчетов)
func NewExtractor(nperseg int) *Extractor {
	if nperseg <= 0 {
		nperseg = DefaultNperseg
	}
	return &Extractor{nperseg: nperseg}
}

// Extract вычисляет мощности полос по каждому каналу, их среднее
// и когнитивные отношения. Невалидное окно - типизированная ошибка
func (e *Extractor) Extract(w Window) (*FeatureSet, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	fs := float64(w.SampleRate)
	perChannel := make([]BandPowers, len(w.Channels))

	for ch, samples := range w.Channels {
		freqs, psd := welchPSD(samples, fs, e.nperseg)

		powers := make(BandPowers, len(Bands))
		for _, band := range Bands {
			r := bandRanges[band]
			powers[band] = integrateBand(freqs, psd, r[0], r[1])
		}
		perChannel[ch] = powers
	}

	avg := make(BandPowers, len(Bands))
	for _, band := range Bands {
		var sum float64
		for _, powers := range perChannel {
			sum += powers[band]
		}
		avg[band] = sum / float64(len(perChannel))
	}

	ratios, err := RatiosFromPowers(avg)
	if err != nil {
		return nil, err
	}

	return &FeatureSet{
		PerChannel: perChannel,
		Average:    avg,
		Ratios:     ratios,
	}, nil
}

// RatiosFromPowers вычисляет когнитивные отношения из усредненных мощностей.
// Нулевая мощность alpha или beta делает отношения неопределенными -
// возвращается ErrMalformedSignal, а не подстановка эпсилона
func RatiosFromPowers(avg BandPowers) (Ratios, error) {
	for _, band := range Bands {
		p := avg[band]
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return Ratios{}, fmt.Errorf("%w: invalid %s power %v", ErrMalformedSignal, band, p)
		}
	}

	alpha := avg[BandAlpha]
	beta := avg[BandBeta]
	if alpha == 0 {
		return Ratios{}, fmt.Errorf("%w: zero alpha power", ErrMalformedSignal)
	}
	if beta == 0 {
		return Ratios{}, fmt.Errorf("%w: zero beta power", ErrMalformedSignal)
	}

	return Ratios{
		ThetaAlpha: avg[BandTheta] / alpha,
		BetaAlpha:  beta / alpha,
		AlphaBeta:  alpha / beta,
	}, nil
}

// welchPSD оценивает спектральную плотность мощности методом Уэлча:
// сегменты с 50% перекрытием, окно Ханна, усреднение периодограмм.
// Возвращает частотную сетку и одностороннюю PSD
func welchPSD(samples []float64, fs float64, nperseg int) (freqs, psd []float64) {
	if nperseg > len(samples) {
		nperseg = len(samples)
	}

	window := hann(nperseg)
	var u float64 // нормировка на энергию окна
	for _, w := range window {
		u += w * w
	}

	nfreqs := nperseg/2 + 1
	freqs = make([]float64, nfreqs)
	for i := range freqs {
		freqs[i] = float64(i) * fs / float64(nperseg)
	}

	fft := fourier.NewFFT(nperseg)
	psd = make([]float64, nfreqs)
	segment := make([]float64, nperseg)
	coeffs := make([]complex128, nfreqs)

	step := nperseg / 2
	if step == 0 {
		step = 1
	}

	var nsegments int
	for start := 0; start+nperseg <= len(samples); start += step {
		copy(segment, samples[start:start+nperseg])

		// Убираем постоянную составляющую сегмента
		var mean float64
		for _, v := range segment {
			mean += v
		}
		mean /= float64(nperseg)
		for i := range segment {
			segment[i] = (segment[i] - mean) * window[i]
		}

		coeffs = fft.Coefficients(coeffs, segment)
		for i, c := range coeffs {
			p := (real(c)*real(c) + imag(c)*imag(c)) / (fs * u)
			// Односторонний спектр: удваиваем все, кроме DC и Найквиста
			if i > 0 && i < nfreqs-1 {
				p *= 2
			}
			psd[i] += p
		}
		nsegments++
	}

	for i := range psd {
		psd[i] /= float64(nsegments)
	}

	return freqs, psd
}

// integrateBand интегрирует PSD по полосе [low, high] методом трапеций
func integrateBand(freqs, psd []float64, low, high float64) float64 {
	var power float64
	prev := -1
	for i, f := range freqs {
		if f < low || f > high {
			continue
		}
		if prev >= 0 {
			power += (psd[prev] + psd[i]) / 2 * (f - freqs[prev])
		}
		prev = i
	}
	return power
}

// hann возвращает окно Ханна длины n
func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
