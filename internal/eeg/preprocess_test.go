package eeg_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurodrive-service/internal/eeg"
)

func TestSignalQualityCleanSignal(t *testing.T) {
	w := sineWindow(10, 256, 512)

	quality := eeg.SignalQuality(w)
	assert.GreaterOrEqual(t, quality, 0.9)
	assert.LessOrEqual(t, quality, 1.0)
}

func TestSignalQualityFlatChannels(t *testing.T) {
	// All-zero channels look like loose electrodes.
	w := eeg.Window{
		Channels:   make([][]float64, eeg.NumChannels),
		SampleRate: 256,
	}
	for ch := range w.Channels {
		w.Channels[ch] = make([]float64, 512)
	}

	quality := eeg.SignalQuality(w)
	assert.InDelta(t, 0.7, quality, 1e-9)
}

func TestSignalQualityEmptyWindow(t *testing.T) {
	assert.Equal(t, 0.0, eeg.SignalQuality(eeg.Window{}))
}

func TestAttenuateArtifacts(t *testing.T) {
	w := sineWindow(10, 256, 512)
	w.Channels[0][100] = 5000 // motion artifact spike

	out := eeg.AttenuateArtifacts(w, 3.0)

	// The spike is compressed, not removed.
	assert.Less(t, out.Channels[0][100], 5000.0)
	assert.Greater(t, out.Channels[0][100], 0.0)

	// Input window is untouched.
	assert.Equal(t, 5000.0, w.Channels[0][100])

	// In-band samples stay put.
	assert.InDelta(t, w.Channels[0][10], out.Channels[0][10], 1e-9)
}

func TestRobustNormalize(t *testing.T) {
	w := sineWindow(10, 256, 512)
	// Shift one channel far from zero; normalization should recenter it.
	for i := range w.Channels[1] {
		w.Channels[1][i] += 1000
	}

	out := eeg.RobustNormalize(w)
	require.Len(t, out.Channels, eeg.NumChannels)

	for ch, samples := range out.Channels {
		var maxAbs float64
		var sum float64
		for _, v := range samples {
			sum += v
			if math.Abs(v) > maxAbs {
				maxAbs = math.Abs(v)
			}
		}
		mean := sum / float64(len(samples))
		assert.InDelta(t, 0, mean, 0.5, "channel %d should be recentered", ch)
		assert.Less(t, maxAbs, 20.0, "channel %d should be rescaled", ch)
	}
}
