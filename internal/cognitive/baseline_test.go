package cognitive_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurodrive-service/internal/cognitive"
	"neurodrive-service/internal/eeg"
)

func TestCalibratorMedianBaseline(t *testing.T) {
	c := cognitive.NewCalibrator(5)
	c.Start()
	require.True(t, c.Active())

	samples := []eeg.Ratios{
		{ThetaAlpha: 0.5, BetaAlpha: 1.0, AlphaBeta: 1.0},
		{ThetaAlpha: 0.6, BetaAlpha: 1.1, AlphaBeta: 0.9},
		{ThetaAlpha: 0.7, BetaAlpha: 0.9, AlphaBeta: 1.1},
		{ThetaAlpha: 0.8, BetaAlpha: 1.2, AlphaBeta: 0.8},
		// One artifact-heavy window should not skew the median.
		{ThetaAlpha: 9.0, BetaAlpha: 9.0, AlphaBeta: 9.0},
	}

	for i, s := range samples {
		done := c.Add(s)
		assert.Equal(t, i == len(samples)-1, done, "sample %d", i)
	}

	b, ok := c.Finalize()
	require.True(t, ok)
	assert.InDelta(t, 0.7, b.ThetaAlpha, 1e-12)
	assert.InDelta(t, 1.1, b.BetaAlpha, 1e-12)
	assert.InDelta(t, 1.0, b.AlphaBeta, 1e-12)
	assert.False(t, c.Active())
}

func TestCalibratorNearZeroMedianResets(t *testing.T) {
	c := cognitive.NewCalibrator(3)
	c.Start()
	for i := 0; i < 3; i++ {
		c.Add(eeg.Ratios{ThetaAlpha: 0.001, BetaAlpha: 1.0, AlphaBeta: 1.0})
	}

	b, ok := c.Finalize()
	require.True(t, ok)
	assert.Equal(t, 1.0, b.ThetaAlpha)
}

func TestCalibratorIncomplete(t *testing.T) {
	c := cognitive.NewCalibrator(5)
	c.Start()
	c.Add(eeg.Ratios{ThetaAlpha: 0.5, BetaAlpha: 1.0, AlphaBeta: 1.0})

	_, ok := c.Finalize()
	assert.False(t, ok)
}

func TestCalibratorInactiveIgnoresSamples(t *testing.T) {
	c := cognitive.NewCalibrator(1)
	assert.False(t, c.Add(eeg.Ratios{ThetaAlpha: 1, BetaAlpha: 1, AlphaBeta: 1}))
}

func TestEvaluatorDefaultBaseline(t *testing.T) {
	e := cognitive.NewEvaluator(cognitive.DefaultConfig())

	b, calibrated := e.Baseline()
	assert.Equal(t, cognitive.DefaultBaseline(), b)
	assert.False(t, calibrated)
}

func TestEvaluatorCalibratesThroughClassify(t *testing.T) {
	e := cognitive.NewEvaluator(cognitive.DefaultConfig())
	e.StartCalibration()

	// Windows observed during calibration both classify and feed
	// the baseline.
	r := eeg.Ratios{ThetaAlpha: 0.6, BetaAlpha: 1.0, AlphaBeta: 1.0}
	for i := 0; i < cognitive.DefaultCalibrationSamples; i++ {
		result, err := e.Classify(r)
		require.NoError(t, err)
		require.NotEmpty(t, result.State)
	}

	b, calibrated := e.Baseline()
	require.True(t, calibrated)
	assert.False(t, e.Calibrating())
	assert.InDelta(t, 0.6, b.ThetaAlpha, 1e-12)

	// The same raw window now normalizes to 1.0 against its own baseline.
	result, err := e.Classify(r)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.ThetaAlpha, 1e-12)
	assert.True(t, result.Calibrated)
}

func TestEvaluatorConcurrentClassify(t *testing.T) {
	e := cognitive.NewEvaluator(cognitive.DefaultConfig())
	r := eeg.Ratios{ThetaAlpha: 1.1, BetaAlpha: 0.9, AlphaBeta: 1.1}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := e.Classify(r); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	// Swap the baseline while classifications are in flight.
	e.SetBaseline(cognitive.Baseline{ThetaAlpha: 0.9, BetaAlpha: 1.0, AlphaBeta: 1.0})
	wg.Wait()
}

func TestMedianWindow(t *testing.T) {
	mw := cognitive.NewMedianWindow(3)
	assert.Equal(t, 0.0, mw.Median())

	mw.Add(1)
	mw.Add(2)
	mw.Add(100)
	assert.Equal(t, 2.0, mw.Median())
	assert.Equal(t, 3, mw.Count())

	// Oldest value rolls out.
	mw.Add(4)
	assert.Equal(t, 4.0, mw.Median())
}

func TestSmootherSuppressesSpike(t *testing.T) {
	s := cognitive.NewSmoother(5)

	steady := eeg.Ratios{ThetaAlpha: 1.0, BetaAlpha: 1.0, AlphaBeta: 1.0}
	for i := 0; i < 4; i++ {
		s.Smooth(steady)
	}

	spike := eeg.Ratios{ThetaAlpha: 5.0, BetaAlpha: 5.0, AlphaBeta: 5.0}
	smoothed := s.Smooth(spike)

	assert.InDelta(t, 1.0, smoothed.ThetaAlpha, 1e-12)
	assert.InDelta(t, 1.0, smoothed.BetaAlpha, 1e-12)
}
