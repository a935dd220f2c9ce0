package cognitive_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurodrive-service/internal/cognitive"
	"neurodrive-service/internal/eeg"
)

func classify(t *testing.T, r eeg.Ratios, b cognitive.Baseline, calibrated bool) cognitive.Result {
	t.Helper()
	result, err := cognitive.NewClassifier(cognitive.DefaultConfig()).Classify(r, b, calibrated)
	require.NoError(t, err)
	return result
}

func TestClassifyFatigueAgainstBaseline(t *testing.T) {
	// Raw theta/alpha 1.5 against a 0.6 baseline normalizes to 2.5,
	// well above the fatigue threshold.
	r := eeg.Ratios{ThetaAlpha: 1.5, BetaAlpha: 0.3, AlphaBeta: 1.0 / 0.3}
	b := cognitive.Baseline{ThetaAlpha: 0.6, BetaAlpha: 1.0, AlphaBeta: 1.0}

	result := classify(t, r, b, true)

	assert.Equal(t, cognitive.StateFatigue, result.State)
	assert.Equal(t, cognitive.BackendFatigued, result.CognitiveState)
	assert.GreaterOrEqual(t, result.FatigueScore, 70.0)
	assert.InDelta(t, 2.5, result.ThetaAlpha, 1e-12)
}

func TestClassifyStressMapsToAlert(t *testing.T) {
	r := eeg.Ratios{ThetaAlpha: 0.4, BetaAlpha: 2.0, AlphaBeta: 0.5}

	result := classify(t, r, cognitive.DefaultBaseline(), true)

	assert.Equal(t, cognitive.StateStress, result.State)
	assert.Equal(t, cognitive.BackendAlert, result.CognitiveState)
	assert.Less(t, result.FatigueScore, cognitive.DrowsyScoreCutoff)
}

func TestClassifyFocused(t *testing.T) {
	r := eeg.Ratios{ThetaAlpha: 0.8, BetaAlpha: 1.5, AlphaBeta: 1.0 / 1.5}

	result := classify(t, r, cognitive.DefaultBaseline(), true)
	assert.Equal(t, cognitive.StateFocused, result.State)
	assert.Equal(t, cognitive.BackendAlert, result.CognitiveState)
}

func TestClassifyRelaxed(t *testing.T) {
	r := eeg.Ratios{ThetaAlpha: 0.5, BetaAlpha: 0.67, AlphaBeta: 1.5}

	result := classify(t, r, cognitive.DefaultBaseline(), true)
	assert.Equal(t, cognitive.StateRelaxed, result.State)
	assert.Equal(t, cognitive.BackendAlert, result.CognitiveState)
}

func TestClassifyNormalBalanced(t *testing.T) {
	r := eeg.Ratios{ThetaAlpha: 1.0, BetaAlpha: 1.0, AlphaBeta: 1.0}

	result := classify(t, r, cognitive.DefaultBaseline(), true)
	assert.Equal(t, cognitive.StateNormal, result.State)
	assert.Equal(t, cognitive.BackendAlert, result.CognitiveState)
	assert.InDelta(t, 1.0, result.Confidence, 1e-12)
	assert.InDelta(t, 30.0, result.FatigueScore, 1e-9)
}

func TestClassifyDeterministic(t *testing.T) {
	r := eeg.Ratios{ThetaAlpha: 1.35, BetaAlpha: 0.9, AlphaBeta: 1.1}
	b := cognitive.Baseline{ThetaAlpha: 0.95, BetaAlpha: 1.05, AlphaBeta: 0.98}

	first := classify(t, r, b, true)
	second := classify(t, r, b, true)
	assert.Equal(t, first, second)
}

func TestFatigueScoreMonotonic(t *testing.T) {
	// Increasing theta/alpha with everything else fixed must never
	// decrease the reported score.
	c := cognitive.NewClassifier(cognitive.DefaultConfig())
	prev := -1.0
	for ta := 0.0; ta <= 4.0; ta += 0.01 {
		r := eeg.Ratios{ThetaAlpha: ta, BetaAlpha: 1.0, AlphaBeta: 1.0}
		result, err := c.Classify(r, cognitive.DefaultBaseline(), true)
		require.NoError(t, err)
		require.GreaterOrEqual(t, result.FatigueScore, prev,
			"score decreased at theta/alpha %.2f", ta)
		require.GreaterOrEqual(t, result.FatigueScore, 0.0)
		require.LessOrEqual(t, result.FatigueScore, 100.0)
		prev = result.FatigueScore
	}
}

func TestBandScoreCutoffs(t *testing.T) {
	tests := []struct {
		score float64
		state cognitive.State
		want  cognitive.BackendState
	}{
		{0, cognitive.StateNormal, cognitive.BackendAlert},
		{39.99, cognitive.StateStress, cognitive.BackendAlert},
		{40, cognitive.StateNormal, cognitive.BackendDrowsy},
		{69.99, cognitive.StateNormal, cognitive.BackendDrowsy},
		{70, cognitive.StateNormal, cognitive.BackendFatigued},
		{100, cognitive.StateFatigue, cognitive.BackendFatigued},
		// Internal fatigue label forces at least drowsy.
		{10, cognitive.StateFatigue, cognitive.BackendDrowsy},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cognitive.BandScore(tt.score, tt.state),
			"score %.2f state %s", tt.score, tt.state)
	}
}

func TestClassifyMalformedRatios(t *testing.T) {
	c := cognitive.NewClassifier(cognitive.DefaultConfig())

	for _, r := range []eeg.Ratios{
		{ThetaAlpha: math.NaN(), BetaAlpha: 1, AlphaBeta: 1},
		{ThetaAlpha: 1, BetaAlpha: math.Inf(1), AlphaBeta: 1},
		{ThetaAlpha: 1, BetaAlpha: 1, AlphaBeta: -0.5},
	} {
		_, err := c.Classify(r, cognitive.DefaultBaseline(), true)
		require.ErrorIs(t, err, eeg.ErrMalformedSignal)
	}
}

func TestClassifyRequireBaseline(t *testing.T) {
	cfg := cognitive.DefaultConfig()
	cfg.RequireBaseline = true
	c := cognitive.NewClassifier(cfg)

	r := eeg.Ratios{ThetaAlpha: 1.0, BetaAlpha: 1.0, AlphaBeta: 1.0}

	_, err := c.Classify(r, cognitive.DefaultBaseline(), false)
	require.ErrorIs(t, err, cognitive.ErrUncalibrated)

	_, err = c.Classify(r, cognitive.DefaultBaseline(), true)
	require.NoError(t, err)
}

func TestResultJSONRoundTrip(t *testing.T) {
	r := eeg.Ratios{ThetaAlpha: 1.5, BetaAlpha: 0.3, AlphaBeta: 1.0 / 0.3}
	b := cognitive.Baseline{ThetaAlpha: 0.6, BetaAlpha: 1.0, AlphaBeta: 1.0}
	result := classify(t, r, b, true)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded cognitive.Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result, decoded)
}
