package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationAccuracyFullRun(t *testing.T) {
	stubClock(t)
	a := NewCalibrationAccuracyAnalyzer(defaultThresholds())

	got := a.Analyze(fullSuccessStore(t))

	require.NotNil(t, got.MonoAccuracy)
	assert.InDelta(t, 0.485, got.MonoAccuracy.AverageError, 1e-9)
	assert.InDelta(t, 0.07, got.MonoAccuracy.ErrorDifference, 1e-9)
	assert.Equal(t, "VERY_GOOD", got.MonoAccuracy.QualityGrade)

	require.NotNil(t, got.ConsistencyCheck)
	assert.True(t, got.ConsistencyCheck.WithinThreshold)
	assert.True(t, got.ConsistencyCheck.ErrorBalance)
	assert.Equal(t, "GOOD", got.ConsistencyCheck.OverallConsistency)

	require.NotNil(t, got.StereoAccuracy)
	assert.InDelta(t, 0.68, got.StereoAccuracy.ReprojectionError, 1e-9)
	assert.Equal(t, "GOOD", got.StereoAccuracy.QualityGrade)
	assert.InDelta(t, 0.065, got.StereoAccuracy.BaselineDistance, 1e-9)
}

func TestCalibrationAccuracyHaltedRun(t *testing.T) {
	a := NewCalibrationAccuracyAnalyzer(defaultThresholds())

	got := a.Analyze(haltedStore(t))

	// Failed mono calibration, never-attempted stereo: no sections, no sentinels.
	assert.Nil(t, got.MonoAccuracy)
	assert.Nil(t, got.StereoAccuracy)
	assert.Nil(t, got.ConsistencyCheck)
	assert.NotEmpty(t, got.Timestamp)
}

func TestCalibrationGradeBands(t *testing.T) {
	cases := []struct {
		err   float64
		grade string
	}{
		{0.1, "EXCELLENT"},
		{0.29, "EXCELLENT"},
		{0.3, "VERY_GOOD"}, // bounds are strict upper limits
		{0.49, "VERY_GOOD"},
		{0.5, "GOOD"},
		{0.79, "GOOD"},
		{0.8, "ACCEPTABLE"},
		{0.99, "ACCEPTABLE"},
		{1.0, "POOR"},
		{2.5, "POOR"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, CalibrationGrade(tc.err), "error %f", tc.err)
	}
}

func TestConsistencyBoundaries(t *testing.T) {
	a := NewCalibrationAccuracyAnalyzer(defaultThresholds())

	t.Run("difference at the good limit is moderate", func(t *testing.T) {
		check := a.consistency(0.3, 0.5)
		assert.True(t, check.ErrorBalance)
		assert.Equal(t, "MODERATE", check.OverallConsistency)
	})

	t.Run("difference at the balance limit is unbalanced", func(t *testing.T) {
		check := a.consistency(0.3, 0.6)
		assert.False(t, check.ErrorBalance)
		assert.Equal(t, "MODERATE", check.OverallConsistency)
	})

	t.Run("error at the threshold is out of threshold", func(t *testing.T) {
		check := a.consistency(1.0, 0.9)
		assert.False(t, check.WithinThreshold)
	})
}
