package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stereolab/internal/pipeline"
)

func TestQualityAssessFullRun(t *testing.T) {
	stubClock(t)
	a := NewQualityAssessor(defaultThresholds())

	got := a.Assess(fullSuccessStore(t))

	// mono: 1 - (0.45+0.52)/2 / 1.0 = 0.515. reconstruction saturates at
	// 10x the 1000-point minimum, so 45678 points scores 1.0.
	assert.InDelta(t, 0.515, got.QualityScores["mono_calibration"], 1e-9)
	assert.InDelta(t, 1.0, got.QualityScores["reconstruction"], 1e-9)
	assert.InDelta(t, 1.0, got.QualityScores["resize"], 1e-9)
	assert.InDelta(t, 1.0, got.QualityScores["corner_detection"], 1e-9)
	assert.InDelta(t, 1.0, got.QualityScores["stereo_calibration"], 1e-9)

	assert.InDelta(t, (1+1+0.515+1+1)/5, got.OverallScore, 1e-9)
	assert.Equal(t, "A", got.OverallGrade)
	assert.Empty(t, got.UnscoredStages)
	assert.Equal(t, []string{"all stages completed with satisfactory quality"}, got.Recommendations)
}

func TestQualityFailedStageScoresZero(t *testing.T) {
	a := NewQualityAssessor(defaultThresholds())
	store := pipeline.NewResultStore()
	// Stale metrics on a failed stage must not resurrect its score.
	require.NoError(t, store.Append(&pipeline.StepResult{
		StageID: pipeline.StageMonoCalibration, Success: false, FailureKind: pipeline.FailureExec,
		Metrics: &pipeline.StepMetrics{MonoCalibration: &pipeline.MonoCalibrationMetrics{
			LeftCamera:  pipeline.CameraCalibration{ReprojectionError: ptrF(0.1)},
			RightCamera: pipeline.CameraCalibration{ReprojectionError: ptrF(0.1)},
		}},
	}))

	got := a.Assess(store)

	assert.Equal(t, 0.0, got.QualityScores["mono_calibration"])
	assert.Equal(t, 0.0, got.OverallScore)
	assert.Equal(t, "D", got.OverallGrade)
	assert.Contains(t, got.Recommendations[0], "mono_calibration")
}

func TestQualityMissingMetricsExcluded(t *testing.T) {
	a := NewQualityAssessor(defaultThresholds())
	store := pipeline.NewResultStore()
	require.NoError(t, store.Append(&pipeline.StepResult{StageID: pipeline.StageResize, Success: true}))
	require.NoError(t, store.Append(&pipeline.StepResult{StageID: pipeline.StageCornerDetection, Success: true}))
	// Succeeded but produced no metrics: excluded from the mean, not zeroed.
	require.NoError(t, store.Append(&pipeline.StepResult{StageID: pipeline.StageMonoCalibration, Success: true}))

	got := a.Assess(store)

	assert.NotContains(t, got.QualityScores, "mono_calibration")
	assert.Equal(t, []string{"mono_calibration"}, got.UnscoredStages)
	assert.InDelta(t, 1.0, got.OverallScore, 1e-9)
}

func TestQualityMonoScoreClamped(t *testing.T) {
	a := NewQualityAssessor(defaultThresholds())
	store := pipeline.NewResultStore()
	require.NoError(t, store.Append(&pipeline.StepResult{StageID: pipeline.StageResize, Success: true}))
	require.NoError(t, store.Append(&pipeline.StepResult{StageID: pipeline.StageCornerDetection, Success: true}))
	require.NoError(t, store.Append(&pipeline.StepResult{
		StageID: pipeline.StageMonoCalibration, Success: true,
		Metrics: &pipeline.StepMetrics{MonoCalibration: &pipeline.MonoCalibrationMetrics{
			LeftCamera:  pipeline.CameraCalibration{ReprojectionError: ptrF(2.4)},
			RightCamera: pipeline.CameraCalibration{ReprojectionError: ptrF(2.8)},
		}},
	}))

	got := a.Assess(store)

	// Average error 2.6 px exceeds the 1.0 threshold; score clamps at zero.
	assert.Equal(t, 0.0, got.QualityScores["mono_calibration"])
	assert.Contains(t, got.Recommendations[0], "exceeds the configured threshold")
}

func TestQualityRecommendsOnAsymmetry(t *testing.T) {
	a := NewQualityAssessor(defaultThresholds())
	store := pipeline.NewResultStore()
	require.NoError(t, store.Append(&pipeline.StepResult{StageID: pipeline.StageResize, Success: true}))
	require.NoError(t, store.Append(&pipeline.StepResult{StageID: pipeline.StageCornerDetection, Success: true}))
	require.NoError(t, store.Append(&pipeline.StepResult{
		StageID: pipeline.StageMonoCalibration, Success: true,
		Metrics: &pipeline.StepMetrics{MonoCalibration: &pipeline.MonoCalibrationMetrics{
			LeftCamera:  pipeline.CameraCalibration{ReprojectionError: ptrF(0.2)},
			RightCamera: pipeline.CameraCalibration{ReprojectionError: ptrF(0.6)},
		}},
	}))

	got := a.Assess(store)

	found := false
	for _, rec := range got.Recommendations {
		if rec == "left and right calibration errors differ by more than 0.3 pixels; check camera setup and image quality" {
			found = true
		}
	}
	assert.True(t, found, "asymmetry recommendation missing: %v", got.Recommendations)
}

func TestOverallGradeBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		grade string
	}{
		{1.0, "A"},
		{0.9, "A"},
		{0.89, "B"},
		{0.8, "B"},
		{0.79, "C"},
		{0.7, "C"},
		{0.69, "D"},
		{0.0, "D"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, overallGrade(tc.score), "score %f", tc.score)
	}
}
