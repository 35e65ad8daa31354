package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stereolab/internal/pipeline"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

// stubClock pins the analyzer timestamp for deterministic artifacts.
func stubClock(t *testing.T) {
	t.Helper()
	old := timeNow
	timeNow = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	t.Cleanup(func() { timeNow = old })
}

func defaultThresholds() Thresholds {
	return Thresholds{MaxReprojectionError: 1.0, MinPointCloudSize: 1000}
}

// fullSuccessStore builds a complete five-stage run with the canonical demo
// measurements: calibration errors 0.45/0.52 px, stereo error 0.68 px, a
// 45678-point reconstruction over 0.5-2.8 m depth.
func fullSuccessStore(t *testing.T) *pipeline.ResultStore {
	t.Helper()
	store := pipeline.NewResultStore()

	results := []*pipeline.StepResult{
		{StageID: pipeline.StageResize, Success: true, ProcessingTime: 2.0},
		{
			StageID: pipeline.StageCornerDetection, Success: true, ProcessingTime: 3.5,
			Metrics: &pipeline.StepMetrics{CornerDetection: &pipeline.CornerDetectionMetrics{
				LeftCamera:  pipeline.DetectionStats{ImagesProcessed: 5, CornersDetected: 15, DetectionRate: 3.0},
				RightCamera: pipeline.DetectionStats{ImagesProcessed: 5, CornersDetected: 14, DetectionRate: 2.8},
			}},
		},
		{
			StageID: pipeline.StageMonoCalibration, Success: true, ProcessingTime: 8.2,
			Metrics: &pipeline.StepMetrics{MonoCalibration: &pipeline.MonoCalibrationMetrics{
				LeftCamera:  pipeline.CameraCalibration{ReprojectionError: ptrF(0.45), ImagesUsed: 15},
				RightCamera: pipeline.CameraCalibration{ReprojectionError: ptrF(0.52), ImagesUsed: 14},
			}},
		},
		{
			StageID: pipeline.StageStereoCalibration, Success: true, ProcessingTime: 6.8,
			Metrics: &pipeline.StepMetrics{StereoCalibration: &pipeline.StereoCalibrationMetrics{
				StereoReprojectionError: ptrF(0.68),
				BaselineDistance:        0.065,
				ConvergenceAngle:        2.3,
			}},
		},
		{
			StageID: pipeline.StageReconstruction, Success: true, ProcessingTime: 12.5,
			Metrics: &pipeline.StepMetrics{Reconstruction: &pipeline.ReconstructionMetrics{
				PointCloudSize: ptrI(45678),
				OutputFormat:   "PLY",
				QualityLevel:   3,
				DepthRange:     &pipeline.DepthRange{Min: 0.5, Max: 2.8},
			}},
		},
	}
	for _, r := range results {
		require.NoError(t, store.Append(r))
	}
	return store
}

// haltedStore builds a run that failed at mono calibration.
func haltedStore(t *testing.T) *pipeline.ResultStore {
	t.Helper()
	store := pipeline.NewResultStore()
	require.NoError(t, store.Append(&pipeline.StepResult{StageID: pipeline.StageResize, Success: true, ProcessingTime: 2.0}))
	require.NoError(t, store.Append(&pipeline.StepResult{StageID: pipeline.StageCornerDetection, Success: true, ProcessingTime: 3.5}))
	require.NoError(t, store.Append(&pipeline.StepResult{
		StageID: pipeline.StageMonoCalibration, Success: false,
		FailureKind: pipeline.FailureTimeout, ProcessingTime: 300.0,
	}))
	return store
}
