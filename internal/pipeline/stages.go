// Package pipeline drives the fixed five-stage stereo reconstruction pipeline
// and records one StepResult per attempted stage.
package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/stereolab/internal/config"
)

// StageID identifies one stage of the fixed pipeline.
type StageID string

// The five pipeline stages, in execution order. Each stage depends on the
// successful completion of its predecessor.
const (
	StageResize            StageID = "resize"
	StageCornerDetection   StageID = "corner_detection"
	StageMonoCalibration   StageID = "mono_calibration"
	StageStereoCalibration StageID = "stereo_calibration"
	StageReconstruction    StageID = "reconstruction"
)

// StageOrder is the canonical execution order.
var StageOrder = []StageID{
	StageResize,
	StageCornerDetection,
	StageMonoCalibration,
	StageStereoCalibration,
	StageReconstruction,
}

var stageDirs = map[StageID]string{
	StageResize:            "step1_image_resize",
	StageCornerDetection:   "step2_corner_detection",
	StageMonoCalibration:   "step3_mono_calibration",
	StageStereoCalibration: "step4_stereo_calibration",
	StageReconstruction:    "step5_3d_reconstruction",
}

// DirName returns the per-stage output subtree name (stepN_<name>).
func (s StageID) DirName() string {
	return stageDirs[s]
}

// Index returns the zero-based position of the stage in StageOrder, or -1 for
// an unknown stage.
func (s StageID) Index() int {
	for i, id := range StageOrder {
		if id == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the five known stages.
func (s StageID) Valid() bool {
	return s.Index() >= 0
}

// stageSpec describes how to invoke one stage: command arguments, the
// parameters to record, the metrics file the backend writes on success and the
// artifacts the stage is expected to produce.
type stageSpec struct {
	id              StageID
	subdirs         []string
	args            func(cfg *config.ExperimentConfig, runDir string) []string
	parameters      func(cfg *config.ExperimentConfig) map[string]any
	metricsFile     string
	expectedOutputs []string
}

var stageSpecs = map[StageID]stageSpec{
	StageResize: {
		id:      StageResize,
		subdirs: []string{"input_images", "output_images"},
		args: func(cfg *config.ExperimentConfig, runDir string) []string {
			return []string{
				"--left", cfg.GetLeftImages(),
				"--right", cfg.GetRightImages(),
				"--out", filepath.Join(runDir, StageResize.DirName(), "output_images"),
				"--width", strconv.Itoa(cfg.GetTargetWidth()),
				"--height", strconv.Itoa(cfg.GetTargetHeight()),
				"--interpolation", cfg.GetInterpolation(),
			}
		},
		parameters: func(cfg *config.ExperimentConfig) map[string]any {
			return map[string]any{
				"target_width":  cfg.GetTargetWidth(),
				"target_height": cfg.GetTargetHeight(),
				"interpolation": cfg.GetInterpolation(),
			}
		},
		metricsFile: "", // resize carries no metrics payload
		expectedOutputs: []string{
			"output_images/left",
			"output_images/right",
		},
	},
	StageCornerDetection: {
		id:      StageCornerDetection,
		subdirs: []string{"corner_images", "detection_results"},
		args: func(cfg *config.ExperimentConfig, runDir string) []string {
			return []string{
				"--images", filepath.Join(runDir, StageResize.DirName(), "output_images"),
				"--out", filepath.Join(runDir, StageCornerDetection.DirName(), "detection_results"),
				"--board-width", strconv.Itoa(cfg.GetBoardWidth()),
				"--board-height", strconv.Itoa(cfg.GetBoardHeight()),
				"--scale", strconv.FormatFloat(cfg.GetScaleFactor(), 'f', -1, 64),
			}
		},
		parameters: func(cfg *config.ExperimentConfig) map[string]any {
			return map[string]any{
				"board_width":  cfg.GetBoardWidth(),
				"board_height": cfg.GetBoardHeight(),
				"scale_factor": cfg.GetScaleFactor(),
			}
		},
		metricsFile: "statistics.json",
		expectedOutputs: []string{
			"detection_results/left_corners.yml",
			"detection_results/right_corners.yml",
		},
	},
	StageMonoCalibration: {
		id:      StageMonoCalibration,
		subdirs: []string{"calibration_params", "corrected_images"},
		args: func(cfg *config.ExperimentConfig, runDir string) []string {
			args := []string{
				"--corners", filepath.Join(runDir, StageCornerDetection.DirName(), "detection_results"),
				"--out", filepath.Join(runDir, StageMonoCalibration.DirName(), "calibration_params"),
				"--square-size", strconv.FormatFloat(cfg.GetSquareSize(), 'f', -1, 64),
			}
			if cfg.GetSaveUndistorted() {
				args = append(args, "--save-undistorted")
			}
			return args
		},
		parameters: func(cfg *config.ExperimentConfig) map[string]any {
			return map[string]any{
				"square_size":      cfg.GetSquareSize(),
				"save_undistorted": cfg.GetSaveUndistorted(),
			}
		},
		metricsFile: "error_analysis.json",
		expectedOutputs: []string{
			"calibration_params/left_camera.yml",
			"calibration_params/right_camera.yml",
		},
	},
	StageStereoCalibration: {
		id:      StageStereoCalibration,
		subdirs: []string{"stereo_params", "rectified_images"},
		args: func(cfg *config.ExperimentConfig, runDir string) []string {
			return []string{
				"--mono-params", filepath.Join(runDir, StageMonoCalibration.DirName(), "calibration_params"),
				"--out", filepath.Join(runDir, StageStereoCalibration.DirName(), "stereo_params"),
				"--square-size", strconv.FormatFloat(cfg.GetSquareSize(), 'f', -1, 64),
			}
		},
		parameters: func(cfg *config.ExperimentConfig) map[string]any {
			return map[string]any{
				"square_size": cfg.GetSquareSize(),
			}
		},
		metricsFile: "calibration_report.json",
		expectedOutputs: []string{
			"stereo_params/stereo_calibration.yml",
		},
	},
	StageReconstruction: {
		id:      StageReconstruction,
		subdirs: []string{"point_clouds", "depth_maps"},
		args: func(cfg *config.ExperimentConfig, runDir string) []string {
			return []string{
				"--stereo-params", filepath.Join(runDir, StageStereoCalibration.DirName(), "stereo_params"),
				"--out", filepath.Join(runDir, StageReconstruction.DirName(), "point_clouds"),
				"--format", strconv.Itoa(cfg.GetOutputFormat()),
				"--quality", strconv.Itoa(cfg.GetQualityLevel()),
			}
		},
		parameters: func(cfg *config.ExperimentConfig) map[string]any {
			return map[string]any{
				"output_format": cfg.GetOutputFormatName(),
				"quality_level": cfg.GetQualityLevel(),
			}
		},
		metricsFile: "reconstruction_metrics.json",
		expectedOutputs: []string{
			"point_clouds/reconstruction.ply",
		},
	},
}

// MetricsPath returns the path of the metrics file a stage's backend writes,
// relative to the run directory.
func MetricsPath(runDir string, id StageID) string {
	return filepath.Join(runDir, id.DirName(), stageSpecs[id].metricsFile)
}

// ExpectedOutputPaths returns the artifact paths a stage is expected to
// produce, relative to the run directory.
func ExpectedOutputPaths(id StageID) []string {
	spec := stageSpecs[id]
	paths := make([]string, 0, len(spec.expectedOutputs))
	for _, p := range spec.expectedOutputs {
		paths = append(paths, filepath.Join(id.DirName(), p))
	}
	return paths
}

// RunDirectories lists every subtree created under a run directory: the fixed
// top-level folders plus the per-stage subtrees.
func RunDirectories() []string {
	dirs := []string{"config", "logs", "analysis", "visualizations"}
	for _, id := range StageOrder {
		spec := stageSpecs[id]
		for _, sub := range spec.subdirs {
			dirs = append(dirs, filepath.Join(id.DirName(), sub))
		}
	}
	return dirs
}

// ParseStageID validates a stage identifier string.
func ParseStageID(s string) (StageID, error) {
	id := StageID(s)
	if !id.Valid() {
		return "", fmt.Errorf("unknown stage id %q", s)
	}
	return id, nil
}
