package analysis

import (
	"math"

	"github.com/banshee-data/stereolab/internal/pipeline"
)

// MonoAccuracy summarizes per-camera calibration errors.
type MonoAccuracy struct {
	LeftError       float64 `json:"left_error"`
	RightError      float64 `json:"right_error"`
	AverageError    float64 `json:"average_error"`
	ErrorDifference float64 `json:"error_difference"`
	QualityGrade    string  `json:"quality_grade"`
}

// StereoAccuracy summarizes the joint stereo calibration outcome.
type StereoAccuracy struct {
	ReprojectionError float64 `json:"reprojection_error"`
	BaselineDistance  float64 `json:"baseline_distance"`
	ConvergenceAngle  float64 `json:"convergence_angle"`
	QualityGrade      string  `json:"quality_grade"`
}

// ConsistencyCheck evaluates whether the two cameras calibrated to comparable
// accuracy within the configured threshold.
type ConsistencyCheck struct {
	WithinThreshold    bool   `json:"within_threshold"`
	ErrorBalance       bool   `json:"error_balance"`
	OverallConsistency string `json:"overall_consistency"`
}

// CalibrationAccuracy is the calibration_accuracy.json analysis artifact.
// Sections are nil when the corresponding stage metrics are unavailable.
type CalibrationAccuracy struct {
	Timestamp        string            `json:"timestamp"`
	MonoAccuracy     *MonoAccuracy     `json:"mono_accuracy,omitempty"`
	StereoAccuracy   *StereoAccuracy   `json:"stereo_accuracy,omitempty"`
	ConsistencyCheck *ConsistencyCheck `json:"consistency_check,omitempty"`
}

// CalibrationAccuracyAnalyzer grades calibration stage results.
type CalibrationAccuracyAnalyzer struct {
	thresholds Thresholds
}

// NewCalibrationAccuracyAnalyzer creates an analyzer with the given thresholds.
func NewCalibrationAccuracyAnalyzer(th Thresholds) *CalibrationAccuracyAnalyzer {
	return &CalibrationAccuracyAnalyzer{thresholds: th}
}

// Analyze grades the mono and stereo calibration results present in the store.
// A halted run yields an artifact with the sections that could be computed;
// missing measurements never default to a sentinel value.
func (a *CalibrationAccuracyAnalyzer) Analyze(store *pipeline.ResultStore) *CalibrationAccuracy {
	out := &CalibrationAccuracy{
		Timestamp: timeNow().UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	if mono, ok := store.Get(pipeline.StageMonoCalibration); ok && mono.Success {
		if left, right, present := monoErrors(mono); present {
			out.MonoAccuracy = a.monoAccuracy(left, right)
			out.ConsistencyCheck = a.consistency(left, right)
		}
	}

	if stereo, ok := store.Get(pipeline.StageStereoCalibration); ok && stereo.Success {
		out.StereoAccuracy = stereoAccuracy(stereo)
	}

	return out
}

func (a *CalibrationAccuracyAnalyzer) monoAccuracy(left, right float64) *MonoAccuracy {
	avg := (left + right) / 2
	return &MonoAccuracy{
		LeftError:       left,
		RightError:      right,
		AverageError:    avg,
		ErrorDifference: math.Abs(left - right),
		QualityGrade:    CalibrationGrade(avg),
	}
}

// consistency classifies how well the two cameras agree. within_threshold
// requires both errors strictly below the configured maximum; error_balance
// requires the difference below the balance limit.
func (a *CalibrationAccuracyAnalyzer) consistency(left, right float64) *ConsistencyCheck {
	diff := math.Abs(left - right)
	check := &ConsistencyCheck{
		WithinThreshold: left < a.thresholds.MaxReprojectionError && right < a.thresholds.MaxReprojectionError,
		ErrorBalance:    diff < ErrorBalanceLimit,
	}
	if diff < ConsistencyGoodLimit {
		check.OverallConsistency = "GOOD"
	} else {
		check.OverallConsistency = "MODERATE"
	}
	return check
}

func stereoAccuracy(result *pipeline.StepResult) *StereoAccuracy {
	if result.Metrics == nil || result.Metrics.StereoCalibration == nil {
		return nil
	}
	m := result.Metrics.StereoCalibration
	if m.StereoReprojectionError == nil {
		return nil
	}
	return &StereoAccuracy{
		ReprojectionError: *m.StereoReprojectionError,
		BaselineDistance:  m.BaselineDistance,
		ConvergenceAngle:  m.ConvergenceAngle,
		QualityGrade:      CalibrationGrade(*m.StereoReprojectionError),
	}
}
