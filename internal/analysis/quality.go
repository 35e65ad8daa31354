package analysis

import (
	"fmt"
	"math"

	"github.com/banshee-data/stereolab/internal/pipeline"
	"gonum.org/v1/gonum/stat"
)

// QualityAssessment is the per-stage score map and overall grade for one run.
// Stages that succeeded but carry no usable metrics are excluded from the
// overall mean and listed in UnscoredStages rather than scored with a penalty
// value.
type QualityAssessment struct {
	Timestamp       string             `json:"timestamp"`
	QualityScores   map[string]float64 `json:"quality_scores"`
	UnscoredStages  []string           `json:"unscored_stages,omitempty"`
	OverallScore    float64            `json:"overall_score"`
	OverallGrade    string             `json:"overall_grade"`
	Recommendations []string           `json:"recommendations"`
}

// QualityAssessor maps StepResults to normalized [0,1] scores.
type QualityAssessor struct {
	thresholds Thresholds
}

// NewQualityAssessor creates an assessor with the given thresholds.
func NewQualityAssessor(th Thresholds) *QualityAssessor {
	return &QualityAssessor{thresholds: th}
}

// Assess scores every stage present in the store. Stages never attempted due
// to a fail-fast halt are excluded, not scored as zero. The overall score is
// the arithmetic mean of the scored stages; grade boundaries are
// >=0.90 A, >=0.80 B, >=0.70 C, else D.
func (a *QualityAssessor) Assess(store *pipeline.ResultStore) *QualityAssessment {
	assessment := &QualityAssessment{
		Timestamp:     timeNow().UTC().Format("2006-01-02T15:04:05Z07:00"),
		QualityScores: make(map[string]float64),
	}

	var scores []float64
	for _, result := range store.Results() {
		score, scored := a.stageScore(result)
		if !scored {
			assessment.UnscoredStages = append(assessment.UnscoredStages, string(result.StageID))
			continue
		}
		assessment.QualityScores[string(result.StageID)] = score
		scores = append(scores, score)
	}

	if len(scores) > 0 {
		assessment.OverallScore = stat.Mean(scores, nil)
	}
	assessment.OverallGrade = overallGrade(assessment.OverallScore)
	assessment.Recommendations = a.recommendations(store)
	return assessment
}

// stageScore returns the normalized score for one stage. The second return is
// false when the stage succeeded but its metrics are missing, in which case
// the stage must be excluded from aggregation rather than treated as a
// measurement.
func (a *QualityAssessor) stageScore(result *pipeline.StepResult) (float64, bool) {
	if !result.Success {
		return 0.0, true
	}

	switch result.StageID {
	case pipeline.StageMonoCalibration:
		left, right, ok := monoErrors(result)
		if !ok {
			return 0, false
		}
		avg := (left + right) / 2
		return clamp01(1.0 - avg/a.thresholds.MaxReprojectionError), true

	case pipeline.StageReconstruction:
		points, ok := pointCloudSize(result)
		if !ok {
			return 0, false
		}
		saturation := float64(ScoreSaturationMultiple * a.thresholds.MinPointCloudSize)
		return clamp01(float64(points) / saturation), true

	default:
		// Success is binary-sufficient for the remaining stages.
		return 1.0, true
	}
}

// recommendations generates textual guidance from the run outcomes.
func (a *QualityAssessor) recommendations(store *pipeline.ResultStore) []string {
	var recs []string

	for _, result := range store.Results() {
		if !result.Success {
			recs = append(recs, fmt.Sprintf("fix execution failure for stage %s", result.StageID))
			continue
		}

		if result.StageID == pipeline.StageMonoCalibration {
			left, right, ok := monoErrors(result)
			if !ok {
				continue
			}
			if math.Max(left, right) > a.thresholds.MaxReprojectionError {
				recs = append(recs, "mono calibration error exceeds the configured threshold; add calibration images or improve image quality")
			}
			if math.Abs(left-right) > ErrorBalanceLimit {
				recs = append(recs, "left and right calibration errors differ by more than 0.3 pixels; check camera setup and image quality")
			}
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "all stages completed with satisfactory quality")
	}
	return recs
}

func overallGrade(score float64) string {
	switch {
	case score >= 0.9:
		return "A"
	case score >= 0.8:
		return "B"
	case score >= 0.7:
		return "C"
	default:
		return "D"
	}
}

// monoErrors extracts both per-camera reprojection errors, reporting whether
// both measurements are present.
func monoErrors(result *pipeline.StepResult) (left, right float64, ok bool) {
	if result.Metrics == nil || result.Metrics.MonoCalibration == nil {
		return 0, 0, false
	}
	m := result.Metrics.MonoCalibration
	if m.LeftCamera.ReprojectionError == nil || m.RightCamera.ReprojectionError == nil {
		return 0, 0, false
	}
	return *m.LeftCamera.ReprojectionError, *m.RightCamera.ReprojectionError, true
}

// pointCloudSize extracts the reconstruction point count, reporting whether
// the measurement is present.
func pointCloudSize(result *pipeline.StepResult) (int, bool) {
	if result.Metrics == nil || result.Metrics.Reconstruction == nil {
		return 0, false
	}
	if result.Metrics.Reconstruction.PointCloudSize == nil {
		return 0, false
	}
	return *result.Metrics.Reconstruction.PointCloudSize, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
