package analysis

import (
	"math"

	"github.com/banshee-data/stereolab/internal/pipeline"
)

// PointCloudAnalysis classifies the size of a reconstructed point cloud.
type PointCloudAnalysis struct {
	TotalPoints       int     `json:"total_points"`
	DensityLevel      string  `json:"density_level"`
	MeetsMinimum      bool    `json:"meets_minimum"`
	CompletenessScore float64 `json:"completeness_score"`
}

// DepthAnalysis summarizes the depth coverage of a reconstruction, in meters.
// WorkingVolumeM3 is a rough estimate assuming a 1.0 m x 0.75 m cross section.
type DepthAnalysis struct {
	MinDepth        float64 `json:"min_depth"`
	MaxDepth        float64 `json:"max_depth"`
	DepthSpan       float64 `json:"depth_span"`
	WorkingVolumeM3 float64 `json:"working_volume_m3"`
}

// ReconstructionQuality is the reconstruction_quality.json analysis artifact.
type ReconstructionQuality struct {
	Timestamp          string              `json:"timestamp"`
	PointCloudAnalysis *PointCloudAnalysis `json:"point_cloud_analysis,omitempty"`
	DepthAnalysis      *DepthAnalysis      `json:"depth_analysis,omitempty"`
	OutputFormat       string              `json:"output_format,omitempty"`
	QualityLevel       int                 `json:"quality_level,omitempty"`
}

// ReconstructionQualityAnalyzer evaluates reconstruction density and depth coverage.
type ReconstructionQualityAnalyzer struct {
	thresholds Thresholds
}

// NewReconstructionQualityAnalyzer creates an analyzer with the given thresholds.
func NewReconstructionQualityAnalyzer(th Thresholds) *ReconstructionQualityAnalyzer {
	return &ReconstructionQualityAnalyzer{thresholds: th}
}

// Analyze evaluates the reconstruction result in the store. Sections are nil
// when the stage did not run, failed, or carries no measurement.
func (a *ReconstructionQualityAnalyzer) Analyze(store *pipeline.ResultStore) *ReconstructionQuality {
	out := &ReconstructionQuality{
		Timestamp: timeNow().UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	result, ok := store.Get(pipeline.StageReconstruction)
	if !ok || !result.Success || result.Metrics == nil || result.Metrics.Reconstruction == nil {
		return out
	}
	m := result.Metrics.Reconstruction
	out.OutputFormat = m.OutputFormat
	out.QualityLevel = m.QualityLevel

	if m.PointCloudSize != nil {
		points := *m.PointCloudSize
		out.PointCloudAnalysis = &PointCloudAnalysis{
			TotalPoints:       points,
			DensityLevel:      DensityLevel(points),
			MeetsMinimum:      points >= a.thresholds.MinPointCloudSize,
			CompletenessScore: completeness(points),
		}
	}

	if m.DepthRange != nil {
		out.DepthAnalysis = depthAnalysis(*m.DepthRange)
	}
	return out
}

// completeness saturates at the fixed point-count ceiling.
func completeness(points int) float64 {
	return math.Min(float64(points)/CompletenessSaturationPoints, 1.0)
}

// depthAnalysis computes the span and a rough working-volume estimate. The
// volume is zero unless the range is physically plausible (positive minimum,
// max above min).
func depthAnalysis(r pipeline.DepthRange) *DepthAnalysis {
	d := &DepthAnalysis{
		MinDepth:  r.Min,
		MaxDepth:  r.Max,
		DepthSpan: round3(r.Max - r.Min),
	}
	if r.Min > 0 && r.Max > r.Min {
		d.WorkingVolumeM3 = round3((r.Max - r.Min) * 1.0 * 0.75)
	}
	return d
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
