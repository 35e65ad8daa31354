// Package analysis scores pipeline results against configurable thresholds
// and compares aggregate run performance to a fixed baseline.
package analysis

import (
	"time"

	"github.com/banshee-data/stereolab/internal/config"
)

// timeNow is stubbed in tests to make analyzer outputs deterministic.
var timeNow = time.Now

// Thresholds are the configurable quality gates shared by the analyzers.
type Thresholds struct {
	MaxReprojectionError float64
	MinPointCloudSize    int
}

// ThresholdsFromConfig extracts the analyzer thresholds from a run configuration.
func ThresholdsFromConfig(cfg *config.ExperimentConfig) Thresholds {
	return Thresholds{
		MaxReprojectionError: cfg.GetMaxReprojectionError(),
		MinPointCloudSize:    cfg.GetMinPointCloudSize(),
	}
}

// Fixed classification cutoffs shared across analyzers. Hoisted here so no
// analyzer carries its own copy of the literals.
const (
	// ErrorBalanceLimit is the max left/right reprojection error difference
	// still considered balanced, in pixels.
	ErrorBalanceLimit = 0.3
	// ConsistencyGoodLimit is the error difference below which left/right
	// balance is classified GOOD rather than MODERATE.
	ConsistencyGoodLimit = 0.2
	// CompletenessSaturationPoints is the point count treated as a fully
	// complete reconstruction.
	CompletenessSaturationPoints = 50000
	// ScoreSaturationMultiple: a reconstruction scores 1.0 at this multiple
	// of the minimum point cloud size threshold.
	ScoreSaturationMultiple = 10
)

type gradeBand struct {
	limit float64
	grade string
}

// calibrationGrades maps average reprojection error to a quality grade.
// Bounds are strict upper limits.
var calibrationGrades = []gradeBand{
	{0.3, "EXCELLENT"},
	{0.5, "VERY_GOOD"},
	{0.8, "GOOD"},
	{1.0, "ACCEPTABLE"},
}

// CalibrationGrade classifies an average reprojection error in pixels.
func CalibrationGrade(avgError float64) string {
	for _, b := range calibrationGrades {
		if avgError < b.limit {
			return b.grade
		}
	}
	return "POOR"
}

type densityBand struct {
	min   int
	level string
}

// densityLevels maps point counts to density classifications. Bounds are
// strict lower limits, so classification is monotonic in the point count.
var densityLevels = []densityBand{
	{100000, "VERY_HIGH"},
	{50000, "HIGH"},
	{10000, "MEDIUM"},
	{1000, "LOW"},
}

// DensityLevel classifies a point cloud size.
func DensityLevel(points int) string {
	for _, b := range densityLevels {
		if points > b.min {
			return b.level
		}
	}
	return "VERY_LOW"
}
