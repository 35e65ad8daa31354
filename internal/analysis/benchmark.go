package analysis

import "github.com/banshee-data/stereolab/internal/pipeline"

// BenchmarkBaseline is the reference performance a run is compared against.
type BenchmarkBaseline struct {
	TotalSeconds        float64 `json:"total_seconds"`
	CalibrationAccuracy float64 `json:"calibration_accuracy"`
	PointCloudSize      int     `json:"point_cloud_size"`
}

// DefaultBaseline is the fixed reference: a one-minute run reaching 0.8 px
// average calibration accuracy and a 10k-point reconstruction.
var DefaultBaseline = BenchmarkBaseline{
	TotalSeconds:        60.0,
	CalibrationAccuracy: 0.8,
	PointCloudSize:      10000,
}

// ActualMetrics are the measured counterparts of the baseline. Accuracy and
// point count are pointers: a halted run may not have produced them, and an
// absent measurement is reported as unavailable rather than compared.
type ActualMetrics struct {
	TotalSeconds        float64  `json:"total_seconds"`
	CalibrationAccuracy *float64 `json:"calibration_accuracy,omitempty"`
	PointCloudSize      *int     `json:"point_cloud_size,omitempty"`
}

// Comparison is one metric's verdict against the baseline.
type Comparison struct {
	Baseline float64 `json:"baseline"`
	Actual   float64 `json:"actual"`
	Ratio    float64 `json:"ratio"`
	Verdict  string  `json:"verdict"`
}

// PerformanceBenchmark is the performance_benchmark.json analysis artifact.
// Comparison fields are nil when the corresponding measurement is unavailable.
type PerformanceBenchmark struct {
	Timestamp          string            `json:"timestamp"`
	Baseline           BenchmarkBaseline `json:"baseline"`
	Actual             ActualMetrics     `json:"actual"`
	TimeComparison     *Comparison       `json:"time_comparison,omitempty"`
	AccuracyComparison *Comparison       `json:"accuracy_comparison,omitempty"`
	DensityComparison  *Comparison       `json:"density_comparison,omitempty"`
}

// BenchmarkAnalyzer compares a run against a baseline.
type BenchmarkAnalyzer struct {
	baseline BenchmarkBaseline
}

// NewBenchmarkAnalyzer creates an analyzer comparing against baseline.
func NewBenchmarkAnalyzer(baseline BenchmarkBaseline) *BenchmarkAnalyzer {
	return &BenchmarkAnalyzer{baseline: baseline}
}

// Analyze compares the run's measurements against the baseline. Verdicts use
// strict inequalities: matching the baseline exactly is never "BETTER".
func (a *BenchmarkAnalyzer) Analyze(store *pipeline.ResultStore) *PerformanceBenchmark {
	out := &PerformanceBenchmark{
		Timestamp: timeNow().UTC().Format("2006-01-02T15:04:05Z07:00"),
		Baseline:  a.baseline,
	}

	out.Actual.TotalSeconds = store.TotalProcessingTime()
	out.TimeComparison = &Comparison{
		Baseline: a.baseline.TotalSeconds,
		Actual:   out.Actual.TotalSeconds,
		Ratio:    safeRatio(out.Actual.TotalSeconds, a.baseline.TotalSeconds),
		Verdict:  verdict(out.Actual.TotalSeconds < a.baseline.TotalSeconds, "SLOWER"),
	}

	if mono, ok := store.Get(pipeline.StageMonoCalibration); ok && mono.Success {
		if left, right, present := monoErrors(mono); present {
			avg := (left + right) / 2
			out.Actual.CalibrationAccuracy = &avg
			out.AccuracyComparison = &Comparison{
				Baseline: a.baseline.CalibrationAccuracy,
				Actual:   avg,
				Ratio:    safeRatio(avg, a.baseline.CalibrationAccuracy),
				Verdict:  verdict(avg < a.baseline.CalibrationAccuracy, "WORSE"),
			}
		}
	}

	if recon, ok := store.Get(pipeline.StageReconstruction); ok && recon.Success {
		if points, present := pointCloudSize(recon); present {
			out.Actual.PointCloudSize = &points
			out.DensityComparison = &Comparison{
				Baseline: float64(a.baseline.PointCloudSize),
				Actual:   float64(points),
				Ratio:    safeRatio(float64(points), float64(a.baseline.PointCloudSize)),
				Verdict:  verdict(points > a.baseline.PointCloudSize, "LOWER"),
			}
		}
	}

	return out
}

func verdict(better bool, worse string) string {
	if better {
		return "BETTER"
	}
	return worse
}

func safeRatio(actual, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return round3(actual / baseline)
}
