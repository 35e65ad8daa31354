package analysis

import (
	"fmt"
	"runtime"

	"github.com/banshee-data/stereolab/internal/pipeline"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"gonum.org/v1/gonum/stat"
)

// Per-stage processing-rate classification cutoffs, in seconds.
const (
	fastStageSeconds   = 30.0
	normalStageSeconds = 120.0
)

// StageTiming is one stage's share of the run time.
type StageTiming struct {
	StageID        string  `json:"stage_id"`
	Seconds        float64 `json:"seconds"`
	PercentOfTotal float64 `json:"percent_of_total"`
	Rate           string  `json:"rate"`
}

// TimingAnalysis breaks the run time down per stage.
type TimingAnalysis struct {
	StageTimings   []StageTiming `json:"stage_timings"`
	TotalSeconds   float64       `json:"total_seconds"`
	AverageSeconds float64       `json:"average_seconds"`
	Bottleneck     string        `json:"bottleneck"`
	StepsPerMinute float64       `json:"steps_per_minute"`
}

// SystemInfo describes the host the run executed on.
type SystemInfo struct {
	OS            string  `json:"os"`
	Arch          string  `json:"arch"`
	CPUCores      int     `json:"cpu_cores"`
	CPUModel      string  `json:"cpu_model,omitempty"`
	TotalMemoryGB float64 `json:"total_memory_gb"`
}

// ProcessingPerformance is the processing_performance.json analysis artifact.
type ProcessingPerformance struct {
	Timestamp               string          `json:"timestamp"`
	TimingAnalysis          *TimingAnalysis `json:"timing_analysis,omitempty"`
	SystemInfo              *SystemInfo     `json:"system_info,omitempty"`
	OptimizationSuggestions []string        `json:"optimization_suggestions"`
}

// ProcessingPerformanceAnalyzer profiles the run timings and host.
type ProcessingPerformanceAnalyzer struct {
	// collectSystem is stubbed in tests for deterministic artifacts.
	collectSystem func() *SystemInfo
}

// NewProcessingPerformanceAnalyzer creates an analyzer reading real host info.
func NewProcessingPerformanceAnalyzer() *ProcessingPerformanceAnalyzer {
	return &ProcessingPerformanceAnalyzer{collectSystem: collectSystemInfo}
}

// Analyze profiles the timings recorded in the store.
func (a *ProcessingPerformanceAnalyzer) Analyze(store *pipeline.ResultStore) *ProcessingPerformance {
	out := &ProcessingPerformance{
		Timestamp:  timeNow().UTC().Format("2006-01-02T15:04:05Z07:00"),
		SystemInfo: a.collectSystem(),
	}

	timing := timingAnalysis(store)
	out.TimingAnalysis = timing
	out.OptimizationSuggestions = suggestions(timing)
	return out
}

func timingAnalysis(store *pipeline.ResultStore) *TimingAnalysis {
	results := store.Results()
	if len(results) == 0 {
		return nil
	}

	total := store.TotalProcessingTime()
	analysis := &TimingAnalysis{TotalSeconds: total}

	seconds := make([]float64, 0, len(results))
	var slowest *pipeline.StepResult
	for _, r := range results {
		t := StageTiming{
			StageID: string(r.StageID),
			Seconds: r.ProcessingTime,
			Rate:    stageRate(r.ProcessingTime),
		}
		if total > 0 {
			t.PercentOfTotal = round3(r.ProcessingTime / total * 100)
		}
		analysis.StageTimings = append(analysis.StageTimings, t)
		seconds = append(seconds, r.ProcessingTime)
		if slowest == nil || r.ProcessingTime > slowest.ProcessingTime {
			slowest = r
		}
	}

	analysis.AverageSeconds = round3(stat.Mean(seconds, nil))
	analysis.Bottleneck = string(slowest.StageID)
	if total > 0 {
		analysis.StepsPerMinute = round3(float64(len(results)) / (total / 60))
	}
	return analysis
}

func stageRate(seconds float64) string {
	switch {
	case seconds < fastStageSeconds:
		return "FAST"
	case seconds < normalStageSeconds:
		return "NORMAL"
	default:
		return "SLOW"
	}
}

func suggestions(t *TimingAnalysis) []string {
	if t == nil {
		return []string{"no timing data recorded"}
	}

	var out []string
	for _, st := range t.StageTimings {
		if st.Rate == "SLOW" {
			out = append(out, fmt.Sprintf("stage %s is slow (%.1fs); consider reducing input resolution or quality level", st.StageID, st.Seconds))
		}
	}
	if t.TotalSeconds > 0 && t.Bottleneck != "" {
		out = append(out, fmt.Sprintf("bottleneck stage is %s; optimize it first for the largest total-time reduction", t.Bottleneck))
	}
	if len(out) == 0 {
		out = append(out, "processing performance is satisfactory")
	}
	return out
}

// collectSystemInfo reads host facts via gopsutil. Probe failures degrade to
// runtime-package facts so the artifact is always written.
func collectSystemInfo() *SystemInfo {
	info := &SystemInfo{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		CPUCores: runtime.NumCPU(),
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemoryGB = round3(float64(vm.Total) / (1024 * 1024 * 1024))
	}
	return info
}
