package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/stereolab/internal/config"
	"github.com/banshee-data/stereolab/internal/fsutil"
	"github.com/banshee-data/stereolab/internal/monitoring"
	"github.com/banshee-data/stereolab/internal/pipeline"
)

// SummaryFile is the canonical per-run results filename.
const SummaryFile = "processing_summary.json"

// FinalSummaryFile is the end-of-run rollup filename.
const FinalSummaryFile = "final_experiment_summary.json"

// ExperimentInfo is the run metadata block of a summary.
type ExperimentInfo struct {
	Name                string  `json:"name"`
	Version             string  `json:"version"`
	Timestamp           string  `json:"timestamp"`
	RunDir              string  `json:"run_dir"`
	OverallSuccess      bool    `json:"overall_success"`
	TotalProcessingTime float64 `json:"total_processing_time"`
}

// Summary is the processing_summary.json document. It round-trips: LoadSummary
// rebuilds the ResultStore so every analysis artifact can be regenerated from
// this file alone.
type Summary struct {
	ExperimentInfo ExperimentInfo           `json:"experiment_info"`
	StepResults    *pipeline.ResultStore    `json:"step_results"`
	Configuration  *config.ExperimentConfig `json:"configuration"`
}

// BuildSummary assembles the summary document for one run.
func BuildSummary(cfg *config.ExperimentConfig, store *pipeline.ResultStore, runDir string, startedAt time.Time) *Summary {
	return &Summary{
		ExperimentInfo: ExperimentInfo{
			Name:                cfg.GetName(),
			Version:             cfg.GetVersion(),
			Timestamp:           startedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			RunDir:              runDir,
			OverallSuccess:      store.OverallSuccess(),
			TotalProcessingTime: store.TotalProcessingTime(),
		},
		StepResults:   store,
		Configuration: cfg,
	}
}

// Write renders the summary as processing_summary.json in the run directory.
func (w *Writer) Write(s *Summary) error {
	return w.WriteJSON(SummaryFile, s)
}

// LoadSummary reloads a previously written processing_summary.json.
func LoadSummary(fs fsutil.FileSystem, runDir string) (*Summary, error) {
	data, err := fs.ReadFile(filepath.Join(runDir, SummaryFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", SummaryFile, err)
	}
	s := &Summary{StepResults: pipeline.NewResultStore()}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", SummaryFile, err)
	}
	return s, nil
}

// FinalSummary is the final_experiment_summary.json rollup: run metadata, the
// memory report and the analysis artifacts that were actually produced, keyed
// by artifact name.
type FinalSummary struct {
	ExperimentInfo    ExperimentInfo           `json:"experiment_info"`
	MemoryReport      *monitoring.MemoryReport `json:"memory_report,omitempty"`
	AnalysisArtifacts map[string]string        `json:"analysis_artifacts"`
	GeneratedAt       string                   `json:"generated_at"`
}

// WriteFinalSummary assembles and writes the end-of-run rollup. Only analysis
// artifacts present on disk are listed; a halted run lists what it produced.
func (w *Writer) WriteFinalSummary(info ExperimentInfo, memReport *monitoring.MemoryReport, generatedAt time.Time) error {
	artifacts := make(map[string]string)
	for _, name := range AnalysisArtifacts {
		rel := filepath.Join("analysis", name)
		if w.fs.Exists(filepath.Join(w.runDir, rel)) {
			artifacts[name] = rel
		}
	}

	final := &FinalSummary{
		ExperimentInfo:    info,
		MemoryReport:      memReport,
		AnalysisArtifacts: artifacts,
		GeneratedAt:       generatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	return w.WriteJSON(FinalSummaryFile, final)
}
