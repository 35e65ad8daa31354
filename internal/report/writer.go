// Package report renders run artifacts: the machine-readable JSON summaries,
// the plain-text status file and the Markdown report.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/stereolab/internal/fsutil"
)

// Canonical analysis artifact filenames, written under the analysis/ subtree
// of a run directory.
const (
	ArtifactCalibrationAccuracy   = "calibration_accuracy.json"
	ArtifactReconstructionQuality = "reconstruction_quality.json"
	ArtifactProcessingPerformance = "processing_performance.json"
	ArtifactPerformanceBenchmark  = "performance_benchmark.json"
	ArtifactFileAnalysis          = "file_analysis.json"
	ArtifactQualityAssessment     = "quality_assessment.json"
)

// AnalysisArtifacts lists every analysis artifact a complete run produces, in
// generation order.
var AnalysisArtifacts = []string{
	ArtifactCalibrationAccuracy,
	ArtifactReconstructionQuality,
	ArtifactProcessingPerformance,
	ArtifactPerformanceBenchmark,
	ArtifactFileAnalysis,
	ArtifactQualityAssessment,
}

// Writer renders artifacts into one run directory.
type Writer struct {
	fs     fsutil.FileSystem
	runDir string
}

// NewWriter creates a Writer for runDir.
func NewWriter(fs fsutil.FileSystem, runDir string) *Writer {
	return &Writer{fs: fs, runDir: runDir}
}

// WriteJSON marshals v with two-space indentation and writes it at the given
// path relative to the run directory.
func (w *Writer) WriteJSON(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", rel, err)
	}
	path := filepath.Join(w.runDir, rel)
	if err := w.fs.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// WriteAnalysis writes one analysis artifact under analysis/.
func (w *Writer) WriteAnalysis(name string, v any) error {
	return w.WriteJSON(filepath.Join("analysis", name), v)
}

// WriteText writes a plain text artifact at the given relative path.
func (w *Writer) WriteText(rel, content string) error {
	path := filepath.Join(w.runDir, rel)
	if err := w.fs.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}
