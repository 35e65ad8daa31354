package report

import (
	"fmt"
	"strings"

	"github.com/banshee-data/stereolab/internal/pipeline"
)

// StatusFile is the plain-text run status filename.
const StatusFile = "experiment_status.txt"

// WriteStatus renders a terse per-stage status file for operators who just
// want to know what happened without opening JSON.
func (w *Writer) WriteStatus(s *Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Experiment: %s (v%s)\n", s.ExperimentInfo.Name, s.ExperimentInfo.Version)
	fmt.Fprintf(&b, "Started:    %s\n", s.ExperimentInfo.Timestamp)
	fmt.Fprintf(&b, "Status:     %s\n", statusWord(s.ExperimentInfo.OverallSuccess))
	fmt.Fprintf(&b, "Total time: %.2fs\n\n", s.ExperimentInfo.TotalProcessingTime)

	b.WriteString("Stages:\n")
	attempted := make(map[pipeline.StageID]bool)
	for _, r := range s.StepResults.Results() {
		attempted[r.StageID] = true
		line := fmt.Sprintf("  %-20s %-9s %8.2fs", r.StageID, stageWord(r), r.ProcessingTime)
		if r.FailureKind != pipeline.FailureNone {
			line += fmt.Sprintf("  (%s)", r.FailureKind)
		}
		if r.OutputsComplete != nil && !*r.OutputsComplete {
			line += fmt.Sprintf("  [%d artifact(s) missing]", len(r.MissingOutputs))
		}
		b.WriteString(line + "\n")
	}
	for _, id := range pipeline.StageOrder {
		if !attempted[id] {
			fmt.Fprintf(&b, "  %-20s %-9s\n", id, "SKIPPED")
		}
	}

	return w.WriteText(StatusFile, b.String())
}

func statusWord(success bool) string {
	if success {
		return "COMPLETED"
	}
	return "FAILED"
}

func stageWord(r *pipeline.StepResult) string {
	if r.Success {
		return "OK"
	}
	return "FAILED"
}
