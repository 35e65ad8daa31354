package report

import (
	"fmt"
	"strings"

	"github.com/banshee-data/stereolab/internal/analysis"
)

// MarkdownFile is the human-readable comprehensive report filename.
const MarkdownFile = "comprehensive_report.md"

// MarkdownInputs bundles the analysis results the Markdown report draws from.
// Nil sections are omitted from the rendered report.
type MarkdownInputs struct {
	Summary        *Summary
	Quality        *analysis.QualityAssessment
	Calibration    *analysis.CalibrationAccuracy
	Reconstruction *analysis.ReconstructionQuality
	Performance    *analysis.ProcessingPerformance
	Benchmark      *analysis.PerformanceBenchmark
}

// WriteMarkdown renders the comprehensive Markdown report.
func (w *Writer) WriteMarkdown(in MarkdownInputs) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", in.Summary.ExperimentInfo.Name)
	fmt.Fprintf(&b, "- Version: %s\n", in.Summary.ExperimentInfo.Version)
	fmt.Fprintf(&b, "- Started: %s\n", in.Summary.ExperimentInfo.Timestamp)
	fmt.Fprintf(&b, "- Status: **%s**\n", statusWord(in.Summary.ExperimentInfo.OverallSuccess))
	fmt.Fprintf(&b, "- Total processing time: %.2fs\n\n", in.Summary.ExperimentInfo.TotalProcessingTime)

	b.WriteString("## Stage results\n\n")
	b.WriteString("| Stage | Result | Time (s) |\n|---|---|---|\n")
	for _, r := range in.Summary.StepResults.Results() {
		fmt.Fprintf(&b, "| %s | %s | %.2f |\n", r.StageID, stageWord(r), r.ProcessingTime)
	}
	b.WriteString("\n")

	if q := in.Quality; q != nil {
		fmt.Fprintf(&b, "## Quality assessment\n\n")
		fmt.Fprintf(&b, "Overall score **%.3f** (grade **%s**).\n\n", q.OverallScore, q.OverallGrade)
		for _, rec := range q.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	if c := in.Calibration; c != nil && c.MonoAccuracy != nil {
		m := c.MonoAccuracy
		fmt.Fprintf(&b, "## Calibration accuracy\n\n")
		fmt.Fprintf(&b, "Average reprojection error %.3f px (left %.3f, right %.3f): %s.\n",
			m.AverageError, m.LeftError, m.RightError, m.QualityGrade)
		if c.ConsistencyCheck != nil {
			fmt.Fprintf(&b, "Left/right consistency: %s.\n", c.ConsistencyCheck.OverallConsistency)
		}
		b.WriteString("\n")
	}

	if r := in.Reconstruction; r != nil && r.PointCloudAnalysis != nil {
		p := r.PointCloudAnalysis
		fmt.Fprintf(&b, "## Reconstruction quality\n\n")
		fmt.Fprintf(&b, "%d points (%s density), completeness %.3f.\n",
			p.TotalPoints, p.DensityLevel, p.CompletenessScore)
		if r.DepthAnalysis != nil {
			fmt.Fprintf(&b, "Depth range %.2f to %.2f m, estimated working volume %.3f m3.\n",
				r.DepthAnalysis.MinDepth, r.DepthAnalysis.MaxDepth, r.DepthAnalysis.WorkingVolumeM3)
		}
		b.WriteString("\n")
	}

	if p := in.Performance; p != nil && p.TimingAnalysis != nil {
		t := p.TimingAnalysis
		fmt.Fprintf(&b, "## Processing performance\n\n")
		fmt.Fprintf(&b, "Bottleneck stage: %s. Average stage time %.2fs, %.2f steps/minute.\n\n",
			t.Bottleneck, t.AverageSeconds, t.StepsPerMinute)
		for _, s := range p.OptimizationSuggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	if bm := in.Benchmark; bm != nil {
		fmt.Fprintf(&b, "## Benchmark comparison\n\n")
		b.WriteString("| Metric | Baseline | Actual | Verdict |\n|---|---|---|---|\n")
		writeComparison(&b, "Total time (s)", bm.TimeComparison)
		writeComparison(&b, "Calibration accuracy (px)", bm.AccuracyComparison)
		writeComparison(&b, "Point cloud size", bm.DensityComparison)
		b.WriteString("\n")
	}

	return w.WriteText(MarkdownFile, b.String())
}

func writeComparison(b *strings.Builder, label string, c *analysis.Comparison) {
	if c == nil {
		fmt.Fprintf(b, "| %s | n/a | unavailable | n/a |\n", label)
		return
	}
	fmt.Fprintf(b, "| %s | %.2f | %.2f | %s |\n", label, c.Baseline, c.Actual, c.Verdict)
}
