// Package viz renders run visualizations: an HTML dashboard via go-echarts
// and a static PNG timing chart via gonum/plot, both under visualizations/.
package viz

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/stereolab/internal/analysis"
	"github.com/banshee-data/stereolab/internal/fsutil"
	"github.com/banshee-data/stereolab/internal/monitoring"
	"github.com/banshee-data/stereolab/internal/pipeline"
)

// DashboardFile is the HTML dashboard filename under visualizations/.
const DashboardFile = "dashboard.html"

// Generator renders visualizations into one run directory.
type Generator struct {
	fs     fsutil.FileSystem
	runDir string
}

// NewGenerator creates a Generator for runDir.
func NewGenerator(fs fsutil.FileSystem, runDir string) *Generator {
	return &Generator{fs: fs, runDir: runDir}
}

// WriteDashboard renders the combined HTML dashboard. Sections with no data
// are skipped; an empty store still yields a valid page.
func (g *Generator) WriteDashboard(store *pipeline.ResultStore, quality *analysis.QualityAssessment, memReport *monitoring.MemoryReport) error {
	page := components.NewPage()
	page.PageTitle = "Experiment Dashboard"

	if store.Len() > 0 {
		page.AddCharts(timingBar(store))
	}
	if quality != nil && len(quality.QualityScores) > 0 {
		page.AddCharts(qualityBar(quality))
	}
	if memReport != nil && len(memReport.Snapshots) > 0 {
		page.AddCharts(memoryLine(memReport))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}

	path := filepath.Join(g.runDir, "visualizations", DashboardFile)
	if err := g.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}

func timingBar(store *pipeline.ResultStore) *charts.Bar {
	var x []string
	var y []opts.BarData
	for _, r := range store.Results() {
		x = append(x, string(r.StageID))
		y = append(y, opts.BarData{Value: r.ProcessingTime})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Stage Processing Time", Subtitle: "seconds per stage"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("seconds", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func qualityBar(q *analysis.QualityAssessment) *charts.Bar {
	var x []string
	var y []opts.BarData
	for _, id := range pipeline.StageOrder {
		if score, ok := q.QualityScores[string(id)]; ok {
			x = append(x, string(id))
			y = append(y, opts.BarData{Value: score})
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Stage Quality Scores",
			Subtitle: fmt.Sprintf("overall %.3f (grade %s)", q.OverallScore, q.OverallGrade),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	bar.SetXAxis(x).AddSeries("score", y)
	return bar
}

func memoryLine(report *monitoring.MemoryReport) *charts.Line {
	var x []string
	var y []opts.LineData
	for _, s := range report.Snapshots {
		x = append(x, s.Label)
		y = append(y, opts.LineData{Value: s.UsedGB})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Memory Usage",
			Subtitle: fmt.Sprintf("peak %.2f GB, delta %.2f GB", report.PeakUsage.UsedGB, report.MemoryDeltaGB),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).AddSeries("used_gb", y, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}))
	return line
}
