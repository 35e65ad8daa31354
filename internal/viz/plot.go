package viz

import (
	"bytes"
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/stereolab/internal/pipeline"
)

// TimingChartFile is the static PNG timing chart filename under visualizations/.
const TimingChartFile = "stage_timings.png"

// WriteTimingChart renders the per-stage timing bar chart as a static PNG for
// embedding in the Markdown report.
func (g *Generator) WriteTimingChart(store *pipeline.ResultStore) error {
	results := store.Results()
	if len(results) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Stage Processing Time"
	p.Y.Label.Text = "seconds"

	values := make(plotter.Values, len(results))
	labels := make([]string, len(results))
	for i, r := range results {
		values[i] = r.ProcessingTime
		labels[i] = string(r.StageID)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return fmt.Errorf("build bar chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)

	writer, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render timing chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode timing chart: %w", err)
	}

	path := filepath.Join(g.runDir, "visualizations", TimingChartFile)
	if err := g.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write timing chart: %w", err)
	}
	return nil
}
