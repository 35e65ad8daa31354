package viz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stereolab/internal/analysis"
	"github.com/banshee-data/stereolab/internal/fsutil"
	"github.com/banshee-data/stereolab/internal/monitoring"
	"github.com/banshee-data/stereolab/internal/pipeline"
)

func sampleStore(t *testing.T) *pipeline.ResultStore {
	t.Helper()
	store := pipeline.NewResultStore()
	times := map[pipeline.StageID]float64{
		pipeline.StageResize:            2.0,
		pipeline.StageCornerDetection:   3.5,
		pipeline.StageMonoCalibration:   8.2,
		pipeline.StageStereoCalibration: 6.8,
		pipeline.StageReconstruction:    12.5,
	}
	for _, id := range pipeline.StageOrder {
		require.NoError(t, store.Append(&pipeline.StepResult{
			StageID: id, Success: true, ProcessingTime: times[id],
		}))
	}
	return store
}

func TestWriteDashboard(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	g := NewGenerator(fs, "run")

	quality := &analysis.QualityAssessment{
		QualityScores: map[string]float64{"resize": 1.0, "mono_calibration": 0.515},
		OverallScore:  0.903,
		OverallGrade:  "A",
	}
	memReport := &monitoring.MemoryReport{
		Snapshots: []monitoring.MemorySnapshot{
			{Label: monitoring.MilestoneStart, UsedGB: 4.1},
			{Label: monitoring.MilestoneProcessing, UsedGB: 5.3},
		},
		PeakUsage:     monitoring.MemorySnapshot{UsedGB: 5.3},
		MemoryDeltaGB: 1.2,
	}

	require.NoError(t, g.WriteDashboard(sampleStore(t), quality, memReport))

	data, err := fs.ReadFile("run/visualizations/" + DashboardFile)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Stage Processing Time")
	assert.Contains(t, content, "Stage Quality Scores")
	assert.Contains(t, content, "Memory Usage")
}

func TestWriteDashboardEmptyRun(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	g := NewGenerator(fs, "run")

	require.NoError(t, g.WriteDashboard(pipeline.NewResultStore(), nil, nil))
	assert.True(t, fs.Exists("run/visualizations/"+DashboardFile))
}

func TestWriteTimingChart(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	g := NewGenerator(fs, "run")

	require.NoError(t, g.WriteTimingChart(sampleStore(t)))

	data, err := fs.ReadFile("run/visualizations/" + TimingChartFile)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// PNG signature.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestWriteTimingChartEmptyStore(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	g := NewGenerator(fs, "run")

	require.NoError(t, g.WriteTimingChart(pipeline.NewResultStore()))
	assert.False(t, fs.Exists("run/visualizations/"+TimingChartFile))
}
