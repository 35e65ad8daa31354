package report

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stereolab/internal/config"
	"github.com/banshee-data/stereolab/internal/fsutil"
	"github.com/banshee-data/stereolab/internal/monitoring"
	"github.com/banshee-data/stereolab/internal/pipeline"
)

var testStart = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleStore(t *testing.T) *pipeline.ResultStore {
	t.Helper()
	store := pipeline.NewResultStore()
	require.NoError(t, store.Append(&pipeline.StepResult{
		StageID: pipeline.StageResize, Success: true, ProcessingTime: 2.0,
		Parameters: map[string]any{"target_width": 3264},
	}))
	require.NoError(t, store.Append(&pipeline.StepResult{
		StageID: pipeline.StageCornerDetection, Success: true, ProcessingTime: 3.5,
	}))
	require.NoError(t, store.Append(&pipeline.StepResult{
		StageID: pipeline.StageMonoCalibration, Success: false,
		FailureKind: pipeline.FailureTimeout, ProcessingTime: 300.0,
	}))
	return store
}

func TestSummaryRoundTrip(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, "run")
	cfg := config.DefaultConfig()
	store := sampleStore(t)

	summary := BuildSummary(cfg, store, "run", testStart)
	require.NoError(t, w.Write(summary))

	loaded, err := LoadSummary(fs, "run")
	require.NoError(t, err)

	assert.Equal(t, summary.ExperimentInfo, loaded.ExperimentInfo)
	assert.Equal(t, store.Stages(), loaded.StepResults.Stages())

	// Writing the reloaded summary must reproduce the original file exactly.
	w2 := NewWriter(fs, "run2")
	require.NoError(t, w2.Write(loaded))

	first, err := fs.ReadFile("run/" + SummaryFile)
	require.NoError(t, err)
	second, err := fs.ReadFile("run2/" + SummaryFile)
	require.NoError(t, err)
	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("summary round trip mismatch (-first +second):\n%s", diff)
	}
}

func TestBuildSummaryMetadata(t *testing.T) {
	cfg := config.DefaultConfig()
	store := sampleStore(t)

	summary := BuildSummary(cfg, store, "run", testStart)

	assert.Equal(t, "2025-03-14T09:26:53Z", summary.ExperimentInfo.Timestamp)
	assert.False(t, summary.ExperimentInfo.OverallSuccess)
	assert.InDelta(t, 305.5, summary.ExperimentInfo.TotalProcessingTime, 1e-9)
	assert.Same(t, cfg, summary.Configuration)
}

func TestLoadSummaryMissingFile(t *testing.T) {
	_, err := LoadSummary(fsutil.NewMemoryFileSystem(), "run")
	assert.Error(t, err)
}

func TestWriteFinalSummaryListsPresentArtifacts(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, "run")

	// Only two of the six analysis artifacts exist.
	require.NoError(t, w.WriteAnalysis(ArtifactQualityAssessment, map[string]any{}))
	require.NoError(t, w.WriteAnalysis(ArtifactPerformanceBenchmark, map[string]any{}))

	memReport := &monitoring.MemoryReport{
		Snapshots: []monitoring.MemorySnapshot{{Label: monitoring.MilestoneStart, UsedGB: 4.2}},
	}
	info := ExperimentInfo{Name: "demo", OverallSuccess: true}
	require.NoError(t, w.WriteFinalSummary(info, memReport, testStart))

	loaded, err := fs.ReadFile("run/" + FinalSummaryFile)
	require.NoError(t, err)
	content := string(loaded)
	assert.Contains(t, content, ArtifactQualityAssessment)
	assert.Contains(t, content, ArtifactPerformanceBenchmark)
	assert.NotContains(t, content, ArtifactFileAnalysis)
	assert.Contains(t, content, monitoring.MilestoneStart)
}

func TestWriteJSONIndented(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, "run")

	require.NoError(t, w.WriteJSON("x.json", map[string]int{"a": 1}))

	data, err := fs.ReadFile("run/x.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}\n", string(data))
}
