package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStoreAppend(t *testing.T) {
	store := NewResultStore()

	require.NoError(t, store.Append(&StepResult{StageID: StageResize, Success: true}))
	require.NoError(t, store.Append(&StepResult{StageID: StageCornerDetection, Success: true}))

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []StageID{StageResize, StageCornerDetection}, store.Stages())

	t.Run("rejects duplicate stage", func(t *testing.T) {
		err := store.Append(&StepResult{StageID: StageResize})
		assert.Error(t, err)
	})

	t.Run("rejects unknown stage", func(t *testing.T) {
		err := store.Append(&StepResult{StageID: "warp_drive"})
		assert.Error(t, err)
	})

	t.Run("rejects nil result", func(t *testing.T) {
		assert.Error(t, store.Append(nil))
	})
}

func TestResultStoreOverallSuccess(t *testing.T) {
	t.Run("all five stages succeeded", func(t *testing.T) {
		store := NewResultStore()
		for _, id := range StageOrder {
			require.NoError(t, store.Append(&StepResult{StageID: id, Success: true}))
		}
		assert.True(t, store.OverallSuccess())
	})

	t.Run("partial run is not success", func(t *testing.T) {
		store := NewResultStore()
		require.NoError(t, store.Append(&StepResult{StageID: StageResize, Success: true}))
		assert.False(t, store.OverallSuccess())
	})

	t.Run("failed stage is not success", func(t *testing.T) {
		store := NewResultStore()
		for i, id := range StageOrder {
			require.NoError(t, store.Append(&StepResult{StageID: id, Success: i != 2}))
		}
		assert.False(t, store.OverallSuccess())
	})
}

func TestResultStoreTotalProcessingTime(t *testing.T) {
	store := NewResultStore()
	require.NoError(t, store.Append(&StepResult{StageID: StageResize, Success: true, ProcessingTime: 2.0}))
	require.NoError(t, store.Append(&StepResult{StageID: StageCornerDetection, Success: true, ProcessingTime: 3.5}))

	assert.InDelta(t, 5.5, store.TotalProcessingTime(), 1e-9)
}

func TestResultStoreJSONRoundTrip(t *testing.T) {
	store := NewResultStore()
	err := store.Append(&StepResult{
		StageID:        StageResize,
		Success:        true,
		ProcessingTime: 2.0,
		Parameters:     map[string]any{"target_width": 3264.0},
	})
	require.NoError(t, err)
	err = store.Append(&StepResult{
		StageID:        StageCornerDetection,
		Success:        false,
		FailureKind:    FailureTimeout,
		ProcessingTime: 300.0,
	})
	require.NoError(t, err)

	data, err := json.Marshal(store)
	require.NoError(t, err)

	loaded := NewResultStore()
	require.NoError(t, json.Unmarshal(data, loaded))

	assert.Equal(t, store.Stages(), loaded.Stages())

	r, ok := loaded.Get(StageCornerDetection)
	require.True(t, ok)
	assert.False(t, r.Success)
	assert.Equal(t, FailureTimeout, r.FailureKind)
}

func TestResultStoreUnmarshalRejectsUnknownStage(t *testing.T) {
	loaded := NewResultStore()
	err := json.Unmarshal([]byte(`{"warp_drive": {"success": true}}`), loaded)
	assert.Error(t, err)
}

func TestStageIDHelpers(t *testing.T) {
	assert.Equal(t, "step1_image_resize", StageResize.DirName())
	assert.Equal(t, "step5_3d_reconstruction", StageReconstruction.DirName())
	assert.Equal(t, 0, StageResize.Index())
	assert.Equal(t, 4, StageReconstruction.Index())
	assert.Equal(t, -1, StageID("bogus").Index())

	id, err := ParseStageID("mono_calibration")
	require.NoError(t, err)
	assert.Equal(t, StageMonoCalibration, id)

	_, err = ParseStageID("bogus")
	assert.Error(t, err)
}

func TestRunDirectoriesContract(t *testing.T) {
	dirs := RunDirectories()

	for _, want := range []string{"config", "logs", "analysis", "visualizations"} {
		assert.Contains(t, dirs, want)
	}
	assert.Contains(t, dirs, "step1_image_resize/output_images")
	assert.Contains(t, dirs, "step5_3d_reconstruction/point_clouds")
}
