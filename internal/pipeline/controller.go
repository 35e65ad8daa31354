package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/stereolab/internal/config"
	"github.com/banshee-data/stereolab/internal/fsutil"
	"github.com/banshee-data/stereolab/internal/monitoring"
)

// StageState is the lifecycle state of one stage within a run.
type StageState string

const (
	StatePending   StageState = "Pending"
	StateRunning   StageState = "Running"
	StateSucceeded StageState = "Succeeded"
	StateFailed    StageState = "Failed"
)

// RunState is the terminal state of a whole run.
type RunState string

const (
	// RunPending means Run has not been called yet.
	RunPending RunState = "Pending"
	// RunCompleted means every stage succeeded.
	RunCompleted RunState = "Completed"
	// RunAborted means a stage failed and the run halted.
	RunAborted RunState = "Aborted"
)

// Controller executes the five stages in fixed order with fail-fast
// semantics: the first non-success outcome halts the run and no subsequent
// stage executes. One StepResult is appended per attempted stage, including
// the one that failed.
type Controller struct {
	cfg     *config.ExperimentConfig
	backend Backend
	fs      fsutil.FileSystem
	runDir  string

	states   map[StageID]StageState
	runState RunState
}

// NewController creates a Controller writing into runDir.
func NewController(cfg *config.ExperimentConfig, backend Backend, fs fsutil.FileSystem, runDir string) *Controller {
	states := make(map[StageID]StageState, len(StageOrder))
	for _, id := range StageOrder {
		states[id] = StatePending
	}
	return &Controller{
		cfg:      cfg,
		backend:  backend,
		fs:       fs,
		runDir:   runDir,
		states:   states,
		runState: RunPending,
	}
}

// CreateRunDirectories creates the full output subtree for the run.
func (c *Controller) CreateRunDirectories() error {
	for _, dir := range RunDirectories() {
		if err := c.fs.MkdirAll(filepath.Join(c.runDir, dir), 0o755); err != nil {
			return fmt.Errorf("create run directory %s: %w", dir, err)
		}
	}
	return nil
}

// StageState returns the lifecycle state of a stage.
func (c *Controller) StageState(id StageID) StageState {
	return c.states[id]
}

// RunState returns the terminal state of the run.
func (c *Controller) RunState() RunState {
	return c.runState
}

// Run executes the pipeline. It returns overall success plus the populated
// ResultStore; on failure the store holds whatever prefix of stages was
// attempted. Stage failures are fatal to the run but never to the process.
func (c *Controller) Run(ctx context.Context) (bool, *ResultStore) {
	store := NewResultStore()
	timeout := c.cfg.GetMaxProcessingTime()

	for _, id := range StageOrder {
		c.states[id] = StateRunning
		monitoring.Logf("pipeline: executing stage %s (timeout %s)", id, timeout)

		result := c.executeStage(ctx, id, timeout)
		if err := store.Append(result); err != nil {
			// Unreachable for a fixed stage order; guard anyway.
			monitoring.Logf("pipeline: record stage %s: %v", id, err)
		}

		if !result.Success {
			c.states[id] = StateFailed
			c.runState = RunAborted
			monitoring.Logf("pipeline: stage %s failed (%s), aborting run", id, result.FailureKind)
			return false, store
		}

		c.states[id] = StateSucceeded
		monitoring.Logf("pipeline: stage %s completed in %.2fs", id, result.ProcessingTime)
	}

	c.runState = RunCompleted
	return true, store
}

// executeStage invokes the backend for one stage and assembles its StepResult.
func (c *Controller) executeStage(ctx context.Context, id StageID, timeout time.Duration) *StepResult {
	spec := stageSpecs[id]
	result := &StepResult{
		StageID:    id,
		Parameters: spec.parameters(c.cfg),
	}

	res, err := c.backend.Execute(ctx, id, spec.args(c.cfg, c.runDir), timeout)
	if err != nil {
		result.Success = false
		result.FailureKind = FailureExec
		result.RawOutput = err.Error()
		return result
	}

	result.ProcessingTime = res.Duration.Seconds()
	result.RawOutput = res.Output

	switch {
	case res.TimedOut:
		result.Success = false
		result.FailureKind = FailureTimeout
		return result
	case res.ExitStatus != 0:
		result.Success = false
		result.FailureKind = FailureExec
		return result
	}

	result.Success = true
	result.Metrics = c.loadStageMetrics(id)
	c.checkExpectedOutputs(id, result)
	return result
}

// loadStageMetrics parses the metrics file the backend wrote for a successful
// stage. A missing or malformed file yields nil metrics; downstream analyzers
// handle that permissively rather than treating it as a measurement.
func (c *Controller) loadStageMetrics(id StageID) *StepMetrics {
	if stageSpecs[id].metricsFile == "" {
		return nil
	}

	data, err := c.fs.ReadFile(MetricsPath(c.runDir, id))
	if err != nil {
		monitoring.Logf("pipeline: no metrics for stage %s: %v", id, err)
		return nil
	}

	metrics := &StepMetrics{}
	switch id {
	case StageCornerDetection:
		metrics.CornerDetection = &CornerDetectionMetrics{}
		err = json.Unmarshal(data, metrics.CornerDetection)
	case StageMonoCalibration:
		metrics.MonoCalibration = &MonoCalibrationMetrics{}
		err = json.Unmarshal(data, metrics.MonoCalibration)
	case StageStereoCalibration:
		metrics.StereoCalibration = &StereoCalibrationMetrics{}
		err = json.Unmarshal(data, metrics.StereoCalibration)
	case StageReconstruction:
		metrics.Reconstruction = &ReconstructionMetrics{}
		err = json.Unmarshal(data, metrics.Reconstruction)
	default:
		return nil
	}
	if err != nil {
		monitoring.Logf("pipeline: malformed metrics for stage %s: %v", id, err)
		return nil
	}
	return metrics
}

// checkExpectedOutputs verifies the stage-declared artifact list. Missing
// artifacts are recorded as a soft warning; process-level success and
// artifact presence are tracked independently so reporting can surface
// partial artifact loss.
func (c *Controller) checkExpectedOutputs(id StageID, result *StepResult) {
	expected := ExpectedOutputPaths(id)
	if len(expected) == 0 {
		return
	}

	var missing []string
	for _, rel := range expected {
		if !c.fs.Exists(filepath.Join(c.runDir, rel)) {
			missing = append(missing, rel)
		}
	}

	complete := len(missing) == 0
	result.ExpectedOutputs = expected
	result.MissingOutputs = missing
	result.OutputsComplete = &complete

	if !complete {
		monitoring.Logf("pipeline: stage %s reported success but %d expected artifact(s) missing", id, len(missing))
	}
}
