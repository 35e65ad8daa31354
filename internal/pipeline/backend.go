package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/banshee-data/stereolab/internal/fsutil"
)

// ExecResult is the outcome of one backend invocation.
type ExecResult struct {
	// ExitStatus is the process exit code. Zero is the canonical success code.
	ExitStatus int
	// Duration is the elapsed wall-clock time of the invocation.
	Duration time.Duration
	// Output is the captured combined stdout/stderr text.
	Output string
	// TimedOut reports that the invocation exceeded the configured ceiling.
	TimedOut bool
}

// Backend executes one pipeline stage. Implementations block until the stage
// finishes or the timeout elapses; there is no retry at this layer.
type Backend interface {
	Execute(ctx context.Context, stage StageID, args []string, timeout time.Duration) (*ExecResult, error)
}

// CommandBackend invokes an external processing binary, one subcommand per
// stage. It is the production Backend.
type CommandBackend struct {
	Binary  string
	WorkDir string
}

// NewCommandBackend creates a backend around the given processing binary.
func NewCommandBackend(binary, workDir string) *CommandBackend {
	return &CommandBackend{Binary: binary, WorkDir: workDir}
}

// Execute runs `<binary> <stage> <args...>` and captures its combined output.
// A deadline overrun is reported via TimedOut rather than an error so the
// caller can classify it distinctly from an ordinary nonzero exit.
func (b *CommandBackend) Execute(ctx context.Context, stage StageID, args []string, timeout time.Duration) (*ExecResult, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, b.Binary, append([]string{string(stage)}, args...)...)
	cmd.Dir = b.WorkDir

	start := time.Now()
	output, err := cmd.CombinedOutput()
	res := &ExecResult{
		Duration: time.Since(start),
		Output:   string(output),
	}

	if cctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitStatus = -1
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitCode()
			return res, nil
		}
		return nil, fmt.Errorf("invoke backend for stage %s: %w", stage, err)
	}

	res.ExitStatus = 0
	return res, nil
}

// SimulatedBackend stands in for the processing binary when none is built. It
// writes deterministic metrics and placeholder artifacts so the rest of the
// pipeline, the analyzers and the reports can be exercised end to end.
type SimulatedBackend struct {
	FS     fsutil.FileSystem
	RunDir string
}

// NewSimulatedBackend creates a simulated backend writing into runDir.
func NewSimulatedBackend(fs fsutil.FileSystem, runDir string) *SimulatedBackend {
	return &SimulatedBackend{FS: fs, RunDir: runDir}
}

func simFloat(v float64) *float64 { return &v }
func simInt(v int) *int           { return &v }

// simulatedDurations are the nominal per-stage processing times reported by
// the simulation.
var simulatedDurations = map[StageID]time.Duration{
	StageResize:            2000 * time.Millisecond,
	StageCornerDetection:   3500 * time.Millisecond,
	StageMonoCalibration:   8200 * time.Millisecond,
	StageStereoCalibration: 6800 * time.Millisecond,
	StageReconstruction:    12500 * time.Millisecond,
}

// Execute fabricates a successful stage outcome: metrics file, expected
// artifacts and a short log line.
func (b *SimulatedBackend) Execute(_ context.Context, stage StageID, _ []string, _ time.Duration) (*ExecResult, error) {
	metrics, err := b.simulatedMetrics(stage)
	if err != nil {
		return nil, err
	}

	if metrics != nil {
		data, err := json.MarshalIndent(metrics, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal simulated metrics for %s: %w", stage, err)
		}
		path := MetricsPath(b.RunDir, stage)
		if err := b.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := b.FS.WriteFile(path, data, 0o644); err != nil {
			return nil, err
		}
	}

	for _, rel := range ExpectedOutputPaths(stage) {
		path := filepath.Join(b.RunDir, rel)
		if err := b.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := b.FS.WriteFile(path, []byte("simulated artifact\n"), 0o644); err != nil {
			return nil, err
		}
	}

	return &ExecResult{
		ExitStatus: 0,
		Duration:   simulatedDurations[stage],
		Output:     fmt.Sprintf("[simulated] stage %s completed\n", stage),
	}, nil
}

// simulatedMetrics returns the canonical demo metrics for a stage, or nil for
// stages that carry none.
func (b *SimulatedBackend) simulatedMetrics(stage StageID) (any, error) {
	switch stage {
	case StageResize:
		return nil, nil
	case StageCornerDetection:
		return &CornerDetectionMetrics{
			LeftCamera:  DetectionStats{ImagesProcessed: 5, CornersDetected: 15, DetectionRate: 3.0},
			RightCamera: DetectionStats{ImagesProcessed: 5, CornersDetected: 14, DetectionRate: 2.8},
		}, nil
	case StageMonoCalibration:
		return &MonoCalibrationMetrics{
			LeftCamera: CameraCalibration{
				ReprojectionError: simFloat(0.45),
				ImagesUsed:        15,
				ParameterFile:     filepath.Join(b.RunDir, stage.DirName(), "calibration_params", "left_camera.yml"),
			},
			RightCamera: CameraCalibration{
				ReprojectionError: simFloat(0.52),
				ImagesUsed:        14,
				ParameterFile:     filepath.Join(b.RunDir, stage.DirName(), "calibration_params", "right_camera.yml"),
			},
		}, nil
	case StageStereoCalibration:
		return &StereoCalibrationMetrics{
			StereoReprojectionError: simFloat(0.68),
			BaselineDistance:        0.065,
			ConvergenceAngle:        2.3,
			RectificationQuality:    "HIGH",
			ParameterFile:           filepath.Join(b.RunDir, stage.DirName(), "stereo_params", "stereo_calibration.yml"),
		}, nil
	case StageReconstruction:
		return &ReconstructionMetrics{
			PointCloudSize: simInt(45678),
			OutputFormat:   "PLY",
			QualityLevel:   3,
			DepthRange:     &DepthRange{Min: 0.5, Max: 2.8},
			ModelFile:      filepath.Join(b.RunDir, stage.DirName(), "point_clouds", "reconstruction.ply"),
		}, nil
	default:
		return nil, fmt.Errorf("unknown stage id %q", stage)
	}
}

// MockBackend implements Backend for testing with scripted per-stage results.
type MockBackend struct {
	// Results maps stage ids to the result to return. Stages without an
	// entry succeed instantly with empty output.
	Results map[StageID]*ExecResult
	// Errs maps stage ids to invocation errors.
	Errs map[StageID]error
	// Calls records the stages executed, in order.
	Calls []StageID
	// Args records the argument list passed for each call.
	Args map[StageID][]string
}

// NewMockBackend creates an empty MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Results: make(map[StageID]*ExecResult),
		Errs:    make(map[StageID]error),
		Args:    make(map[StageID][]string),
	}
}

// Execute returns the scripted result for the stage.
func (m *MockBackend) Execute(_ context.Context, stage StageID, args []string, _ time.Duration) (*ExecResult, error) {
	m.Calls = append(m.Calls, stage)
	m.Args[stage] = args
	if err, ok := m.Errs[stage]; ok {
		return nil, err
	}
	if res, ok := m.Results[stage]; ok {
		return res, nil
	}
	return &ExecResult{ExitStatus: 0, Duration: time.Millisecond}, nil
}
