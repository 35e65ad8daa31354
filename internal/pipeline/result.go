package pipeline

import (
	"encoding/json"
	"fmt"
)

// FailureKind distinguishes why a stage failed. Both kinds halt the run.
type FailureKind string

const (
	// FailureNone marks a successful stage.
	FailureNone FailureKind = ""
	// FailureExec marks a nonzero exit status from the processing backend.
	FailureExec FailureKind = "exec"
	// FailureTimeout marks a backend invocation that exceeded the time ceiling.
	FailureTimeout FailureKind = "timeout"
)

// DetectionStats summarizes corner detection for one camera.
type DetectionStats struct {
	ImagesProcessed int     `json:"images_processed"`
	CornersDetected int     `json:"corners_detected"`
	DetectionRate   float64 `json:"detection_rate"`
}

// CornerDetectionMetrics is the metrics payload for the corner_detection stage.
type CornerDetectionMetrics struct {
	LeftCamera  DetectionStats `json:"left_camera"`
	RightCamera DetectionStats `json:"right_camera"`
}

// CameraCalibration holds per-camera calibration results. ReprojectionError is
// a pointer so a missing measurement is explicit and never aggregated as a
// number.
type CameraCalibration struct {
	ReprojectionError *float64 `json:"reprojection_error,omitempty"`
	ImagesUsed        int      `json:"images_used"`
	ParameterFile     string   `json:"parameter_file,omitempty"`
}

// MonoCalibrationMetrics is the metrics payload for the mono_calibration stage.
type MonoCalibrationMetrics struct {
	LeftCamera  CameraCalibration `json:"left_camera"`
	RightCamera CameraCalibration `json:"right_camera"`
}

// StereoCalibrationMetrics is the metrics payload for the stereo_calibration stage.
type StereoCalibrationMetrics struct {
	StereoReprojectionError *float64 `json:"stereo_reprojection_error,omitempty"`
	BaselineDistance        float64  `json:"baseline_distance"`
	ConvergenceAngle        float64  `json:"convergence_angle"`
	RectificationQuality    string   `json:"rectification_quality,omitempty"`
	ParameterFile           string   `json:"parameter_file,omitempty"`
}

// DepthRange is the min/max depth covered by a reconstruction, in meters.
type DepthRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ReconstructionMetrics is the metrics payload for the reconstruction stage.
type ReconstructionMetrics struct {
	PointCloudSize *int        `json:"point_cloud_size,omitempty"`
	OutputFormat   string      `json:"output_format,omitempty"`
	QualityLevel   int         `json:"quality_level"`
	DepthRange     *DepthRange `json:"depth_range,omitempty"`
	ModelFile      string      `json:"model_file,omitempty"`
}

// StepMetrics is the stage-specific metrics envelope. Exactly one field is set
// for stages that carry metrics; all fields are nil when the backend produced
// none (for example on failure).
type StepMetrics struct {
	CornerDetection   *CornerDetectionMetrics   `json:"corner_detection,omitempty"`
	MonoCalibration   *MonoCalibrationMetrics   `json:"mono_calibration,omitempty"`
	StereoCalibration *StereoCalibrationMetrics `json:"stereo_calibration,omitempty"`
	Reconstruction    *ReconstructionMetrics    `json:"reconstruction,omitempty"`
}

// StepResult records the outcome of one attempted stage. It is created by the
// Controller when the stage completes and never mutated afterwards.
type StepResult struct {
	StageID         StageID        `json:"stage_id"`
	Success         bool           `json:"success"`
	FailureKind     FailureKind    `json:"failure_kind,omitempty"`
	ProcessingTime  float64        `json:"processing_time"` // seconds
	Parameters      map[string]any `json:"parameters,omitempty"`
	Metrics         *StepMetrics   `json:"metrics,omitempty"`
	RawOutput       string         `json:"raw_output,omitempty"`
	ExpectedOutputs []string       `json:"expected_outputs,omitempty"`
	MissingOutputs  []string       `json:"missing_outputs,omitempty"`
	OutputsComplete *bool          `json:"outputs_complete,omitempty"`
}

// ResultStore is the append-only ordered mapping from stage to StepResult for
// one experiment run. It is written only by the Controller, one insertion per
// attempted stage; every downstream analyzer treats it as read-only.
type ResultStore struct {
	order   []StageID
	results map[StageID]*StepResult
}

// NewResultStore returns an empty ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[StageID]*StepResult)}
}

// Append records the result for a stage. A stage may only be recorded once.
func (s *ResultStore) Append(r *StepResult) error {
	if r == nil {
		return fmt.Errorf("nil step result")
	}
	if !r.StageID.Valid() {
		return fmt.Errorf("unknown stage id %q", r.StageID)
	}
	if _, exists := s.results[r.StageID]; exists {
		return fmt.Errorf("stage %q already recorded", r.StageID)
	}
	s.order = append(s.order, r.StageID)
	s.results[r.StageID] = r
	return nil
}

// Get returns the recorded result for a stage, if any.
func (s *ResultStore) Get(id StageID) (*StepResult, bool) {
	r, ok := s.results[id]
	return r, ok
}

// Stages returns the attempted stages in execution order.
func (s *ResultStore) Stages() []StageID {
	out := make([]StageID, len(s.order))
	copy(out, s.order)
	return out
}

// Results returns the recorded results in execution order.
func (s *ResultStore) Results() []*StepResult {
	out := make([]*StepResult, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.results[id])
	}
	return out
}

// Len returns the number of attempted stages.
func (s *ResultStore) Len() int {
	return len(s.order)
}

// TotalProcessingTime sums the recorded processing times, in seconds.
func (s *ResultStore) TotalProcessingTime() float64 {
	var total float64
	for _, r := range s.results {
		total += r.ProcessingTime
	}
	return total
}

// OverallSuccess reports whether every attempted stage succeeded and the full
// pipeline ran.
func (s *ResultStore) OverallSuccess() bool {
	if len(s.order) != len(StageOrder) {
		return false
	}
	for _, r := range s.results {
		if !r.Success {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the store as an object keyed by stage id.
func (s *ResultStore) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.results)
}

// UnmarshalJSON decodes an object keyed by stage id. Execution order is
// recovered from the canonical stage order: the fail-fast invariant guarantees
// attempted stages form a prefix of it.
func (s *ResultStore) UnmarshalJSON(data []byte) error {
	raw := make(map[StageID]*StepResult)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.order = nil
	s.results = make(map[StageID]*StepResult, len(raw))
	for _, id := range StageOrder {
		r, ok := raw[id]
		if !ok {
			continue
		}
		r.StageID = id
		s.order = append(s.order, id)
		s.results[id] = r
	}
	if len(s.results) != len(raw) {
		return fmt.Errorf("step_results contains unknown stage ids")
	}
	return nil
}
