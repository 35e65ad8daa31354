// Package config loads and validates experiment configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExperimentConfig is the root configuration for one experiment run. All leaf
// fields are pointers so a partial JSON file only overrides what it names;
// the Get* accessors supply defaults for anything left nil.
type ExperimentConfig struct {
	Experiment        ExperimentInfo      `json:"experiment"`
	Paths             PathsConfig         `json:"paths"`
	Processing        ProcessingConfig    `json:"processing"`
	QualityThresholds ThresholdsConfig    `json:"quality_thresholds"`
	Backend           BackendConfig       `json:"backend"`
	Documentation     DocumentationConfig `json:"documentation"`
}

// ExperimentInfo describes the experiment for reports.
type ExperimentInfo struct {
	Name    *string `json:"name,omitempty"`
	Version *string `json:"version,omitempty"`
	Author  *string `json:"author,omitempty"`
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	Input  InputPaths  `json:"input"`
	Output OutputPaths `json:"output"`
}

// InputPaths locates the calibration image folders.
type InputPaths struct {
	LeftImages  *string `json:"left_images,omitempty"`
	RightImages *string `json:"right_images,omitempty"`
}

// OutputPaths controls where run results land.
type OutputPaths struct {
	BaseDir      *string `json:"base_dir,omitempty"`
	UseTimestamp *bool   `json:"use_timestamp,omitempty"`
}

// ProcessingConfig holds per-stage parameters.
type ProcessingConfig struct {
	ImageResize     ResizeConfig         `json:"image_resize"`
	CornerDetection CornerConfig         `json:"corner_detection"`
	Calibration     CalibrationConfig    `json:"calibration"`
	Reconstruction  ReconstructionConfig `json:"reconstruction"`
}

// ResizeConfig holds target dimensions for image preprocessing.
type ResizeConfig struct {
	TargetWidth   *int    `json:"target_width,omitempty"`
	TargetHeight  *int    `json:"target_height,omitempty"`
	Interpolation *string `json:"interpolation,omitempty"`
}

// CornerConfig describes the chessboard used for corner detection.
type CornerConfig struct {
	BoardWidth  *int     `json:"board_width,omitempty"`
	BoardHeight *int     `json:"board_height,omitempty"`
	ScaleFactor *float64 `json:"scale_factor,omitempty"`
}

// CalibrationConfig holds calibration parameters. SquareSize is in meters.
type CalibrationConfig struct {
	SquareSize      *float64 `json:"square_size,omitempty"`
	SaveUndistorted *bool    `json:"save_undistorted,omitempty"`
}

// ReconstructionConfig controls 3D reconstruction output.
// OutputFormat 0 is PLY, 1 is OBJ.
type ReconstructionConfig struct {
	OutputFormat *int `json:"output_format,omitempty"`
	QualityLevel *int `json:"quality_level,omitempty"`
}

// ThresholdsConfig holds the quality gates applied by the analyzers.
type ThresholdsConfig struct {
	MaxReprojectionError *float64 `json:"max_reprojection_error,omitempty"`
	MinPointCloudSize    *int     `json:"min_point_cloud_size,omitempty"`
	MaxProcessingTime    *string  `json:"max_processing_time,omitempty"` // duration string like "300s"
}

// BackendConfig locates the external processing binary.
type BackendConfig struct {
	Binary *string `json:"binary,omitempty"`
}

// DocumentationConfig controls report generation.
type DocumentationConfig struct {
	GenerateMarkdown *bool `json:"generate_markdown,omitempty"`
	GenerateCharts   *bool `json:"generate_charts,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultConfig returns the built-in configuration used when no config file is
// available or the provided one cannot be loaded.
func DefaultConfig() *ExperimentConfig {
	return &ExperimentConfig{
		Experiment: ExperimentInfo{
			Name:    ptrString("Automated stereo reconstruction experiment"),
			Version: ptrString("1.0.0"),
			Author:  ptrString("stereolab"),
		},
		Paths: PathsConfig{
			Input: InputPaths{
				LeftImages:  ptrString("input/left"),
				RightImages: ptrString("input/right"),
			},
			Output: OutputPaths{
				BaseDir:      ptrString("experiment_results"),
				UseTimestamp: ptrBool(true),
			},
		},
		Processing: ProcessingConfig{
			ImageResize: ResizeConfig{
				TargetWidth:   ptrInt(3264),
				TargetHeight:  ptrInt(2448),
				Interpolation: ptrString("LINEAR"),
			},
			CornerDetection: CornerConfig{
				BoardWidth:  ptrInt(9),
				BoardHeight: ptrInt(6),
				ScaleFactor: ptrFloat64(1.0),
			},
			Calibration: CalibrationConfig{
				SquareSize:      ptrFloat64(0.0082),
				SaveUndistorted: ptrBool(true),
			},
			Reconstruction: ReconstructionConfig{
				OutputFormat: ptrInt(0),
				QualityLevel: ptrInt(3),
			},
		},
		QualityThresholds: ThresholdsConfig{
			MaxReprojectionError: ptrFloat64(1.0),
			MinPointCloudSize:    ptrInt(1000),
			MaxProcessingTime:    ptrString("300s"),
		},
		Documentation: DocumentationConfig{
			GenerateMarkdown: ptrBool(true),
			GenerateCharts:   ptrBool(true),
		},
	}
}

// Load reads an ExperimentConfig from a JSON file. The path must have a .json
// extension and the file must be under 1MB. Fields omitted from the file keep
// their defaults via the Get* accessors, so partial configs are safe.
func Load(path string) (*ExperimentConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ExperimentConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that configured values are usable.
func (c *ExperimentConfig) Validate() error {
	if c.Processing.ImageResize.TargetWidth != nil && *c.Processing.ImageResize.TargetWidth <= 0 {
		return fmt.Errorf("target_width must be positive, got %d", *c.Processing.ImageResize.TargetWidth)
	}
	if c.Processing.ImageResize.TargetHeight != nil && *c.Processing.ImageResize.TargetHeight <= 0 {
		return fmt.Errorf("target_height must be positive, got %d", *c.Processing.ImageResize.TargetHeight)
	}
	if c.Processing.CornerDetection.BoardWidth != nil && *c.Processing.CornerDetection.BoardWidth < 2 {
		return fmt.Errorf("board_width must be at least 2, got %d", *c.Processing.CornerDetection.BoardWidth)
	}
	if c.Processing.CornerDetection.BoardHeight != nil && *c.Processing.CornerDetection.BoardHeight < 2 {
		return fmt.Errorf("board_height must be at least 2, got %d", *c.Processing.CornerDetection.BoardHeight)
	}
	if c.Processing.Calibration.SquareSize != nil && *c.Processing.Calibration.SquareSize <= 0 {
		return fmt.Errorf("square_size must be positive, got %f", *c.Processing.Calibration.SquareSize)
	}
	if c.Processing.Reconstruction.OutputFormat != nil {
		if f := *c.Processing.Reconstruction.OutputFormat; f != 0 && f != 1 {
			return fmt.Errorf("output_format must be 0 (PLY) or 1 (OBJ), got %d", f)
		}
	}
	if c.QualityThresholds.MaxReprojectionError != nil && *c.QualityThresholds.MaxReprojectionError <= 0 {
		return fmt.Errorf("max_reprojection_error must be positive, got %f", *c.QualityThresholds.MaxReprojectionError)
	}
	if c.QualityThresholds.MinPointCloudSize != nil && *c.QualityThresholds.MinPointCloudSize <= 0 {
		return fmt.Errorf("min_point_cloud_size must be positive, got %d", *c.QualityThresholds.MinPointCloudSize)
	}
	if c.QualityThresholds.MaxProcessingTime != nil && *c.QualityThresholds.MaxProcessingTime != "" {
		if _, err := time.ParseDuration(*c.QualityThresholds.MaxProcessingTime); err != nil {
			return fmt.Errorf("invalid max_processing_time %q: %w", *c.QualityThresholds.MaxProcessingTime, err)
		}
	}
	return nil
}

// GetName returns the experiment name or the default.
func (c *ExperimentConfig) GetName() string {
	if c.Experiment.Name == nil {
		return "Automated stereo reconstruction experiment"
	}
	return *c.Experiment.Name
}

// GetVersion returns the experiment version or the default.
func (c *ExperimentConfig) GetVersion() string {
	if c.Experiment.Version == nil {
		return "1.0.0"
	}
	return *c.Experiment.Version
}

// GetLeftImages returns the left calibration image folder.
func (c *ExperimentConfig) GetLeftImages() string {
	if c.Paths.Input.LeftImages == nil {
		return "input/left"
	}
	return *c.Paths.Input.LeftImages
}

// GetRightImages returns the right calibration image folder.
func (c *ExperimentConfig) GetRightImages() string {
	if c.Paths.Input.RightImages == nil {
		return "input/right"
	}
	return *c.Paths.Input.RightImages
}

// GetOutputBaseDir returns the base output directory name.
func (c *ExperimentConfig) GetOutputBaseDir() string {
	if c.Paths.Output.BaseDir == nil {
		return "experiment_results"
	}
	return *c.Paths.Output.BaseDir
}

// GetUseTimestamp reports whether output directories carry a timestamp suffix.
func (c *ExperimentConfig) GetUseTimestamp() bool {
	if c.Paths.Output.UseTimestamp == nil {
		return true
	}
	return *c.Paths.Output.UseTimestamp
}

// GetTargetWidth returns the resize target width.
func (c *ExperimentConfig) GetTargetWidth() int {
	if c.Processing.ImageResize.TargetWidth == nil {
		return 3264
	}
	return *c.Processing.ImageResize.TargetWidth
}

// GetTargetHeight returns the resize target height.
func (c *ExperimentConfig) GetTargetHeight() int {
	if c.Processing.ImageResize.TargetHeight == nil {
		return 2448
	}
	return *c.Processing.ImageResize.TargetHeight
}

// GetInterpolation returns the resize interpolation method.
func (c *ExperimentConfig) GetInterpolation() string {
	if c.Processing.ImageResize.Interpolation == nil {
		return "LINEAR"
	}
	return *c.Processing.ImageResize.Interpolation
}

// GetBoardWidth returns the chessboard inner corner count along the width.
func (c *ExperimentConfig) GetBoardWidth() int {
	if c.Processing.CornerDetection.BoardWidth == nil {
		return 9
	}
	return *c.Processing.CornerDetection.BoardWidth
}

// GetBoardHeight returns the chessboard inner corner count along the height.
func (c *ExperimentConfig) GetBoardHeight() int {
	if c.Processing.CornerDetection.BoardHeight == nil {
		return 6
	}
	return *c.Processing.CornerDetection.BoardHeight
}

// GetScaleFactor returns the corner detection scale factor.
func (c *ExperimentConfig) GetScaleFactor() float64 {
	if c.Processing.CornerDetection.ScaleFactor == nil {
		return 1.0
	}
	return *c.Processing.CornerDetection.ScaleFactor
}

// GetSquareSize returns the chessboard square size in meters.
func (c *ExperimentConfig) GetSquareSize() float64 {
	if c.Processing.Calibration.SquareSize == nil {
		return 0.0082
	}
	return *c.Processing.Calibration.SquareSize
}

// GetSaveUndistorted reports whether calibration saves undistorted images.
func (c *ExperimentConfig) GetSaveUndistorted() bool {
	if c.Processing.Calibration.SaveUndistorted == nil {
		return true
	}
	return *c.Processing.Calibration.SaveUndistorted
}

// GetOutputFormat returns the reconstruction output format code.
func (c *ExperimentConfig) GetOutputFormat() int {
	if c.Processing.Reconstruction.OutputFormat == nil {
		return 0
	}
	return *c.Processing.Reconstruction.OutputFormat
}

// GetOutputFormatName returns the reconstruction output format as a name.
func (c *ExperimentConfig) GetOutputFormatName() string {
	if c.GetOutputFormat() == 0 {
		return "PLY"
	}
	return "OBJ"
}

// GetQualityLevel returns the reconstruction quality level.
func (c *ExperimentConfig) GetQualityLevel() int {
	if c.Processing.Reconstruction.QualityLevel == nil {
		return 3
	}
	return *c.Processing.Reconstruction.QualityLevel
}

// GetMaxReprojectionError returns the reprojection error ceiling in pixels.
func (c *ExperimentConfig) GetMaxReprojectionError() float64 {
	if c.QualityThresholds.MaxReprojectionError == nil {
		return 1.0
	}
	return *c.QualityThresholds.MaxReprojectionError
}

// GetMinPointCloudSize returns the minimum acceptable point cloud size.
func (c *ExperimentConfig) GetMinPointCloudSize() int {
	if c.QualityThresholds.MinPointCloudSize == nil {
		return 1000
	}
	return *c.QualityThresholds.MinPointCloudSize
}

// GetMaxProcessingTime parses and returns the per-stage timeout.
func (c *ExperimentConfig) GetMaxProcessingTime() time.Duration {
	if c.QualityThresholds.MaxProcessingTime == nil || *c.QualityThresholds.MaxProcessingTime == "" {
		return 300 * time.Second
	}
	d, err := time.ParseDuration(*c.QualityThresholds.MaxProcessingTime)
	if err != nil {
		return 300 * time.Second
	}
	return d
}

// GetBackendBinary returns the external processing binary path, or empty if
// none is configured.
func (c *ExperimentConfig) GetBackendBinary() string {
	if c.Backend.Binary == nil {
		return ""
	}
	return *c.Backend.Binary
}

// GetGenerateMarkdown reports whether the Markdown report is rendered.
func (c *ExperimentConfig) GetGenerateMarkdown() bool {
	if c.Documentation.GenerateMarkdown == nil {
		return true
	}
	return *c.Documentation.GenerateMarkdown
}

// GetGenerateCharts reports whether visualization charts are rendered.
func (c *ExperimentConfig) GetGenerateCharts() bool {
	if c.Documentation.GenerateCharts == nil {
		return true
	}
	return *c.Documentation.GenerateCharts
}
